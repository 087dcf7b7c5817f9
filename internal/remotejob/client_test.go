package remotejob

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bobarin/adinsert/internal/logging"
)

func TestUploadRoutesByExtension(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(UploadResult{Name: "uploaded", Type: "input"})
	}))
	defer server.Close()

	dir := t.TempDir()
	audioPath := filepath.Join(dir, "sample.wav")
	if err := os.WriteFile(audioPath, []byte("fake-audio"), 0o644); err != nil {
		t.Fatalf("write sample audio: %v", err)
	}

	c := New(server.URL, logging.New("test"))
	result, err := c.Upload(t.Context(), audioPath)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if result.Name != "uploaded" {
		t.Errorf("Name = %q, want uploaded", result.Name)
	}
	if gotPath != "/upload/audio" {
		t.Errorf("upload path = %q, want /upload/audio", gotPath)
	}
}

func TestSubmitGraphRejectsNodeErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"node_errors": map[string]interface{}{"1": "bad input"},
		})
	}))
	defer server.Close()

	c := New(server.URL, logging.New("test"))
	_, err := c.SubmitGraph(t.Context(), Graph{})
	if err == nil {
		t.Fatalf("expected error on node_errors")
	}
}

func TestAwaitCompletionTimesOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{})
	}))
	defer server.Close()

	c := New(server.URL, logging.New("test"))
	_, err := c.AwaitCompletion(t.Context(), "job1", 50*time.Millisecond, 10*time.Millisecond)
	if err == nil {
		t.Fatalf("expected timeout error")
	}
}

func TestAwaitCompletionReturnsOutputsOnSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"job1": map[string]interface{}{
				"status":  map[string]interface{}{"status_str": "success"},
				"outputs": map[string]interface{}{"9": map[string]interface{}{"images": []map[string]string{{"filename": "out.png"}}}},
			},
		})
	}))
	defer server.Close()

	c := New(server.URL, logging.New("test"))
	outputs, err := c.AwaitCompletion(t.Context(), "job1", time.Second, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("AwaitCompletion() error = %v", err)
	}

	ref, err := findOutput(outputs, "images")
	if err != nil {
		t.Fatalf("findOutput() error = %v", err)
	}
	if ref.Filename != "out.png" {
		t.Errorf("Filename = %q, want out.png", ref.Filename)
	}
}
