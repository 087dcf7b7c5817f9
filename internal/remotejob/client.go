package remotejob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bobarin/adinsert/internal/httpx"
	"github.com/bobarin/adinsert/internal/logging"
	"github.com/google/uuid"
)

var audioExtensions = map[string]bool{
	".wav": true, ".mp3": true, ".flac": true, ".m4a": true, ".aac": true, ".ogg": true,
}

// UploadResult is the server's response to a file upload.
type UploadResult struct {
	Name     string `json:"name"`
	Subfolder string `json:"subfolder"`
	Type     string `json:"type"`
}

// JobStatus is the normalized result of a status poll.
type JobStatus struct {
	Pending bool
	Running bool
	Success bool
	Error   bool
	Message string
	Outputs map[string]json.RawMessage
}

// FileRef identifies one generated output file to download (spec 4.8's
// download(filename, subfolder, kind)).
type FileRef struct {
	Filename  string
	Subfolder string
	Kind      string // "images" | "videos" | "audio"
}

// Client talks to the remote job-graph service over the retrying HTTP
// substrate (internal/httpx), mirroring
// original_source/src/services/comfyui_client.py's ComfyUIClient.
type Client struct {
	baseURL string
	http    *httpx.Client
	log     *logging.Logger
}

func New(baseURL string, log *logging.Logger) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpx.New(log), log: log}
}

// Upload sends filePath to the image or audio endpoint based on its
// extension (spec 4.8).
func (c *Client) Upload(ctx context.Context, filePath string) (UploadResult, error) {
	endpoint := "image"
	if audioExtensions[strings.ToLower(filepath.Ext(filePath))] {
		endpoint = "audio"
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return UploadResult{}, fmt.Errorf("read upload file: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	fieldName := "image"
	if endpoint == "audio" {
		fieldName = "audio"
	}
	part, err := writer.CreateFormFile(fieldName, filepath.Base(filePath))
	if err != nil {
		return UploadResult{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return UploadResult{}, fmt.Errorf("write form file: %w", err)
	}
	if err := writer.WriteField("overwrite", "true"); err != nil {
		return UploadResult{}, fmt.Errorf("write overwrite field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return UploadResult{}, fmt.Errorf("close multipart writer: %w", err)
	}

	uploadURL := fmt.Sprintf("%s/upload/%s", c.baseURL, endpoint)
	bodyBytes := body.Bytes()

	resp, err := c.http.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(bodyBytes))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", writer.FormDataContentType())
		return req, nil
	})
	if err != nil {
		return UploadResult{}, fmt.Errorf("upload %s: %w", filePath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return UploadResult{}, fmt.Errorf("upload %s: server returned %d", filePath, resp.StatusCode)
	}

	var result UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return UploadResult{}, fmt.Errorf("decode upload response: %w", err)
	}
	return result, nil
}

// SubmitGraph submits graph and returns the assigned job id.
func (c *Client) SubmitGraph(ctx context.Context, graph Graph) (string, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"prompt":    graph,
		"client_id": uuid.New().String(),
	})
	if err != nil {
		return "", fmt.Errorf("marshal graph: %w", err)
	}

	submitURL := c.baseURL + "/prompt"
	resp, err := c.http.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, submitURL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return "", fmt.Errorf("submit graph: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		PromptID   string          `json:"prompt_id"`
		NodeErrors json.RawMessage `json:"node_errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode submit response: %w", err)
	}
	if len(result.NodeErrors) > 0 && string(result.NodeErrors) != "{}" && string(result.NodeErrors) != "null" {
		return "", fmt.Errorf("graph rejected, node errors: %s", result.NodeErrors)
	}
	if result.PromptID == "" {
		return "", fmt.Errorf("submit response missing prompt_id")
	}
	return result.PromptID, nil
}

// PollStatus reads the current status of jobID.
func (c *Client) PollStatus(ctx context.Context, jobID string) (JobStatus, error) {
	historyURL := fmt.Sprintf("%s/history/%s", c.baseURL, jobID)
	resp, err := c.http.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, historyURL, nil)
	})
	if err != nil {
		return JobStatus{}, fmt.Errorf("poll status: %w", err)
	}
	defer resp.Body.Close()

	var history map[string]struct {
		Status struct {
			StatusStr string   `json:"status_str"`
			Messages  []string `json:"messages"`
		} `json:"status"`
		Outputs map[string]json.RawMessage `json:"outputs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		return JobStatus{}, fmt.Errorf("decode history: %w", err)
	}

	entry, ok := history[jobID]
	if !ok {
		return JobStatus{Pending: true}, nil
	}

	switch entry.Status.StatusStr {
	case "success":
		return JobStatus{Success: true, Outputs: entry.Outputs}, nil
	case "error":
		return JobStatus{Error: true, Message: strings.Join(entry.Status.Messages, "; ")}, nil
	default:
		return JobStatus{Running: true}, nil
	}
}

// AwaitCompletion polls jobID every pollInterval until it succeeds,
// errors, or timeout elapses (spec 4.8/4.10).
func (c *Client) AwaitCompletion(ctx context.Context, jobID string, timeout, pollInterval time.Duration) (map[string]json.RawMessage, error) {
	deadline := time.Now().Add(timeout)

	for {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("job %s timed out after %s", jobID, timeout)
		}

		status, err := c.PollStatus(ctx, jobID)
		if err != nil {
			return nil, err
		}

		if status.Success {
			return status.Outputs, nil
		}
		if status.Error {
			return nil, fmt.Errorf("job %s failed: %s", jobID, status.Message)
		}

		timer := time.NewTimer(pollInterval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}
}

// Download fetches ref's bytes and writes them to outPath.
func (c *Client) Download(ctx context.Context, ref FileRef, outPath string) error {
	values := url.Values{}
	values.Set("filename", ref.Filename)
	values.Set("type", "output")
	if ref.Subfolder != "" {
		values.Set("subfolder", ref.Subfolder)
	}
	downloadURL := fmt.Sprintf("%s/view?%s", c.baseURL, values.Encode())

	resp, err := c.http.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	})
	if err != nil {
		return fmt.Errorf("download %s: %w", ref.Filename, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("download %s: server returned %d", ref.Filename, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create download file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("write download file: %w", err)
	}
	return nil
}
