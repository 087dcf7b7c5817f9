// Package remotejob is the ComfyUI-style job-graph client for the remote
// generative stage (spec 4.8): upload, submit, poll, await, download, and
// class_type-keyed template injection, grounded in
// original_source/src/services/comfyui_client.py and digital_human.py's
// _prepare_workflow.
package remotejob

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
)

// Node is one job-graph node: a class_type label and its opaque inputs
// map. The template is never walked by node id — only by class_type
// (spec 4.8, 9 "Opaque external job graphs").
type Node struct {
	ClassType string                 `json:"class_type"`
	Inputs    map[string]interface{} `json:"inputs"`
	Meta      map[string]interface{} `json:"_meta,omitempty"`
}

// Graph is a job-graph template: node id -> Node.
type Graph map[string]Node

// LoadTemplate reads a job-graph template from path.
func LoadTemplate(path string) (Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", path, err)
	}
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse template %s: %w", path, err)
	}
	return g, nil
}

// VerifyTemplates checks that every named workflow template file exists
// and parses, so a missing/malformed template surfaces at CLI startup
// rather than mid-pipeline (supplemented feature, SPEC_FULL.md section C,
// grounded in original_source/src/core/ad_orchestrator.py's
// check_all_workflows).
func VerifyTemplates(paths ...string) error {
	for _, path := range paths {
		if _, err := LoadTemplate(path); err != nil {
			return fmt.Errorf("workflow template preflight: %w", err)
		}
	}
	return nil
}

// Clone deep-copies the graph so injection never mutates the loaded
// template (the template is reused across pipeline runs).
func (g Graph) Clone() Graph {
	out := make(Graph, len(g))
	for id, node := range g {
		inputs := make(map[string]interface{}, len(node.Inputs))
		for k, v := range node.Inputs {
			inputs[k] = v
		}
		out[id] = Node{ClassType: node.ClassType, Inputs: inputs, Meta: node.Meta}
	}
	return out
}

// classMatches reports whether a node's class_type matches pattern. A
// pattern ending in "*" is a prefix match (spec 4.8's "TextEncode*",
// "MultiLinePrompt*"); otherwise it is an exact match.
func classMatches(classType, pattern string) bool {
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(classType, strings.TrimSuffix(pattern, "*"))
	}
	return classType == pattern
}

// forEachClass walks the graph, invoking fn for every node whose
// class_type matches pattern. A pattern matching no node is not an error
// (spec 9): the injection is simply skipped.
func forEachClass(g Graph, pattern string, fn func(id string, node Node)) {
	for id, node := range g {
		if classMatches(node.ClassType, pattern) {
			fn(id, node)
		}
	}
}

// MinEdgeCap returns the max(width,height) value to forward to the
// digital-human scaler node, capping the minimum edge at 480 (spec 4.8):
// if min(w,h) > 480, both are scaled by 480/min(w,h) before taking the max.
func MinEdgeCap(width, height int) int {
	minEdge := math.Min(float64(width), float64(height))
	if minEdge <= 480 {
		return maxInt(width, height)
	}
	scale := 480 / minEdge
	scaledW := float64(width) * scale
	scaledH := float64(height) * scale
	return int(math.Round(math.Max(scaledW, scaledH)))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// InjectImageCleanup writes the uploaded image name and prompt text into
// an image-cleanup template (spec 4.8 table row 1).
func InjectImageCleanup(g Graph, uploadedImageName, positivePrompt, negativePrompt string) Graph {
	out := g.Clone()

	forEachClass(out, "LoadImage", func(id string, node Node) {
		node.Inputs["image"] = uploadedImageName
		out[id] = node
	})

	forEachClass(out, "TextEncode*", func(id string, node Node) {
		// Polarity is resolved from the node's existing prompt value, not
		// its _meta.title (original_source/src/services/image_cleaner.py's
		// _prepare_workflow: a non-empty current prompt is the positive
		// encoder, an empty one is the negative encoder).
		currentPrompt, _ := node.Inputs["prompt"].(string)
		if currentPrompt != "" {
			node.Inputs["prompt"] = positivePrompt
		} else {
			node.Inputs["prompt"] = negativePrompt
		}
		out[id] = node
	})

	return out
}

// InjectVoiceClone writes the uploaded reference-audio name and ad copy
// text into a voice-clone template (spec 4.8 table row 2).
func InjectVoiceClone(g Graph, uploadedAudioName, adCopy string) Graph {
	out := g.Clone()

	forEachClass(out, "LoadAudio", func(id string, node Node) {
		node.Inputs["audio"] = uploadedAudioName
		out[id] = node
	})

	forEachClass(out, "MultiLinePrompt*", func(id string, node Node) {
		node.Inputs["multi_line_prompt"] = adCopy
		out[id] = node
	})

	return out
}

// DigitalHumanParams bundles the fields InjectDigitalHuman writes.
type DigitalHumanParams struct {
	UploadedImageName string
	UploadedAudioName string
	FPS               int
	TargetWidth       int
	TargetHeight      int
}

// InjectDigitalHuman writes image/audio filenames, fps, and the min-edge
// capped scale target into a digital-human template (spec 4.8 table row 3).
func InjectDigitalHuman(g Graph, params DigitalHumanParams) Graph {
	out := g.Clone()

	forEachClass(out, "LoadImage", func(id string, node Node) {
		node.Inputs["image"] = params.UploadedImageName
		out[id] = node
	})
	forEachClass(out, "LoadAudio", func(id string, node Node) {
		node.Inputs["audio"] = params.UploadedAudioName
		out[id] = node
	})
	forEachClass(out, "MultiTalkWav2VecEmbeds", func(id string, node Node) {
		node.Inputs["fps"] = params.FPS
		out[id] = node
	})
	forEachClass(out, "VHS_VideoCombine", func(id string, node Node) {
		node.Inputs["frame_rate"] = params.FPS
		out[id] = node
	})
	forEachClass(out, "LayerUtility:ImageScaleByAspectRatio V2", func(id string, node Node) {
		node.Inputs["scale_to_length"] = MinEdgeCap(params.TargetWidth, params.TargetHeight)
		out[id] = node
	})
	forEachClass(out, "WanVideoImageToVideoMultiTalk", func(id string, node Node) {
		node.Inputs["colormatch"] = "strong"
		out[id] = node
	})
	forEachClass(out, "WanVideoDecode", func(id string, node Node) {
		node.Inputs["normalization"] = "minmax"
		out[id] = node
	})

	return out
}
