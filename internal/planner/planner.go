// Package planner calls the chat-completion capability to classify video
// content and propose ranked insertion candidates (spec 4.3), in the
// strict-JSON-boundary-validation idiom of internal/services/openai.go's
// GeneratePlan, with the response shape grounded in
// original_source/src/services/llm_service.py's VideoAnalysis/InsertionPoint.
package planner

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bobarin/adinsert/internal/logging"
	"github.com/bobarin/adinsert/internal/pipeline"
	openai "github.com/sashabaranov/go-openai"
)

const maxLogLen = 2000

// insertionPointJSON / videoAnalysisJSON mirror the untrusted wire shape
// the chat model returns (spec 4.3 / 9 "Dynamic typing and untrusted JSON").
// Nothing downstream of Analyze sees these — they are validated then
// converted into pipeline types at the boundary.
type insertionPointJSON struct {
	Time           float64 `json:"time"`
	Priority       int     `json:"priority"`
	Reason         string  `json:"reason"`
	ContextBefore  string  `json:"context_before"`
	ContextAfter   string  `json:"context_after"`
	TransitionHint string  `json:"transition_hint"`
}

type videoAnalysisJSON struct {
	Theme           string               `json:"theme"`
	Category        string               `json:"category"`
	KeyPoints       []string             `json:"key_points"`
	Tone            string               `json:"tone"`
	TargetAudience  string               `json:"target_audience"`
	InsertionPoints []insertionPointJSON `json:"insertion_points"`
}

// VideoAnalysis is the validated, internal representation of a planner
// response.
type VideoAnalysis struct {
	Theme          string
	Category       string
	Tone           string
	TargetAudience string
	KeyPoints      []string
	Candidates     []pipeline.InsertionCandidate
}

// Client talks to the chat-completion capability.
type Client struct {
	openai *openai.Client
	model  string
	log    *logging.Logger
}

func New(apiKey, baseURL, model string, log *logging.Logger) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{
		openai: openai.NewClientWithConfig(cfg),
		model:  model,
		log:    log,
	}
}

// Analyze classifies the transcript and proposes up to numCandidates
// ranked insertion points, avoiding the first avoidStart and last
// avoidEnd seconds of a duration-second video (spec 4.3).
func (c *Client) Analyze(ctx context.Context, transcriptPrompt string, duration, avoidStart, avoidEnd float64, numCandidates int) (VideoAnalysis, error) {
	systemPrompt := fmt.Sprintf(`You are a video content analyst. Given a timestamped transcript, identify:
1. The overall theme and category of the video
2. Its tone and target audience
3. %d candidate moments suitable for inserting a short advertisement, ranked by priority (1 = best)

Insertion candidates must avoid the first %.1f seconds and the last %.1f seconds of the %.1f-second video.
For each candidate, describe the context immediately before and after the moment, and a short transition hint
for smoothing the cut. Respond with a single JSON object with fields:
theme, category, tone, target_audience, key_points (array of strings),
insertion_points (array of {time, priority, reason, context_before, context_after, transition_hint}).`,
		numCandidates, avoidStart, avoidEnd, duration)

	resp, err := c.openai.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: transcriptPrompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.7,
	})
	if err != nil {
		return VideoAnalysis{}, pipeline.NewError(pipeline.KindPlanMalformed, "planner", fmt.Errorf("chat completion request failed: %w", err))
	}
	if len(resp.Choices) == 0 {
		return VideoAnalysis{}, pipeline.NewError(pipeline.KindPlanMalformed, "planner", fmt.Errorf("no choices returned"))
	}

	raw := resp.Choices[0].Message.Content

	var parsed videoAnalysisJSON
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		c.logRaw("parse failed", raw)
		return VideoAnalysis{}, pipeline.NewError(pipeline.KindPlanMalformed, "planner", fmt.Errorf("unmarshal response: %w", err))
	}

	if missing := missingFields(parsed); len(missing) > 0 {
		c.logRaw(fmt.Sprintf("missing required fields: %v", missing), raw)
		return VideoAnalysis{}, pipeline.NewError(pipeline.KindPlanMalformed, "planner", fmt.Errorf("missing required fields: %v", missing))
	}

	candidates := make([]pipeline.InsertionCandidate, 0, len(parsed.InsertionPoints))
	for _, ip := range parsed.InsertionPoints {
		if ip.Time < avoidStart || ip.Time > duration-avoidEnd {
			continue // filtered per spec 4.3 — the orchestrator treats out-of-range candidates as untrusted
		}
		candidates = append(candidates, pipeline.InsertionCandidate{
			Time:           ip.Time,
			Priority:       ip.Priority,
			Rationale:      ip.Reason,
			ContextBefore:  ip.ContextBefore,
			ContextAfter:   ip.ContextAfter,
			TransitionHint: ip.TransitionHint,
		})
	}

	if len(candidates) == 0 {
		return VideoAnalysis{}, pipeline.NewError(pipeline.KindNoViableCandidates, "planner", nil)
	}

	return VideoAnalysis{
		Theme:          parsed.Theme,
		Category:       parsed.Category,
		Tone:           parsed.Tone,
		TargetAudience: parsed.TargetAudience,
		KeyPoints:      parsed.KeyPoints,
		Candidates:     candidates,
	}, nil
}

func missingFields(p videoAnalysisJSON) []string {
	var missing []string
	if p.Theme == "" {
		missing = append(missing, "theme")
	}
	if p.Category == "" {
		missing = append(missing, "category")
	}
	if p.Tone == "" {
		missing = append(missing, "tone")
	}
	if len(p.InsertionPoints) == 0 {
		missing = append(missing, "insertion_points")
	}
	return missing
}

func (c *Client) logRaw(reason, raw string) {
	if c.log == nil {
		return
	}
	if len(raw) > maxLogLen {
		c.log.Warn("%s; raw response (truncated): %s...", reason, raw[:maxLogLen])
	} else {
		c.log.Warn("%s; raw response: %s", reason, raw)
	}
}
