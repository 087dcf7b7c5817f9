// Package adcopy generates the short contextual ad script spoken by the
// digital human (spec 4.7), grounded in
// original_source/src/services/llm_service.py's generate_ad_script: a
// chat-completion call with a template fallback on failure or too-short
// output, and truncation of too-long output.
package adcopy

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bobarin/adinsert/internal/logging"
	"github.com/bobarin/adinsert/internal/pipeline"
	openai "github.com/sashabaranov/go-openai"
)

// Client generates ad copy via chat completion, falling back to an
// ad's configured template when generation fails or the result is
// shorter than minLength, and truncating results longer than maxLength.
// Lengths are counted in characters (runes).
type Client struct {
	openai    *openai.Client
	model     string
	minLength int
	maxLength int
	log       *logging.Logger
}

func New(apiKey, baseURL, model string, minLength, maxLength int, log *logging.Logger) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{
		openai:    openai.NewClientWithConfig(cfg),
		model:     model,
		minLength: minLength,
		maxLength: maxLength,
		log:       log,
	}
}

// Request bundles the video-context and ad fields generate_ad_script needs.
type Request struct {
	VideoTheme     string
	VideoCategory  string
	VideoTone      string
	ContextBefore  string
	ContextAfter   string
	TransitionHint string
	Ad             pipeline.AdEntry
	Language       string
}

// Generate produces an ad script for the given plan context. On any
// generation failure, or a script shorter than minLength characters, it
// falls back to the ad's configured template for the video's category; a
// script longer than maxLength characters is truncated to maxLength.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	template, hasTemplate := req.Ad.Template(req.VideoCategory)

	systemPrompt := buildSystemPrompt(req.Language)
	userPrompt := buildUserPrompt(req)

	resp, err := c.openai.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: 0.9,
	})
	if err != nil {
		c.log.Warn("ad copy generation failed, using template: %v", err)
		return c.fallback(template, hasTemplate)
	}
	if len(resp.Choices) == 0 {
		c.log.Warn("ad copy generation returned no choices, using template")
		return c.fallback(template, hasTemplate)
	}

	script := strings.TrimSpace(resp.Choices[0].Message.Content)

	length := utf8.RuneCountInString(script)
	if length < c.minLength {
		c.log.Warn("ad copy too short (%d chars), using template", length)
		return c.fallback(template, hasTemplate)
	}
	if length > c.maxLength {
		c.log.Warn("ad copy too long (%d chars), truncating", length)
		script = string([]rune(script)[:c.maxLength])
	}

	return script, nil
}

func (c *Client) fallback(template string, hasTemplate bool) (string, error) {
	if !hasTemplate {
		return "", pipeline.NewError(pipeline.KindAdCopyLengthOutOfRange, "adcopy", fmt.Errorf("no usable template for fallback"))
	}
	return template, nil
}

func buildSystemPrompt(language string) string {
	languageName := languageName(language)
	return fmt.Sprintf(`You are a creative ad copywriter who excels at creating humorous, contextual soft advertisements in %s.

Your specialty is making ads that:
1. Seamlessly blend with the video content (viewers barely notice it's an ad)
2. Use clever wordplay, humor, or wit related to the video topic
3. Create a natural transition that feels like part of the conversation
4. Are engaging and entertaining, not salesy or pushy
5. Highlight product benefits in a fun, relatable way

Style guidelines:
- Be conversational and friendly
- Use humor when appropriate (puns, clever analogies, playful language)
- Reference the video context directly
- Make it feel like a natural aside or helpful tip from a friend
- Avoid corporate jargon or overly formal language`, languageName)
}

func buildUserPrompt(req Request) string {
	var transition string
	if req.TransitionHint != "" {
		transition = fmt.Sprintf("Suggested transition approach: %s", req.TransitionHint)
	}

	return fmt.Sprintf(`Video Context:
- Theme: %s
- Category: %s
- Tone: %s

What was just said (before insertion point):
"%s"

What comes next (after insertion point):
"%s"

%s

Product to mention:
- Name: %s
- Key Benefits: %s

---

Create a humorous, contextual ad script that:
1. References something from the "before" context to create a smooth transition
2. Adds humor, wit, or a clever connection to the video topic
3. Naturally introduces %s as a solution or enhancement
4. Keeps the tone consistent with the video (%s)
5. Length: %s
6. Language: %s ONLY

Return ONLY the ad script - no explanations, markers, or meta-commentary.`,
		req.VideoTheme, req.VideoCategory, req.VideoTone,
		req.ContextBefore, req.ContextAfter, transition,
		req.Ad.DisplayName, strings.Join(req.Ad.SellingPoints, ", "),
		req.Ad.DisplayName, req.VideoTone, lengthRequirement(req.Language), languageName(req.Language))
}

func languageName(language string) string {
	switch {
	case strings.HasPrefix(language, "zh"), strings.HasPrefix(language, "cn"):
		return "Chinese"
	case strings.HasPrefix(language, "en"):
		return "English"
	case strings.HasPrefix(language, "ja"):
		return "Japanese"
	case strings.HasPrefix(language, "ko"):
		return "Korean"
	default:
		return language
	}
}

func lengthRequirement(language string) string {
	switch {
	case strings.HasPrefix(language, "zh"), strings.HasPrefix(language, "cn"):
		return "15-30 characters"
	case strings.HasPrefix(language, "ja"):
		return "15-30 characters"
	case strings.HasPrefix(language, "ko"):
		return "15-30 characters"
	default:
		return "5-15 words"
	}
}
