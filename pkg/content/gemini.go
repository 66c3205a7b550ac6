package content

import (
	"context"
	"fmt"
	"strings"

	"autored/pkg/config"
	errs "autored/pkg/errors"
)

// Gemini produces post text with the generateContent REST API
type Gemini struct {
	client  *Client
	baseURL string
	apiKey  string
	model   string
}

// NewGemini creates a Gemini text producer
func NewGemini(client *Client, cfg config.GenerationConfig) *Gemini {
	return &Gemini{
		client:  client,
		baseURL: strings.TrimRight(cfg.GoogleBaseURL, "/"),
		apiKey:  cfg.GoogleAPIKey,
		model:   cfg.TextModel,
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseMIMEType string `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// generate sends one prompt and returns the concatenated answer text
func (g *Gemini) generate(ctx context.Context, prompt string, jsonOut bool) (string, error) {
	if g.apiKey == "" {
		return "", errs.ContentGeneration("gemini API key is not set", nil)
	}

	req := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	}
	if jsonOut {
		req.GenerationConfig = &geminiGenerationConfig{ResponseMIMEType: "application/json"}
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)
	var resp geminiResponse
	if err := g.client.PostJSON(ctx, endpoint, map[string]string{"x-goog-api-key": g.apiKey}, req, &resp); err != nil {
		return "", errs.ContentGeneration("gemini generateContent", err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", errs.ContentGeneration("gemini blocked the prompt: "+resp.PromptFeedback.BlockReason, nil)
	}
	if len(resp.Candidates) == 0 {
		return "", errs.ContentGeneration("gemini returned no candidates", nil)
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", errs.ContentGeneration("gemini returned an empty answer", nil)
	}
	return text, nil
}

// ImagePrompt asks for a detailed portrait description
func (g *Gemini) ImagePrompt(ctx context.Context) (string, error) {
	return g.generate(ctx, imagePromptInstruction, false)
}

// PostContent writes a title and copy for an image description. The first
// line of the answer is the title, the rest is the copy.
func (g *Gemini) PostContent(ctx context.Context, imageContext string) (title, body string, err error) {
	text, err := g.generate(ctx, postContentInstruction+imageContext, false)
	if err != nil {
		return "", "", err
	}
	title, body = splitPostContent(text)
	return title, body, nil
}

// Element produces prompt, title and copy in one JSON answer
func (g *Gemini) Element(ctx context.Context) (*Element, error) {
	text, err := g.generate(ctx, elementInstruction, true)
	if err != nil {
		return nil, err
	}
	el, err := ParseElement(text)
	if err != nil {
		return nil, errs.ContentGeneration("gemini element", err)
	}
	return el, nil
}
