// Package content produces post material: the image prompt, title and copy
// from a text model, and the images themselves from an image model.
package content

import (
	"context"
	"encoding/json"
	"strings"

	errs "autored/pkg/errors"
)

// Element is one post's worth of generated text
type Element struct {
	ImagePrompt string `json:"image_prompt"`
	Title       string `json:"title"`
	Copy        string `json:"copy"`
}

// Fallbacks used when a model leaves a field out
const (
	defaultTitle = "title"
	defaultCopy  = "nothing"
)

// TextProducer generates post text
type TextProducer interface {
	Element(ctx context.Context) (*Element, error)
}

// ImageBackend renders one image for a prompt
type ImageBackend interface {
	Render(ctx context.Context, prompt string) ([]byte, error)
}

const imagePromptInstruction = "Create a detailed, vivid description for a high-quality AI-generated portrait of a beautiful woman. " +
	"Include style, lighting, background, and any artistic details that would help an image model produce a striking result."

const postContentInstruction = "Based on the following image description, write a catchy title (max 20 characters) and a short, engaging copy " +
	"(around 100 characters) suitable for a Xiaohongshu post. Use a friendly, trendy tone.\n" +
	"Image description: "

const elementInstruction = "You write Xiaohongshu posts built around one AI-generated portrait. " +
	"Reply with a single JSON object and nothing else, using exactly these keys:\n" +
	`{"image_prompt": "<detailed English description of the portrait: subject, style, lighting, background>", ` +
	`"title": "<catchy title, at most 20 characters>", ` +
	`"copy": "<friendly, trendy post copy of about 100 characters with a few hashtags>"}`

// splitPostContent splits a model answer into title (first line) and copy
// (the rest)
func splitPostContent(text string) (title, body string) {
	text = strings.TrimSpace(text)
	first, rest, _ := strings.Cut(text, "\n")
	return strings.TrimSpace(first), strings.TrimSpace(rest)
}

// ParseElement extracts an Element from a model answer. The JSON object may
// be wrapped in a fenced code block or surrounded by prose.
func ParseElement(text string) (*Element, error) {
	raw := strings.TrimSpace(text)
	if start := strings.Index(raw, "```"); start >= 0 {
		inner := raw[start+3:]
		if nl := strings.IndexByte(inner, '\n'); nl >= 0 {
			inner = inner[nl+1:]
		}
		if end := strings.Index(inner, "```"); end >= 0 {
			inner = inner[:end]
		}
		raw = strings.TrimSpace(inner)
	}
	if start, end := strings.IndexByte(raw, '{'), strings.LastIndexByte(raw, '}'); start >= 0 && end > start {
		raw = raw[start : end+1]
	}

	var el Element
	if err := json.Unmarshal([]byte(raw), &el); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeParsing, err, "model answer is not a content element")
	}
	el.ImagePrompt = strings.TrimSpace(el.ImagePrompt)
	if el.ImagePrompt == "" {
		return nil, errs.New(errs.ErrorTypeParsing, "content element has no image_prompt")
	}
	if el.Title = strings.TrimSpace(el.Title); el.Title == "" {
		el.Title = defaultTitle
	}
	if el.Copy = strings.TrimSpace(el.Copy); el.Copy == "" {
		el.Copy = defaultCopy
	}
	return &el, nil
}
