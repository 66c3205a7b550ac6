package content

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"autored/pkg/config"
	errs "autored/pkg/errors"
)

// Cloudflare produces text and images with Workers AI
type Cloudflare struct {
	client     *Client
	baseURL    string
	account    string
	token      string
	textModel  string
	imageModel string
}

// NewCloudflare creates a Workers AI producer
func NewCloudflare(client *Client, cfg config.GenerationConfig) *Cloudflare {
	return &Cloudflare{
		client:     client,
		baseURL:    strings.TrimRight(cfg.CloudflareBaseURL, "/"),
		account:    cfg.CloudflareAccount,
		token:      cfg.CloudflareToken,
		textModel:  cfg.CloudflareText,
		imageModel: cfg.CloudflareImage,
	}
}

type cfMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type cfEnvelope struct {
	Result   json.RawMessage `json:"result"`
	Success  bool            `json:"success"`
	Errors   []cfMessageInfo `json:"errors"`
	Messages []cfMessageInfo `json:"messages"`
}

type cfMessageInfo struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *Cloudflare) endpoint(model string) string {
	return fmt.Sprintf("%s/accounts/%s/ai/run/%s", c.baseURL, c.account, model)
}

func (c *Cloudflare) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.token}
}

func (c *Cloudflare) ready() error {
	if c.account == "" || c.token == "" {
		return errs.ContentGeneration("cloudflare account id and API token are required", nil)
	}
	return nil
}

// unwrap checks the Workers AI envelope and decodes its result
func unwrap(body []byte, target interface{}) error {
	var env cfEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return errs.Wrap(errs.ErrorTypeParsing, err, "invalid workers AI response")
	}
	if !env.Success {
		msg := "workers AI request failed"
		if len(env.Errors) > 0 {
			msg = fmt.Sprintf("%s: %s (code %d)", msg, env.Errors[0].Message, env.Errors[0].Code)
		}
		return errs.New(errs.ErrorTypeServerError, msg)
	}
	if err := json.Unmarshal(env.Result, target); err != nil {
		return errs.Wrap(errs.ErrorTypeParsing, err, "invalid workers AI result")
	}
	return nil
}

// Element asks the text model for a JSON content element
func (c *Cloudflare) Element(ctx context.Context) (*Element, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"messages": []cfMessage{
			{Role: "system", Content: elementInstruction},
			{Role: "user", Content: "Write today's post."},
		},
	}
	resp, err := c.client.Post(ctx, c.endpoint(c.textModel), c.headers(), payload)
	if err != nil {
		return nil, errs.ContentGeneration("workers AI text", err)
	}

	var result struct {
		Response json.RawMessage `json:"response"`
	}
	if err := unwrap(resp.Body, &result); err != nil {
		return nil, errs.ContentGeneration("workers AI text", err)
	}

	// Newer models return the JSON object itself instead of a string
	text := string(result.Response)
	var s string
	if err := json.Unmarshal(result.Response, &s); err == nil {
		text = s
	}

	el, err := ParseElement(text)
	if err != nil {
		return nil, errs.ContentGeneration("workers AI element", err)
	}
	return el, nil
}

// Render asks the text-to-image model for one image. Models answer either
// with raw image bytes or with a base64 image in the JSON envelope.
func (c *Cloudflare) Render(ctx context.Context, prompt string) ([]byte, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"prompt": prompt,
		"steps":  4,
	}
	resp, err := c.client.Post(ctx, c.endpoint(c.imageModel), c.headers(), payload)
	if err != nil {
		return nil, errs.ContentGeneration("workers AI image", err)
	}

	if strings.HasPrefix(resp.ContentType, "image/") {
		return resp.Body, nil
	}

	var result struct {
		Image string `json:"image"`
	}
	if err := unwrap(resp.Body, &result); err != nil {
		return nil, errs.ContentGeneration("workers AI image", err)
	}
	data, err := base64.StdEncoding.DecodeString(result.Image)
	if err != nil || len(data) == 0 {
		return nil, errs.ContentGeneration("workers AI returned no image", err)
	}
	return data, nil
}
