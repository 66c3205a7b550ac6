package content

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"autored/pkg/config"
	errs "autored/pkg/errors"
)

// Imagen renders images with the predict REST API
type Imagen struct {
	client  *Client
	baseURL string
	apiKey  string
	model   string
}

// NewImagen creates an Imagen image backend
func NewImagen(client *Client, cfg config.GenerationConfig) *Imagen {
	return &Imagen{
		client:  client,
		baseURL: strings.TrimRight(cfg.GoogleBaseURL, "/"),
		apiKey:  cfg.GoogleAPIKey,
		model:   cfg.ImageModel,
	}
}

type imagenRequest struct {
	Instances  []imagenInstance `json:"instances"`
	Parameters imagenParameters `json:"parameters"`
}

type imagenInstance struct {
	Prompt string `json:"prompt"`
}

type imagenParameters struct {
	SampleCount int `json:"sampleCount"`
}

type imagenResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
		MIMEType           string `json:"mimeType"`
	} `json:"predictions"`
}

// RenderBatch renders n images for prompt in a single request
func (im *Imagen) RenderBatch(ctx context.Context, prompt string, n int) ([][]byte, error) {
	if im.apiKey == "" {
		return nil, errs.ContentGeneration("imagen API key is not set", nil)
	}

	req := imagenRequest{
		Instances:  []imagenInstance{{Prompt: prompt}},
		Parameters: imagenParameters{SampleCount: n},
	}
	endpoint := fmt.Sprintf("%s/models/%s:predict", im.baseURL, im.model)

	var resp imagenResponse
	if err := im.client.PostJSON(ctx, endpoint, map[string]string{"x-goog-api-key": im.apiKey}, req, &resp); err != nil {
		return nil, errs.ContentGeneration("imagen predict", err)
	}

	images := make([][]byte, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		if p.BytesBase64Encoded == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(p.BytesBase64Encoded)
		if err != nil {
			return nil, errs.ContentGeneration("imagen returned invalid base64", err)
		}
		images = append(images, data)
	}
	if len(images) == 0 {
		// Safety filtering drops predictions without saying so
		return nil, errs.ContentGeneration("imagen returned no images", nil)
	}
	return images, nil
}

// Render renders a single image
func (im *Imagen) Render(ctx context.Context, prompt string) ([]byte, error) {
	images, err := im.RenderBatch(ctx, prompt, 1)
	if err != nil {
		return nil, err
	}
	return images[0], nil
}
