// Package gemini wraps the Gemini image model used to edit vehicle photos.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

var ErrNoImage = errors.New("gemini response contained no image")

type Config struct {
	Project  string `envconfig:"PROJECT" split_words:"true" required:"true"`
	Location string `envconfig:"LOCATION" split_words:"true" required:"true"`
	Model    string `envconfig:"IMAGE_MODEL" split_words:"true" default:"gemini-2.5-flash-image"`
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Project) == "" || strings.TrimSpace(c.Location) == "" {
		return errors.New("gemini project and location are required")
	}
	return nil
}

// ContentGenerator is the subset of *genai.Models the editor calls.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type ImageEditor struct {
	models ContentGenerator
	model  string
}

func NewImageEditor(ctx context.Context, cfg Config) (*ImageEditor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  cfg.Project,
		Location: cfg.Location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return NewImageEditorWith(client.Models, cfg.Model), nil
}

func NewImageEditorWith(models ContentGenerator, model string) *ImageEditor {
	return &ImageEditor{models: models, model: strings.TrimSpace(model)}
}

// Edit sends the source image and the instruction and returns the first
// inline image of the response.
func (e *ImageEditor) Edit(ctx context.Context, image []byte, mimeType, instruction string) ([]byte, string, error) {
	if len(image) == 0 {
		return nil, "", errors.New("gemini: empty source image")
	}
	parts := []*genai.Part{
		genai.NewPartFromText(instruction),
		genai.NewPartFromBytes(image, mimeType),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	res, err := e.models.GenerateContent(ctx, e.model, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	})
	if err != nil {
		return nil, "", fmt.Errorf("gemini: generate content: %w", err)
	}

	for _, cand := range res.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if p == nil || p.InlineData == nil || len(p.InlineData.Data) == 0 {
				continue
			}
			mt := p.InlineData.MIMEType
			if mt == "" {
				mt = "image/png"
			}
			return p.InlineData.Data, mt, nil
		}
	}
	return nil, "", ErrNoImage
}
