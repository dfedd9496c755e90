package aicontent

import "context"

type GenerateRequest struct {
	Prompt string `json:"prompt"`
	Tone   string `json:"tone,omitempty"`
}

type GenerateResponse struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Generator produces announcement drafts from a short prompt.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// NoOpGenerator echoes the prompt back as the body. Used when no
// endpoint is configured so draft requests still return something usable.
type NoOpGenerator struct{}

func (g *NoOpGenerator) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	return &GenerateResponse{
		Title: "Draft announcement",
		Body:  req.Prompt,
	}, nil
}
