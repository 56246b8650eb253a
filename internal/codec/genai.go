package codec

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// #region genai-client

// contentGenerator is the slice of *genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GenAIClient generates universe content with Google's Gemini API.
type GenAIClient struct {
	models contentGenerator
	model  string
}

// NewGenAIClient creates a Gemini-backed generator.
func NewGenAIClient(ctx context.Context, apiKey, model string) (*GenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GenAIClient{models: client.Models, model: model}, nil
}

// #endregion genai-client

// #region genai-generate

// Generate asks Gemini for a JSON reply. The learner context rides in the
// system instruction so the prompt itself stays the formatter's output.
func (c *GenAIClient) Generate(ctx context.Context, req Request) (Payload, error) {
	system := fmt.Sprintf(
		"You write %s learning content for a grade %d student. Learner interests: %s. Reply with a single JSON object.",
		req.Subject, req.GradeLevel, strings.Join(req.Interests, ", "),
	)
	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(req.Prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		Temperature:       genai.Ptr[float32](0.8),
	})
	if err != nil {
		return Payload{}, fmt.Errorf("GenAI generate failed: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return Payload{}, fmt.Errorf("%w: empty GenAI response", ErrMalformedReply)
	}
	return Payload{Text: text}, nil
}

// #endregion genai-generate
