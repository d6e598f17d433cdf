package images

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	models "github.com/Desarso/haochat/models"
	"github.com/google/uuid"
	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash-image"

// contentGenerator is the slice of *genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini generates images with a Gemini image model, saves them under Dir and
// returns URLs below PublicBaseURL/images.
type Gemini struct {
	models        contentGenerator
	Model         string
	Dir           string
	PublicBaseURL string
}

// NewGemini creates a Gemini-backed generator.
func NewGemini(ctx context.Context, apiKey, dir, publicBaseURL string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Gemini{
		models:        client.Models,
		Model:         DefaultGeminiModel,
		Dir:           dir,
		PublicBaseURL: publicBaseURL,
	}, nil
}

func (g *Gemini) Generate(ctx context.Context, req models.ImageRequest) (*models.ImageResponse, error) {
	req, err := Normalize(req)
	if err != nil {
		return nil, err
	}

	prompt := req.Prompt
	if req.Size != DefaultSize {
		prompt = fmt.Sprintf("%s (aspect %s)", prompt, req.Size)
	}

	result, err := g.models.GenerateContent(ctx, g.Model, genai.Text(prompt), nil)
	if err != nil {
		return nil, classify(err, "")
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
			return nil, fmt.Errorf("%w (blocked: %s)", ErrContentPolicy, result.PromptFeedback.BlockReason)
		}
		return nil, fmt.Errorf("image generation failed: no image generated in response")
	}

	for _, part := range result.Candidates[0].Content.Parts {
		if part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}

		filename, err := g.save(part.InlineData.Data, part.InlineData.MIMEType)
		if err != nil {
			return nil, err
		}
		return &models.ImageResponse{
			ImageURL: strings.TrimRight(g.PublicBaseURL, "/") + "/images/" + filename,
			Prompt:   req.Prompt,
			Size:     req.Size,
			Quality:  req.Quality,
		}, nil
	}

	return nil, fmt.Errorf("image generation failed: no image data found in response")
}

func (g *Gemini) save(data []byte, mimeType string) (string, error) {
	extension := "png"
	if strings.Contains(mimeType, "jpeg") || strings.Contains(mimeType, "jpg") {
		extension = "jpg"
	} else if strings.Contains(mimeType, "webp") {
		extension = "webp"
	}

	dir := g.Dir
	if dir == "" {
		dir = "images"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create images directory: %w", err)
	}

	filename := fmt.Sprintf("%s.%s", uuid.NewString(), extension)
	if err := os.WriteFile(filepath.Join(dir, filename), data, 0644); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	return filename, nil
}
