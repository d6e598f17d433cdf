// Package images implements the image-generation collaborator.
package images

import (
	"context"
	"errors"
	"fmt"
	"strings"

	models "github.com/Desarso/haochat/models"
)

const (
	DefaultSize    = "1024x1024"
	DefaultQuality = "standard"
)

var (
	// ErrInvalidRequest marks a bad prompt, size or quality.
	ErrInvalidRequest = errors.New("invalid image request")
	// ErrContentPolicy marks a provider content-policy or safety rejection.
	ErrContentPolicy = errors.New("image request rejected by content policy")
)

var (
	validSizes     = map[string]bool{"1024x1024": true, "1792x1024": true, "1024x1792": true}
	validQualities = map[string]bool{"standard": true, "hd": true}
)

// Generator produces one image for a prompt.
type Generator interface {
	Generate(ctx context.Context, req models.ImageRequest) (*models.ImageResponse, error)
}

// Normalize fills defaults and validates req.
func Normalize(req models.ImageRequest) (models.ImageRequest, error) {
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		return req, fmt.Errorf("%w: prompt is required", ErrInvalidRequest)
	}
	if req.Size == "" {
		req.Size = DefaultSize
	}
	if req.Quality == "" {
		req.Quality = DefaultQuality
	}
	if !validSizes[req.Size] {
		return req, fmt.Errorf("%w: invalid size. Must be one of: 1024x1024, 1792x1024, 1024x1792", ErrInvalidRequest)
	}
	if !validQualities[req.Quality] {
		return req, fmt.Errorf("%w: invalid quality. Must be either 'standard' or 'hd'", ErrInvalidRequest)
	}
	return req, nil
}

// classify maps provider rejections onto ErrContentPolicy.
func classify(err error, code string) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if code == "content_policy_violation" || strings.Contains(msg, "content_policy_violation") || strings.Contains(msg, "safety_system") {
		return fmt.Errorf("%w (%v)", ErrContentPolicy, err)
	}
	return fmt.Errorf("image generation failed: %w", err)
}
