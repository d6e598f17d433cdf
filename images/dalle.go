package images

import (
	"context"
	"errors"
	"fmt"

	models "github.com/Desarso/haochat/models"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DallE generates images with dall-e-3 and returns provider-hosted URLs.
type DallE struct {
	client openai.Client
	Model  openai.ImageModel
}

// NewDallE builds a generator. Extra options are passed to the SDK client.
func NewDallE(apiKey string, opts ...option.RequestOption) *DallE {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &DallE{
		client: openai.NewClient(opts...),
		Model:  openai.ImageModelDallE3,
	}
}

func (d *DallE) Generate(ctx context.Context, req models.ImageRequest) (*models.ImageResponse, error) {
	req, err := Normalize(req)
	if err != nil {
		return nil, err
	}

	resp, err := d.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         req.Prompt,
		Model:          d.Model,
		N:              openai.Int(1),
		Size:           openai.ImageGenerateParamsSize(req.Size),
		Quality:        openai.ImageGenerateParamsQuality(req.Quality),
		ResponseFormat: openai.ImageGenerateParamsResponseFormatURL,
		Style:          openai.ImageGenerateParamsStyleNatural,
	})
	if err != nil {
		var apiErr *openai.Error
		code := ""
		if errors.As(err, &apiErr) {
			code = apiErr.Code
		}
		return nil, classify(err, code)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return nil, fmt.Errorf("image generation failed: no image URL returned")
	}

	return &models.ImageResponse{
		ImageURL:      resp.Data[0].URL,
		Prompt:        req.Prompt,
		Size:          req.Size,
		Quality:       req.Quality,
		RevisedPrompt: resp.Data[0].RevisedPrompt,
	}, nil
}
