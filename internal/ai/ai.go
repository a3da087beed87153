/*
Package ai provides functionality to interact with the Gemini API to draft blog
content for Crypto Briefs: trending ideas, titles, Markdown articles and cover images.
*/
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

var ErrNoImage = errors.New("gemini returned no image")

// Style controls how an article is written.
type Style struct {
	Tone     string
	Length   string
	Audience string
}

// Writer generates blog material with a text model and an image model.
type Writer struct {
	client     *genai.Client
	textModel  string
	imageModel string
}

func NewWriter(ctx context.Context, apiKey, textModel, imageModel string) (*Writer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Writer{client: client, textModel: textModel, imageModel: imageModel}, nil
}

// TrendingIdeas asks for ten numbered blog titles about the last day of crypto news.
func (w *Writer) TrendingIdeas(ctx context.Context) (string, error) {
	text, err := w.generate(ctx, ideasPrompt, &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.8),
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate ideas: %w", err)
	}

	return strings.TrimSpace(strings.ReplaceAll(text, `"`, "")), nil
}

// OptimizeTitle rewrites a title to be more compelling while keeping its topic.
func (w *Writer) OptimizeTitle(ctx context.Context, title string) (string, error) {
	text, err := w.generate(ctx, fmt.Sprintf(optimizeTitlePrompt, title), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.8),
	})
	if err != nil {
		return "", fmt.Errorf("failed to optimize title: %w", err)
	}

	return CleanTitle(text), nil
}

// WriteArticle drafts a Markdown article without a top-level heading.
func (w *Writer) WriteArticle(ctx context.Context, topic string, style Style) (string, error) {
	prompt := fmt.Sprintf(articlePrompt, topic, style.Tone, style.Audience, style.Length)

	text, err := w.generate(ctx, prompt, &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.7),
		TopP:        genai.Ptr[float32](1),
		TopK:        genai.Ptr[float32](32),
	})
	if err != nil {
		return "", fmt.Errorf("failed to write article: %w", err)
	}

	return strings.TrimSpace(text), nil
}

// CoverImage renders a 16:9 JPEG cover for the article title.
func (w *Writer) CoverImage(ctx context.Context, title, tone string) ([]byte, error) {
	resp, err := w.client.Models.GenerateImages(ctx, w.imageModel, fmt.Sprintf(coverImagePrompt, title, tone), &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		OutputMIMEType: "image/jpeg",
		AspectRatio:    "16:9",
	})
	if err != nil {
		return nil, fmt.Errorf("gemini image call failed: %w", err)
	}

	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil || len(resp.GeneratedImages[0].Image.ImageBytes) == 0 {
		return nil, ErrNoImage
	}

	return resp.GeneratedImages[0].Image.ImageBytes, nil
}

func (w *Writer) generate(ctx context.Context, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	resp, err := w.client.Models.GenerateContent(ctx, w.textModel, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("gemini returned an empty response")
	}

	return text, nil
}

// CleanTitle strips quotes and keeps the first non-empty line.
func CleanTitle(raw string) string {
	raw = strings.ReplaceAll(raw, `"`, "")
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "*#"))
		if line != "" {
			return line
		}
	}
	return ""
}
