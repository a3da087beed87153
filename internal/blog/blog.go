/*
Package blog drafts and publishes one AI-written article per run: pick a trending idea,
sharpen its title, write the body, render a cover and post it to the backend.
Every run is independent and best effort.
*/
package blog

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"regexp"
	"strings"

	"github.com/shanehull/cryptobriefs/internal/ai"
)

var ErrNoIdeas = errors.New("no ideas extracted")

var ideaLine = regexp.MustCompile(`\d+\.[ \t]+(.*)`)

// Generator produces the blog material.
type Generator interface {
	TrendingIdeas(ctx context.Context) (string, error)
	OptimizeTitle(ctx context.Context, title string) (string, error)
	WriteArticle(ctx context.Context, topic string, style ai.Style) (string, error)
	CoverImage(ctx context.Context, title, tone string) ([]byte, error)
}

// Publisher sends the finished post to the backend.
type Publisher interface {
	UploadImage(ctx context.Context, imageBase64 string) (string, error)
	Publish(ctx context.Context, post Post) error
}

// Options are the editorial defaults of every post.
type Options struct {
	Style ai.Style
	Tags  string
}

// Result describes one pipeline run.
type Result struct {
	Ideas     []string
	Idea      string
	Title     string
	Post      *Post
	ImageErr  error
	Skipped   bool
	Published bool
}

// Pipeline wires a Generator to a Publisher.
type Pipeline struct {
	gen    Generator
	pub    Publisher
	opts   Options
	logger *slog.Logger
	pick   func(n int) int
}

func NewPipeline(gen Generator, pub Publisher, opts Options, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		gen:    gen,
		pub:    pub,
		opts:   opts,
		logger: logger,
		pick:   rand.IntN,
	}
}

// Run executes the pipeline once. No ideas means the run is skipped. A failed
// article body aborts it. Cover image problems only drop the image.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	res := &Result{}
	p.logger.Info("blog run started")

	raw, err := p.gen.TrendingIdeas(ctx)
	if err != nil {
		return res, err
	}

	res.Ideas = ExtractIdeas(raw)
	if len(res.Ideas) == 0 {
		p.logger.Warn("skipping blog creation", "error", ErrNoIdeas)
		res.Skipped = true
		return res, nil
	}

	res.Idea = res.Ideas[p.pick(len(res.Ideas))]
	p.logger.Info("idea selected", "idea", res.Idea, "candidates", len(res.Ideas))

	res.Title = res.Idea
	if optimized, err := p.gen.OptimizeTitle(ctx, res.Idea); err != nil {
		p.logger.Warn("title optimization failed, using idea", "error", err)
	} else if optimized != "" {
		res.Title = optimized
	}
	p.logger.Info("title ready", "title", res.Title)

	content, err := p.gen.WriteArticle(ctx, res.Title, p.opts.Style)
	if err != nil {
		return res, fmt.Errorf("article generation failed: %w", err)
	}
	p.logger.Info("article generated", "chars", len(content))

	imageURL, err := p.cover(ctx, res.Title)
	if err != nil {
		res.ImageErr = err
		p.logger.Warn("publishing without cover image", "error", err)
	}

	post := Post{
		Title:    res.Title,
		Content:  content,
		Blog:     res.Idea,
		Tag:      p.opts.Tags,
		ImageURL: imageURL,
	}
	res.Post = &post

	if err := p.pub.Publish(ctx, post); err != nil {
		return res, err
	}
	res.Published = true

	p.logger.Info("blog post published", "title", post.Title, "image", post.ImageURL != "")
	return res, nil
}

func (p *Pipeline) cover(ctx context.Context, title string) (string, error) {
	img, err := p.gen.CoverImage(ctx, title, p.opts.Style.Tone)
	if err != nil {
		return "", err
	}
	return p.pub.UploadImage(ctx, base64.StdEncoding.EncodeToString(img))
}

// ExtractIdeas returns the text after every "N. " marker, in order.
func ExtractIdeas(raw string) []string {
	var ideas []string
	for _, m := range ideaLine.FindAllStringSubmatch(raw, -1) {
		if idea := strings.TrimSpace(m[1]); idea != "" {
			ideas = append(ideas, idea)
		}
	}
	return ideas
}
