package types

import (
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func TestParseSentiment(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Sentiment
	}{
		{"exact bullish", "bullish", Bullish},
		{"exact bearish", "bearish", Bearish},
		{"exact neutral", "neutral", Neutral},
		{"uppercase", "BULLISH", Bullish},
		{"surrounding whitespace", "  bearish\n", Bearish},
		{"trailing period", "Bullish.", Bullish},
		{"quoted", "'bearish'", Bearish},
		{"empty", "", Neutral},
		{"truncated", "bull", Neutral},
		{"sentence", "the headline is bullish", Neutral},
		{"both labels", "bullish/bearish", Neutral},
		{"unknown label", "positive", Neutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, ParseSentiment(tt.input), tt.want)
		})
	}
}

func TestSentimentIsDefinite(t *testing.T) {
	assert.Equal(t, Bullish.IsDefinite(), true)
	assert.Equal(t, Bearish.IsDefinite(), true)
	assert.Equal(t, Neutral.IsDefinite(), false)
	assert.Equal(t, Sentiment("").IsDefinite(), false)
}

func TestArticleRecord(t *testing.T) {
	published := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	a := Article{
		Title:     "Bitcoin surges",
		Link:      "https://example.com/a",
		Image:     ImagePlaceholder,
		Published: published,
		Sentiment: Neutral,
	}

	rec := a.Record(Bullish)

	assert.Equal(t, rec.Link, a.Link)
	assert.Equal(t, rec.Title, a.Title)
	assert.Equal(t, rec.Published, published)
	assert.Equal(t, rec.Sentiment, Bullish)
	if rec.Coins == nil {
		t.Fatal("Record() left Coins nil, want empty slice")
	}
	assert.Equal(t, len(rec.Coins), 0)
}
