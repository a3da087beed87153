/*
Package types holds the data shared by the ingestion pipeline, the store and the API.
*/
package types

import (
	"strings"
	"time"
)

const (
	UntitledPlaceholder = "Untitled"
	ImagePlaceholder    = "https://via.placeholder.com/300"
)

// Sentiment is the short-term market direction of a headline. Neutral doubles
// as "not classified yet".
type Sentiment string

const (
	Bullish Sentiment = "bullish"
	Bearish Sentiment = "bearish"
	Neutral Sentiment = "neutral"
)

// IsDefinite reports whether s is a settled classification that must not be
// overwritten by later runs.
func (s Sentiment) IsDefinite() bool {
	return s == Bullish || s == Bearish
}

func (s Sentiment) Valid() bool {
	return s == Bullish || s == Bearish || s == Neutral
}

func (s Sentiment) String() string {
	return string(s)
}

// ParseSentiment maps a model answer onto a label. Only an exact label is
// accepted once case, whitespace, quotes and trailing punctuation are removed;
// anything else is Neutral.
func ParseSentiment(raw string) Sentiment {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.Trim(s, "\"'`*")
	s = strings.TrimRight(s, ".!,;:")
	s = strings.TrimSpace(s)

	switch Sentiment(s) {
	case Bullish:
		return Bullish
	case Bearish:
		return Bearish
	default:
		return Neutral
	}
}

// Article is a normalized feed item produced during a run.
type Article struct {
	Title     string
	Link      string
	Image     string
	Published time.Time
	Coins     []string
	Sentiment Sentiment
	Source    string
}

// NewsRecord is the persisted form of an article, unique by Link.
type NewsRecord struct {
	Title     string    `json:"title" bson:"title"`
	Link      string    `json:"link" bson:"link"`
	Image     string    `json:"image" bson:"image"`
	Published time.Time `json:"published" bson:"published"`
	Coins     []string  `json:"coins" bson:"coins"`
	Sentiment Sentiment `json:"sentiment" bson:"sentiment"`
}

// Record converts the article into the record that is written on first sight.
func (a Article) Record(sentiment Sentiment) NewsRecord {
	coins := a.Coins
	if coins == nil {
		coins = []string{}
	}
	return NewsRecord{
		Title:     a.Title,
		Link:      a.Link,
		Image:     a.Image,
		Published: a.Published,
		Coins:     coins,
		Sentiment: sentiment,
	}
}
