package ai

import (
	"context"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Bitcoin ETFs Pull In Record Inflows", "Bitcoin ETFs Pull In Record Inflows"},
		{"quoted", `"Solana's Quiet Comeback"`, "Solana's Quiet Comeback"},
		{"leading blank lines", "\n\n  Ethereum Gas Hits Lows  \nExplanation follows", "Ethereum Gas Hits Lows"},
		{"markdown emphasis", "**Whales Are Moving**", "Whales Are Moving"},
		{"empty", "  \n ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, CleanTitle(tt.input), tt.want)
		})
	}
}

func TestNewWriterRequiresKey(t *testing.T) {
	_, err := NewWriter(context.Background(), "", "gemini-3-pro-preview", "imagen-4.0-generate-preview-06-06")
	if err == nil {
		t.Fatal("expected error without API key")
	}
}
