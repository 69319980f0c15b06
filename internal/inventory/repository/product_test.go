package repository_test

import (
	"testing"

	"github.com/pharmalink/pharmalink-backend/internal/inventory/repository"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "Paracetamol", "paracetamol"},
		{"strips single spaces", "Dolo 650", "dolo650"},
		{"strips repeated spaces", "Dolo  650", "dolo650"},
		{"strips tabs and newlines", "Dolo\t650\n", "dolo650"},
		{"strips leading and trailing space", "  Crocin Advance  ", "crocinadvance"},
		{"keeps punctuation", "Vitamin B-12", "vitaminb-12"},
		{"non-breaking space", "Dolo\u00a0650", "dolo650"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := repository.NormalizeName(tt.input); got != tt.want {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeName_WhitespaceVariantsCollide(t *testing.T) {
	// The matcher treats these as the same product.
	variants := []string{"Dolo 650", "Dolo  650", "dolo 650", " DOLO 650 "}
	want := repository.NormalizeName(variants[0])
	for _, v := range variants {
		if got := repository.NormalizeName(v); got != want {
			t.Errorf("NormalizeName(%q) = %q, want %q", v, got, want)
		}
	}
}
