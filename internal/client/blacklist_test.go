package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlacklistCheckerMatching(t *testing.T) {
	checker := NewBlacklistChecker([]string{"secret project", "lass", ""})

	tests := []struct {
		name string
		text string
		want string
	}{
		{"exact phrase", "the secret project site", "secret project"},
		{"case insensitive", "SECRET Project", "secret project"},
		{"dashed spelling", "secret-project", "secret project"},
		{"underscored spelling", "my secret_project team", "secret project"},
		{"slashed spelling", "secret/project", "secret project"},
		{"word boundary holds", "class roster", ""},
		{"standalone word", "lass roster", "lass"},
		{"clean text", "quarterly planning", ""},
		{"empty text", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, checker.Check(tt.text))
		})
	}
}

func TestBlacklistCheckerFirstMatchWins(t *testing.T) {
	checker := NewBlacklistChecker([]string{"alpha", "beta"})
	assert.Equal(t, "alpha", checker.Check("beta then alpha"))
}
