package strings

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortedSet(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		fold     func(string) string
		expected []string
	}{
		{name: "nil stays nil", input: nil, expected: nil},
		{name: "empty stays empty", input: []string{}, expected: []string{}},
		{name: "blank entries dropped", input: []string{"", "  "}, expected: []string{}},
		{
			name:     "trims dedupes and sorts",
			input:    []string{" maersk ", "cosco", "maersk", "", "cosco "},
			expected: []string{"cosco", "maersk"},
		},
		{
			name:     "case is kept without a fold",
			input:    []string{"Acme", "acme"},
			expected: []string{"Acme", "acme"},
		},
		{
			name:     "fold applies before dedupe",
			input:    []string{"Acme", "ACME ", "acme"},
			fold:     strings.ToLower,
			expected: []string{"acme"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SortedSet(tt.input, tt.fold))
		})
	}
}

func TestUpperSet(t *testing.T) {
	assert.Equal(t, []string{"CN", "DE", "US"}, UpperSet([]string{"us", " de", "CN", "De", "US "}))
	assert.Nil(t, UpperSet(nil))
}
