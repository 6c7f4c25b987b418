package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyTags(t *testing.T) {
	tests := []struct {
		name string
		tags []string
		want map[string][]string
	}{
		{
			name: "mixed",
			tags: []string{"3.11-alpine", "latest", "ubuntu-22.04-slim"},
			want: map[string][]string{
				"alpine":  {"3.11"},
				"default": {"latest"},
				"slim":    {"ubuntu-22.04"},
			},
		},
		{
			name: "order kept within a key",
			tags: []string{"3.12-slim", "latest", "3.11-slim", "3"},
			want: map[string][]string{
				"slim":    {"3.12", "3.11"},
				"default": {"latest", "3"},
			},
		},
		{
			name: "trailing hyphen",
			tags: []string{"1.0-"},
			want: map[string][]string{"": {"1.0"}},
		},
		{
			name: "empty",
			tags: nil,
			want: map[string][]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyTags(tt.tags))
		})
	}
}
