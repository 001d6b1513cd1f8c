package fsutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"invalid chars replaced", "Build flows: Part 1/2", "Build flows_ Part 1_2"},
		{"trailing dots removed", "Module...", "Module"},
		{"whitespace collapsed", "Name   with  spaces", "Name with spaces"},
		{"trailing space removed", "Name ", "Name"},
		{"clean name unchanged", "Introduction to Power Automate", "Introduction to Power Automate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFileName(tt.input))
		})
	}
}

func TestItemDirDisambiguates(t *testing.T) {
	taken := map[string]bool{}
	first := ItemDir("/out", "Intro", taken)
	second := ItemDir("/out", "Intro", taken)
	third := ItemDir("/out", "Intro", taken)

	assert.Equal(t, filepath.Join("/out", "Intro"), first)
	assert.Equal(t, filepath.Join("/out", "Intro (2)"), second)
	assert.Equal(t, filepath.Join("/out", "Intro (3)"), third)
}

func TestItemDirEmptyTitle(t *testing.T) {
	taken := map[string]bool{}
	assert.Equal(t, filepath.Join("/out", "item"), ItemDir("/out", "...", taken))
}
