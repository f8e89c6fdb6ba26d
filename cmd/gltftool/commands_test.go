package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultTextureDir(t *testing.T) {
	tests := []struct {
		model string
		want  string
	}{
		{"client/data/model/prontera/fountain.rsm", filepath.Join("client", "data", "texture")},
		{"data/model/tree.rsm", filepath.Join("data", "texture")},
		{"Data/Model/tree.rsm", filepath.Join("data", "texture")},
		{"models/tree.rsm", "models"},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, defaultTextureDir(filepath.FromSlash(tt.model)))
		})
	}
}

func TestMatchModels(t *testing.T) {
	names := []string{
		"data/model/prontera/fountain.rsm",
		"data/model/prontera/Tree01.RSM",
		"data/model/izlude/fountain2.rsm",
		"data/texture/fountain.bmp",
	}

	assert.Len(t, matchModels(names, ""), 3)
	assert.Equal(t, []string{
		"data/model/prontera/fountain.rsm",
		"data/model/izlude/fountain2.rsm",
	}, matchModels(names, "fountain*"))
	assert.Equal(t, []string{"data/model/prontera/Tree01.RSM"}, matchModels(names, "TREE*"))
	assert.Len(t, matchModels(names, "prontera"), 2, "substring of the path")
	assert.Empty(t, matchModels(names, "payon"))
}
