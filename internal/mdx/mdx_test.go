package mdx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `---
title: "Go: a primer"
description: "Say \"hi\""
pubDate: "2024-01-05"
heroImage: "../../assets/blog/cover.png"
---

## Intro

![A photo](../../assets/blog/photo.jpg)

- item with ![inline](../../assets/blog/inline.png)

![remote](https://cdn.example.com/x.png)

` + "```md\n![not an image](code.png)\n```\n"

func TestParse(t *testing.T) {
	meta, body, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, FrontMatter{
		Title:       "Go: a primer",
		Description: `Say "hi"`,
		PubDate:     "2024-01-05",
		HeroImage:   "../../assets/blog/cover.png",
	}, meta)
	assert.Contains(t, string(body), "## Intro")
	assert.NotContains(t, string(body), "pubDate")
}

func TestImageDestinations(t *testing.T) {
	_, body, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"../../assets/blog/photo.jpg",
		"../../assets/blog/inline.png",
		"https://cdn.example.com/x.png",
	}, ImageDestinations(body))
}

func TestIsLocal(t *testing.T) {
	tests := []struct {
		dest     string
		expected bool
	}{
		{"../../assets/blog/a.png", true},
		{"a.png", true},
		{"", false},
		{"/images/a.png", false},
		{"https://cdn.example.com/a.png", false},
		{"data:image/png;base64,AAAA", false},
		{"#anchor", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, IsLocal(tt.dest), tt.dest)
	}
}

func TestReadFileReferences(t *testing.T) {
	path := filepath.Join(t.TempDir(), "post.mdx")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))

	file, err := ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, path, file.Path)
	assert.Equal(t, []string{
		"../../assets/blog/cover.png",
		"../../assets/blog/photo.jpg",
		"../../assets/blog/inline.png",
	}, file.References())
}

func TestReadFileErrors(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.mdx"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.mdx")
	require.NoError(t, os.WriteFile(path, []byte("---\ntitle: [\n---\n\nbody\n"), 0644))
	_, err = ReadFile(path)
	assert.Error(t, err)
}

func TestImageDestinationsWithSpaces(t *testing.T) {
	body := []byte("## ![h](../a/head shot.png)\n\n" +
		"Intro ![pic](../a/my photo.jpg) and ![b](../a/b.png)\n\n" +
		"- ![item](../a/list item.gif)\n\n" +
		"Inline `![code](../a/not real.png)` span\n\n" +
		"```\n![fenced](../a/not real.png)\n```\n")

	dests := ImageDestinations(body)

	assert.ElementsMatch(t, []string{
		"../a/head shot.png",
		"../a/my photo.jpg",
		"../a/b.png",
		"../a/list item.gif",
	}, dests)
}
