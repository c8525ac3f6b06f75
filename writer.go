package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/goliatone/go-slug"
	"github.com/natefinch/atomic"
)

var (
	errMissingSlug = errors.New("document has no slug and none can be derived from its title")
	errUnsafeSlug  = errors.New("unsafe slug")
)

// DocumentWriter writes converted documents as MDX files
type DocumentWriter struct {
	dir        string
	linkPrefix func(filename string) string
}

// NewDocumentWriter creates a writer for dir
func NewDocumentWriter(dir string, linkPrefix func(string) string) *DocumentWriter {
	if linkPrefix == nil {
		linkPrefix = func(filename string) string { return filename }
	}
	return &DocumentWriter{dir: dir, linkPrefix: linkPrefix}
}

// Write renders doc with body and an optional hero image filename and
// writes it to {slug}.mdx, replacing any existing file.
func (w *DocumentWriter) Write(doc *Document, body, heroImage string) (string, error) {
	name, err := documentSlug(doc)
	if err != nil {
		return "", err
	}

	content, err := w.Render(doc, body, heroImage)
	if err != nil {
		return "", err
	}

	filename := filepath.Join(w.dir, name+".mdx")
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	if err := atomic.WriteFile(filename, strings.NewReader(content)); err != nil {
		return "", fmt.Errorf("writing %s: %w", filename, err)
	}
	if err := os.Chmod(filename, 0644); err != nil {
		return "", fmt.Errorf("setting permissions on %s: %w", filename, err)
	}

	return filename, nil
}

// Render builds the MDX file content
func (w *DocumentWriter) Render(doc *Document, body, heroImage string) (string, error) {
	pubDate, err := formatDate(doc.Date)
	if err != nil {
		return "", err
	}

	lines := []string{
		"---",
		"title: " + escapeYAMLString(doc.Title),
		"description: " + escapeYAMLString(doc.Excerpt),
		fmt.Sprintf("pubDate: %q", pubDate),
	}
	if heroImage != "" {
		lines = append(lines, fmt.Sprintf(`heroImage: "%s"`, w.linkPrefix(heroImage)))
	}
	lines = append(lines, "---")

	return strings.Join(lines, "\n") + "\n\n" + body + "\n", nil
}

// formatDate truncates a timestamp to its UTC calendar date
func formatDate(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", errors.New("empty date")
	}
	t, err := dateparse.ParseIn(value, time.UTC)
	if err != nil {
		return "", fmt.Errorf("parsing date %q: %w", value, err)
	}
	return t.UTC().Format("2006-01-02"), nil
}

// escapeYAMLString quotes a frontmatter scalar. Values are always quoted;
// quotes are escaped and newlines folded only when the value contains a
// quote, a newline or a colon.
func escapeYAMLString(value string) string {
	if strings.ContainsAny(value, "\"\n:") {
		value = strings.ReplaceAll(value, `"`, `\"`)
		value = strings.ReplaceAll(value, "\n", " ")
	}
	return `"` + value + `"`
}

func documentSlug(doc *Document) (string, error) {
	if doc.Slug != "" {
		// The slug names a file directly inside the output directory
		if doc.Slug == "." || doc.Slug == ".." || strings.ContainsAny(doc.Slug, `/\`) {
			return "", fmt.Errorf("%w: %q", errUnsafeSlug, doc.Slug)
		}
		return doc.Slug, nil
	}
	derived, err := slug.Normalize(doc.Title)
	if err != nil || derived == "" {
		return "", errMissingSlug
	}
	return derived, nil
}
