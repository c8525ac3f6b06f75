// Package mdx reads generated MDX files back: frontmatter fields and the
// image references in the Markdown body.
package mdx

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// FrontMatter holds the blog collection fields written by the converter
type FrontMatter struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	PubDate     string `yaml:"pubDate"`
	HeroImage   string `yaml:"heroImage"`
}

// File is a parsed MDX file
type File struct {
	Path        string
	FrontMatter FrontMatter
	Body        []byte
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Parse splits source into frontmatter and body
func Parse(source []byte) (FrontMatter, []byte, error) {
	var meta FrontMatter
	body, err := frontmatter.Parse(bytes.NewReader(source), &meta)
	if err != nil {
		return FrontMatter{}, nil, fmt.Errorf("parse frontmatter: %w", err)
	}
	return meta, body, nil
}

// ReadFile reads and parses the MDX file at path
func ReadFile(path string) (*File, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	meta, body, err := Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &File{Path: path, FrontMatter: meta, Body: body}, nil
}

// Goldmark rejects image destinations with spaces, which the converter
// writes for filenames like "my photo.jpg"
var (
	spacedImage = regexp.MustCompile(`!\[[^\]]*\]\(([^)"\n]* [^)"\n]*)\)`)
	codeSpan    = regexp.MustCompile("`+[^`\n]*`+")
)

// ImageDestinations returns the destination of every Markdown image in
// body, in document order within each block
func ImageDestinations(body []byte) []string {
	doc := markdown.Parser().Parse(text.NewReader(body))

	var dests []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Image:
			dests = append(dests, string(node.Destination))
		case *ast.Paragraph, *ast.TextBlock, *ast.Heading:
			dests = append(dests, spacedDestinations(node, body)...)
		}
		return ast.WalkContinue, nil
	})
	return dests
}

// spacedDestinations scans the raw lines of a text block for images the
// parser left as plain text
func spacedDestinations(block ast.Node, source []byte) []string {
	var raw bytes.Buffer
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		raw.Write(seg.Value(source))
	}

	var dests []string
	for _, m := range spacedImage.FindAllSubmatch(codeSpan.ReplaceAll(raw.Bytes(), nil), -1) {
		dests = append(dests, strings.TrimSpace(string(m[1])))
	}
	return dests
}

// IsLocal reports whether dest points at a file relative to the MDX file
func IsLocal(dest string) bool {
	if dest == "" || strings.HasPrefix(dest, "/") || strings.HasPrefix(dest, "#") {
		return false
	}
	return !strings.Contains(dest, "://") && !strings.HasPrefix(dest, "data:")
}

// References returns every local asset path the file points at, heroImage first
func (f *File) References() []string {
	var refs []string
	if IsLocal(f.FrontMatter.HeroImage) {
		refs = append(refs, f.FrontMatter.HeroImage)
	}
	for _, dest := range ImageDestinations(f.Body) {
		if IsLocal(dest) {
			refs = append(refs, dest)
		}
	}
	return refs
}
