package main

import (
	"bytes"
	"encoding/json"
)

// Lexical text format flags
const (
	FormatBold          = 1
	FormatItalic        = 2
	FormatStrikethrough = 4
	FormatUnderline     = 8
	FormatCode          = 16
)

// NodeKind is the Lexical node "type" tag
type NodeKind string

const (
	KindRoot      NodeKind = "root"
	KindHeading   NodeKind = "heading"
	KindParagraph NodeKind = "paragraph"
	KindText      NodeKind = "text"
	KindLinebreak NodeKind = "linebreak"
	KindLink      NodeKind = "link"
	KindList      NodeKind = "list"
	KindListItem  NodeKind = "listitem"
	KindQuote     NodeKind = "quote"
	KindUpload    NodeKind = "upload"
	KindBlock     NodeKind = "block"
)

// TextFormat is the format bitmask of a text node. Element nodes serialize
// alignment strings ("left", "center") in the same field; those decode as 0.
type TextFormat int

func (f *TextFormat) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		*f = 0
		return nil
	}
	*f = TextFormat(n)
	return nil
}

// Has reports whether every bit in flag is set
func (f TextFormat) Has(flag int) bool {
	return int(f)&flag == flag
}

// NodeFields carries link and block payloads
type NodeFields struct {
	URL       string `json:"url"`
	NewTab    bool   `json:"newTab"`
	Code      string `json:"code"`
	Language  string `json:"language"`
	Filename  string `json:"filename"`
	BlockType string `json:"blockType"`
	HTML      string `json:"html"`
}

// MediaRef points at an uploaded image
type MediaRef struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Alt      string `json:"alt"`
}

// UnmarshalJSON tolerates unpopulated relations, which the export
// serializes as a bare id instead of an object.
func (m *MediaRef) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		*m = MediaRef{}
		return nil
	}
	type plain MediaRef
	var v plain
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return err
	}
	*m = MediaRef(v)
	return nil
}

// Node is one node of a Lexical editor state tree
type Node struct {
	Type     NodeKind    `json:"type"`
	Tag      string      `json:"tag,omitempty"`
	Text     string      `json:"text,omitempty"`
	Format   TextFormat  `json:"format,omitempty"`
	Children []*Node     `json:"children,omitempty"`
	Fields   *NodeFields `json:"fields,omitempty"`
	Value    *MediaRef   `json:"value,omitempty"`
	ListType string      `json:"listType,omitempty"`
	Indent   int         `json:"indent,omitempty"`
}

// Content wraps the root node of a document body
type Content struct {
	Root *Node `json:"root"`
}

// Document is one blog post from the export
type Document struct {
	ID         any       `json:"id"`
	Title      string    `json:"title"`
	Excerpt    string    `json:"excerpt"`
	Date       string    `json:"date"`
	Slug       string    `json:"slug"`
	Status     string    `json:"status"`
	CoverImage *MediaRef `json:"coverImage,omitempty"`
	Content    Content   `json:"content"`
}

// Export is the top level of the input file. Documents stay raw so one
// malformed document fails on its own instead of failing the whole run.
type Export struct {
	Docs []json.RawMessage `json:"docs"`
}

// decodeDocument decodes a single raw document
func decodeDocument(raw json.RawMessage) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ProcessingStatus represents the outcome status of converting a document
type ProcessingStatus string

const (
	StatusSuccess ProcessingStatus = "success"
	StatusError   ProcessingStatus = "error"
)

// ProcessingResult tracks the outcome of converting each document
type ProcessingResult struct {
	Title    string
	Slug     string
	Status   ProcessingStatus
	Filename string
	Error    error
}

// RunSummary aggregates one converter run
type RunSummary struct {
	Total            int
	Published        int
	Succeeded        int
	Failed           int
	ImagesDownloaded int
	Results          []ProcessingResult
}
