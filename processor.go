// processor.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

var errNoContentRoot = errors.New("document has no content root")

// DocumentProcessor handles the main conversion workflow
type DocumentProcessor struct {
	settings  *Settings
	schema    *jsonschema.Schema
	fetcher   *AssetFetcher
	converter *Converter
	writer    *DocumentWriter
}

// NewDocumentProcessor creates a processor with a fresh asset cache
func NewDocumentProcessor(settings *Settings) (*DocumentProcessor, error) {
	schema, err := compileExportSchema()
	if err != nil {
		return nil, fmt.Errorf("compiling export schema: %w", err)
	}

	client := &http.Client{Timeout: settings.RequestTimeout}
	fetcher := NewAssetFetcher(client, settings.APIBaseURL, settings.AssetsDirectory, NewAssetCache())

	return &DocumentProcessor{
		settings:  settings,
		schema:    schema,
		fetcher:   fetcher,
		converter: NewConverter(fetcher, settings.assetLink, settings.Concurrency),
		writer:    NewDocumentWriter(settings.OutputDirectory, settings.assetLink),
	}, nil
}

// Run converts every published document in the input file. Only a
// missing or malformed input file is returned as an error; document
// failures are recorded in the summary.
func (dp *DocumentProcessor) Run(ctx context.Context) (*RunSummary, error) {
	for _, dir := range []string{dp.settings.OutputDirectory, dp.settings.AssetsDirectory} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	log.Printf("Reading %s...", dp.settings.InputFile)
	data, err := os.ReadFile(dp.settings.InputFile)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}

	export, err := parseExport(dp.schema, data)
	if err != nil {
		return nil, err
	}

	published := dp.filterPublished(export.Docs)
	log.Printf("Found %d published posts out of %d total", len(published), len(export.Docs))

	summary := &RunSummary{
		Total:     len(export.Docs),
		Published: len(published),
		Results:   make([]ProcessingResult, 0, len(published)),
	}

	for i, raw := range published {
		result := dp.processRaw(ctx, raw)
		summary.Results = append(summary.Results, result)

		if result.Status == StatusSuccess {
			summary.Succeeded++
			log.Printf("[%d/%d] ✓ Written: %s", i+1, len(published), result.Filename)
		} else {
			summary.Failed++
			log.Printf("[%d/%d] ✗ Error converting %s: %v", i+1, len(published), result.Title, result.Error)
		}
	}

	summary.ImagesDownloaded = dp.fetcher.Cache().Len()
	return summary, nil
}

// filterPublished keeps documents whose status matches the published status
func (dp *DocumentProcessor) filterPublished(docs []json.RawMessage) []json.RawMessage {
	var out []json.RawMessage
	for _, raw := range docs {
		var header struct {
			Status any `json:"status"`
		}
		if err := json.Unmarshal(raw, &header); err != nil {
			continue
		}
		if status, ok := header.Status.(string); ok && status == dp.settings.PublishedStatus {
			out = append(out, raw)
		}
	}
	return out
}

func (dp *DocumentProcessor) processRaw(ctx context.Context, raw json.RawMessage) ProcessingResult {
	doc, err := decodeDocument(raw)
	if err != nil {
		return ProcessingResult{
			Title:  "(undecodable document)",
			Status: StatusError,
			Error:  fmt.Errorf("decoding document: %w", err),
		}
	}

	filename, err := dp.ProcessDocument(ctx, doc)
	if err != nil {
		return ProcessingResult{
			Title:  doc.Title,
			Slug:   doc.Slug,
			Status: StatusError,
			Error:  err,
		}
	}

	return ProcessingResult{
		Title:    doc.Title,
		Slug:     doc.Slug,
		Status:   StatusSuccess,
		Filename: filename,
	}
}

// ProcessDocument converts and writes a single document
func (dp *DocumentProcessor) ProcessDocument(ctx context.Context, doc *Document) (string, error) {
	log.Printf("Converting: %s", doc.Title)

	var heroImage string
	if doc.CoverImage != nil && doc.CoverImage.URL != "" {
		if filename, ok := dp.fetcher.Resolve(ctx, doc.CoverImage.URL); ok {
			heroImage = filename
		}
	}

	if doc.Content.Root == nil {
		return "", errNoContentRoot
	}

	root := doc.Content.Root
	if root.Type == "" {
		// Exports from some CMS versions omit the root's type
		copied := *root
		copied.Type = KindRoot
		root = &copied
	}

	body, err := dp.converter.Convert(ctx, root, 0)
	if err != nil {
		return "", fmt.Errorf("converting content: %w", err)
	}

	filename, err := dp.writer.Write(doc, body, heroImage)
	if err != nil {
		return "", fmt.Errorf("writing document: %w", err)
	}

	return filename, nil
}

// PrintSummary writes the end-of-run report
func PrintSummary(w io.Writer, summary *RunSummary) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "========================")
	fmt.Fprintln(w, "Conversion complete!")
	fmt.Fprintf(w, "  Success: %d\n", summary.Succeeded)
	fmt.Fprintf(w, "  Errors: %d\n", summary.Failed)
	fmt.Fprintf(w, "  Images downloaded: %d\n", summary.ImagesDownloaded)
}
