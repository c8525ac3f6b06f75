package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// testSettings returns settings rooted in a temp directory
func testSettings(t *testing.T, apiBase string) *Settings {
	t.Helper()
	dir := t.TempDir()
	return &Settings{
		InputFile:       filepath.Join(dir, "data.json"),
		OutputDirectory: filepath.Join(dir, "src", "content", "blog"),
		AssetsDirectory: filepath.Join(dir, "src", "assets", "blog"),
		AssetLinkPrefix: "../../assets/blog/",
		APIBaseURL:      apiBase,
		PublishedStatus: "published",
		Concurrency:     4,
	}
}

func writeInput(t *testing.T, settings *Settings, content string) {
	t.Helper()
	if err := os.WriteFile(settings.InputFile, []byte(content), 0644); err != nil {
		t.Fatalf("writing input: %v", err)
	}
}

func runProcessor(t *testing.T, settings *Settings) *RunSummary {
	t.Helper()
	processor, err := NewDocumentProcessor(settings)
	if err != nil {
		t.Fatalf("NewDocumentProcessor() error = %v", err)
	}
	summary, err := processor.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return summary
}

func TestRunSinglePlainParagraph(t *testing.T) {
	settings := testSettings(t, "https://4real.ltd/api")
	writeInput(t, settings, `{"docs":[{"id":1,"title":"Hi","excerpt":"","date":"2024-01-05T00:00:00Z","slug":"hi","status":"published","content":{"root":{"children":[{"type":"paragraph","children":[{"type":"text","text":"Hello","format":0}]}]}}}]}`)

	summary := runProcessor(t, settings)

	if summary.Succeeded != 1 || summary.Failed != 0 {
		t.Fatalf("summary = %+v, want 1 success", summary)
	}

	content, err := os.ReadFile(filepath.Join(settings.OutputDirectory, "hi.mdx"))
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}

	expected := "---\ntitle: \"Hi\"\ndescription: \"\"\npubDate: \"2024-01-05\"\n---\n\nHello\n"
	if diff := cmp.Diff(expected, string(content)); diff != "" {
		t.Errorf("hi.mdx mismatch (-want +got):\n%s", diff)
	}
}

func TestRunSharedImageDownloadedOnce(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("jpeg"))
	}))
	defer server.Close()

	settings := testSettings(t, server.URL+"/api")
	doc := func(slug, imageURL string) string {
		return fmt.Sprintf(`{"id":"%[1]s","title":"%[1]s","excerpt":"x","date":"2024-02-01T00:00:00Z","slug":"%[1]s","status":"published",
			"content":{"root":{"type":"root","children":[
				{"type":"upload","value":{"url":"%[2]s","alt":"pic"}},
				{"type":"paragraph","children":[{"type":"text","text":"body","format":0}]}
			]}}}`, slug, imageURL)
	}
	writeInput(t, settings, `{"docs":[`+
		doc("first", server.URL+"/media/photo.jpg")+","+
		doc("second", "/api/media/file/photo.jpg")+
		`]}`)

	summary := runProcessor(t, settings)

	if summary.Succeeded != 2 {
		t.Fatalf("summary = %+v, want 2 successes", summary)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("image fetched %d times, want 1", got)
	}
	if summary.ImagesDownloaded != 1 {
		t.Errorf("ImagesDownloaded = %d, want 1", summary.ImagesDownloaded)
	}

	entries, err := os.ReadDir(settings.AssetsDirectory)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "photo.jpg" {
		t.Errorf("assets directory = %v, want only photo.jpg", entries)
	}

	for _, slug := range []string{"first", "second"} {
		content, err := os.ReadFile(filepath.Join(settings.OutputDirectory, slug+".mdx"))
		if err != nil {
			t.Fatalf("reading %s: %v", slug, err)
		}
		if !strings.Contains(string(content), "![pic](../../assets/blog/photo.jpg)\n\nbody\n") {
			t.Errorf("%s.mdx missing image reference:\n%s", slug, content)
		}
	}
}

func TestRunHeroImageAndFailedDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "missing.png") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("png"))
	}))
	defer server.Close()

	settings := testSettings(t, server.URL)
	writeInput(t, settings, fmt.Sprintf(`{"docs":[{"id":1,"title":"Cover","excerpt":"About: things","date":"2024-03-03T10:00:00Z","slug":"cover","status":"published",
		"coverImage":{"url":"%[1]s/cover.png"},
		"content":{"root":{"type":"root","children":[
			{"type":"upload","value":{"url":"%[1]s/missing.png","alt":"gone"}},
			{"type":"paragraph","children":[{"type":"text","text":"after","format":0}]}
		]}}}]}`, server.URL))

	summary := runProcessor(t, settings)
	if summary.Succeeded != 1 {
		t.Fatalf("a failed image must not fail the document: %+v", summary.Results)
	}

	content, err := os.ReadFile(filepath.Join(settings.OutputDirectory, "cover.mdx"))
	if err != nil {
		t.Fatal(err)
	}

	expected := "---\ntitle: \"Cover\"\ndescription: \"About: things\"\npubDate: \"2024-03-03\"\nheroImage: \"../../assets/blog/cover.png\"\n---\n\n\n\nafter\n"
	if diff := cmp.Diff(expected, string(content)); diff != "" {
		t.Errorf("cover.mdx mismatch (-want +got):\n%s", diff)
	}
}

func TestRunSkipsUnpublishedAndCountsErrors(t *testing.T) {
	settings := testSettings(t, "https://4real.ltd/api")
	writeInput(t, settings, `{"docs":[
		{"id":1,"title":"Draft","date":"2024-01-01","slug":"draft","status":"draft","content":{"root":{"type":"root","children":[]}}},
		{"id":2,"title":"No root","date":"2024-01-01","slug":"no-root","status":"published","content":{}},
		{"id":3,"title":"Bad date","date":"2024-13-45","slug":"bad-date","status":"published","content":{"root":{"type":"root","children":[]}}},
		{"id":4,"title":"Bad shape","date":"2024-01-01","slug":"bad-shape","status":"published","content":{"root":{"type":"root","children":"oops"}}},
		{"id":5,"title":"Good","date":"2024-01-01","slug":"good","status":"published","content":{"root":{"type":"root","children":[]}}}
	]}`)

	summary := runProcessor(t, settings)

	if summary.Total != 5 || summary.Published != 4 {
		t.Errorf("Total/Published = %d/%d, want 5/4", summary.Total, summary.Published)
	}
	if summary.Succeeded != 1 || summary.Failed != 3 {
		t.Errorf("Succeeded/Failed = %d/%d, want 1/3", summary.Succeeded, summary.Failed)
	}

	for _, slug := range []string{"draft", "no-root", "bad-date", "bad-shape"} {
		if _, err := os.Stat(filepath.Join(settings.OutputDirectory, slug+".mdx")); !os.IsNotExist(err) {
			t.Errorf("%s.mdx should not exist", slug)
		}
	}
	if _, err := os.Stat(filepath.Join(settings.OutputDirectory, "good.mdx")); err != nil {
		t.Errorf("good.mdx missing: %v", err)
	}

	var noRoot *ProcessingResult
	for i := range summary.Results {
		if summary.Results[i].Slug == "no-root" {
			noRoot = &summary.Results[i]
		}
	}
	if noRoot == nil || !errors.Is(noRoot.Error, errNoContentRoot) {
		t.Errorf("no-root result = %+v, want errNoContentRoot", noRoot)
	}
}

func TestRunRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", `{"docs": [`},
		{"missing docs", `{"items": []}`},
		{"docs not array", `{"docs": {}}`},
		{"doc not object", `{"docs": [1, 2]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := testSettings(t, "https://4real.ltd/api")
			writeInput(t, settings, tt.content)

			processor, err := NewDocumentProcessor(settings)
			if err != nil {
				t.Fatal(err)
			}
			_, err = processor.Run(context.Background())
			if !errors.Is(err, ErrInvalidExport) {
				t.Errorf("Run() error = %v, want ErrInvalidExport", err)
			}
		})
	}
}

func TestRunMissingInput(t *testing.T) {
	settings := testSettings(t, "https://4real.ltd/api")
	processor, err := NewDocumentProcessor(settings)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := processor.Run(context.Background()); err == nil {
		t.Error("Run() should fail when the input file is missing")
	}
}

func TestPrintSummary(t *testing.T) {
	var b strings.Builder
	PrintSummary(&b, &RunSummary{Succeeded: 3, Failed: 1, ImagesDownloaded: 2})

	out := b.String()
	for _, want := range []string{"Success: 3", "Errors: 1", "Images downloaded: 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if !strings.HasSuffix(out, "Images downloaded: 2\n") {
		t.Errorf("summary should end with the image count:\n%s", out)
	}
}
