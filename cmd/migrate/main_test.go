package main

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestRewriteURLs(t *testing.T) {
	dir := t.TempDir()
	old := defaultOldPrefix + "/photo.jpg"
	writeTestFile(t, filepath.Join(dir, "a.mdx"), "![x]("+old+")\n![y]("+old+")\n")
	writeTestFile(t, filepath.Join(dir, "b.mdx"), "no images\n")
	writeTestFile(t, filepath.Join(dir, "c.md"), old)

	if err := rewriteURLs(dir, defaultOldPrefix, defaultNewPrefix); err != nil {
		t.Fatalf("rewriteURLs() error = %v", err)
	}

	content, _ := os.ReadFile(filepath.Join(dir, "a.mdx"))
	expected := "![x](" + defaultNewPrefix + "/photo.jpg)\n![y](" + defaultNewPrefix + "/photo.jpg)\n"
	if string(content) != expected {
		t.Errorf("a.mdx = %q, want %q", content, expected)
	}

	content, _ = os.ReadFile(filepath.Join(dir, "c.md"))
	if string(content) != old {
		t.Errorf("non-MDX file was modified: %q", content)
	}

	if err := rewriteURLs(dir, "", "x"); err == nil {
		t.Error("rewriteURLs() should reject an empty prefix")
	}
}

func TestPruneAssets(t *testing.T) {
	root := t.TempDir()
	blog := filepath.Join(root, "blog")
	assets := filepath.Join(root, "assets")

	writeTestFile(t, filepath.Join(blog, "post.mdx"),
		"---\ntitle: \"T\"\npubDate: \"2024-01-05\"\nheroImage: \"../assets/cover.png\"\n---\n\n![a](../assets/used.jpg)\n\n![pic](../assets/my photo.jpg)\n")
	for _, name := range []string{"cover.png", "used.jpg", "my photo.jpg", "orphan.jpg", "keep-me.gif"} {
		writeTestFile(t, filepath.Join(assets, name), "x")
	}

	var asked []string
	confirm := func(path string) bool {
		asked = append(asked, filepath.Base(path))
		return filepath.Base(path) == "orphan.jpg"
	}

	if err := pruneAssets(assets, blog, confirm); err != nil {
		t.Fatalf("pruneAssets() error = %v", err)
	}

	sort.Strings(asked)
	if len(asked) != 2 || asked[0] != "keep-me.gif" || asked[1] != "orphan.jpg" {
		t.Errorf("confirm asked for %v, want only unreferenced files", asked)
	}

	entries, err := os.ReadDir(assets)
	if err != nil {
		t.Fatal(err)
	}
	var remaining []string
	for _, e := range entries {
		remaining = append(remaining, e.Name())
	}
	want := []string{"cover.png", "keep-me.gif", "my photo.jpg", "used.jpg"}
	if len(remaining) != len(want) {
		t.Fatalf("remaining = %v, want %v", remaining, want)
	}
	for i := range want {
		if remaining[i] != want[i] {
			t.Errorf("remaining = %v, want %v", remaining, want)
			break
		}
	}
}
