package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aktagon/lexical-to-mdx/internal/mdx"
)

// CheckIssue is a problem found in a generated MDX file
type CheckIssue struct {
	File    string
	Message string
}

func (i CheckIssue) String() string {
	return fmt.Sprintf("%s: %s", i.File, i.Message)
}

// CheckOutput verifies every .mdx file under dir: required frontmatter
// fields are present and local image references exist on disk.
func CheckOutput(dir string) (int, []CheckIssue, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".mdx") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return 0, nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	sort.Strings(files)

	var issues []CheckIssue
	for _, path := range files {
		issues = append(issues, checkFile(path)...)
	}
	return len(files), issues, nil
}

func checkFile(path string) []CheckIssue {
	file, err := mdx.ReadFile(path)
	if err != nil {
		return []CheckIssue{{File: path, Message: err.Error()}}
	}

	var issues []CheckIssue
	add := func(format string, args ...any) {
		issues = append(issues, CheckIssue{File: path, Message: fmt.Sprintf(format, args...)})
	}

	meta := file.FrontMatter
	if strings.TrimSpace(meta.Title) == "" {
		add("missing title")
	}
	if _, err := time.Parse("2006-01-02", meta.PubDate); err != nil {
		add("pubDate %q is not a YYYY-MM-DD date", meta.PubDate)
	}

	base := filepath.Dir(path)
	for _, ref := range file.References() {
		target := filepath.Join(base, filepath.FromSlash(ref))
		if _, err := os.Stat(target); err != nil {
			add("image %s not found", ref)
		}
	}

	return issues
}
