package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aktagon/lexical-to-mdx/internal/mdx"
)

const (
	defaultOldPrefix = "https://c587a55482894f651efe60dbf5bdcc36.r2.cloudflarestorage.com/blogs"
	defaultNewPrefix = "https://pub-6fcfe1e3fe954d73917791d34e36c699.r2.dev"
)

func main() {
	if len(os.Args) < 3 {
		log.Fatal("Usage: migrate <rewrite-urls <blog-dir> [from] [to] | prune-assets <assets-dir> <blog-dir>>")
	}

	command := os.Args[1]

	switch command {
	case "rewrite-urls":
		from, to := defaultOldPrefix, defaultNewPrefix
		if len(os.Args) > 3 {
			from = os.Args[3]
		}
		if len(os.Args) > 4 {
			to = os.Args[4]
		}
		if err := rewriteURLs(os.Args[2], from, to); err != nil {
			log.Fatal(err)
		}
	case "prune-assets":
		if len(os.Args) < 4 {
			log.Fatal("Usage: migrate prune-assets <assets-dir> <blog-dir>")
		}
		reader := bufio.NewReader(os.Stdin)
		if err := pruneAssets(os.Args[2], os.Args[3], func(path string) bool {
			return confirmDelete(reader, path)
		}); err != nil {
			log.Fatal(err)
		}
	default:
		log.Fatalf("Unknown command %q", command)
	}
}

// mdxFiles lists the .mdx files directly inside dir
func mdxFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".mdx") {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// rewriteURLs replaces every occurrence of from with to in each MDX file
func rewriteURLs(blogDir, from, to string) error {
	if from == "" {
		return fmt.Errorf("empty prefix to replace")
	}

	files, err := mdxFiles(blogDir)
	if err != nil {
		return err
	}

	fmt.Printf("Found %d MDX files to process\n", len(files))

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("reading file %s: %w", file, err)
		}

		name := filepath.Base(file)
		if !strings.Contains(string(content), from) {
			fmt.Printf("No changes: %s\n", name)
			continue
		}

		updated := strings.ReplaceAll(string(content), from, to)
		if err := os.WriteFile(file, []byte(updated), 0644); err != nil {
			return fmt.Errorf("writing file %s: %w", file, err)
		}
		fmt.Printf("Updated: %s\n", name)
	}

	fmt.Println("\nDone!")
	return nil
}

// referencedAssets returns the base names of every local image the MDX
// files in blogDir point at
func referencedAssets(blogDir string) (map[string]bool, error) {
	files, err := mdxFiles(blogDir)
	if err != nil {
		return nil, err
	}

	refs := make(map[string]bool)
	for _, path := range files {
		file, err := mdx.ReadFile(path)
		if err != nil {
			log.Printf("Error processing %s: %v", path, err)
			continue
		}
		for _, ref := range file.References() {
			refs[filepath.Base(filepath.FromSlash(ref))] = true
		}
	}
	return refs, nil
}

// pruneAssets deletes asset files no MDX file references, asking confirm
// for each one
func pruneAssets(assetsDir, blogDir string, confirm func(path string) bool) error {
	refs, err := referencedAssets(blogDir)
	if err != nil {
		return err
	}

	entries, err := os.ReadDir(assetsDir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", assetsDir, err)
	}

	totalRemoved := 0
	for _, entry := range entries {
		if entry.IsDir() || refs[entry.Name()] {
			continue
		}

		path := filepath.Join(assetsDir, entry.Name())
		fmt.Printf("\nUnreferenced: %s\n", entry.Name())
		if !confirm(path) {
			fmt.Printf("  SKIP: %s\n", entry.Name())
			continue
		}

		if err := os.Remove(path); err != nil {
			log.Printf("Error removing %s: %v", path, err)
			continue
		}
		totalRemoved++
		fmt.Printf("  REMOVED: %s\n", entry.Name())
	}

	fmt.Printf("\nRemoved %d unreferenced assets\n", totalRemoved)
	return nil
}

func confirmDelete(reader *bufio.Reader, path string) bool {
	for {
		fmt.Printf("  DELETE %s? [y/N]: ", filepath.Base(path))
		input, err := reader.ReadString('\n')
		if err != nil {
			log.Printf("Error reading input: %v", err)
			return false
		}
		response := strings.ToLower(strings.TrimSpace(input))
		switch response {
		case "y", "yes":
			return true
		case "", "n", "no":
			return false
		default:
			fmt.Println("  Please enter y or n.")
		}
	}
}
