package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/dgallion1/docbind/internal/listing"
)

// Manifest describes a bundle in YAML. Listing paths are relative to the
// manifest's directory.
type Manifest struct {
	Title    string          `yaml:"title"`
	Format   string          `yaml:"format"`
	Output   string          `yaml:"output"`
	Listings []ManifestEntry `yaml:"listings"`
}

// ManifestEntry is one listing of a manifest.
type ManifestEntry struct {
	Title string `yaml:"title"`
	Path  string `yaml:"path"`
}

// LoadManifest reads and validates a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	for i, e := range m.Listings {
		if e.Path == "" {
			return nil, fmt.Errorf("manifest %s: listing %d has no path", path, i+1)
		}
		if !filepath.IsAbs(e.Path) {
			m.Listings[i].Path = filepath.Join(dir, e.Path)
		}
	}
	if m.Output != "" && !filepath.IsAbs(m.Output) {
		m.Output = filepath.Join(dir, m.Output)
	}
	return &m, nil
}

// parseEntry reads a "title=path" argument. An argument that names an
// existing file, or has no "=", is a bare path titled by its file name.
func parseEntry(arg string) ManifestEntry {
	if _, err := os.Stat(arg); err == nil {
		return ManifestEntry{Path: arg}
	}
	if title, path, ok := strings.Cut(arg, "="); ok && title != "" && path != "" {
		return ManifestEntry{Title: title, Path: path}
	}
	return ManifestEntry{Path: arg}
}

// readListings loads every entry from disk, in order.
func readListings(entries []ManifestEntry) ([]listing.Listing, error) {
	out := make([]listing.Listing, 0, len(entries))
	for i, e := range entries {
		data, err := os.ReadFile(e.Path)
		if err != nil {
			return nil, fmt.Errorf("reading listing %d: %w", i+1, err)
		}
		name := filepath.Base(e.Path)
		title := e.Title
		if title == "" {
			title = name
		}
		out = append(out, listing.Listing{
			ID:       int64(i + 1),
			Index:    i,
			Title:    title,
			FileName: name,
			Data:     data,
		})
	}
	return out, nil
}
