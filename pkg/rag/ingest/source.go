package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ExtractedDocument is the (path, content hash, raw text) tuple handed over
// by the extraction layer.
type ExtractedDocument struct {
	Path string
	Hash string
	Text string
}

// Source resolves library paths to extracted text. The PDF extraction
// collaborator lives behind this interface; FileSource is the plain-text
// implementation used for .txt/.md research notes.
type Source interface {
	Resolve(ctx context.Context, path string) (*ExtractedDocument, error)
	List(ctx context.Context, dir string) ([]string, error)
}

type FileSource struct {
	// MaxBytes caps how much of a single file is read. Zero means 8 MiB.
	MaxBytes int64
}

var supportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".text":     true,
}

func NewFileSource() *FileSource {
	return &FileSource{}
}

func (s *FileSource) Resolve(ctx context.Context, path string) (*ExtractedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !supportedExtensions[ext] {
		return nil, fmt.Errorf("unsupported document type: %s", ext)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat document: %w", err)
	}
	max := s.MaxBytes
	if max == 0 {
		max = 8 * 1024 * 1024
	}
	if info.Size() > max {
		return nil, fmt.Errorf("document too large: %d bytes (max %d)", info.Size(), max)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	sum := sha256.Sum256(data)
	return &ExtractedDocument{
		Path: path,
		Hash: hex.EncodeToString(sum[:]),
		Text: string(data),
	}, nil
}

// List walks dir and returns supported document paths in sorted order so
// scans are reproducible.
func (s *FileSource) List(ctx context.Context, dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}
		if supportedExtensions[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk research dir: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}
