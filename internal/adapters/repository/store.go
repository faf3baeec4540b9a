// Package repository loads the immutable baseline dataset the lab
// recomputes against, from a JSON or YAML file or from the embedded sample.
package repository

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/okian/modellab/internal/domain/model"
	"github.com/okian/modellab/internal/domain/weights"
)

const defaultMaxBytes = 32 << 20

//go:embed sample/dataset.json
var sampleFS embed.FS

// Source provides the baseline dataset.
type Source interface {
	Load(ctx context.Context) (*model.Dataset, error)
}

// Format names a dataset encoding.
type Format string

// Supported encodings.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatOf picks the encoding from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// FileSource reads a dataset file from disk.
type FileSource struct {
	path     string
	maxBytes int64
	strict   bool
}

// NewFileSource creates a source for path. The format follows the extension.
func NewFileSource(path string, opts ...Option) *FileSource {
	s := &FileSource{path: path, maxBytes: defaultMaxBytes}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads, decodes and validates the file.
func (s *FileSource) Load(ctx context.Context) (*model.Dataset, error) {
	format, err := FormatOf(s.path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadDataset, err)
	}
	defer f.Close()

	raw, err := io.ReadAll(io.LimitReader(f, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrLoadDataset, s.path, err)
	}
	if int64(len(raw)) > s.maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrDatasetTooLarge, s.path, s.maxBytes)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Decode(raw, format, s.strict)
}

// EmbeddedSource serves the sample dataset compiled into the binary.
type EmbeddedSource struct{}

// Load decodes the embedded sample.
func (EmbeddedSource) Load(_ context.Context) (*model.Dataset, error) {
	raw, err := sampleFS.ReadFile("sample/dataset.json")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadDataset, err)
	}
	return Decode(raw, FormatJSON, true)
}

// Open returns the file source for path, or the embedded sample when path is
// empty.
func Open(path string, opts ...Option) Source {
	if path == "" {
		return EmbeddedSource{}
	}
	return NewFileSource(path, opts...)
}

// Decode parses raw and validates the result.
func Decode(raw []byte, format Format, strict bool) (*model.Dataset, error) {
	var ds model.Dataset
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(raw))
		if strict {
			dec.DisallowUnknownFields()
		}
		if err := dec.Decode(&ds); err != nil {
			return nil, fmt.Errorf("%w: json: %w", ErrLoadDataset, err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(strict)
		if err := dec.Decode(&ds); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: yaml: %w", ErrLoadDataset, err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	if err := ds.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadDataset, err)
	}
	if strict {
		if err := checkKeys(&ds); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadDataset, err)
		}
	}
	return &ds, nil
}

func checkKeys(ds *model.Dataset) error {
	rk, _ := weights.KeysOf(weights.KindRanking)
	pk, _ := weights.KeysOf(weights.KindPrediction)
	for _, e := range ds.Entities {
		for key := range e.Metrics {
			if !slices.Contains(rk, key) {
				return fmt.Errorf("%w: entity %q has unknown metric %q", model.ErrInvalidDataset, e.ID, key)
			}
		}
	}
	for _, m := range ds.Matchups {
		for key := range m.Probabilities {
			if !slices.Contains(pk, key) {
				return fmt.Errorf("%w: game %d has unknown model %q", model.ErrInvalidDataset, m.Game, key)
			}
		}
	}
	return nil
}
