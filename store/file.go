// Package store provides weight store backends for the inference engine.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"probeserve/probe"
)

// FileStore serves probe weights from a directory tree laid out as
// <root>/<model>/<probe_type>/<layer>/weights.json.
type FileStore struct {
	root string
}

// NewFileStore creates a file-backed weight store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{root: dir}
}

// GetWeights reads and parses the weight file for the triple.
func (s *FileStore) GetWeights(ctx context.Context, model, probeType string, layer int) (probe.Weights, error) {
	path := filepath.Join(s.root, model, probeType, strconv.Itoa(layer), "weights.json")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return probe.Weights{}, probe.ErrWeightsNotFound
		}
		return probe.Weights{}, fmt.Errorf("read weight file %s: %w", path, err)
	}

	var w probe.Weights
	if err := json.Unmarshal(data, &w); err != nil {
		return probe.Weights{}, fmt.Errorf("parse weight file %s: %w", path, err)
	}
	if len(w.Weights) == 0 {
		return probe.Weights{}, fmt.Errorf("weight file %s has no weights", path)
	}

	return w, nil
}

// Walk visits every weight file under the root and calls fn with the triple
// and its parsed weights. Used by the import tooling.
func (s *FileStore) Walk(ctx context.Context, fn func(model, probeType string, layer int, w probe.Weights) error) error {
	return filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || info.Name() != "weights.json" {
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		// Expect <model>/<probe_type>/<layer>/weights.json
		parts := strings.Split(rel, string(filepath.Separator))
		if len(parts) != 4 {
			return nil
		}
		layer, err := strconv.Atoi(parts[2])
		if err != nil || layer < 0 {
			return nil
		}

		w, err := s.GetWeights(ctx, parts[0], parts[1], layer)
		if err != nil {
			return err
		}
		return fn(parts[0], parts[1], layer, w)
	})
}
