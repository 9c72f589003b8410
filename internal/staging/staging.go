// Package staging persists the normalized item set of a sync job to disk so
// the transform stage can be replayed or inspected after the fact.
package staging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"inventory-connector-service/internal/models"
)

// Store writes per-job staging files under a base directory.
type Store struct {
	baseDir string
	log     *logrus.Logger
}

// NewStore creates a staging store rooted at baseDir.
func NewStore(baseDir string, log *logrus.Logger) *Store {
	return &Store{baseDir: baseDir, log: log}
}

// Write dumps a job's flattened items to a uniquely named JSON file and
// returns its path.
func (s *Store) Write(vendorID int64, items []models.FlatItem) (string, error) {
	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return "", fmt.Errorf("creating staging directory: %w", err)
	}

	name := fmt.Sprintf("vendor-%d-%s.json", vendorID, uuid.New().String())
	path := filepath.Join(s.baseDir, name)

	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encoding staging payload: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing staging file: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"vendor_id": vendorID,
		"path":      path,
		"items":     len(items),
	}).Debug("Staged normalized items")
	return path, nil
}

// Read loads a previously staged item set.
func (s *Store) Read(path string) ([]models.FlatItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading staging file: %w", err)
	}
	var items []models.FlatItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decoding staging file %s: %w", path, err)
	}
	return items, nil
}
