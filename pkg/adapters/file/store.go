package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/livehost/pkg/domain"
)

// Store implements ports.StatusStore using the local filesystem.
// Each host ID is one JSON document in BasePath.
type Store struct {
	BasePath string
}

// NewStore creates a Store rooted at basePath.
// If basePath is empty, it defaults to ".livehost/status".
func NewStore(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".livehost", "status")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(hostID string) string {
	return filepath.Join(s.BasePath, hostID+".json")
}

// Save writes the status atomically: temp file, fsync, rename.
func (s *Store) Save(ctx context.Context, status domain.Status) error {
	if status.HostID == "" {
		return fmt.Errorf("host id cannot be empty")
	}
	if err := os.MkdirAll(s.BasePath, 0o755); err != nil {
		return fmt.Errorf("failed to ensure status directory: %w", err)
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	// Same directory as the destination so the rename stays on one filesystem.
	tmp, err := os.CreateTemp(s.BasePath, "tmp-"+status.HostID+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	dest := s.path(status.HostID)
	// Windows refuses to rename over an existing file.
	if _, err := os.Stat(dest); err == nil {
		if err := os.Remove(dest); err != nil {
			return fmt.Errorf("failed to replace status file: %w", err)
		}
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to rename status file: %w", err)
	}
	return nil
}

// Load reads the status stored for hostID.
func (s *Store) Load(ctx context.Context, hostID string) (domain.Status, error) {
	if hostID == "" {
		return domain.Status{}, fmt.Errorf("host id cannot be empty")
	}
	data, err := os.ReadFile(s.path(hostID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Status{}, domain.ErrStatusNotFound
		}
		return domain.Status{}, fmt.Errorf("failed to read status file: %w", err)
	}

	var status domain.Status
	if err := json.Unmarshal(data, &status); err != nil {
		return domain.Status{}, fmt.Errorf("failed to unmarshal status: %w", err)
	}
	return status, nil
}

// Delete removes the status file. Missing files are not an error.
func (s *Store) Delete(ctx context.Context, hostID string) error {
	if hostID == "" {
		return fmt.Errorf("host id cannot be empty")
	}
	if err := os.Remove(s.path(hostID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete status file: %w", err)
	}
	return nil
}

// List returns the stored host IDs in sorted order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list status files: %w", err)
	}

	ids := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, "tmp-") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}
