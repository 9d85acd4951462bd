package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/buzzboard/backend/internal/v1/logging"
	"github.com/buzzboard/backend/internal/v1/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FilesystemStore persists games as one JSON file per game under a directory.
type FilesystemStore struct {
	dir string
}

// NewFilesystemStore creates the directory if needed and returns the store.
func NewFilesystemStore(dir string) (*FilesystemStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create games directory: %w", err)
	}
	return &FilesystemStore{dir: dir}, nil
}

// Save writes the config to <id>.json. Writes go through a temp file and a
// rename so a crash mid-write never leaves a truncated document behind.
func (s *FilesystemStore) Save(ctx context.Context, cfg *types.GameConfig) (string, error) {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.CreatedAt == 0 {
		cfg.CreatedAt = time.Now().UnixMilli()
	}
	if err := validateID(cfg.ID); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode game: %w", err)
	}

	final := filepath.Join(s.dir, cfg.ID+".json")
	tmp, err := os.CreateTemp(s.dir, cfg.ID+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write game: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to store game: %w", err)
	}

	logging.Info(ctx, "Game saved", zap.String("gameId", cfg.ID), zap.String("path", final))
	return cfg.ID, nil
}

// Get loads one game by id.
func (s *FilesystemStore) Get(ctx context.Context, id string) (*types.GameConfig, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.dir, id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read game: %w", err)
	}

	var cfg types.GameConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode game %s: %w", id, err)
	}
	return &cfg, nil
}

// List scans the directory and returns summaries newest-first. Unreadable or
// malformed files are skipped with a warning rather than failing the listing.
func (s *FilesystemStore) List(ctx context.Context) ([]types.GameSummary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read games directory: %w", err)
	}

	summaries := make([]types.GameSummary, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			logging.Warn(ctx, "Skipping unreadable game file", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}

		var cfg types.GameConfig
		if err := json.Unmarshal(data, &cfg); err != nil {
			logging.Warn(ctx, "Skipping malformed game file", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		if cfg.ID == "" {
			cfg.ID = strings.TrimSuffix(entry.Name(), ".json")
		}

		summaries = append(summaries, types.GameSummary{
			ID:        cfg.ID,
			CreatedAt: cfg.CreatedAt,
			Metadata:  cfg.Metadata,
			Filename:  entry.Name(),
		})
	}

	sortSummaries(summaries)
	return summaries, nil
}

// Ping verifies the directory is still accessible.
func (s *FilesystemStore) Ping(ctx context.Context) error {
	_, err := os.Stat(s.dir)
	return err
}

// validateID rejects ids that could escape the games directory.
func validateID(id string) error {
	if id == "" || strings.ContainsAny(id, "/\\") || strings.Contains(id, "..") {
		return fmt.Errorf("invalid game id %q", id)
	}
	return nil
}

var _ GameStore = (*FilesystemStore)(nil)
