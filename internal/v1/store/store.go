// Package store persists game configs. Two backends exist: a filesystem
// store writing one JSON document per game, and a Redis document store.
// Both treat configs as opaque immutable documents keyed by id.
package store

import (
	"context"
	"errors"
	"sort"

	"github.com/buzzboard/backend/internal/v1/types"
)

// ErrNotFound is returned when no stored game matches the requested id.
var ErrNotFound = errors.New("game not found")

// GameStore is the persistence boundary for saved games. Save assigns an id
// when the config carries none and returns the id the document was stored
// under. List returns summaries newest-first, ties broken by id.
type GameStore interface {
	Save(ctx context.Context, cfg *types.GameConfig) (string, error)
	Get(ctx context.Context, id string) (*types.GameConfig, error)
	List(ctx context.Context) ([]types.GameSummary, error)
	Ping(ctx context.Context) error
}

// sortSummaries orders newest-first; equal timestamps fall back to id so the
// listing is stable across calls and backends.
func sortSummaries(s []types.GameSummary) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].CreatedAt != s[j].CreatedAt {
			return s[i].CreatedAt > s[j].CreatedAt
		}
		return s[i].ID < s[j].ID
	})
}
