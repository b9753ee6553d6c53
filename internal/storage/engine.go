package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dori/buebu/internal/model"
	"go.uber.org/zap"
)

// Engine loads and saves the whole project collection as one snapshot. Tiers
// are tried in priority order; the first one is the structured primary store
// and the rest are flat fallbacks.
type Engine struct {
	tiers  []Backend
	logger *zap.Logger
}

// NewEngine creates an engine over tiers in priority order.
func NewEngine(logger *zap.Logger, tiers ...Backend) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{tiers: tiers, logger: logger}
}

// Tiers returns the backends in priority order.
func (e *Engine) Tiers() []Backend {
	return e.tiers
}

// Load returns the stored collection from the first tier that can produce
// one. It never fails: when every tier is unavailable, empty or corrupt the
// result is an empty slice.
func (e *Engine) Load(ctx context.Context) []model.Project {
	for _, tier := range e.tiers {
		data, err := tier.Get(ctx, SnapshotKey)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				e.logger.Debug("no snapshot in tier", zap.String("backend", tier.Name()))
			} else {
				e.logger.Warn("snapshot read failed, trying next tier",
					zap.String("backend", tier.Name()), zap.Error(err))
			}
			continue
		}

		projects, err := decodeSnapshot(data)
		if err != nil {
			e.logger.Warn("snapshot is corrupt, trying next tier",
				zap.String("backend", tier.Name()), zap.Error(err))
			continue
		}

		e.logger.Debug("snapshot loaded",
			zap.String("backend", tier.Name()), zap.Int("projects", len(projects)))
		return projects
	}

	return []model.Project{}
}

// Save replaces the stored collection. It writes to the first tier that
// accepts the snapshot. Fallback tiers delete their entry for an empty
// collection rather than storing an empty list, so a later primary outage
// cannot resurrect old projects.
func (e *Engine) Save(ctx context.Context, projects []model.Project) {
	if projects == nil {
		projects = []model.Project{}
	}

	data, err := json.Marshal(projects)
	if err != nil {
		e.logger.Error("failed to encode snapshot", zap.Error(err))
		return
	}

	for i, tier := range e.tiers {
		if i > 0 && len(projects) == 0 {
			err = tier.Delete(ctx, SnapshotKey)
		} else {
			err = tier.Put(ctx, SnapshotKey, data)
		}
		if err == nil {
			e.logger.Debug("snapshot saved",
				zap.String("backend", tier.Name()), zap.Int("projects", len(projects)))
			return
		}

		e.logger.Warn("snapshot write failed, trying next tier",
			zap.String("backend", tier.Name()), zap.Error(err))
	}

	e.logger.Error("snapshot was not saved to any tier", zap.Int("projects", len(projects)))
}

// Close closes every tier.
func (e *Engine) Close() error {
	var errs []error
	for _, tier := range e.tiers {
		if err := tier.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func decodeSnapshot(data []byte) ([]model.Project, error) {
	var projects []model.Project
	if err := json.Unmarshal(data, &projects); err != nil {
		return nil, err
	}
	// A JSON null is not a collection.
	if projects == nil {
		return nil, errors.New("snapshot is not a list")
	}
	return projects, nil
}
