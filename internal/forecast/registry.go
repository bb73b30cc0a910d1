package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rith-wik/attribute-forecasting-system/internal/storage"
	"github.com/rith-wik/attribute-forecasting-system/internal/utils"
)

const artifactPrefix = "artifacts/"

// Metadata is the sidecar record persisted next to each model artifact.
type Metadata struct {
	Version      string             `json:"version"`
	TrainedAt    time.Time          `json:"trained_at"`
	BackfillDays int                `json:"backfill_days"`
	Level        string             `json:"level"`
	Metrics      map[string]float64 `json:"metrics"`
	Importance   map[string]float64 `json:"feature_importance"`
	Permutation  map[string]float64 `json:"permutation_importance,omitempty"`
}

// Registry persists versioned model artifacts and publishes the current
// model. Publication is an atomic reference swap so concurrent
// prediction reads never observe a half-built model.
type Registry struct {
	store  storage.Store
	logger *slog.Logger

	mu      sync.RWMutex
	current *HybridModel
	meta    *Metadata
}

// NewRegistry creates a registry over the given blob store.
func NewRegistry(store storage.Store, logger *slog.Logger) *Registry {
	return &Registry{store: store, logger: logger}
}

// Current returns the published model and its metadata, or nil when no
// model has been published yet.
func (r *Registry) Current() (*HybridModel, *Metadata) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current, r.meta
}

// Publish persists the artifact and metadata under the version key and
// then swaps the current model reference. When the key is already taken
// it is bumped with a numeric suffix so an earlier artifact is never
// overwritten; the version actually written is returned. On a partial
// write the already-written object is removed so no half-written
// artifact remains under the version key; the previously published
// model stays in place.
func (r *Registry) Publish(ctx context.Context, model *HybridModel, meta Metadata) (string, error) {
	data, err := model.MarshalArtifact()
	if err != nil {
		return "", err
	}

	version, err := r.uniqueVersion(ctx, meta.Version)
	if err != nil {
		return "", err
	}
	meta.Version = version

	metaData, err := json.Marshal(meta)
	if err != nil {
		return "", utils.NewPersistenceError("marshal metadata", err)
	}

	modelName := artifactName(version, "model")
	metaName := artifactName(version, "meta")

	if err := r.store.Upload(ctx, modelName, data); err != nil {
		return "", utils.NewPersistenceError("write model artifact", err)
	}
	if err := r.store.Upload(ctx, metaName, metaData); err != nil {
		if delErr := r.store.Delete(ctx, modelName); delErr != nil {
			r.logger.Error("failed to remove orphaned model artifact",
				"name", modelName, "error", delErr)
		}
		return "", utils.NewPersistenceError("write model metadata", err)
	}

	r.mu.Lock()
	r.current = model
	r.meta = &meta
	r.mu.Unlock()

	r.logger.Info("model published", "version", version)
	return version, nil
}

// uniqueVersion appends a numeric suffix while the candidate key is
// already persisted. Two-digit suffixes keep the bumped keys sorting
// after the base key and after each other.
func (r *Registry) uniqueVersion(ctx context.Context, version string) (string, error) {
	existing, err := r.Versions(ctx)
	if err != nil {
		return "", err
	}
	taken := make(map[string]bool, len(existing))
	for _, v := range existing {
		taken[v] = true
	}

	candidate := version
	for n := 2; taken[candidate]; n++ {
		candidate = fmt.Sprintf("%s-%02d", version, n)
	}
	return candidate, nil
}

// LoadLatest restores the most recently trained artifact from the store
// and publishes it. A store with no artifacts is not an error; the
// registry simply stays empty.
func (r *Registry) LoadLatest(ctx context.Context) error {
	infos, err := r.store.List(ctx, artifactPrefix)
	if err != nil {
		return utils.NewPersistenceError("list artifacts", err)
	}

	versions := make([]string, 0, len(infos))
	for _, info := range infos {
		if v, ok := versionFromName(info.Name, "meta"); ok {
			versions = append(versions, v)
		}
	}
	if len(versions) == 0 {
		r.logger.Info("no model artifacts found")
		return nil
	}
	// Version keys embed the training timestamp, so the lexicographic
	// maximum is the most recent.
	sort.Strings(versions)
	version := versions[len(versions)-1]

	metaData, err := r.store.Download(ctx, artifactName(version, "meta"))
	if err != nil {
		return utils.NewPersistenceError("read model metadata", err)
	}
	var meta Metadata
	if err := json.Unmarshal(metaData, &meta); err != nil {
		return utils.NewPersistenceError("decode model metadata", err)
	}

	data, err := r.store.Download(ctx, artifactName(version, "model"))
	if err != nil {
		return utils.NewPersistenceError("read model artifact", err)
	}
	model, err := UnmarshalArtifact(data)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.current = model
	r.meta = &meta
	r.mu.Unlock()

	r.logger.Info("model restored", "version", version, "trained_at", meta.TrainedAt)
	return nil
}

// Versions lists the persisted artifact versions in ascending order.
func (r *Registry) Versions(ctx context.Context) ([]string, error) {
	infos, err := r.store.List(ctx, artifactPrefix)
	if err != nil {
		return nil, utils.NewPersistenceError("list artifacts", err)
	}
	var versions []string
	for _, info := range infos {
		if v, ok := versionFromName(info.Name, "meta"); ok {
			versions = append(versions, v)
		}
	}
	sort.Strings(versions)
	return versions, nil
}

func artifactName(version, kind string) string {
	return artifactPrefix + version + "." + kind + ".json"
}

func versionFromName(name, kind string) (string, bool) {
	if !strings.HasPrefix(name, artifactPrefix) {
		return "", false
	}
	suffix := "." + kind + ".json"
	base := strings.TrimPrefix(name, artifactPrefix)
	if !strings.HasSuffix(base, suffix) {
		return "", false
	}
	return strings.TrimSuffix(base, suffix), true
}
