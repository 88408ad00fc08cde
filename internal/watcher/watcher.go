// Package watcher periodically scans a manifest drop directory and triggers
// an orchestration run for each new run_manifest.json it finds. Processed
// paths are remembered in the key/value store so restarts and repeated scans
// do not re-trigger the same document.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/strand/internal/common"
	"github.com/ternarybob/strand/internal/interfaces"
	"github.com/ternarybob/strand/internal/models"
	"github.com/ternarybob/strand/internal/orchestrator"
)

// ManifestFileName is the fixed file name a drop directory entry must have
const ManifestFileName = "run_manifest.json"

// processedKeyPrefix namespaces watcher entries in the shared key/value store
const processedKeyPrefix = "watcher:processed:"

// Watcher scans for manifest files on a cron schedule
type Watcher struct {
	runner   *orchestrator.Runner
	kvStore  interfaces.KeyValueStorage
	events   interfaces.EventService
	dir      string
	schedule string
	cron     *cron.Cron
	logger   arbor.ILogger

	mu      sync.Mutex
	running sync.WaitGroup
}

// NewWatcher creates a manifest directory watcher
func NewWatcher(runner *orchestrator.Runner, kvStore interfaces.KeyValueStorage, events interfaces.EventService, dir, schedule string, logger arbor.ILogger) *Watcher {
	if schedule == "" {
		schedule = "*/1 * * * *"
	}
	return &Watcher{
		runner:   runner,
		kvStore:  kvStore,
		events:   events,
		dir:      dir,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger,
	}
}

// Start begins the scheduled scan and also performs one immediate scan so a
// manifest dropped before startup is not delayed by a full schedule interval.
func (w *Watcher) Start(ctx context.Context) error {
	_, err := w.cron.AddFunc(w.schedule, func() {
		w.Scan(ctx)
	})
	if err != nil {
		return err
	}

	w.cron.Start()
	w.logger.Info().
		Str("dir", w.dir).
		Str("schedule", w.schedule).
		Msg("Manifest watcher started")

	go w.Scan(ctx)
	return nil
}

// Stop halts scheduling and waits for in-flight runs to finish persisting
func (w *Watcher) Stop() {
	stopCtx := w.cron.Stop()
	<-stopCtx.Done()
	w.running.Wait()
	w.logger.Info().Msg("Manifest watcher stopped")
}

// Scan walks the drop directory once and triggers any new manifests found.
// Scans are serialized; a slow scan skips overlapping invocations.
func (w *Watcher) Scan(ctx context.Context) {
	if !w.mu.TryLock() {
		return
	}
	defer w.mu.Unlock()

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		w.logger.Warn().Err(err).Str("dir", w.dir).Msg("Failed to read manifest directory")
		return
	}

	for _, entry := range entries {
		var path string
		switch {
		case entry.IsDir():
			// One manifest per run subdirectory
			path = filepath.Join(w.dir, entry.Name(), ManifestFileName)
		case entry.Name() == ManifestFileName:
			path = filepath.Join(w.dir, entry.Name())
		default:
			continue
		}

		if _, err := os.Stat(path); err != nil {
			continue
		}
		if w.alreadyProcessed(ctx, path) {
			continue
		}
		w.trigger(ctx, path)
	}
}

// alreadyProcessed checks the dedup record for a manifest path
func (w *Watcher) alreadyProcessed(ctx context.Context, path string) bool {
	_, err := w.kvStore.Get(ctx, processedKeyPrefix+path)
	if err == nil {
		return true
	}
	if !errors.Is(err, interfaces.ErrKeyNotFound) {
		w.logger.Warn().Err(err).Str("path", path).Msg("Dedup lookup failed, skipping manifest this cycle")
		return true
	}
	return false
}

// trigger parses the manifest and starts an orchestration run for it. The
// path is marked processed before the run starts; a run that fails is not
// retried by re-reading the same file.
func (w *Watcher) trigger(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		w.logger.Warn().Err(err).Str("path", path).Msg("Failed to read manifest")
		return
	}

	manifest, err := models.ManifestFromJSON(data)
	if err != nil {
		w.logger.Error().Err(err).Str("path", path).Msg("Rejecting malformed manifest")
		// Remember malformed files too, otherwise every scan re-logs them
		if setErr := w.kvStore.Set(ctx, processedKeyPrefix+path, "malformed"); setErr != nil {
			w.logger.Warn().Err(setErr).Str("path", path).Msg("Failed to record malformed manifest")
		}
		return
	}

	if err := w.kvStore.Set(ctx, processedKeyPrefix+path, manifest.RunLabel); err != nil {
		w.logger.Warn().Err(err).Str("path", path).Msg("Failed to record processed manifest, skipping")
		return
	}

	triggerID := common.NewRunID()
	w.logger.Info().
		Str("path", path).
		Str("run_label", manifest.RunLabel).
		Str("trigger_id", triggerID).
		Msg("Manifest picked up, starting run")

	w.events.Publish(ctx, interfaces.Event{
		Type: interfaces.EventRunTriggered,
		Payload: map[string]interface{}{
			"run_label":  manifest.RunLabel,
			"trigger_id": triggerID,
			"source":     path,
		},
	})

	w.running.Add(1)
	go func() {
		defer w.running.Done()
		if err := w.runner.Execute(ctx, manifest); err != nil {
			w.logger.Error().
				Err(err).
				Str("run_label", manifest.RunLabel).
				Str("trigger_id", triggerID).
				Msg("Run finished with error")
		}
	}()
}
