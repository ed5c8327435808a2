// Package results extracts metric series from a simulation stream and
// persists them: JSON snapshots for analysis, and a SQLite archive for
// moving older history steps out of memory.
package results

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/funvibe/simstream/internal/evaluator"
	"github.com/funvibe/simstream/internal/sim"
)

// NewRunID mints the identifier that tags snapshots and archive rows
// from one simulation run.
func NewRunID() string { return uuid.NewString() }

// ExtractValues collects one value of field per distinct world_time,
// skipping steps where the field is absent.
func ExtractValues(stream []*sim.HistoryStep, field string) []interface{} {
	values := []interface{}{}
	var previousTime evaluator.Object

	for _, step := range stream {
		currentTime, _ := step.State.Get("world_time")
		if previousTime != nil && evaluator.ObjectsEqual(currentTime, previousTime) {
			continue
		}
		previousTime = currentTime

		if value, ok := step.State.Get(field); ok {
			values = append(values, evaluator.ToGo(value))
		}
	}
	return values
}

// Extract builds the canonical result map for a list of metrics.
func Extract(stream []*sim.HistoryStep, metrics []string) map[string][]interface{} {
	out := make(map[string][]interface{}, len(metrics))
	for _, metric := range metrics {
		out[metric] = ExtractValues(stream, metric)
	}
	return out
}

// UniquePath returns basePath if free, else the first variant with a
// numeric suffix (`name_1.json`, `name_2.json`, ...) that does not
// exist yet.
func UniquePath(basePath string) string {
	if _, err := os.Stat(basePath); os.IsNotExist(err) {
		return basePath
	}

	ext := filepath.Ext(basePath)
	stem := strings.TrimSuffix(basePath, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// Save writes the results as indented JSON under dir, named after the
// configuration, avoiding collisions by suffixing. It returns the path
// written.
func Save(dir, configName string, results map[string][]interface{}) (string, error) {
	return save(dir, configName+"_results.json", results)
}

// SaveAt names the snapshot with the step it was taken at, for embedders
// that snapshot periodically during a run.
func SaveAt(dir, configName string, step int, results map[string][]interface{}) (string, error) {
	return save(dir, fmt.Sprintf("%s_step_%d_results.json", configName, step), results)
}

func save(dir, filename string, results map[string][]interface{}) (string, error) {
	if strings.HasPrefix(filename, "_") {
		filename = "ecs_config" + filename
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating results directory: %w", err)
	}

	path := UniquePath(filepath.Join(dir, filename))
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// stateToGo flattens a snapshot for JSON encoding, dropping the
// self-referential state handle.
func stateToGo(state *evaluator.Environment) map[string]interface{} {
	out := make(map[string]interface{}, state.Len())
	for _, key := range state.Keys() {
		value, _ := state.Get(key)
		if _, isView := value.(*evaluator.StateView); isView {
			continue
		}
		out[key] = evaluator.ToGo(value)
	}
	return out
}
