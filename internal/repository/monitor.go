package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/gabapcia/chainsentinel/internal/model"
)

// MonitorRepository is an immutable name-indexed table of monitors.
type MonitorRepository struct {
	monitors map[string]model.Monitor
}

// LoadMonitors reads one Monitor per .json file under dir.
func LoadMonitors(dir string) (*MonitorRepository, error) {
	files, err := listJSONFiles(dir)
	if err != nil {
		return nil, err
	}

	monitors := make(map[string]model.Monitor, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, file, err)
		}

		var monitor model.Monitor
		if err := json.Unmarshal(data, &monitor); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, file, err)
		}

		if err := monitor.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, file, err)
		}

		if _, exists := monitors[monitor.Name]; exists {
			return nil, fmt.Errorf("%w: duplicate monitor name %q in %s", ErrInvalidConfig, monitor.Name, file)
		}
		monitors[monitor.Name] = monitor
	}

	return &MonitorRepository{monitors: monitors}, nil
}

// Get returns the monitor for name, if present.
func (r *MonitorRepository) Get(name string) (model.Monitor, bool) {
	monitor, ok := r.monitors[name]
	return monitor, ok
}

// All returns every monitor ordered by name.
func (r *MonitorRepository) All() []model.Monitor {
	monitors := make([]model.Monitor, 0, len(r.monitors))
	for _, monitor := range r.monitors {
		monitors = append(monitors, monitor)
	}

	slices.SortFunc(monitors, func(a, b model.Monitor) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return monitors
}

// ActiveForNetwork returns the monitors that target the given network slug
// and are not paused, ordered by name.
func (r *MonitorRepository) ActiveForNetwork(slug string) []model.Monitor {
	var monitors []model.Monitor
	for _, monitor := range r.All() {
		if !monitor.Paused && monitor.WatchesNetwork(slug) {
			monitors = append(monitors, monitor)
		}
	}
	return monitors
}
