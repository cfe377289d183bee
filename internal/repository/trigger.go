package repository

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gabapcia/chainsentinel/internal/model"
)

// TriggerRepository is an immutable name-indexed table of triggers.
type TriggerRepository struct {
	triggers map[string]model.Trigger
}

// LoadTriggers reads trigger definitions from every .json file under dir.
// Two file layouts are accepted: a single trigger object, or a map of
// trigger-name to trigger object. In the map form an entry's key supplies
// the name when the object omits one.
func LoadTriggers(dir string) (*TriggerRepository, error) {
	files, err := listJSONFiles(dir)
	if err != nil {
		return nil, err
	}

	triggers := make(map[string]model.Trigger)
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, file, err)
		}

		loaded, err := parseTriggerFile(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, file, err)
		}

		for _, trigger := range loaded {
			if err := trigger.Validate(); err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, file, err)
			}

			if _, exists := triggers[trigger.Name]; exists {
				return nil, fmt.Errorf("%w: duplicate trigger name %q in %s", ErrInvalidConfig, trigger.Name, file)
			}
			triggers[trigger.Name] = trigger
		}
	}

	return &TriggerRepository{triggers: triggers}, nil
}

// parseTriggerFile distinguishes the two accepted layouts by probing for the
// "trigger_type" discriminator at the top level.
func parseTriggerFile(data []byte) ([]model.Trigger, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}

	if _, single := probe["trigger_type"]; single {
		var trigger model.Trigger
		if err := json.Unmarshal(data, &trigger); err != nil {
			return nil, err
		}
		return []model.Trigger{trigger}, nil
	}

	var byName map[string]model.Trigger
	if err := json.Unmarshal(data, &byName); err != nil {
		return nil, err
	}

	triggers := make([]model.Trigger, 0, len(byName))
	for name, trigger := range byName {
		if trigger.Name == "" {
			trigger.Name = name
		}
		triggers = append(triggers, trigger)
	}
	return triggers, nil
}

// Get returns the trigger for name, if present.
func (r *TriggerRepository) Get(name string) (model.Trigger, bool) {
	trigger, ok := r.triggers[name]
	return trigger, ok
}

// All returns every registered trigger, in no particular order.
func (r *TriggerRepository) All() []model.Trigger {
	triggers := make([]model.Trigger, 0, len(r.triggers))
	for _, trigger := range r.triggers {
		triggers = append(triggers, trigger)
	}
	return triggers
}
