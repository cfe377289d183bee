package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/gabapcia/chainsentinel/internal/model"
)

// NetworkRepository is an immutable slug-indexed table of networks.
type NetworkRepository struct {
	networks map[string]model.Network
}

// LoadNetworks reads one Network per .json file under dir.
func LoadNetworks(dir string) (*NetworkRepository, error) {
	files, err := listJSONFiles(dir)
	if err != nil {
		return nil, err
	}

	networks := make(map[string]model.Network, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, file, err)
		}

		var network model.Network
		if err := json.Unmarshal(data, &network); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, file, err)
		}

		if err := network.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, file, err)
		}

		if _, exists := networks[network.Slug]; exists {
			return nil, fmt.Errorf("%w: duplicate network slug %q in %s", ErrInvalidConfig, network.Slug, file)
		}
		networks[network.Slug] = network
	}

	return &NetworkRepository{networks: networks}, nil
}

// Get returns the network for slug, if present.
func (r *NetworkRepository) Get(slug string) (model.Network, bool) {
	network, ok := r.networks[slug]
	return network, ok
}

// All returns every network ordered by slug.
func (r *NetworkRepository) All() []model.Network {
	networks := make([]model.Network, 0, len(r.networks))
	for _, network := range r.networks {
		networks = append(networks, network)
	}

	slices.SortFunc(networks, func(a, b model.Network) int {
		switch {
		case a.Slug < b.Slug:
			return -1
		case a.Slug > b.Slug:
			return 1
		}
		return 0
	})
	return networks
}
