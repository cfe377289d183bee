// Package pipeline assembles the monitoring daemon: per-network chain
// clients over the shared RPC pool, the filter engine, the trigger
// dispatcher, durable cursor storage, and the block watcher that drives
// them. It exposes the same Start/Close lifecycle as the individual
// services it coordinates.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gabapcia/chainsentinel/internal/config"
	"github.com/gabapcia/chainsentinel/internal/filter"
	"github.com/gabapcia/chainsentinel/internal/infra/blockchain/evm"
	"github.com/gabapcia/chainsentinel/internal/infra/blockchain/stellar"
	"github.com/gabapcia/chainsentinel/internal/infra/storage/file"
	"github.com/gabapcia/chainsentinel/internal/infra/storage/redis"
	"github.com/gabapcia/chainsentinel/internal/model"
	"github.com/gabapcia/chainsentinel/internal/notifier"
	"github.com/gabapcia/chainsentinel/internal/pkg/logger"
	transporthttp "github.com/gabapcia/chainsentinel/internal/pkg/transport/http"
	"github.com/gabapcia/chainsentinel/internal/pkg/transport/jsonrpc"
	"github.com/gabapcia/chainsentinel/internal/repository"
	"github.com/gabapcia/chainsentinel/internal/trigger"
	"github.com/gabapcia/chainsentinel/internal/watcher"
)

// ErrServiceAlreadyStarted is returned if Start is called more than once.
var ErrServiceAlreadyStarted = errors.New("service already started")

// Service is the daemon lifecycle entrypoint.
type Service interface {
	// Start launches the per-network schedules. Returns
	// ErrServiceAlreadyStarted if called more than once.
	Start(ctx context.Context) error

	// Close stops ticking, waits for in-flight ticks, and releases shared
	// resources. Safe to call even if the service never started.
	Close()
}

// closeFunc defines a cleanup routine to stop background work and release
// dependencies.
type closeFunc func()

type service struct {
	mu        sync.Mutex
	isStarted bool
	closeFunc closeFunc

	watcher watcher.Service
	cleanup []func() error
}

var _ Service = (*service)(nil)

// New wires the full pipeline from configuration. Every network gets its
// own weighted JSON-RPC client and chain decoder; monitors, triggers, and
// notifiers are resolved up front so misconfiguration fails here rather
// than mid-tick.
func New(ctx context.Context, cfg config.Config, repos *repository.Repositories) (*service, error) {
	svc := &service{}

	cursors, blocks, err := svc.buildStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	clients, err := buildChainClients(cfg, repos)
	if err != nil {
		return nil, err
	}

	engine := filter.NewEngine(repos.Monitors.All())

	factory := notifier.NewFactory(
		transporthttp.NewClient(transporthttp.WithTimeout(cfg.NotifierTimeout)),
		cfg.EmailTimeout,
	)

	dispatcher, err := trigger.NewDispatcher(repos.Monitors, repos.Triggers, factory,
		trigger.WithFanOutLimit(cfg.DispatchFanOut),
	)
	if err != nil {
		return nil, err
	}

	processor := newBlockProcessor(repos, engine, dispatcher)

	opts := []watcher.Option{watcher.WithCursorStorage(cursors)}
	if blocks != nil {
		opts = append(opts, watcher.WithBlockStorage(blocks))
	}

	svc.watcher = watcher.New(repos.Networks.All(), clients, processor, opts...)
	return svc, nil
}

// buildStorage selects the cursor backend and the raw block store.
func (s *service) buildStorage(ctx context.Context, cfg config.Config) (watcher.CursorStorage, watcher.BlockStorage, error) {
	fileStore, err := file.New(cfg.DataDir)
	if err != nil {
		return nil, nil, err
	}

	switch cfg.CursorBackend {
	case "", "file":
		return fileStore, fileStore, nil

	case "redis":
		client, err := redis.NewClient(ctx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		s.cleanup = append(s.cleanup, client.Close)
		return client, fileStore, nil

	default:
		return nil, nil, fmt.Errorf("unknown cursor backend: %q", cfg.CursorBackend)
	}
}

// buildChainClients creates one chain client per network, scoped to the
// union of addresses its active monitors watch.
func buildChainClients(cfg config.Config, repos *repository.Repositories) (map[string]watcher.ChainClient, error) {
	rpcPool := transporthttp.NewClient(transporthttp.WithTimeout(cfg.RPCTimeout))

	clients := make(map[string]watcher.ChainClient)
	for _, network := range repos.Networks.All() {
		endpoints := make([]jsonrpc.Endpoint, len(network.RPCURLs))
		for i, endpoint := range network.RPCURLs {
			endpoints[i] = jsonrpc.Endpoint{URL: endpoint.URL, Weight: endpoint.Weight}
		}

		conn, err := jsonrpc.NewClient(rpcPool, endpoints)
		if err != nil {
			return nil, fmt.Errorf("network %s: %w", network.Slug, err)
		}

		addresses := monitoredAddresses(repos, network.Slug)

		switch network.Kind {
		case model.ChainKindEVM:
			client, err := evm.NewClient(conn, addresses)
			if err != nil {
				return nil, fmt.Errorf("network %s: %w", network.Slug, err)
			}
			clients[network.Slug] = client

		case model.ChainKindStellar:
			clients[network.Slug] = stellar.NewClient(conn, addresses)

		default:
			return nil, fmt.Errorf("network %s: unsupported kind %q", network.Slug, network.Kind)
		}
	}

	return clients, nil
}

// monitoredAddresses collects the union of addresses every active monitor
// watches on the network; it scopes log queries and decoding.
func monitoredAddresses(repos *repository.Repositories, slug string) []model.AddressWithABI {
	var addresses []model.AddressWithABI
	for _, monitor := range repos.Monitors.ActiveForNetwork(slug) {
		addresses = append(addresses, monitor.Addresses...)
	}
	return addresses
}

// newBlockProcessor builds the per-block pipeline stage: evaluate every
// candidate against every active monitor on the network, gate surviving
// matches through filter scripts, then dispatch and await completion. The
// watcher calls it once per block, in ascending height order.
func newBlockProcessor(repos *repository.Repositories, engine *filter.Engine, dispatcher *trigger.Dispatcher) watcher.BlockProcessor {
	return func(ctx context.Context, network model.Network, block watcher.FetchedBlock) error {
		monitors := repos.Monitors.ActiveForNetwork(network.Slug)
		if len(monitors) == 0 {
			return nil
		}

		var matches []model.MonitorMatch
		for _, candidate := range block.Candidates {
			for _, monitor := range monitors {
				match, ok := engine.Match(monitor.Name, network.Slug, candidate)
				if !ok {
					continue
				}

				if !engine.RunGates(ctx, match) {
					continue
				}
				matches = append(matches, match)
			}
		}

		if len(matches) > 0 {
			logger.Info(ctx, "block produced monitor matches",
				"network", network.Slug,
				"block.height", block.Height,
				"matches", len(matches),
			)
			dispatcher.DispatchAll(ctx, matches)
		}
		return nil
	}
}

// Start launches the block watcher.
func (s *service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isStarted {
		return ErrServiceAlreadyStarted
	}

	if err := s.watcher.Start(ctx); err != nil {
		return err
	}

	s.closeFunc = func() {
		s.watcher.Close()
		for _, release := range s.cleanup {
			if err := release(); err != nil {
				logger.Error(ctx, "failed to release pipeline resource", "error", err)
			}
		}
	}
	s.isStarted = true
	return nil
}

// Close shuts down the watcher and releases shared resources.
func (s *service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closeFunc != nil {
		s.closeFunc()
	}
	s.closeFunc = nil
	s.isStarted = false
}
