// Package watcher schedules per-network block acquisition and drives each
// fetched block through the processing pipeline. Every network runs on its
// own cron schedule; two ticks for the same network never overlap (a tick
// that fires while the previous one runs is dropped), while ticks for
// distinct networks run concurrently.
package watcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gabapcia/chainsentinel/internal/model"
	"github.com/gabapcia/chainsentinel/internal/pkg/logger"

	"github.com/robfig/cron/v3"
)

var (
	// ErrServiceAlreadyStarted is returned if Start is called more than once.
	ErrServiceAlreadyStarted = errors.New("service already started")

	// ErrNetworkNotRegistered is returned when a network has no chain client.
	ErrNetworkNotRegistered = errors.New("network has no registered chain client")
)

// BlockProcessor consumes one fetched block: filter evaluation and trigger
// dispatch for every candidate, completing (success or terminal delivery
// failure) before it returns. A non-nil error aborts the tick without
// advancing the cursor.
type BlockProcessor func(ctx context.Context, network model.Network, block FetchedBlock) error

// Service is the block watcher lifecycle: Start launches the per-network
// schedules, Close stops ticking and waits for in-flight ticks.
type Service interface {
	Start(ctx context.Context) error
	Close()
}

// closeFunc defines a cleanup routine to stop background goroutines and dependencies.
type closeFunc func()

// service implements Service over a set of networks sharing one cron runner.
type service struct {
	mu        sync.Mutex
	isStarted bool
	closeFunc closeFunc

	networks []model.Network
	clients  map[string]ChainClient

	cursors CursorStorage
	blocks  BlockStorage
	process BlockProcessor

	tracker *tracker
}

var _ Service = (*service)(nil)

// cronParser accepts both 5-field and 6-field (leading seconds) schedules.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// cronIntervalMS estimates the period of a schedule from the gap between its
// next two fire times. It feeds the default processing-window calculation.
func cronIntervalMS(schedule string) (uint64, error) {
	sched, err := cronParser.Parse(schedule)
	if err != nil {
		return 0, err
	}

	next := sched.Next(time.Now())
	after := sched.Next(next)
	return uint64(after.Sub(next).Milliseconds()), nil
}

// Start validates that every network has a chain client, registers the
// per-network jobs, and launches the scheduler.
func (s *service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isStarted {
		return ErrServiceAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)

	runner := cron.New(cron.WithParser(cronParser))

	for _, network := range s.networks {
		client, ok := s.clients[network.Slug]
		if !ok {
			cancel()
			return ErrNetworkNotRegistered
		}

		intervalMS, err := cronIntervalMS(network.CronSchedule)
		if err != nil {
			cancel()
			return err
		}

		job := s.newTickJob(ctx, network, client, network.PastBlockWindow(intervalMS))
		if _, err := runner.AddJob(network.CronSchedule, job); err != nil {
			cancel()
			return err
		}
	}

	runner.Start()

	s.closeFunc = func() {
		// Stop issuing ticks, then wait for in-flight ticks to drain.
		<-runner.Stop().Done()
		cancel()
	}
	s.isStarted = true
	return nil
}

// newTickJob wraps a network tick so that overlapping fires are dropped
// rather than queued.
func (s *service) newTickJob(ctx context.Context, network model.Network, client ChainClient, window uint64) cron.Job {
	var running sync.Mutex

	return cron.FuncJob(func() {
		if !running.TryLock() {
			logger.Warn(ctx, "previous tick still running; dropping this one",
				"network", network.Slug,
			)
			return
		}
		defer running.Unlock()

		s.tick(ctx, network, client, window)
	})
}

// Close shuts the scheduler down. In-flight ticks run to completion (or
// their internal timeouts); the cursor is never advanced for a partially
// processed range.
func (s *service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closeFunc != nil {
		s.closeFunc()
	}
	s.closeFunc = nil
	s.isStarted = false
}

// config holds construction settings for the watcher service.
type config struct {
	cursors CursorStorage
	blocks  BlockStorage
}

// Option customizes the service returned by New.
type Option func(*config)

// WithCursorStorage sets the durable cursor backend. Without it cursors are
// not persisted and every boot starts from the chain tip.
func WithCursorStorage(cs CursorStorage) Option {
	return func(c *config) {
		c.cursors = cs
	}
}

// WithBlockStorage enables raw block persistence for networks configured
// with store_blocks.
func WithBlockStorage(bs BlockStorage) Option {
	return func(c *config) {
		c.blocks = bs
	}
}

// New assembles a watcher service over the given networks and their chain
// clients. process is invoked for every fetched block in strictly ascending
// height order per network.
func New(networks []model.Network, clients map[string]ChainClient, process BlockProcessor, opts ...Option) *service {
	cfg := config{
		cursors: nopCursor{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &service{
		networks: networks,
		clients:  clients,
		cursors:  cfg.cursors,
		blocks:   cfg.blocks,
		process:  process,
		tracker:  newTracker(),
	}
}
