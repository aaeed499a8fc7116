// Package redis implements the corpus backing store on a Redis server
// with the RediSearch module: the ingestion ledger as a list, vector
// records as hashes under the chunk key namespace, and the search index
// schema through the FT command family.
//
// All access flows through one shared Session. There is no pooling
// surface here on purpose: the store serializes at the transport level
// and the corpus core documents its own concurrency limits.
package redis

import (
	"context"
	"log/slog"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// dialFunc establishes and verifies one connection to the store.
type dialFunc func(ctx context.Context) (*goredis.Client, error)

// Session owns the single shared client. Establishment is lazy and
// deduplicated: the session moves Disconnected → Connecting →
// Connected, and every Acquire during Connecting waits on the same
// in-flight attempt instead of dialing its own. A failed attempt
// returns the session to Disconnected so the next Acquire retries,
// after an exponentially growing delay bounded by maxDelay.
type Session struct {
	mu       sync.Mutex
	client   *goredis.Client
	attempt  *attempt
	failures int

	dial      dialFunc
	dialTO    time.Duration
	baseDelay time.Duration
	maxDelay  time.Duration
	logger    *slog.Logger
}

// attempt is one in-flight connection attempt shared by its waiters.
// client and err are written before done closes.
type attempt struct {
	done   chan struct{}
	client *goredis.Client
	err    error
}

// NewSession creates a Session dialing with the given client options.
// The connection is verified with PING before being shared.
func NewSession(opt *goredis.Options, logger *slog.Logger) *Session {
	return newSession(func(ctx context.Context) (*goredis.Client, error) {
		c := goredis.NewClient(opt)
		if err := c.Ping(ctx).Err(); err != nil {
			_ = c.Close()
			return nil, err
		}
		return c, nil
	}, logger)
}

func newSession(dial dialFunc, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Session{
		dial:      dial,
		dialTO:    10 * time.Second,
		baseDelay: 500 * time.Millisecond,
		maxDelay:  30 * time.Second,
		logger:    logger,
	}
}

// Acquire returns the live shared client, establishing it on first use.
func (s *Session) Acquire(ctx context.Context) (*goredis.Client, error) {
	s.mu.Lock()
	if s.client != nil {
		c := s.client
		s.mu.Unlock()
		return c, nil
	}
	if s.attempt == nil {
		att := &attempt{done: make(chan struct{})}
		s.attempt = att
		go s.connect(att, s.backoffLocked())
	}
	att := s.attempt
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-att.done:
		return att.client, att.err
	}
}

// backoffLocked returns the delay before the next dial. Zero on the
// first attempt; afterwards baseDelay doubled per consecutive failure,
// capped at maxDelay. Caller holds s.mu.
func (s *Session) backoffLocked() time.Duration {
	if s.failures == 0 {
		return 0
	}
	shift := s.failures - 1
	if shift > 12 {
		return s.maxDelay
	}
	d := s.baseDelay << shift
	if d > s.maxDelay {
		return s.maxDelay
	}
	return d
}

func (s *Session) connect(att *attempt, delay time.Duration) {
	if delay > 0 {
		s.logger.Info("waiting before store reconnect", "delay", delay)
		time.Sleep(delay)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.dialTO)
	defer cancel()
	client, err := s.dial(ctx)

	s.mu.Lock()
	s.attempt = nil
	if err != nil {
		s.failures++
	} else {
		s.failures = 0
		s.client = client
	}
	failures := s.failures
	s.mu.Unlock()

	att.client, att.err = client, err
	close(att.done)

	if err != nil {
		s.logger.Warn("store connection failed", "error", err, "consecutive_failures", failures)
	} else {
		s.logger.Info("store connection established")
	}
}

// Close releases the shared client. A later Acquire dials fresh.
func (s *Session) Close() error {
	s.mu.Lock()
	client := s.client
	s.client = nil
	s.mu.Unlock()
	if client == nil {
		return nil
	}
	return client.Close()
}
