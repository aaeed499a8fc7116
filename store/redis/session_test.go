package redis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// newIdleClient builds a client handle without touching the network;
// goredis only dials on first command.
func newIdleClient() *goredis.Client {
	return goredis.NewClient(&goredis.Options{Addr: "localhost:0"})
}

func TestSessionReusesClient(t *testing.T) {
	var dials atomic.Int32
	s := newSession(func(ctx context.Context) (*goredis.Client, error) {
		dials.Add(1)
		return newIdleClient(), nil
	}, nil)
	defer s.Close()

	ctx := context.Background()
	first, err := s.Acquire(ctx)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	second, err := s.Acquire(ctx)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if first != second {
		t.Error("expected the same shared client")
	}
	if n := dials.Load(); n != 1 {
		t.Errorf("expected 1 dial, got %d", n)
	}
}

func TestSessionAcquireDeduplicatesConcurrentDials(t *testing.T) {
	gate := make(chan struct{})
	var dials atomic.Int32
	s := newSession(func(ctx context.Context) (*goredis.Client, error) {
		dials.Add(1)
		<-gate
		return newIdleClient(), nil
	}, nil)
	defer s.Close()

	const n = 8
	clients := make([]*goredis.Client, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			clients[i], errs[i] = s.Acquire(context.Background())
		}(i)
	}

	// Let every goroutine reach the shared attempt before the dial
	// completes.
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("acquire %d: %v", i, errs[i])
		}
		if clients[i] != clients[0] {
			t.Errorf("acquire %d returned a different client", i)
		}
	}
	if d := dials.Load(); d != 1 {
		t.Errorf("expected a single dial for %d concurrent acquires, got %d", n, d)
	}
}

func TestSessionRetriesAfterFailure(t *testing.T) {
	var dials atomic.Int32
	s := newSession(func(ctx context.Context) (*goredis.Client, error) {
		if dials.Add(1) == 1 {
			return nil, errors.New("connection refused")
		}
		return newIdleClient(), nil
	}, nil)
	s.baseDelay = time.Millisecond
	defer s.Close()

	ctx := context.Background()
	if _, err := s.Acquire(ctx); err == nil {
		t.Fatal("expected the first acquire to fail")
	}
	client, err := s.Acquire(ctx)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if client == nil {
		t.Fatal("second acquire returned no client")
	}
	if d := dials.Load(); d != 2 {
		t.Errorf("expected 2 dials, got %d", d)
	}
}

func TestSessionAcquireHonorsContext(t *testing.T) {
	gate := make(chan struct{})
	t.Cleanup(func() { close(gate) })
	s := newSession(func(ctx context.Context) (*goredis.Client, error) {
		<-gate
		return nil, errors.New("never reached")
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSessionBackoffGrowth(t *testing.T) {
	s := newSession(nil, nil)
	tests := []struct {
		failures int
		want     time.Duration
	}{
		{0, 0},
		{1, 500 * time.Millisecond},
		{2, time.Second},
		{3, 2 * time.Second},
		{7, 30 * time.Second},  // 32s capped
		{50, 30 * time.Second}, // shift clamp
	}
	for _, tt := range tests {
		s.failures = tt.failures
		if got := s.backoffLocked(); got != tt.want {
			t.Errorf("failures=%d: backoff %v, want %v", tt.failures, got, tt.want)
		}
	}
}

func TestSessionCloseWithoutClient(t *testing.T) {
	s := newSession(nil, nil)
	if err := s.Close(); err != nil {
		t.Errorf("close on idle session: %v", err)
	}
}
