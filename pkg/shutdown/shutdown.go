// Package shutdown coordinates graceful teardown of the stepform process:
// the HTTP listener drains first, then the live bus, then everything else.
package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"
)

var (
	// ErrTimeout is joined into the result when hooks overrun the window.
	ErrTimeout = errors.New("shutdown: timed out")

	// ErrAlreadyClosed is returned by a second Shutdown call.
	ErrAlreadyClosed = errors.New("shutdown: already closed")
)

// Hook priorities. Lower runs earlier.
const (
	PriorityHTTP = 100
	PriorityBus  = 200
	PriorityLast = 1000
)

// Hook is one teardown step.
type Hook struct {
	Name     string
	Priority int
	Fn       func(ctx context.Context) error
}

// Config tunes the handler.
type Config struct {
	// Timeout bounds the whole teardown. Zero means 30s.
	Timeout time.Duration

	// Signals to listen for. Nil means SIGINT and SIGTERM.
	Signals []os.Signal

	// OnHookComplete observes each finished hook, typically for logging.
	OnHookComplete func(name string, err error, elapsed time.Duration)
}

// Handler runs registered hooks once, in priority order, when a signal
// arrives or Shutdown is called.
type Handler struct {
	cfg    Config
	mu     sync.Mutex
	hooks  []Hook
	done   chan struct{}
	closed bool
}

// NewHandler builds a handler.
func NewHandler(cfg Config) *Handler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if len(cfg.Signals) == 0 {
		cfg.Signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	return &Handler{cfg: cfg, done: make(chan struct{})}
}

// Register adds a hook.
func (h *Handler) Register(hook Hook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, hook)
}

// RegisterFunc adds a function hook.
func (h *Handler) RegisterFunc(name string, priority int, fn func(ctx context.Context) error) {
	h.Register(Hook{Name: name, Priority: priority, Fn: fn})
}

// CloseableHook wraps anything with a Close method.
func CloseableHook(name string, priority int, closer interface{ Close() error }) Hook {
	return Hook{
		Name:     name,
		Priority: priority,
		Fn:       func(context.Context) error { return closer.Close() },
	}
}

// Wait blocks until a signal arrives, then runs teardown. Returns immediately
// when Shutdown was already triggered from elsewhere.
func (h *Handler) Wait() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, h.cfg.Signals...)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
	case <-h.done:
		return nil
	}
	return h.Shutdown()
}

// Shutdown runs every hook in priority order under the configured timeout.
func (h *Handler) Shutdown() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrAlreadyClosed
	}
	h.closed = true
	close(h.done)
	hooks := make([]Hook, len(h.hooks))
	copy(hooks, h.hooks)
	h.mu.Unlock()

	sort.SliceStable(hooks, func(i, j int) bool {
		return hooks[i].Priority < hooks[j].Priority
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.cfg.Timeout)
	defer cancel()

	var errs []error
	for _, hook := range hooks {
		start := time.Now()
		err := hook.Fn(ctx)
		if h.cfg.OnHookComplete != nil {
			h.cfg.OnHookComplete(hook.Name, err, time.Since(start))
		}
		if err != nil {
			errs = append(errs, err)
		}
		select {
		case <-ctx.Done():
			return errors.Join(append(errs, ErrTimeout)...)
		default:
		}
	}
	return errors.Join(errs...)
}

// Done is closed once teardown has started.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}
