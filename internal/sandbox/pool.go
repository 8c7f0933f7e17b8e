// Package sandbox owns the pool of live remote execution environments:
// creation, reuse, URL resolution and TTL-based eviction.
package sandbox

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"vibeplane/internal/sandbox/provider"
)

// Defaults match the remote sandbox service's behaviour.
const (
	DefaultCreateTimeout = 5 * time.Minute
	DefaultMaxIdleAge    = time.Hour
	DefaultSweepInterval = 5 * time.Minute
)

// ProvisionError wraps a failure to obtain a sandbox for a key.
type ProvisionError struct {
	Key string
	Err error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("sandbox provision for %q: %v", e.Key, e.Err)
}

func (e *ProvisionError) Unwrap() error {
	return e.Err
}

// ExecutionError wraps a deploy/run failure inside an otherwise healthy
// sandbox. The instance is treated as potentially corrupted.
type ExecutionError struct {
	InstanceID string
	Err        error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("sandbox execution in %s: %v", e.InstanceID, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Handle is the pool's bookkeeping record for one live sandbox.
// The pool owns it exclusively; callers only borrow it between Acquire
// and Release, and a handle has at most one borrower at a time.
type Handle struct {
	key string

	// ready is closed once creation has finished, successfully or not.
	ready     chan struct{}
	inst      provider.Instance
	createErr error

	// busy holds the borrow token. A handle is borrowed while the token
	// is in the channel; Acquire takes it, Release puts it back, and the
	// sweep only reclaims handles whose token is free.
	busy chan struct{}

	createdAt  time.Time
	lastUsedAt time.Time
}

// Key returns the logical pool key the handle was acquired under.
func (h *Handle) Key() string {
	return h.key
}

// InstanceID returns the physical id assigned by the provider, or the
// empty string while creation is still in flight.
func (h *Handle) InstanceID() string {
	select {
	case <-h.ready:
	default:
		return ""
	}
	if h.inst == nil {
		return ""
	}
	return h.inst.ID()
}

// Run executes code inside the sandbox.
func (h *Handle) Run(ctx context.Context, code string) (*provider.RunResult, error) {
	result, err := h.inst.Run(ctx, code)
	if err != nil {
		return nil, &ExecutionError{InstanceID: h.inst.ID(), Err: err}
	}
	return result, nil
}

// PoolConfig tunes the pool's timeouts and eviction policy.
type PoolConfig struct {
	// CreateTimeout bounds how long a single creation may take.
	CreateTimeout time.Duration
	// MaxIdleAge is how long an unused handle survives between sweeps.
	MaxIdleAge time.Duration
	// BaseDomain is the public domain preview URLs are derived from,
	// e.g. "e2b.dev".
	BaseDomain string
}

// Pool is the process-wide table of live sandbox handles. All mutation
// happens under one mutex, so "check pool, then create" is atomic with
// respect to other acquirers of the same key.
type Pool struct {
	mu       sync.Mutex
	entries  map[string]*Handle
	provider provider.Provider

	createTimeout time.Duration
	maxIdleAge    time.Duration
	baseDomain    string

	logger *slog.Logger
	now    func() time.Time
}

// NewPool creates an empty pool backed by the given provider.
func NewPool(p provider.Provider, cfg PoolConfig, logger *slog.Logger) *Pool {
	if cfg.CreateTimeout <= 0 {
		cfg.CreateTimeout = DefaultCreateTimeout
	}
	if cfg.MaxIdleAge <= 0 {
		cfg.MaxIdleAge = DefaultMaxIdleAge
	}
	if cfg.BaseDomain == "" {
		cfg.BaseDomain = "e2b.dev"
	}

	return &Pool{
		entries:       make(map[string]*Handle),
		provider:      p,
		createTimeout: cfg.CreateTimeout,
		maxIdleAge:    cfg.MaxIdleAge,
		baseDomain:    cfg.BaseDomain,
		logger:        logger,
		now:           time.Now,
	}
}

// Acquire returns the live handle for key, creating one on a pool miss.
// Concurrent calls for the same key share a single physical creation,
// but the handle itself is exclusive: while one caller holds it, later
// callers block until Release. The caller owns the handle until Release
// or Destroy.
func (p *Pool) Acquire(ctx context.Context, key string) (*Handle, error) {
	p.mu.Lock()
	h, ok := p.entries[key]
	if !ok {
		h = &Handle{
			key:       key,
			ready:     make(chan struct{}),
			busy:      make(chan struct{}, 1),
			createdAt: p.now(),
		}
		p.entries[key] = h
		p.mu.Unlock()

		// Creation runs detached from the caller's context: a caller that
		// gives up must not abort a create that may still succeed. The
		// pool captures the late result so the sweep can reclaim it.
		go p.create(h)
	} else {
		p.mu.Unlock()
	}

	select {
	case <-h.ready:
	case <-ctx.Done():
		return nil, &ProvisionError{Key: key, Err: ctx.Err()}
	case <-time.After(p.createTimeout):
		return nil, &ProvisionError{Key: key, Err: fmt.Errorf("creation timed out after %s", p.createTimeout)}
	}

	if h.createErr != nil {
		return nil, &ProvisionError{Key: key, Err: h.createErr}
	}

	// Take the borrow token. Only one job at a time runs inside a
	// sandbox, so later acquirers wait here for the current borrower.
	select {
	case h.busy <- struct{}{}:
	case <-ctx.Done():
		return nil, &ProvisionError{Key: key, Err: ctx.Err()}
	}

	p.mu.Lock()
	current := p.entries[key] == h
	if current {
		h.lastUsedAt = p.now()
	}
	p.mu.Unlock()

	if !current {
		// The handle was destroyed while we waited for the borrow.
		// Start over against a fresh entry.
		return p.Acquire(ctx, key)
	}
	return h, nil
}

// create provisions the instance for a pending handle and publishes the
// outcome. A failed creation removes the placeholder so that the next
// Acquire retries from scratch.
func (p *Pool) create(h *Handle) {
	ctx, cancel := context.WithTimeout(context.Background(), p.createTimeout)
	defer cancel()

	inst, err := p.provider.Create(ctx, h.key)

	p.mu.Lock()
	current := p.entries[h.key]
	if err != nil {
		h.createErr = err
		if current == h {
			delete(p.entries, h.key)
		}
		close(h.ready)
		p.mu.Unlock()

		p.logger.Error("sandbox creation failed", "key", h.key, "error", err)
		return
	}

	h.inst = inst
	h.lastUsedAt = p.now()
	close(h.ready)
	replaced := current != h
	p.mu.Unlock()

	if replaced {
		// The handle was destroyed while the create was in flight.
		// Tear the late instance down instead of leaking it.
		p.logger.Warn("sandbox created after destroy, tearing down", "key", h.key, "instance_id", inst.ID())
		killCtx, killCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer killCancel()
		if killErr := inst.Kill(killCtx); killErr != nil {
			p.logger.Error("failed to kill late sandbox", "key", h.key, "error", killErr)
		}
		return
	}

	p.logger.Info("sandbox created", "key", h.key, "instance_id", inst.ID())
}

// ResolveURL derives the public preview URL from the handle's physical
// instance id. Returns the empty string if there is no live handle or
// the provider has not surfaced an instance id yet.
func (p *Pool) ResolveURL(key string) string {
	p.mu.Lock()
	h, ok := p.entries[key]
	p.mu.Unlock()
	if !ok {
		return ""
	}

	id := h.InstanceID()
	if id == "" {
		return ""
	}
	return fmt.Sprintf("https://%s.%s", id, p.baseDomain)
}

// Release returns the borrow token, letting the next acquirer in. The
// physical resource stays alive for reuse until the sweep reclaims it.
func (p *Pool) Release(key string) {
	p.mu.Lock()
	h, ok := p.entries[key]
	if ok {
		h.lastUsedAt = p.now()
	}
	p.mu.Unlock()

	if !ok {
		return
	}
	select {
	case <-h.busy:
	default:
	}
}

// Destroy tears down the sandbox for key and removes it from the pool.
// Local bookkeeping is removed first so a teardown error cannot leave a
// zombie entry. Calling Destroy for an unknown key is a no-op.
func (p *Pool) Destroy(ctx context.Context, key string) error {
	p.mu.Lock()
	h, ok := p.entries[key]
	if ok {
		delete(p.entries, key)
	}
	p.mu.Unlock()

	if !ok {
		return nil
	}

	select {
	case <-h.ready:
	default:
		// Creation still in flight; create() notices the removal and
		// kills the instance when it lands.
		return nil
	}

	if h.inst == nil {
		return nil
	}

	if err := h.inst.Kill(ctx); err != nil {
		return fmt.Errorf("failed to destroy sandbox %s: %w", key, err)
	}
	return nil
}

// Sweep destroys every idle handle whose last use is older than the max
// idle age. Borrowed handles are never touched. Returns how many handles
// were reclaimed.
func (p *Pool) Sweep(ctx context.Context) int {
	cutoff := p.now().Add(-p.maxIdleAge)

	p.mu.Lock()
	var victims []*Handle
	for key, h := range p.entries {
		select {
		case <-h.ready:
		default:
			continue // still being created
		}
		if h.inst == nil || h.lastUsedAt.After(cutoff) {
			continue
		}
		// Claim the borrow token so a running job can never lose its
		// sandbox mid-execution. The token is not returned; the handle
		// leaves the table.
		select {
		case h.busy <- struct{}{}:
		default:
			continue // borrowed by a running job
		}
		delete(p.entries, key)
		victims = append(victims, h)
	}
	p.mu.Unlock()

	for _, h := range victims {
		p.logger.Info("sweeping idle sandbox", "key", h.key, "instance_id", h.inst.ID())
		if err := h.inst.Kill(ctx); err != nil {
			p.logger.Error("failed to kill idle sandbox", "key", h.key, "error", err)
		}
	}

	return len(victims)
}

// Len returns the number of tracked handles, creations in flight included.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
