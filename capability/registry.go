package capability

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/voxflow/voxflow/types"
)

// Handler is the single interface every capability implements: given a
// mapping of parameter name to value, return a structured payload or fail
// with a capability-specific error. Handlers are treated as remote calls
// that may be slow or fail; the dispatcher never assumes in-process
// execution.
type Handler interface {
	// Name returns the capability name.
	Name() string
	// Invoke executes the capability with bound parameters.
	Invoke(ctx context.Context, params map[string]any) (map[string]any, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc struct {
	name string
	fn   func(ctx context.Context, params map[string]any) (map[string]any, error)
}

// NewHandlerFunc creates a HandlerFunc with the given name.
func NewHandlerFunc(name string, fn func(ctx context.Context, params map[string]any) (map[string]any, error)) *HandlerFunc {
	return &HandlerFunc{name: name, fn: fn}
}

func (h *HandlerFunc) Name() string { return h.name }

func (h *HandlerFunc) Invoke(ctx context.Context, params map[string]any) (map[string]any, error) {
	return h.fn(ctx, params)
}

// Entry is one registered capability: the handler, its declared parameter
// schema, and per-capability dispatch settings.
type Entry struct {
	// Handler executes the capability.
	Handler Handler
	// Schema declares and validates the capability's parameters.
	Schema *types.JSONSchema
	// Timeout overrides the dispatcher's default per-step timeout when
	// non-zero.
	Timeout time.Duration
	// limiter bounds the invocation rate on the downstream collaborator.
	// Nil means unlimited.
	limiter *rate.Limiter
}

// Wait blocks until the capability's rate limiter admits one invocation.
// Entries without a limiter return immediately.
func (e *Entry) Wait(ctx context.Context) error {
	if e.limiter == nil {
		return nil
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return types.NewError(types.ErrRateLimited, "rate limit wait aborted").
			WithCapability(e.Handler.Name()).WithCause(err)
	}
	return nil
}

// Option configures a registered capability.
type Option func(*Entry)

// WithTimeout sets a per-capability invocation timeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Entry) { e.Timeout = d }
}

// WithRateLimit bounds invocations to r per second with the given burst.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(e *Entry) { e.limiter = rate.NewLimiter(r, burst) }
}

// Registry maps capability names to invocable handlers. It is process-wide
// and read-mostly: lookups during dispatch take a read lock while
// registration (including hot reload of new capabilities) takes the write
// lock, so in-flight lookups never race with mutation.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	logger  *zap.Logger
}

// NewRegistry creates an empty capability registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		entries: make(map[string]*Entry),
		logger:  logger.With(zap.String("component", "capability_registry")),
	}
}

// Register adds a capability. It rejects duplicate names, nil handlers and
// schemas that do not describe an object of parameters.
func (r *Registry) Register(name string, h Handler, schema *types.JSONSchema, opts ...Option) error {
	if h == nil {
		return types.Errorf(types.ErrInvalidSchema, "capability %q has no handler", name)
	}
	if err := schema.ValidateShape(); err != nil {
		return types.AsError(err).WithCapability(name)
	}

	entry := &Entry{Handler: h, Schema: schema}
	for _, opt := range opts {
		opt(entry)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; exists {
		return types.Errorf(types.ErrCapabilityExists, "capability %q already registered", name)
	}
	r.entries[name] = entry

	r.logger.Info("capability registered",
		zap.String("capability", name),
		zap.Duration("timeout", entry.Timeout),
	)
	return nil
}

// Unregister removes a capability. Removing an unknown name is a no-op.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, name)
	r.logger.Info("capability unregistered", zap.String("capability", name))
}

// Lookup returns the entry for a capability name.
func (r *Registry) Lookup(name string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.entries[name]
	return entry, exists
}

// Schema returns the parameter schema for a capability name.
func (r *Registry) Schema(name string) (*types.JSONSchema, bool) {
	entry, ok := r.Lookup(name)
	if !ok {
		return nil, false
	}
	return entry.Schema, true
}

// Has reports whether a capability is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// List returns all registered capability names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
