// Package registry implements the module catalog at the center of the
// dashboard's composition engine. It owns registration, runtime
// enable/disable, dependency-ordered initialization, and the derived route
// and navigation projections consumed by the HTTP layer.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/opsdeck/opsdeck/internal/ability"
	"github.com/opsdeck/opsdeck/internal/domain"
	"github.com/opsdeck/opsdeck/internal/module"
)

// entry pairs a registered definition with its runtime state. initMu
// serializes initialization of a single module when loader layers run
// concurrently.
type entry struct {
	def    module.Definition
	state  module.State
	initMu sync.Mutex
}

// Registry is the catalog of registered modules. It is safe for concurrent
// use; construct one per application (or per test) and pass it by reference.
type Registry struct {
	mu          sync.RWMutex
	entries     map[string]*entry
	order       []string
	initTimeout time.Duration
	validate    *validator.Validate

	listenerMu sync.Mutex
	listeners  []listener
	nextListen int
}

type listener struct {
	id int
	fn func()
}

// New creates an empty registry. initTimeout bounds each OnInit hook; zero
// means no deadline.
func New(initTimeout time.Duration) *Registry {
	return &Registry{
		entries:     make(map[string]*entry),
		initTimeout: initTimeout,
		validate:    validator.New(),
	}
}

// Register adds a module definition to the catalog. A duplicate ID or an
// invalid definition is logged and dropped so one bad module cannot take
// down application boot; the first registration wins. Dependencies that are
// not registered yet are a warning only, since registration order between
// modules is deliberately unconstrained.
func (r *Registry) Register(def module.Definition) {
	if err := r.validate.Struct(def); err != nil {
		slog.Warn("Rejecting invalid module definition", "module", def.ID, "error", err)
		return
	}

	r.mu.Lock()
	if _, exists := r.entries[def.ID]; exists {
		r.mu.Unlock()
		slog.Warn("Module already registered, ignoring duplicate", "module", def.ID)
		return
	}

	for _, dep := range def.Dependencies {
		if _, ok := r.entries[dep]; !ok {
			slog.Warn("Module depends on a module that is not registered yet",
				"module", def.ID, "dependency", dep)
		}
	}

	r.entries[def.ID] = &entry{
		def: def,
		state: module.State{
			ID:      def.ID,
			Enabled: !def.Disabled,
		},
	}
	r.order = append(r.order, def.ID)
	r.mu.Unlock()

	slog.Info("Registered module", "module", def.ID, "version", def.Version)
	r.notify()
}

// Unregister removes a module from the catalog. It refuses when another
// registered module still depends on the target, and it propagates any error
// from the module's OnDestroy hook, leaving the module registered in both
// cases.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("unregister %q: %w", id, domain.ErrNotFound)
	}

	for _, otherID := range r.order {
		if otherID == id {
			continue
		}
		for _, dep := range r.entries[otherID].def.Dependencies {
			if dep == id {
				r.mu.Unlock()
				slog.Warn("Refusing to unregister module with dependents",
					"module", id, "dependent", otherID)
				return fmt.Errorf("unregister %q: required by %q: %w", id, otherID, domain.ErrModuleInUse)
			}
		}
	}
	r.mu.Unlock()

	// The destroy hook runs outside the lock; it may call back into the
	// registry's read surface.
	if e.def.OnDestroy != nil {
		if err := e.def.OnDestroy(); err != nil {
			return fmt.Errorf("destroy hook for %q: %w", id, err)
		}
	}

	r.mu.Lock()
	delete(r.entries, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	slog.Info("Unregistered module", "module", id)
	r.notify()
	return nil
}

// SetEnabled toggles a module at runtime. Unknown IDs are a silent no-op;
// listeners are notified only when the value actually changes.
func (r *Registry) SetEnabled(id string, enabled bool) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok || e.state.Enabled == enabled {
		r.mu.Unlock()
		return
	}
	e.state.Enabled = enabled
	r.mu.Unlock()

	slog.Info("Module toggled", "module", id, "enabled", enabled)
	r.notify()
}

// IsEnabled reports whether the module exists and is enabled.
func (r *Registry) IsEnabled(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return ok && e.state.Enabled
}

// Get returns the definition registered under id.
func (r *Registry) Get(id string) (module.Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return module.Definition{}, false
	}
	return e.def, true
}

// All returns every registered definition in registration order.
func (r *Registry) All() []module.Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]module.Definition, 0, len(r.order))
	for _, id := range r.order {
		defs = append(defs, r.entries[id].def)
	}
	return defs
}

// StateOf returns a snapshot of the module's runtime state.
func (r *Registry) StateOf(id string) (module.State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return module.State{}, false
	}
	return e.state, true
}

// Initialize loads a module, recursively loading its declared dependencies
// first (depth-first, left to right). It is idempotent for loaded modules.
// A hook failure is recorded in the module's state and returned to the
// caller; isolating failures across sibling modules is the loader's job, not
// the registry's. Listeners are notified once per Initialize call that
// changed any state.
func (r *Registry) Initialize(ctx context.Context, id string, mc *module.Context) error {
	var mutated bool
	err := r.initialize(ctx, id, mc, nil, &mutated)
	if mutated {
		r.notify()
	}
	return err
}

func (r *Registry) initialize(ctx context.Context, id string, mc *module.Context, path []string, mutated *bool) error {
	for _, seen := range path {
		if seen == id {
			cycle := strings.Join(append(path, id), " -> ")
			return fmt.Errorf("initialize %q: %s: %w", id, cycle, domain.ErrDependencyCycle)
		}
	}

	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("initialize %q: %w", id, domain.ErrNotFound)
	}

	e.initMu.Lock()
	defer e.initMu.Unlock()

	r.mu.RLock()
	loaded := e.state.Loaded
	r.mu.RUnlock()
	if loaded {
		return nil
	}

	err := r.load(ctx, e, mc, append(path, id), mutated)

	r.mu.Lock()
	if err != nil {
		e.state.Err = err.Error()
		e.state.Loaded = false
	} else {
		e.state.Loaded = true
		e.state.Err = ""
	}
	r.mu.Unlock()
	*mutated = true

	if err != nil {
		slog.Error("Module initialization failed", "module", id, "error", err)
		return err
	}

	slog.Debug("Module initialized", "module", id)
	return nil
}

// load satisfies dependencies and runs the module's OnInit hook under the
// configured deadline. A hook that outlives the deadline keeps running on
// its goroutine, but the module is moved to the error state instead of
// stalling the whole pass.
func (r *Registry) load(ctx context.Context, e *entry, mc *module.Context, path []string, mutated *bool) error {
	for _, dep := range e.def.Dependencies {
		if err := r.initialize(ctx, dep, mc, path, mutated); err != nil {
			return err
		}
	}

	if e.def.OnInit == nil {
		return nil
	}

	hctx := ctx
	if r.initTimeout > 0 {
		var cancel context.CancelFunc
		hctx, cancel = context.WithTimeout(ctx, r.initTimeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		done <- e.def.OnInit(hctx, mc)
	}()

	select {
	case err := <-done:
		return err
	case <-hctx.Done():
		return fmt.Errorf("init hook for %q: %w", e.def.ID, hctx.Err())
	}
}

// Routes concatenates, in registration order, the routes of every enabled
// module. Loaded state is deliberately ignored: routing and initialization
// are independent projections, so a module that failed to load still
// contributes routes while a disabled one never does.
func (r *Registry) Routes() []module.Route {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var routes []module.Route
	for _, id := range r.order {
		e := r.entries[id]
		if e.state.Enabled {
			routes = append(routes, e.def.Routes...)
		}
	}
	return routes
}

// Navigation returns the capability-filtered navigation tree of every
// enabled module, in registration order. A top-level item is dropped when
// any of its required capabilities is denied; children are filtered
// individually, and a parent survives even when all of its children are
// dropped.
func (r *Registry) Navigation(ab *ability.Ability) []module.NavItem {
	if ab == nil {
		ab = ability.Nobody()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var items []module.NavItem
	for _, id := range r.order {
		e := r.entries[id]
		if !e.state.Enabled {
			continue
		}
		items = append(items, filterNav(e.def.Navigation, ab)...)
	}
	return items
}

func filterNav(items []module.NavItem, ab *ability.Ability) []module.NavItem {
	var kept []module.NavItem
	for _, item := range items {
		if !Allowed(item.Require, ab) {
			continue
		}
		item.Children = filterNav(item.Children, ab)
		kept = append(kept, item)
	}
	return kept
}

// Allowed reports whether every rule in the requirement list is permitted.
// An empty list requires nothing.
func Allowed(require []ability.Rule, ab *ability.Ability) bool {
	for _, rule := range require {
		if !ab.Can(rule.Action, rule.Subject) {
			return false
		}
	}
	return true
}

// Subscribe registers a change listener and returns its unsubscribe
// function. Every mutating operation invokes listeners synchronously, in
// subscription order, with no payload; listeners re-query whatever state
// they project.
func (r *Registry) Subscribe(fn func()) func() {
	r.listenerMu.Lock()
	id := r.nextListen
	r.nextListen++
	r.listeners = append(r.listeners, listener{id: id, fn: fn})
	r.listenerMu.Unlock()

	return func() {
		r.listenerMu.Lock()
		defer r.listenerMu.Unlock()
		for i, l := range r.listeners {
			if l.id == id {
				r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
				return
			}
		}
	}
}

// notify invokes every listener. It runs after the mutation is committed, so
// listeners always observe post-mutation state. The catalog lock is never
// held here; listeners are free to call back into the registry.
func (r *Registry) notify() {
	r.listenerMu.Lock()
	fns := make([]func(), len(r.listeners))
	for i, l := range r.listeners {
		fns[i] = l.fn
	}
	r.listenerMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
