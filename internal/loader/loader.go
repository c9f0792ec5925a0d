// Package loader bridges the module registry to the HTTP layer. It waits
// for the authenticated-session signal, runs a dependency-ordered
// initialization pass over all enabled modules, and serves the composed
// route tree behind per-request capability guards.
package loader

import (
	"context"
	"log/slog"
	"sync"

	"github.com/opsdeck/opsdeck/internal/module"
	"github.com/opsdeck/opsdeck/internal/registry"
)

// ContextBuilder assembles the module.Context for an initialization pass
// from the session that triggered it.
type ContextBuilder func(sess Session) *module.Context

// Loader owns the initialization lifecycle and the route snapshot.
type Loader struct {
	reg        *registry.Registry
	signal     *Signal
	newContext ContextBuilder

	mu          sync.RWMutex
	initialized bool
	routes      map[string]routeEntry

	runCtx    context.Context
	unsubs    []func()
	closeOnce sync.Once
}

// New creates a Loader. Start must be called before it reacts to anything.
func New(reg *registry.Registry, signal *Signal, newContext ContextBuilder) *Loader {
	return &Loader{
		reg:        reg,
		signal:     signal,
		newContext: newContext,
		routes:     make(map[string]routeEntry),
	}
}

// Start subscribes to the readiness signal and to registry change
// notifications, then evaluates the current session state once so a signal
// set before Start is not missed. ctx bounds all initialization passes.
func (l *Loader) Start(ctx context.Context) {
	l.runCtx = ctx
	l.unsubs = append(l.unsubs,
		l.signal.Subscribe(l.onSession),
		l.reg.Subscribe(l.rebuildRoutes),
	)
	l.onSession(l.signal.Get())
}

// Close detaches the loader from the signal and the registry.
func (l *Loader) Close() {
	l.closeOnce.Do(func() {
		for _, unsub := range l.unsubs {
			unsub()
		}
	})
}

// Initialized reports whether a full pass has completed since the last
// authentication transition.
func (l *Loader) Initialized() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.initialized
}

// onSession reacts to readiness transitions. Losing readiness resets the
// initialized flag without touching the registry, so the next login re-runs
// the pass; Initialize is a no-op for modules that already loaded, which is
// exactly the retry behavior failed modules need.
func (l *Loader) onSession(sess Session) {
	if !sess.Ready() {
		l.mu.Lock()
		l.initialized = false
		l.mu.Unlock()
		return
	}
	l.runPass(sess)
}

// runPass initializes every enabled module. Modules are grouped into
// topological layers computed up front; modules within a layer have no
// dependency relation and are initialized concurrently, while layers run in
// order so every dependency completes strictly before its dependents start.
// A module's failure is logged and isolated; unrelated modules still load.
func (l *Loader) runPass(sess Session) {
	ctx := l.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	mc := l.newContext(sess)

	var enabled []module.Definition
	for _, def := range l.reg.All() {
		if l.reg.IsEnabled(def.ID) {
			enabled = append(enabled, def)
		}
	}

	layers, cyclic := Layers(enabled)
	if len(cyclic) > 0 {
		slog.Error("Dependency cycle detected among modules; they will not be initialized",
			"modules", cyclic)
	}

	for _, layer := range layers {
		var wg sync.WaitGroup
		for _, id := range layer {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				if err := l.reg.Initialize(ctx, id, mc); err != nil {
					slog.Error("Failed to initialize module", "module", id, "error", err)
				}
			}(id)
		}
		wg.Wait()
	}

	l.mu.Lock()
	l.initialized = true
	l.mu.Unlock()
	l.rebuildRoutes()

	slog.Info("Module initialization pass complete", "modules", len(enabled))
}
