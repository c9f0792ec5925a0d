package registry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdeck/opsdeck/internal/ability"
	"github.com/opsdeck/opsdeck/internal/domain"
	"github.com/opsdeck/opsdeck/internal/module"
)

// initLog records hook invocations so tests can assert ordering.
type initLog struct {
	mu  sync.Mutex
	ids []string
}

func (l *initLog) record(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ids = append(l.ids, id)
}

func (l *initLog) entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.ids...)
}

func loggedModule(id string, log *initLog, deps ...string) module.Definition {
	return module.Definition{
		ID:           id,
		Name:         id,
		Dependencies: deps,
		OnInit: func(ctx context.Context, mc *module.Context) error {
			log.record(id)
			return nil
		},
	}
}

func TestRegisterDuplicateKeepsFirst(t *testing.T) {
	r := New(0)
	r.Register(module.Definition{ID: "servers", Name: "Servers", Version: "1.0.0"})
	r.Register(module.Definition{ID: "servers", Name: "Impostor", Version: "9.9.9"})

	defs := r.All()
	require.Len(t, defs, 1)
	assert.Equal(t, "Servers", defs[0].Name)
	assert.Equal(t, "1.0.0", defs[0].Version)
}

func TestRegisterRejectsInvalidDefinition(t *testing.T) {
	r := New(0)
	r.Register(module.Definition{ID: "", Name: "No ID"})
	assert.Empty(t, r.All())
}

func TestRegisterDefaultState(t *testing.T) {
	r := New(0)
	r.Register(module.Definition{ID: "servers", Name: "Servers"})
	r.Register(module.Definition{ID: "agents", Name: "Agents", Disabled: true})

	st, ok := r.StateOf("servers")
	require.True(t, ok)
	assert.True(t, st.Enabled)
	assert.False(t, st.Loaded)

	st, ok = r.StateOf("agents")
	require.True(t, ok)
	assert.False(t, st.Enabled)
}

func TestInitializeLoadsDependenciesFirst(t *testing.T) {
	log := &initLog{}
	r := New(0)
	r.Register(loggedModule("base", log))
	r.Register(loggedModule("worker", log, "base"))

	err := r.Initialize(context.Background(), "worker", &module.Context{})
	require.NoError(t, err)

	for _, id := range []string{"base", "worker"} {
		st, ok := r.StateOf(id)
		require.True(t, ok, id)
		assert.True(t, st.Loaded, id)
	}
	assert.Equal(t, []string{"base", "worker"}, log.entries())
}

func TestInitializeTransitiveDependencies(t *testing.T) {
	log := &initLog{}
	r := New(0)
	r.Register(loggedModule("a", log))
	r.Register(loggedModule("b", log, "a"))
	r.Register(loggedModule("c", log, "b", "a"))

	require.NoError(t, r.Initialize(context.Background(), "c", &module.Context{}))
	assert.Equal(t, []string{"a", "b", "c"}, log.entries())
}

func TestInitializeIsIdempotent(t *testing.T) {
	log := &initLog{}
	r := New(0)
	r.Register(loggedModule("base", log))

	ctx := context.Background()
	require.NoError(t, r.Initialize(ctx, "base", &module.Context{}))
	require.NoError(t, r.Initialize(ctx, "base", &module.Context{}))

	assert.Equal(t, []string{"base"}, log.entries())
}

func TestInitializeUnknownModule(t *testing.T) {
	r := New(0)
	err := r.Initialize(context.Background(), "ghost", &module.Context{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInitializeMissingDependencyFailsDependent(t *testing.T) {
	r := New(0)
	r.Register(module.Definition{ID: "worker", Name: "Worker", Dependencies: []string{"ghost"}})

	err := r.Initialize(context.Background(), "worker", &module.Context{})
	require.ErrorIs(t, err, domain.ErrNotFound)

	st, ok := r.StateOf("worker")
	require.True(t, ok)
	assert.False(t, st.Loaded)
	assert.NotEmpty(t, st.Err)
}

func TestInitializeHookFailure(t *testing.T) {
	log := &initLog{}
	r := New(0)
	r.Register(module.Definition{
		ID:   "flaky",
		Name: "Flaky",
		OnInit: func(ctx context.Context, mc *module.Context) error {
			return errors.New("boom")
		},
	})
	r.Register(loggedModule("ok", log))

	ctx := context.Background()
	err := r.Initialize(ctx, "flaky", &module.Context{})
	require.EqualError(t, err, "boom")
	require.NoError(t, r.Initialize(ctx, "ok", &module.Context{}))

	st, _ := r.StateOf("flaky")
	assert.Equal(t, "boom", st.Err)
	assert.False(t, st.Loaded)

	st, _ = r.StateOf("ok")
	assert.True(t, st.Loaded)
}

func TestInitializeClearsStaleError(t *testing.T) {
	attempts := 0
	r := New(0)
	r.Register(module.Definition{
		ID:   "flaky",
		Name: "Flaky",
		OnInit: func(ctx context.Context, mc *module.Context) error {
			attempts++
			if attempts == 1 {
				return errors.New("boom")
			}
			return nil
		},
	})

	ctx := context.Background()
	require.Error(t, r.Initialize(ctx, "flaky", &module.Context{}))
	require.NoError(t, r.Initialize(ctx, "flaky", &module.Context{}))

	st, _ := r.StateOf("flaky")
	assert.True(t, st.Loaded)
	assert.Empty(t, st.Err)
}

func TestInitializeDetectsDependencyCycle(t *testing.T) {
	r := New(0)
	r.Register(module.Definition{ID: "a", Name: "A", Dependencies: []string{"b"}})
	r.Register(module.Definition{ID: "b", Name: "B", Dependencies: []string{"a"}})

	err := r.Initialize(context.Background(), "a", &module.Context{})
	require.ErrorIs(t, err, domain.ErrDependencyCycle)

	st, _ := r.StateOf("a")
	assert.False(t, st.Loaded)
}

func TestInitializeHookDeadline(t *testing.T) {
	r := New(20 * time.Millisecond)
	r.Register(module.Definition{
		ID:   "stuck",
		Name: "Stuck",
		OnInit: func(ctx context.Context, mc *module.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	})

	err := r.Initialize(context.Background(), "stuck", &module.Context{})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	st, _ := r.StateOf("stuck")
	assert.False(t, st.Loaded)
	assert.NotEmpty(t, st.Err)
}

func TestUnregisterRefusedWhileDependentsExist(t *testing.T) {
	r := New(0)
	r.Register(module.Definition{ID: "base", Name: "Base"})
	r.Register(module.Definition{ID: "worker", Name: "Worker", Dependencies: []string{"base"}})

	err := r.Unregister("base")
	require.ErrorIs(t, err, domain.ErrModuleInUse)

	assert.Len(t, r.All(), 2)
	_, ok := r.Get("base")
	assert.True(t, ok)
}

func TestUnregisterInvokesDestroyHook(t *testing.T) {
	destroyed := false
	r := New(0)
	r.Register(module.Definition{
		ID:   "solo",
		Name: "Solo",
		OnDestroy: func() error {
			destroyed = true
			return nil
		},
	})

	require.NoError(t, r.Unregister("solo"))
	assert.True(t, destroyed)
	assert.Empty(t, r.All())
}

func TestUnregisterDestroyHookFailureKeepsModule(t *testing.T) {
	r := New(0)
	r.Register(module.Definition{
		ID:   "solo",
		Name: "Solo",
		OnDestroy: func() error {
			return errors.New("teardown failed")
		},
	})

	err := r.Unregister("solo")
	require.Error(t, err)
	_, ok := r.Get("solo")
	assert.True(t, ok)
}

func TestUnregisterUnknownModule(t *testing.T) {
	r := New(0)
	assert.ErrorIs(t, r.Unregister("ghost"), domain.ErrNotFound)
}

func TestRoutesFollowEnabledFlag(t *testing.T) {
	r := New(0)
	r.Register(module.Definition{
		ID:     "servers",
		Name:   "Servers",
		Routes: []module.Route{{Path: "/servers"}},
	})
	r.Register(module.Definition{
		ID:     "agents",
		Name:   "Agents",
		Routes: []module.Route{{Path: "/agents"}},
	})

	paths := func() []string {
		var out []string
		for _, rt := range r.Routes() {
			out = append(out, rt.Path)
		}
		return out
	}

	assert.Equal(t, []string{"/servers", "/agents"}, paths())

	r.SetEnabled("servers", false)
	assert.Equal(t, []string{"/agents"}, paths())

	r.SetEnabled("servers", true)
	assert.Equal(t, []string{"/servers", "/agents"}, paths())
}

func TestRoutesIgnoreLoadedState(t *testing.T) {
	r := New(0)
	r.Register(module.Definition{
		ID:     "flaky",
		Name:   "Flaky",
		Routes: []module.Route{{Path: "/flaky"}},
		OnInit: func(ctx context.Context, mc *module.Context) error {
			return errors.New("boom")
		},
	})

	require.Error(t, r.Initialize(context.Background(), "flaky", &module.Context{}))
	require.Len(t, r.Routes(), 1, "a failed module still contributes routes while enabled")
}

func TestNavigationCapabilityFiltering(t *testing.T) {
	r := New(0)
	r.Register(module.Definition{
		ID:   "agents",
		Name: "Agents",
		Navigation: []module.NavItem{{
			ID:      "agents",
			Label:   "Agents",
			Path:    "/agents",
			Require: []ability.Rule{{Action: ability.ActionRead, Subject: ability.SubjectAgent}},
		}},
	})

	denied := ability.New()
	allowed := ability.New(ability.Rule{Action: ability.ActionRead, Subject: ability.SubjectAgent})

	assert.Empty(t, r.Navigation(denied))

	nav := r.Navigation(allowed)
	require.Len(t, nav, 1)
	assert.Equal(t, "Agents", nav[0].Label)
}

func TestNavigationFiltersChildrenIndividually(t *testing.T) {
	r := New(0)
	r.Register(module.Definition{
		ID:   "tasks",
		Name: "Tasks",
		Navigation: []module.NavItem{{
			ID:    "tasks",
			Label: "Tasks",
			Path:  "/tasks",
			Children: []module.NavItem{
				{
					ID:      "queue",
					Label:   "Queue",
					Path:    "/tasks/queue",
					Require: []ability.Rule{{Action: ability.ActionRead, Subject: ability.SubjectTask}},
				},
				{
					ID:      "admin",
					Label:   "Admin",
					Path:    "/tasks/admin",
					Require: []ability.Rule{{Action: ability.ActionManage, Subject: ability.SubjectTask}},
				},
			},
		}},
	})

	reader := ability.New(ability.Rule{Action: ability.ActionRead, Subject: ability.SubjectTask})
	nav := r.Navigation(reader)
	require.Len(t, nav, 1)
	require.Len(t, nav[0].Children, 1)
	assert.Equal(t, "Queue", nav[0].Children[0].Label)

	// The parent survives even when every child is filtered out.
	nav = r.Navigation(ability.Nobody())
	require.Len(t, nav, 1)
	assert.Empty(t, nav[0].Children)
}

func TestNavigationSkipsDisabledModules(t *testing.T) {
	r := New(0)
	r.Register(module.Definition{
		ID:         "servers",
		Name:       "Servers",
		Navigation: []module.NavItem{{ID: "servers", Label: "Servers", Path: "/servers"}},
	})

	r.SetEnabled("servers", false)
	assert.Empty(t, r.Navigation(ability.ForRole(ability.RoleAdmin)))
}

func TestSubscribeNotificationCounts(t *testing.T) {
	r := New(0)
	count := 0
	unsub := r.Subscribe(func() { count++ })

	r.Register(module.Definition{ID: "servers", Name: "Servers"})
	r.SetEnabled("servers", false)
	r.SetEnabled("servers", true)
	require.NoError(t, r.Initialize(context.Background(), "servers", &module.Context{}))

	// register + two effective toggles + one initialize pass.
	assert.Equal(t, 4, count)

	// Redundant operations do not notify.
	r.SetEnabled("servers", true)
	r.SetEnabled("ghost", true)
	r.Register(module.Definition{ID: "servers", Name: "Duplicate"})
	require.NoError(t, r.Initialize(context.Background(), "servers", &module.Context{}))
	assert.Equal(t, 4, count)

	unsub()
	r.Register(module.Definition{ID: "agents", Name: "Agents"})
	assert.Equal(t, 4, count)
}

func TestInitializeNotifiesOncePerPassMember(t *testing.T) {
	log := &initLog{}
	r := New(0)
	r.Register(loggedModule("base", log))
	r.Register(loggedModule("worker", log, "base"))

	count := 0
	defer r.Subscribe(func() { count++ })()

	require.NoError(t, r.Initialize(context.Background(), "worker", &module.Context{}))
	assert.Equal(t, 1, count, "one notification per Initialize call, not per internal write")
}

func TestListenersObservePostMutationState(t *testing.T) {
	r := New(0)
	var seen bool
	r.Subscribe(func() {
		_, seen = r.Get("servers")
	})
	r.Register(module.Definition{ID: "servers", Name: "Servers"})
	assert.True(t, seen)
}
