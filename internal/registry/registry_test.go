package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/conduit/internal/errors"
	"github.com/xraph/conduit/internal/shared"
)

type probe struct {
	name string
}

func probeSpec(name string, kind shared.ServiceKind) *shared.ServiceSpec {
	return &shared.ServiceSpec{
		Name: name,
		Kind: kind,
		Init: func(shared.InitContext) (any, error) {
			return &probe{name: name}, nil
		},
	}
}

func TestRegisterRejectsDuplicateKey(t *testing.T) {
	reg := New(nil)

	require.NoError(t, reg.Register(probeSpec("monitor", shared.KindSerial)))

	err := reg.Register(probeSpec("monitor", shared.KindSerial))
	require.Error(t, err)
	assert.True(t, errors.IsRegistration(err))

	// Same name under a different kind is a distinct key.
	assert.NoError(t, reg.Register(probeSpec("monitor", shared.KindGlobal)))
	assert.Equal(t, 2, reg.Len())
}

func TestRegisterValidation(t *testing.T) {
	reg := New(nil)

	assert.Error(t, reg.Register(nil))
	assert.Error(t, reg.Register(&shared.ServiceSpec{Kind: shared.KindSerial}))
}

func TestGetNeverAllocates(t *testing.T) {
	reg := New(nil)
	require.NoError(t, reg.Register(probeSpec("monitor", shared.KindSerial)))

	h, err := reg.Get("monitor", shared.KindSerial)
	require.NoError(t, err)
	assert.Equal(t, shared.StateUninitialized, h.State())
	assert.Nil(t, h.Instance())

	_, err = reg.Get("missing", shared.KindSerial)
	require.Error(t, err)
	assert.True(t, errors.IsServiceNotFound(err))

	// Kind is part of the key, not a fallback dimension.
	_, err = reg.Get("monitor", shared.KindStream)
	assert.True(t, errors.IsServiceNotFound(err))
}

func TestResolveOrCreateInitsAtMostOnce(t *testing.T) {
	reg := New(nil)

	inits := 0
	require.NoError(t, reg.Register(&shared.ServiceSpec{
		Name: "counter",
		Kind: shared.KindGlobal,
		Init: func(shared.InitContext) (any, error) {
			inits++
			return &probe{name: "counter"}, nil
		},
	}))

	ictx := shared.InitContext{Registry: reg}
	first, err := reg.ResolveOrCreate("counter", shared.KindGlobal, ictx)
	require.NoError(t, err)
	second, err := reg.ResolveOrCreate("counter", shared.KindGlobal, ictx)
	require.NoError(t, err)

	assert.Equal(t, 1, inits)
	assert.Same(t, first, second)
	assert.Same(t, first.Instance(), second.Instance())
	assert.Equal(t, shared.StateInitialized, first.State())
}

func TestInitCallbackMayUseRegistry(t *testing.T) {
	reg := New(nil)
	require.NoError(t, reg.Register(probeSpec("dep", shared.KindGlobal)))

	// The init context hands the registry to the callback precisely so it
	// can reach collaborators; lookups from inside init must not block.
	require.NoError(t, reg.Register(&shared.ServiceSpec{
		Name: "consumer",
		Kind: shared.KindSerial,
		Init: func(ictx shared.InitContext) (any, error) {
			dep, err := ictx.Registry.ResolveOrCreate("dep", shared.KindGlobal, ictx)
			if err != nil {
				return nil, err
			}
			return dep.Instance(), nil
		},
	}))

	done := make(chan error, 1)
	go func() {
		ictx := shared.InitContext{Registry: reg}
		_, err := reg.ResolveOrCreate("consumer", shared.KindSerial, ictx)
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("init callback blocked on the registry lock")
	}

	dh, err := reg.Get("dep", shared.KindGlobal)
	require.NoError(t, err)
	ch, err := reg.Get("consumer", shared.KindSerial)
	require.NoError(t, err)
	assert.Equal(t, shared.StateInitialized, dh.State())
	assert.Same(t, dh.Instance(), ch.Instance())
}

func TestConfigureCallbackMayUseRegistry(t *testing.T) {
	reg := New(nil)
	require.NoError(t, reg.Register(probeSpec("dep", shared.KindGlobal)))
	require.NoError(t, reg.Register(&shared.ServiceSpec{
		Name: "consumer",
		Kind: shared.KindSerial,
		Init: func(shared.InitContext) (any, error) { return &probe{}, nil },
		Configure: func(ictx shared.InitContext, instance any) (any, error) {
			if _, err := ictx.Registry.Get("dep", shared.KindGlobal); err != nil {
				return nil, err
			}
			return instance, nil
		},
	}))

	ictx := shared.InitContext{Registry: reg}
	_, err := reg.ResolveOrCreate("consumer", shared.KindSerial, ictx)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- reg.Configure("consumer", shared.KindSerial, ictx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("configure callback blocked on the registry lock")
	}
}

func TestResolveOrCreateWithoutInitCallback(t *testing.T) {
	reg := New(nil)
	require.NoError(t, reg.Register(&shared.ServiceSpec{Name: "bare", Kind: shared.KindSerial}))

	_, err := reg.ResolveOrCreate("bare", shared.KindSerial, shared.InitContext{})
	require.Error(t, err)
	assert.True(t, errors.IsCallback(err))
}

func TestConfigureReplacesInstance(t *testing.T) {
	reg := New(nil)
	require.NoError(t, reg.Register(&shared.ServiceSpec{
		Name: "tunable",
		Kind: shared.KindSerial,
		Init: func(shared.InitContext) (any, error) {
			return &probe{name: "initial"}, nil
		},
		Configure: func(ictx shared.InitContext, instance any) (any, error) {
			return &probe{name: ictx.Options.GetString("name", "unnamed")}, nil
		},
	}))

	ictx := shared.InitContext{Registry: reg, Options: map[string]any{"name": "tuned"}}
	h, err := reg.ResolveOrCreate("tunable", shared.KindSerial, ictx)
	require.NoError(t, err)
	require.NoError(t, reg.Configure("tunable", shared.KindSerial, ictx))

	assert.Equal(t, shared.StateConfigured, h.State())
	assert.Equal(t, "tuned", h.Instance().(*probe).name)

	// Configure is repeatable.
	require.NoError(t, reg.Configure("tunable", shared.KindSerial, ictx))
	assert.Equal(t, shared.StateConfigured, h.State())
}

func TestConfigureWithoutSlotIsNoop(t *testing.T) {
	reg := New(nil)
	require.NoError(t, reg.Register(probeSpec("monitor", shared.KindSerial)))

	h, err := reg.ResolveOrCreate("monitor", shared.KindSerial, shared.InitContext{})
	require.NoError(t, err)
	require.NoError(t, reg.Configure("monitor", shared.KindSerial, shared.InitContext{}))
	assert.Equal(t, shared.StateInitialized, h.State())
}

func TestForEachPreservesRegistrationOrder(t *testing.T) {
	reg := New(nil)
	require.NoError(t, reg.Register(probeSpec("charlie", shared.KindSerial)))
	require.NoError(t, reg.Register(probeSpec("alpha", shared.KindGlobal)))
	require.NoError(t, reg.Register(probeSpec("bravo", shared.KindSerial)))

	var all []string
	require.NoError(t, reg.ForEach(shared.KindAny, func(h *shared.Handle) error {
		all = append(all, h.Name())
		return nil
	}))
	assert.Equal(t, []string{"charlie", "alpha", "bravo"}, all)

	var serial []string
	require.NoError(t, reg.ForEach(shared.KindSerial, func(h *shared.Handle) error {
		serial = append(serial, h.Name())
		return nil
	}))
	assert.Equal(t, []string{"charlie", "bravo"}, serial)
}

func TestForEachVisitorMayReenter(t *testing.T) {
	reg := New(nil)
	require.NoError(t, reg.Register(probeSpec("outer", shared.KindSerial)))
	require.NoError(t, reg.Register(probeSpec("inner", shared.KindGlobal)))

	err := reg.ForEach(shared.KindSerial, func(h *shared.Handle) error {
		_, err := reg.Get("inner", shared.KindGlobal)
		return err
	})
	assert.NoError(t, err)
}
