package runtime

import (
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func quietPool(t *testing.T, size int) *EnvironmentPool {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pool := NewEnvironmentPool(WithPoolSize(size), WithPoolLogger(logger))
	t.Cleanup(pool.Deinitialize)
	return pool
}

func mustCreate(t *testing.T, pool *EnvironmentPool, parent *Environment) *Environment {
	t.Helper()
	env, err := pool.Create(parent)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return env
}

func TestEnvironmentSetThenGet(t *testing.T) {
	pool := quietPool(t, 4)
	env := mustCreate(t, pool, nil)
	x := Intern("x")

	if err := env.Set(x, Integer(7)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := env.Get(x)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != Integer(7) {
		t.Fatalf("Get = %v, want 7", got)
	}
}

func TestEnvironmentDuplicateBindingFaults(t *testing.T) {
	pool := quietPool(t, 4)
	env := mustCreate(t, pool, nil)
	x := Intern("x")

	if err := env.Set(x, Integer(1)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	err := env.Set(x, Integer(2))
	if kind, ok := FaultOf(err); !ok || kind != FaultDuplicateBinding {
		t.Fatalf("second Set err = %v, want duplicate binding", err)
	}
	got, _ := env.Get(x)
	if got != Integer(1) {
		t.Fatalf("failed Set replaced the binding: %v", got)
	}
}

func TestEnvironmentShadowing(t *testing.T) {
	pool := quietPool(t, 4)
	outer := mustCreate(t, pool, nil)
	inner := mustCreate(t, pool, outer)
	x, y := Intern("x"), Intern("y")

	if err := outer.Set(x, Integer(1)); err != nil {
		t.Fatalf("outer Set: %v", err)
	}
	if err := outer.Set(y, Integer(2)); err != nil {
		t.Fatalf("outer Set: %v", err)
	}
	if err := inner.Set(x, Integer(10)); err != nil {
		t.Fatalf("inner Set should shadow: %v", err)
	}

	if got, _ := inner.Get(x); got != Integer(10) {
		t.Fatalf("inner x = %v, want 10", got)
	}
	if got, _ := inner.Get(y); got != Integer(2) {
		t.Fatalf("inner y = %v, want 2 from parent", got)
	}
	if got, _ := outer.Get(x); got != Integer(1) {
		t.Fatalf("outer x = %v, want 1", got)
	}
}

func TestEnvironmentUnboundSymbol(t *testing.T) {
	pool := quietPool(t, 4)
	outer := mustCreate(t, pool, nil)
	inner := mustCreate(t, pool, outer)

	_, err := inner.Get(Intern("missing"))
	if kind, ok := FaultOf(err); !ok || kind != FaultUnboundSymbol {
		t.Fatalf("Get err = %v, want unbound symbol", err)
	}
}

func TestEnvironmentBindingsInnermostFirst(t *testing.T) {
	pool := quietPool(t, 4)
	env := mustCreate(t, pool, nil)
	a, b := Intern("a"), Intern("b")
	_ = env.Set(a, Integer(1))
	_ = env.Set(b, Integer(2))

	want := []Binding{{Symbol: b, Value: Integer(2)}, {Symbol: a, Value: Integer(1)}}
	if diff := cmp.Diff(want, env.Bindings()); diff != "" {
		t.Fatalf("bindings mismatch (-want +got):\n%s", diff)
	}
}

func TestEnvironmentStartsLive(t *testing.T) {
	pool := quietPool(t, 4)
	env := mustCreate(t, pool, nil)
	if !env.Live() {
		t.Fatalf("fresh environment should be live")
	}
	env.SetLive(false)
	if env.Live() {
		t.Fatalf("SetLive(false) had no effect")
	}
}
