package servant

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"testing"
	"time"
)

func TestManagerCreateAndHealth(t *testing.T) {
	srvA := httptest.NewServer(NewWorker("svcA", NewDemoService()).Handler())
	defer srvA.Close()
	srvB := httptest.NewServer(NewWorker("svcB", echoService{}).Handler())
	defer srvB.Close()

	// both workers are already running, so Create only attaches
	src := staticSource{tagged: map[string][]int{
		EncodeTag("svcA", serverPort(t, srvA)): {os.Getpid()},
		EncodeTag("svcB", serverPort(t, srvB)): {os.Getpid()},
	}}

	mgr := NewManager(
		WithConcurrency(2),
		WithTimeout(5*time.Second),
		WithSupervisorOptions(WithDiscovery(src), WithTransport(localTransport())),
	)

	ctx := context.Background()
	sups, err := mgr.Create(ctx, "svcA", "svcB")
	if err != nil {
		t.Fatal(err)
	}
	if len(sups) != 2 {
		t.Fatalf("got %d supervisors, want 2", len(sups))
	}
	for name, s := range sups {
		if s.State() != StateReady {
			t.Errorf("%s state = %v, want ready", name, s.State())
		}
	}

	health, err := mgr.Health(ctx, sups["svcA"], sups["svcB"])
	if err != nil {
		t.Fatal(err)
	}
	if !health["svcA"].IsRunning || !health["svcB"].IsRunning {
		t.Errorf("health = %+v, want both running", health)
	}
	if health["svcB"].Fields["kind"] != "echo" {
		t.Errorf("svcB fields = %v", health["svcB"].Fields)
	}
}

func TestManagerCollectsErrors(t *testing.T) {
	boom := errors.New("boom")
	src := sourceFunc(func(context.Context) (map[string][]int, error) { return nil, boom })

	mgr := NewManager(WithSupervisorOptions(WithDiscovery(src)))
	sups, err := mgr.Create(context.Background(), "", "svc")
	if err == nil {
		t.Fatal("expected error")
	}
	if len(sups) != 0 {
		t.Errorf("got %d supervisors, want 0", len(sups))
	}

	var merr *MultiError
	if !errors.As(err, &merr) {
		t.Fatalf("error %T is not a MultiError", err)
	}
	if len(merr.Errors) != 2 {
		t.Errorf("got %d errors, want 2", len(merr.Errors))
	}
	if !errors.Is(err, ErrNameRequired) || !errors.Is(err, boom) {
		t.Errorf("error %v does not wrap both causes", err)
	}
}

func TestManagerEmpty(t *testing.T) {
	mgr := NewManager()
	ctx := context.Background()

	sups, err := mgr.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(sups) != 0 {
		t.Errorf("got %d supervisors, want 0", len(sups))
	}
	if err := mgr.Terminate(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestManagerTerminateInertSupervisors(t *testing.T) {
	mgr := NewManager(WithConcurrency(0))
	if mgr.Concurrency != 1 {
		t.Errorf("Concurrency = %d, want clamp to 1", mgr.Concurrency)
	}

	a, b := newSupervisor("a"), newSupervisor("b")
	if err := mgr.Terminate(context.Background(), a, b); err != nil {
		t.Fatal(err)
	}
	if a.State() != StateTerminated || b.State() != StateTerminated {
		t.Errorf("states = %v, %v", a.State(), b.State())
	}
}

func TestManagerCancelledContext(t *testing.T) {
	mgr := NewManager(WithConcurrency(1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// a slot may still be acquired before cancellation is noticed, so only
	// check that whatever failed did so because of the context
	_, err := mgr.Health(ctx, newSupervisor("a"), newSupervisor("b"))
	if err == nil {
		t.Fatal("expected error")
	}
	var merr *MultiError
	if !errors.As(err, &merr) {
		t.Fatalf("error %T is not a MultiError", err)
	}
	for _, e := range merr.Errors {
		if !errors.Is(e, context.Canceled) && !errors.Is(e, ErrNotAttached) {
			t.Errorf("unexpected error %v", e)
		}
	}
}
