package bridge

import (
	"runtime"
	"testing"
	"time"

	"github.com/chazu/graft/vm"
)

func TestReaperSweepsCollectedInstances(t *testing.T) {
	v := vm.NewVM()
	c := NewCorrelator()
	r := NewReaper(c, time.Hour)

	register := func() {
		obj, err := v.Instantiate(v.ObjectClass)
		if err != nil {
			t.Fatalf("Instantiate: %v", err)
		}
		if err := c.Register(obj, NewObject(), nil); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	register()
	keep, _ := v.Instantiate(v.ObjectClass)
	c.Register(keep, NewObject(), nil)

	collected := false
	for range 10 {
		runtime.GC()
		if c.Len() == 2 && r.SweepNow().Swept == 1 {
			collected = true
			break
		}
	}
	if !collected {
		t.Skip("collection not observed")
	}
	stats := r.LastStats()
	if stats.Remaining != 1 {
		t.Errorf("Remaining = %d, want 1", stats.Remaining)
	}
	runtime.KeepAlive(keep)
}

func TestReaperLifecycle(t *testing.T) {
	r := NewReaper(NewCorrelator(), 0)
	if r.Interval() != DefaultReapInterval {
		t.Errorf("Interval = %v, want %v", r.Interval(), DefaultReapInterval)
	}
	if r.LastStats() != nil {
		t.Error("LastStats before any sweep should be nil")
	}

	// Stop before Start, double Start and double Stop are all safe.
	r.Stop()
	r.Start()
	r.Start()
	r.Stop()
	r.Stop()

	stats := r.SweepNow()
	if stats.Swept != 0 || stats.Remaining != 0 {
		t.Errorf("sweep of empty correlator = %+v", stats)
	}
	if r.SweepCount() != 1 {
		t.Errorf("SweepCount = %d, want 1", r.SweepCount())
	}
}

func TestReaperLoopSweeps(t *testing.T) {
	r := NewReaper(NewCorrelator(), 5*time.Millisecond)
	r.Start()
	defer r.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for r.SweepCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("reaper did not sweep")
		}
		time.Sleep(time.Millisecond)
	}
}
