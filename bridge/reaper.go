package bridge

import (
	"sync"
	"sync/atomic"
	"time"
)

// ReaperStats holds the result of one sweep.
type ReaperStats struct {
	Swept         int
	Remaining     int
	SweepDuration time.Duration
	Timestamp     time.Time
}

// Reaper periodically removes correlator entries whose native instance has
// been collected without a finalization notice reaching the bridge. Cleanup
// is best-effort: an entry may outlive its instance until the next sweep.
type Reaper struct {
	correlator *Correlator
	interval   time.Duration
	enabled    atomic.Bool
	stop       chan struct{}
	stopped    chan struct{}
	mu         sync.Mutex

	sweepCount atomic.Uint64
	lastStats  atomic.Pointer[ReaperStats]
}

// DefaultReapInterval is the sweep interval used when none is configured.
const DefaultReapInterval = 30 * time.Second

// NewReaper creates a reaper over c. A non-positive interval means
// DefaultReapInterval.
func NewReaper(c *Correlator, interval time.Duration) *Reaper {
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	r := &Reaper{correlator: c, interval: interval}
	r.enabled.Store(true)
	return r
}

// Start begins sweeping. Calling Start on a running reaper does nothing.
func (r *Reaper) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop != nil {
		return
	}
	r.stop = make(chan struct{})
	r.stopped = make(chan struct{})
	go r.loop(r.stop, r.stopped)
}

// Stop halts sweeping and waits for the loop to exit. It is safe to call on
// a reaper that was never started.
func (r *Reaper) Stop() {
	r.mu.Lock()
	stopCh, stoppedCh := r.stop, r.stopped
	r.stop, r.stopped = nil, nil
	r.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-stoppedCh
	}
}

// SetEnabled pauses or resumes sweeping without stopping the loop.
func (r *Reaper) SetEnabled(enabled bool) {
	r.enabled.Store(enabled)
}

// Interval returns the sweep interval.
func (r *Reaper) Interval() time.Duration {
	return r.interval
}

// SweepCount returns how many sweeps have run.
func (r *Reaper) SweepCount() uint64 {
	return r.sweepCount.Load()
}

// LastStats returns the most recent sweep's stats, or nil.
func (r *Reaper) LastStats() *ReaperStats {
	return r.lastStats.Load()
}

// SweepNow sweeps immediately.
func (r *Reaper) SweepNow() *ReaperStats {
	return r.sweep()
}

func (r *Reaper) loop(stopCh <-chan struct{}, stoppedCh chan struct{}) {
	defer close(stoppedCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if r.enabled.Load() {
				r.sweep()
			}
		}
	}
}

func (r *Reaper) sweep() *ReaperStats {
	start := time.Now()
	swept := r.correlator.sweep()
	stats := &ReaperStats{
		Swept:         swept,
		Remaining:     r.correlator.Len(),
		SweepDuration: time.Since(start),
		Timestamp:     start,
	}
	r.sweepCount.Add(1)
	r.lastStats.Store(stats)
	if swept > 0 {
		log.Debugf("reaper swept %d entries, %d remain", swept, stats.Remaining)
	}
	return stats
}
