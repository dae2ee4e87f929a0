// Package pool schedules named build jobs by deadline on a fixed set of
// worker goroutines. A job is a function returning the time it wants to run
// next; returning the zero time removes it from the pool. Trigger pulls a
// job forward for an immediate run, which the watch service uses when a
// configuration change is detected.
package pool

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

type job struct {
	name     string
	run      func(context.Context) time.Time
	deadline time.Time
	rerun    bool
}

type Pool struct {
	mu      sync.Mutex
	queue   []*job
	running map[string]*job
	wake    chan struct{}
}

// New starts workers goroutines that run jobs until ctx is cancelled.
func New(ctx context.Context, workers int) *Pool {
	p := &Pool{running: make(map[string]*job)}

	for range workers {
		go p.work(ctx)
	}

	return p
}

// Add schedules a job for an immediate first run.
func (p *Pool) Add(name string, run func(context.Context) time.Time) {
	p.push(&job{name: name, run: run, deadline: time.Now()})
}

// Trigger requests an immediate run of the named job. A queued job is moved
// to the front of the queue; a currently running job is marked for one
// re-run right after it finishes. Unknown names are an error.
func (p *Pool) Trigger(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if i := slices.IndexFunc(p.queue, func(j *job) bool { return j.name == name }); i != -1 {
		p.queue[i].deadline = time.Now()
		p.resort()
		return nil
	}

	// Not queued, so it must be executing right now.
	if j, ok := p.running[name]; ok {
		j.rerun = true
		return nil
	}

	return fmt.Errorf("no job named %q", name)
}

func (p *Pool) work(ctx context.Context) {
	for {
		j := p.next(ctx)
		if j == nil {
			return // context cancelled
		}

		j.deadline = j.run(ctx)
		p.push(j)
	}
}

func (p *Pool) push(j *job) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if j.rerun {
		// A trigger arrived while the job was executing.
		j.rerun = false
		j.deadline = time.Now()
	}

	if j.deadline.IsZero() {
		// Job asked to be removed.
		delete(p.running, j.name)
		return
	}

	p.running[j.name] = j
	p.queue = append(p.queue, j)
	p.resort()
}

// resort keeps the queue in deadline order and wakes a waiting worker. The
// caller must hold p.mu.
func (p *Pool) resort() {
	slices.SortFunc(p.queue, func(a, b *job) int {
		return a.deadline.Compare(b.deadline)
	})

	if p.wake != nil {
		close(p.wake)
		p.wake = nil
	}
}

// next blocks until the earliest queued job is due, or returns nil once ctx
// is cancelled.
func (p *Pool) next(ctx context.Context) *job {
	p.mu.Lock()
	defer p.mu.Unlock()

	for {
		due := time.Now().Add(time.Hour) // nothing queued, check back later
		if len(p.queue) > 0 {
			due = p.queue[0].deadline
		}

		if !due.After(time.Now()) {
			break
		}

		if p.wake == nil {
			p.wake = make(chan struct{})
		}
		wake := p.wake

		p.mu.Unlock()
		timer := time.NewTimer(time.Until(due))
		select {
		case <-ctx.Done():
			timer.Stop()
			p.mu.Lock()
			return nil
		case <-timer.C:
		case <-wake:
			timer.Stop()
		}
		p.mu.Lock()
	}

	var j *job
	j, p.queue = p.queue[0], p.queue[1:]
	return j
}
