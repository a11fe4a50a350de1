package gopool

import (
	"runtime"
	"time"

	"github.com/panjf2000/ants/v2"
)

var minNumberPerTask = 5

// Pool is a bounded goroutine pool. Submit blocks while every worker is busy.
type Pool struct {
	pool *ants.Pool
}

// New creates a pool of size workers. Idle workers exit after ten seconds.
func New(size int) (*Pool, error) {
	if size <= 0 {
		size = ants.DefaultAntsPoolSize
	}
	p, err := ants.NewPool(size, ants.WithExpiryDuration(10*time.Second))
	if err != nil {
		return nil, err
	}
	return &Pool{pool: p}, nil
}

// Submit submits a task to pool.
func (p *Pool) Submit(task func()) error {
	return p.pool.Submit(task)
}

// Running returns the number of the currently running goroutines.
func (p *Pool) Running() int {
	return p.pool.Running()
}

// Cap returns the capacity of this pool.
func (p *Pool) Cap() int {
	return p.pool.Cap()
}

// Release closes the pool.
func (p *Pool) Release() {
	p.pool.Release()
}

// Threads picks a worker count for the given number of tasks: one worker per
// five tasks, at least one and at most GOMAXPROCS.
func Threads(tasks int) int {
	threads := tasks / minNumberPerTask
	if procs := runtime.GOMAXPROCS(0); threads > procs {
		threads = procs
	} else if threads == 0 {
		threads = 1
	}
	return threads
}
