// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package workerspool runs independent tasks, like decoding a batch of images, in a bounded number of goroutines.
package workerspool

import (
	"runtime"
	"sync"
)

// Pool limits the number of tasks running in parallel.
type Pool struct {
	// maxParallelism is the limit of tasks running at the same time. If 0 tasks run inline.
	maxParallelism int

	mu         sync.Mutex
	cond       sync.Cond // Signaled whenever numRunning is decreased.
	numRunning int
}

// New returns a Pool with the given parallelism. If maxParallelism < 0 it uses runtime.NumCPU().
// If it is 0, tasks run inline in the caller goroutine.
func New(maxParallelism int) *Pool {
	if maxParallelism < 0 {
		maxParallelism = runtime.NumCPU()
	}
	p := &Pool{maxParallelism: maxParallelism}
	p.cond = sync.Cond{L: &p.mu}
	return p
}

// MaxParallelism returns the limit of tasks running at the same time. 0 means tasks run inline.
func (p *Pool) MaxParallelism() int {
	return p.maxParallelism
}

// WaitToStart waits until there is a worker available and runs task in a new goroutine.
// If parallelism is disabled it runs the task inline and returns when it is finished.
//
// It's up to the caller to synchronize the end of the task.
func (p *Pool) WaitToStart(task func()) {
	if p.maxParallelism == 0 {
		task()
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.numRunning >= p.maxParallelism {
		p.cond.Wait()
	}
	p.numRunning++
	go func() {
		defer func() {
			p.mu.Lock()
			p.numRunning--
			p.cond.Signal()
			p.mu.Unlock()
		}()
		task()
	}()
}

// Map calls fn(i) for i in [0, n) using the pool, and waits for all calls to finish.
// It returns the error of the lowest index that failed, so results are deterministic.
func (p *Pool) Map(n int, fn func(i int) error) error {
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		p.WaitToStart(func() {
			defer wg.Done()
			errs[i] = fn(i)
		})
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
