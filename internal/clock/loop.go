package clock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrLoopClosed is returned by Do after Close.
var ErrLoopClosed = errors.New("clock loop closed")

// Loop is a single goroutine that owns mutable state. Timer callbacks and
// external calls are queued and executed one at a time.
type Loop struct {
	tasks chan func()
	done  chan struct{}

	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewLoop(queue int) *Loop {
	if queue <= 0 {
		queue = 64
	}
	l := &Loop{
		tasks: make(chan func(), queue),
		done:  make(chan struct{}),
	}
	l.wg.Add(1)
	go l.run()
	return l
}

func (l *Loop) run() {
	defer l.wg.Done()
	for {
		select {
		case fn := <-l.tasks:
			fn()
		case <-l.done:
			return
		}
	}
}

// Post queues fn without waiting. It drops fn once the loop is closed.
func (l *Loop) Post(fn func()) {
	select {
	case <-l.done:
		return
	default:
	}
	select {
	case l.tasks <- fn:
	case <-l.done:
	}
}

const (
	taskQueued int32 = iota
	taskStarted
	taskAbandoned
)

// Do runs fn on the loop and waits for it to return. When ctx expires before
// fn has started, fn is skipped and ctx.Err() is returned; once fn has
// started, Do waits for it, so an error always means fn did not run.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	var state atomic.Int32
	finished := make(chan struct{})
	task := func() {
		defer close(finished)
		if !state.CompareAndSwap(taskQueued, taskStarted) {
			return
		}
		fn()
	}
	select {
	case l.tasks <- task:
	case <-l.done:
		return ErrLoopClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		if state.CompareAndSwap(taskQueued, taskAbandoned) {
			return ErrLoopClosed
		}
	case <-ctx.Done():
		if state.CompareAndSwap(taskQueued, taskAbandoned) {
			return ctx.Err()
		}
	}
	// fn is running on the loop; run() finishes it before observing done.
	<-finished
	return nil
}

// Close stops the loop goroutine. Pending tasks are discarded.
func (l *Loop) Close() {
	l.closeOnce.Do(func() { close(l.done) })
	l.wg.Wait()
}

func (l *Loop) Now() time.Time { return time.Now() }

// Every must be called from the loop. Ticks are delivered through the queue and
// dropped once Stop has run, so no tick is observed after Stop returns.
func (l *Loop) Every(interval time.Duration, fn func()) Handle {
	h := &loopHandle{ticker: time.NewTicker(interval), quit: make(chan struct{})}
	go func() {
		for {
			select {
			case <-h.ticker.C:
				l.Post(func() {
					if h.stopped {
						return
					}
					fn()
				})
			case <-h.quit:
				return
			case <-l.done:
				return
			}
		}
	}()
	return h
}

func (l *Loop) After(delay time.Duration, fn func()) {
	time.AfterFunc(delay, func() { l.Post(fn) })
}

type loopHandle struct {
	ticker  *time.Ticker
	quit    chan struct{}
	stopped bool // only touched on the loop
}

func (h *loopHandle) Stop() {
	if h.stopped {
		return
	}
	h.stopped = true
	h.ticker.Stop()
	close(h.quit)
}
