// Package tasks runs the program's background work: repeating timer tasks on
// a single scheduling goroutine, and fire-and-forget tasks for user actions.
// A panicking task is logged and the loop keeps its cadence.
package tasks

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Func is a unit of background work.
type Func func(ctx context.Context)

type repeating struct {
	name     string
	interval time.Duration
	fn       Func
}

// Runner owns every background task. It is safe for concurrent use.
//
// Lifecycle:
//   - Every(...): registers a repeating task; may be called before or during Run.
//   - Go(...): starts a fire-and-forget task immediately.
//   - Run(ctx): drives repeating tasks until ctx is done, then cancels the
//     context handed to in-flight tasks.
//   - Wait(): blocks until fire-and-forget tasks have returned.
type Runner struct {
	log *zap.Logger
	now func() time.Time

	mu     sync.Mutex
	sched  *schedule            // Protected by mu
	tasks  map[int64]*repeating // Protected by mu
	nextID int64

	wake chan struct{}
	wg   sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

func NewRunner(log *zap.Logger) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		log:    log.Named("tasks"),
		now:    time.Now,
		sched:  newSchedule(),
		tasks:  make(map[int64]*repeating),
		wake:   make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Every registers fn to run repeatedly. The first run is one interval from
// now; each later run is one interval after the previous one returned, so a
// slow iteration delays the next instead of piling up.
func (r *Runner) Every(name string, interval time.Duration, fn Func) {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.tasks[id] = &repeating{name: name, interval: interval, fn: fn}
	r.sched.push(id, r.now().Add(interval))
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Go runs fn on its own goroutine. Tasks started after Run returned still
// run, with an already cancelled context.
func (r *Runner) Go(name string, fn Func) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.exec(name, fn)
	}()
}

// Wait blocks until all fire-and-forget tasks have returned.
func (r *Runner) Wait() { r.wg.Wait() }

// Run drives repeating tasks until ctx is done.
func (r *Runner) Run(ctx context.Context) {
	defer r.cancel()
	stop := context.AfterFunc(ctx, r.cancel)
	defer stop()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		r.mu.Lock()
		_, when, ok := r.sched.next()
		r.mu.Unlock()

		var due <-chan time.Time
		if ok {
			timer.Reset(when.Sub(r.now()))
			due = timer.C
		}

		select {
		case <-ctx.Done():
			r.mu.Lock()
			pending := r.sched.len()
			r.mu.Unlock()
			r.log.Debug("runner stopped", zap.String("reason", ctx.Err().Error()), zap.Int("tasks", pending))
			return

		case <-r.wake:
			timer.Stop()
			continue

		case <-due:
			id, t, ok := r.takeDue()
			if !ok {
				continue
			}

			r.exec(t.name, t.fn)

			r.mu.Lock()
			r.sched.push(id, r.now().Add(t.interval))
			r.mu.Unlock()
		}
	}
}

// takeDue pops the head of the schedule if it is due. The head is re-read
// here because Every may have pushed an earlier event since the timer was
// armed.
func (r *Runner) takeDue() (int64, *repeating, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, when, ok := r.sched.next()
	if !ok || when.After(r.now()) {
		return 0, nil, false
	}
	r.sched.pop()
	return id, r.tasks[id], true
}

// exec runs one task, converting a panic into a log line.
func (r *Runner) exec(name string, fn Func) {
	defer func() {
		if err := recover(); err != nil {
			buf := make([]byte, 4096)
			buf = buf[:runtime.Stack(buf, false)]
			r.log.Error("task panicked",
				zap.String("task", name),
				zap.String("panic", fmt.Sprint(err)),
				zap.ByteString("stack", buf))
		}
	}()
	fn(r.ctx)
}
