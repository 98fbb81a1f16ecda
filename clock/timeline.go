package clock

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

const (
	taskScheduled int32 = iota
	taskDone
	taskCancelled
)

// timeline is one serial tick stream
// Tasks run in submission order; a stream never runs two callbacks at once
type timeline struct {
	run sync.Mutex // serializes ticks

	mu    sync.Mutex // guards now, tasks and task.next
	now   uint64
	tasks []*task

	log zerolog.Logger
}

type task struct {
	tl     *timeline
	next   uint64
	period uint64 // 0 for one-shot
	fn     func()
	state  atomic.Int32
}

func newTimeline(logger zerolog.Logger) *timeline {
	return &timeline{log: logger}
}

// add registers fn to first run after delay ticks, delay 0 behaves like 1
func (tl *timeline) add(delay, period uint64, fn func()) *task {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	t := &task{
		tl:     tl,
		next:   tl.now + max(delay, 1),
		period: period,
		fn:     fn,
	}
	tl.tasks = append(tl.tasks, t)
	return t
}

func (tl *timeline) remove(t *task) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.tasks = slices.DeleteFunc(tl.tasks, func(x *task) bool { return x == t })
}

// tick advances the stream by one tick and runs due tasks, returning how many ran
func (tl *timeline) tick() int {
	tl.run.Lock()
	defer tl.run.Unlock()

	tl.mu.Lock()
	tl.now++
	now := tl.now
	var due []*task
	for _, t := range tl.tasks {
		if t.next <= now {
			due = append(due, t)
		}
	}
	tl.mu.Unlock()

	ran := 0
	for _, t := range due {
		// Cancelled by an earlier callback in this same tick
		if t.state.Load() != taskScheduled {
			continue
		}
		tl.invoke(t)
		ran++

		if t.period == 0 {
			if t.state.CompareAndSwap(taskScheduled, taskDone) {
				tl.remove(t)
			}
			continue
		}
		tl.mu.Lock()
		t.next = now + t.period
		tl.mu.Unlock()
	}
	return ran
}

// invoke isolates the stream from a panicking callback
func (tl *timeline) invoke(t *task) {
	defer func() {
		if r := recover(); r != nil {
			tl.log.Error().Str("panic", fmt.Sprint(r)).Msg("scheduled callback panicked")
		}
	}()
	t.fn()
}

func (tl *timeline) pending() int {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return len(tl.tasks)
}

func (tl *timeline) current() uint64 {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.now
}

// Cancel stops the task; a second call or a finished one-shot returns ErrTaskNotScheduled
func (t *task) Cancel() error {
	if !t.state.CompareAndSwap(taskScheduled, taskCancelled) {
		return ErrTaskNotScheduled
	}
	t.tl.remove(t)
	return nil
}

func (t *task) Active() bool {
	return t.state.Load() == taskScheduled
}
