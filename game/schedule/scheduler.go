package schedule

import (
	"sort"
	"sync"
	"time"
)

// Task names used by the game engine
const (
	TaskEvaluate    = "evaluate"
	TaskCompletion  = "completion"
	TaskCelebration = "celebration"
	TaskAutoReset   = "auto_reset"
)

// Token identifies a scheduled task and allows cancelling it
type Token interface {
	// Name returns the task name given at scheduling time
	Name() string
	// Cancel prevents the task from running. It reports whether the task
	// was still pending.
	Cancel() bool
}

// Scheduler runs named callbacks after a delay
type Scheduler interface {
	After(name string, delay time.Duration, fn func()) Token
}

// RealTime schedules callbacks on the wall clock using time.AfterFunc
type RealTime struct{}

// NewRealTime creates a wall clock scheduler
func NewRealTime() *RealTime {
	return &RealTime{}
}

// After schedules fn to run on its own goroutine once delay has elapsed
func (RealTime) After(name string, delay time.Duration, fn func()) Token {
	return &timerToken{
		name:  name,
		timer: time.AfterFunc(delay, fn),
	}
}

type timerToken struct {
	name  string
	timer *time.Timer
}

func (t *timerToken) Name() string { return t.name }

func (t *timerToken) Cancel() bool {
	return t.timer.Stop()
}

// Manual is a virtual clock scheduler. Time only moves when Advance is
// called, which makes timer driven behavior deterministic in tests.
type Manual struct {
	mu    sync.Mutex
	now   time.Duration
	seq   uint64
	tasks []*manualTask
}

// NewManual creates a virtual clock starting at zero
func NewManual() *Manual {
	return &Manual{}
}

type manualTask struct {
	owner     *Manual
	name      string
	due       time.Duration
	seq       uint64
	fn        func()
	cancelled bool
	fired     bool
}

func (t *manualTask) Name() string { return t.name }

func (t *manualTask) Cancel() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()

	if t.cancelled || t.fired {
		return false
	}
	t.cancelled = true
	return true
}

// After queues fn to run when the virtual clock reaches now+delay
func (m *Manual) After(name string, delay time.Duration, fn func()) Token {
	m.mu.Lock()
	defer m.mu.Unlock()

	if delay < 0 {
		delay = 0
	}
	m.seq++
	task := &manualTask{
		owner: m,
		name:  name,
		due:   m.now + delay,
		seq:   m.seq,
		fn:    fn,
	}
	m.tasks = append(m.tasks, task)
	return task
}

// Advance moves the clock forward by d and runs every task that becomes due,
// in (due time, scheduling order). Tasks scheduled by a running task are run
// in the same call when they fall inside the window.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		task := m.nextDue(target)
		if task == nil {
			break
		}
		task.fn()
	}

	m.mu.Lock()
	m.now = target
	m.mu.Unlock()
}

// nextDue pops the earliest pending task due at or before target and moves
// the clock to its due time
func (m *Manual) nextDue(target time.Duration) *manualTask {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.compact()
	if len(m.tasks) == 0 {
		return nil
	}

	sort.SliceStable(m.tasks, func(i, j int) bool {
		if m.tasks[i].due != m.tasks[j].due {
			return m.tasks[i].due < m.tasks[j].due
		}
		return m.tasks[i].seq < m.tasks[j].seq
	})

	task := m.tasks[0]
	if task.due > target {
		return nil
	}
	m.tasks = m.tasks[1:]
	task.fired = true
	m.now = task.due
	return task
}

// compact drops cancelled tasks. Caller must hold mu.
func (m *Manual) compact() {
	live := m.tasks[:0]
	for _, t := range m.tasks {
		if !t.cancelled {
			live = append(live, t)
		}
	}
	m.tasks = live
}

// Now returns the elapsed virtual time
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Pending returns the names of tasks that are still waiting to run, in the
// order they will fire
func (m *Manual) Pending() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.compact()
	tasks := make([]*manualTask, len(m.tasks))
	copy(tasks, m.tasks)
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].due != tasks[j].due {
			return tasks[i].due < tasks[j].due
		}
		return tasks[i].seq < tasks[j].seq
	})

	names := make([]string, 0, len(tasks))
	for _, t := range tasks {
		names = append(names, t.name)
	}
	return names
}

// PendingCount returns how many tasks with the given name are waiting
func (m *Manual) PendingCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, t := range m.tasks {
		if t.name == name && !t.cancelled {
			count++
		}
	}
	return count
}
