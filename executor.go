package relay

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// Executor schedules tasks for later execution, possibly on another
// goroutine. Implementations must be safe to call from any goroutine.
// There are no ordering guarantees between tasks on distinct executors.
type Executor interface {
	// Execute schedules task to run.
	Execute(task func())

	// ExecuteAfter schedules task to run after at least d has elapsed.
	ExecuteAfter(d time.Duration, task func())
}

// ExecutorOption configures an executor at construction.
type ExecutorOption func(*executorConfig)

type executorConfig struct {
	clock clockz.Clock
}

// WithExecutorClock sets the clock used for delayed dispatch.
// Use this with clockz.FakeClock for deterministic timing tests.
func WithExecutorClock(clock clockz.Clock) ExecutorOption {
	return func(c *executorConfig) {
		c.clock = clock
	}
}

func newExecutorConfig(opts []ExecutorOption) executorConfig {
	cfg := executorConfig{clock: clockz.RealClock}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// runTask runs task, converting a panic into a signal emission instead
// of killing the worker goroutine.
func runTask(task func()) {
	defer func() {
		if v := recover(); v != nil {
			capitan.Emit(context.Background(), ExecutorTaskPanicked,
				KeyPanic.Field(fmt.Sprintf("%v", v)),
			)
		}
	}()
	task()
}

// -----------------------------------------------------------------------------
// Delayed dispatch
// -----------------------------------------------------------------------------

// timedTask is a task with a fire time. seq breaks ties so tasks
// scheduled with equal delays fire in scheduling order.
type timedTask struct {
	at  time.Time
	seq uint64
	run func()
}

// delayQueue orders delayed tasks by fire time and hands each to a
// submit function when due. A single dispatcher goroutine waits on the
// earliest deadline; it exits when the queue empties and is respawned
// on the next schedule call. Tasks with equal fire times are submitted
// in scheduling order, which is what lets serial executors preserve
// the order of equally-delayed tasks.
type delayQueue struct {
	clock  clockz.Clock
	submit func(func())
	wake   chan struct{}

	mu      sync.Mutex
	heap    []timedTask
	seq     uint64
	running bool
}

func newDelayQueue(clock clockz.Clock, submit func(func())) *delayQueue {
	return &delayQueue{
		clock:  clock,
		submit: submit,
		wake:   make(chan struct{}, 1),
	}
}

func (q *delayQueue) schedule(d time.Duration, task func()) {
	q.mu.Lock()
	q.seq++
	q.push(timedTask{at: q.clock.Now().Add(d), seq: q.seq, run: task})
	if !q.running {
		q.running = true
		q.mu.Unlock()
		go q.loop()
		return
	}
	q.mu.Unlock()

	// Nudge the dispatcher in case the new task fires earlier than the
	// deadline it is currently waiting on.
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *delayQueue) loop() {
	for {
		q.mu.Lock()
		if len(q.heap) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		next := q.heap[0]
		now := q.clock.Now()
		if !next.at.After(now) {
			q.pop()
			q.mu.Unlock()
			q.submit(next.run)
			continue
		}
		wait := next.at.Sub(now)
		q.mu.Unlock()

		timer := q.clock.NewTimer(wait)
		select {
		case <-timer.C():
		case <-q.wake:
			timer.Stop()
		}
	}
}

func (q *delayQueue) less(i, j int) bool {
	if q.heap[i].at.Equal(q.heap[j].at) {
		return q.heap[i].seq < q.heap[j].seq
	}
	return q.heap[i].at.Before(q.heap[j].at)
}

func (q *delayQueue) push(t timedTask) {
	q.heap = append(q.heap, t)
	i := len(q.heap) - 1
	for i > 0 {
		parent := (i - 1) / 2
		if !q.less(i, parent) {
			break
		}
		q.heap[i], q.heap[parent] = q.heap[parent], q.heap[i]
		i = parent
	}
}

func (q *delayQueue) pop() {
	last := len(q.heap) - 1
	q.heap[0] = q.heap[last]
	q.heap = q.heap[:last]
	i := 0
	for {
		left, right := 2*i+1, 2*i+2
		smallest := i
		if left < len(q.heap) && q.less(left, smallest) {
			smallest = left
		}
		if right < len(q.heap) && q.less(right, smallest) {
			smallest = right
		}
		if smallest == i {
			return
		}
		q.heap[i], q.heap[smallest] = q.heap[smallest], q.heap[i]
		i = smallest
	}
}

// -----------------------------------------------------------------------------
// Immediate executor
// -----------------------------------------------------------------------------

type immediateExecutor struct {
	delay *delayQueue
}

// Execute runs task synchronously on the caller's goroutine.
func (e *immediateExecutor) Execute(task func()) {
	task()
}

// ExecuteAfter runs task on the dispatcher goroutine once d elapses.
func (e *immediateExecutor) ExecuteAfter(d time.Duration, task func()) {
	e.delay.schedule(d, task)
}

// NewImmediate returns an executor that runs tasks inline on the
// calling goroutine. Combinators subscribe upstream with an immediate
// executor so their transforms do not cross a scheduling hop.
func NewImmediate(opts ...ExecutorOption) Executor {
	cfg := newExecutorConfig(opts)
	e := &immediateExecutor{}
	e.delay = newDelayQueue(cfg.clock, func(task func()) { runTask(task) })
	return e
}

// -----------------------------------------------------------------------------
// Serial executor
// -----------------------------------------------------------------------------

type serialExecutor struct {
	delay *delayQueue

	mu      sync.Mutex
	queue   []func()
	running bool
}

// NewSerial returns an executor backed by a single logical queue.
// Tasks run one at a time in submission order; the drain goroutine
// exits when the queue empties and is respawned on the next Execute.
func NewSerial(opts ...ExecutorOption) Executor {
	cfg := newExecutorConfig(opts)
	e := &serialExecutor{}
	e.delay = newDelayQueue(cfg.clock, e.Execute)
	return e
}

func (e *serialExecutor) Execute(task func()) {
	e.mu.Lock()
	e.queue = append(e.queue, task)
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.mu.Unlock()
	go e.drain()
}

func (e *serialExecutor) drain() {
	for {
		e.mu.Lock()
		if len(e.queue) == 0 {
			e.running = false
			e.mu.Unlock()
			return
		}
		task := e.queue[0]
		e.queue = e.queue[1:]
		e.mu.Unlock()
		runTask(task)
	}
}

func (e *serialExecutor) ExecuteAfter(d time.Duration, task func()) {
	e.delay.schedule(d, task)
}

// -----------------------------------------------------------------------------
// Pool executor
// -----------------------------------------------------------------------------

type poolExecutor struct {
	tasks chan func()
	delay *delayQueue
}

// NewPool returns an executor backed by a fixed pool of worker
// goroutines. Tasks may run concurrently and in any order relative to
// each other; equally-delayed tasks are still released to the pool in
// scheduling order.
func NewPool(workers int, opts ...ExecutorOption) Executor {
	if workers < 1 {
		workers = 1
	}
	cfg := newExecutorConfig(opts)
	e := &poolExecutor{tasks: make(chan func(), 1024)}
	e.delay = newDelayQueue(cfg.clock, e.Execute)
	for i := 0; i < workers; i++ {
		go e.worker()
	}
	return e
}

func (e *poolExecutor) worker() {
	for task := range e.tasks {
		runTask(task)
	}
}

func (e *poolExecutor) Execute(task func()) {
	select {
	case e.tasks <- task:
	default:
		// Queue saturated. Overflow onto a fresh goroutine rather than
		// block the caller; the library never blocks on dispatch.
		go runTask(task)
	}
}

func (e *poolExecutor) ExecuteAfter(d time.Duration, task func()) {
	e.delay.schedule(d, task)
}

// -----------------------------------------------------------------------------
// Shared instances
// -----------------------------------------------------------------------------

var (
	immediateInstance = sync.OnceValue(func() Executor { return NewImmediate() })
	mainInstance      = sync.OnceValue(func() Executor { return NewSerial() })
	primaryInstance   = sync.OnceValue(func() Executor { return NewPool(runtime.GOMAXPROCS(0)) })
)

// Immediate returns the shared inline executor.
func Immediate() Executor {
	return immediateInstance()
}

// Main returns the shared serial executor. Tasks submitted to it run
// one at a time in submission order, process-wide.
func Main() Executor {
	return mainInstance()
}

// Primary returns the shared worker pool, sized to GOMAXPROCS. This is
// the default background executor.
func Primary() Executor {
	return primaryInstance()
}
