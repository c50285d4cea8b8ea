package source

import "sync"

// Failure is one recorded processing failure. Consecutive repeats of
// the same stage and error collapse into a single entry with a Count,
// so a file stuck in a bad state doesn't flood the log with copies of
// the same problem.
type Failure struct {
	Stage string
	Err   error
	Count int
}

// failureLog is a bounded, thread-safe log of recent failures, oldest
// first. When the bound is exceeded the oldest entry is dropped.
type failureLog struct {
	mu      sync.Mutex
	limit   int
	entries []Failure
}

// newFailureLog creates a log retaining up to limit entries.
// A limit of 0 disables the log.
func newFailureLog(limit int) *failureLog {
	if limit <= 0 {
		return nil
	}
	return &failureLog{limit: limit}
}

// push records a failure, coalescing it into the newest entry when it
// repeats the same stage and error text.
func (l *failureLog) push(stage string, err error) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if n := len(l.entries); n > 0 {
		last := &l.entries[n-1]
		if last.Stage == stage && errText(last.Err) == errText(err) {
			last.Count++
			return
		}
	}
	l.entries = append(l.entries, Failure{Stage: stage, Err: err, Count: 1})
	if len(l.entries) > l.limit {
		l.entries = append(l.entries[:0], l.entries[1:]...)
	}
}

// clear discards all recorded failures.
func (l *failureLog) clear() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = l.entries[:0]
}

// all returns the recorded failures, oldest first.
func (l *failureLog) all() []Failure {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		return nil
	}
	return append([]Failure(nil), l.entries...)
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
