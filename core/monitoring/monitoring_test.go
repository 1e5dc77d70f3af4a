package monitoring

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type recMonitor struct {
	mu     sync.Mutex
	errs   []error
	panics []any
	done   chan struct{}
}

func (r *recMonitor) CaptureException(err error, _ map[string]string) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

func (r *recMonitor) CapturePanic(v any, _ map[string]string) {
	r.mu.Lock()
	r.panics = append(r.panics, v)
	r.mu.Unlock()
	if r.done != nil {
		close(r.done)
	}
}

func (r *recMonitor) Flush(time.Duration) {}

func TestGoReportsPanic(t *testing.T) {
	m := &recMonitor{done: make(chan struct{})}
	Init(m)
	defer Init(NopMonitor{})
	Go("worker", func() { panic("boom") })
	select {
	case <-m.done:
	case <-time.After(time.Second):
		t.Fatalf("panic not reported")
	}
	CaptureException(errors.New("x"), nil)
	CaptureException(nil, nil)
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.errs) != 1 || len(m.panics) != 1 {
		t.Fatalf("unexpected captures %v %v", m.errs, m.panics)
	}
}

func TestRecoverSwallowsPanic(t *testing.T) {
	m := &recMonitor{}
	Init(m)
	defer Init(NopMonitor{})
	func() {
		defer Recover()
		panic("inline")
	}()
	if len(m.panics) != 1 {
		t.Fatalf("panic not captured")
	}
}
