package monitoring

import (
	"fmt"
	"time"
)

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	CapturePanic(v any, tags map[string]string)
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) CapturePanic(any, map[string]string)       {}
func (NopMonitor) Flush(time.Duration)                       {}

var current Monitor = NopMonitor{}

// Init sets the global monitor implementation.
func Init(m Monitor) {
	if m != nil {
		current = m
	}
}

// CaptureException records the error with optional tags.
func CaptureException(err error, tags map[string]string) {
	if current != nil && err != nil {
		current.CaptureException(err, tags)
	}
}

// CapturePanic records a recovered panic value.
func CapturePanic(v any, tags map[string]string) {
	if current != nil && v != nil {
		current.CapturePanic(v, tags)
	}
}

// Recover reports a panic of the calling goroutine and swallows it. It must
// be deferred directly: defer monitoring.Recover().
func Recover() {
	if r := recover(); r != nil {
		if current != nil {
			current.CapturePanic(r, nil)
		}
	}
}

// Go runs fn on a new goroutine whose panics are reported instead of
// crashing the process.
func Go(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil && current != nil {
				current.CapturePanic(fmt.Errorf("%s: %v", name, r), map[string]string{"goroutine": name})
			}
		}()
		fn()
	}()
}

// Flush flushes buffered events.
func Flush(d time.Duration) {
	if current != nil {
		current.Flush(d)
	}
}
