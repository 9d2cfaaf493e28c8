package http

import (
	"net/http"
	"strings"
	"sync"
	"time"
)

// Fault makes matching requests fail or stall. Path is relative to BasePath.
type Fault struct {
	Method string
	Path   string
	// Status, when non-zero, is answered instead of calling the handler.
	Status  int
	Message string
	// Delay stalls the request before it is answered or handled.
	Delay time.Duration
	// Times limits how many requests the fault hits; zero means every one.
	Times int
}

// Faults is a table of injected failures, used to exercise client retry and
// rollback paths against a real server.
type Faults struct {
	mu     sync.Mutex
	faults []*Fault
}

// Add registers f.
func (fs *Faults) Add(f Fault) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.faults = append(fs.faults, &f)
}

// Reset removes every fault.
func (fs *Faults) Reset() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.faults = nil
}

func (fs *Faults) take(method, path string) (Fault, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for i, f := range fs.faults {
		if f.Method != method || f.Path != path {
			continue
		}
		hit := *f
		if f.Times > 0 {
			f.Times--
			if f.Times == 0 {
				fs.faults = append(fs.faults[:i], fs.faults[i+1:]...)
			}
		}
		return hit, true
	}
	return Fault{}, false
}

// Middleware applies the first matching fault to each request.
func (fs *Faults) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := fs.take(r.Method, strings.TrimPrefix(r.URL.Path, BasePath))
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		if f.Delay > 0 {
			t := time.NewTimer(f.Delay)
			select {
			case <-t.C:
			case <-r.Context().Done():
				t.Stop()
				return
			}
		}
		if f.Status == 0 {
			next.ServeHTTP(w, r)
			return
		}
		msg := f.Message
		if msg == "" {
			msg = http.StatusText(f.Status)
		}
		writeError(w, f.Status, msg)
	})
}
