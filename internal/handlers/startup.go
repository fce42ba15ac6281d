package handlers

import (
	"net/http"
	"sync"
)

// StartupStep is one stage of server initialization
type StartupStep struct {
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

// StartupStatus is a snapshot of initialization progress
type StartupStatus struct {
	Ready    bool          `json:"ready"`
	Current  string        `json:"current"`
	Progress int           `json:"progress"`
	Steps    []StartupStep `json:"steps"`
}

// Readiness serves traffic while the server initializes. Until MarkReady
// installs the application handler every request except /healthz and
// /readyz gets a 503.
type Readiness struct {
	mu      sync.RWMutex
	status  StartupStatus
	handler http.Handler
}

// NewReadiness tracks the named initialization steps
func NewReadiness(steps ...string) *Readiness {
	r := &Readiness{status: StartupStatus{Current: "Initializing..."}}
	for _, name := range steps {
		r.status.Steps = append(r.status.Steps, StartupStep{Name: name})
	}
	return r
}

// SetCurrentStep updates the current initialization step
func (r *Readiness) SetCurrentStep(step string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.Current = step
}

// CompleteStep marks a step as completed and updates progress
func (r *Readiness) CompleteStep(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	completed := 0
	for i := range r.status.Steps {
		if r.status.Steps[i].Name == name {
			r.status.Steps[i].Completed = true
		}
		if r.status.Steps[i].Completed {
			completed++
		}
	}
	if len(r.status.Steps) > 0 {
		r.status.Progress = completed * 100 / len(r.status.Steps)
	}
}

// MarkReady installs the application handler and starts routing to it
func (r *Readiness) MarkReady(handler http.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handler = handler
	r.status.Ready = true
	r.status.Current = "Server ready"
	r.status.Progress = 100
}

// MarkNotReady fails /readyz while requests keep flowing, for draining
func (r *Readiness) MarkNotReady(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.Ready = false
	r.status.Current = reason
}

// Status returns a copy of the current progress
func (r *Readiness) Status() StartupStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.status
	s.Steps = append([]StartupStep(nil), r.status.Steps...)
	return s
}

func (r *Readiness) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method == http.MethodGet && req.URL.Path == "/readyz" {
		status := r.Status()
		code := http.StatusOK
		if !status.Ready {
			code = http.StatusServiceUnavailable
		}
		respondWithJSON(w, code, status)
		return
	}

	r.mu.RLock()
	handler := r.handler
	r.mu.RUnlock()

	if handler != nil {
		handler.ServeHTTP(w, req)
		return
	}
	if req.Method == http.MethodGet && req.URL.Path == "/healthz" {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "starting"})
		return
	}
	w.Header().Set("Retry-After", "5")
	respondWithJSON(w, http.StatusServiceUnavailable, errorBody{Error: "Server is starting"})
}
