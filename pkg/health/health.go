package health

import (
	"net/http"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// HealthChecker manages the reconciler's readiness state: ready once a
// tick has completed without error, not ready again the moment one
// fails (§5 "readiness tracks the most recent tick's outcome").
type HealthChecker struct {
	// ready is an atomic flag that indicates readiness state
	ready atomic.Bool
	log   *logrus.Entry
}

// NewHealthChecker creates a new health checker. log may be nil, in
// which case readiness transitions are not logged.
func NewHealthChecker(log *logrus.Entry) *HealthChecker {
	hc := &HealthChecker{log: log}
	// Set ready to false initially
	hc.ready.Store(false)
	return hc
}

// SetReady sets the readiness state, logging the transition with the
// same structured fields the rest of the reconciler uses.
func (hc *HealthChecker) SetReady(ready bool) {
	if hc.ready.Swap(ready) == ready {
		return
	}
	if hc.log != nil {
		hc.log.WithFields(logrus.Fields{"op": "set_ready", "ready": ready}).Info("readiness changed")
	}
}

// IsReady returns the current readiness state
func (hc *HealthChecker) IsReady() bool {
	return hc.ready.Load()
}

// LivenessHandler returns an HTTP handler for liveness checks
// Liveness checks only verify that the server is responding
func (hc *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
}

// ReadinessHandler returns an HTTP handler for readiness checks
// Readiness checks verify that the server is ready to receive requests
func (hc *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hc.IsReady() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("not ready"))
		}
	})
}

// AttachHealthEndpoints attaches health check endpoints to the given ServeMux
func AttachHealthEndpoints(mux *http.ServeMux, checker *HealthChecker) {
	mux.Handle("/healthz", checker.LivenessHandler())
	mux.Handle("/readyz", checker.ReadinessHandler())
}
