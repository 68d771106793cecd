// Package httpserver builds the process's single HTTP server.
package httpserver

import (
	"net/http"
	"time"
)

// New wires the router into an http.Server. Per-route deadlines come from
// the Timeout middleware, so only the header read is bounded here; a
// server-wide write timeout would cut off the admin sweep endpoint, whose
// response waits on a full run.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
