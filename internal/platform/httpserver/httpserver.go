package httpserver

import (
	"net/http"
	"time"

	"atatek/internal/platform/config"
)

// writeSlack covers response encoding after the request deadline fires.
const writeSlack = 5 * time.Second

// New builds the API server. WriteTimeout trails the per-request timeout so a
// children read that spends its budget on an upstream sync can still answer.
func New(cfg config.Server, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + writeSlack,
		IdleTimeout:       120 * time.Second,
	}
}
