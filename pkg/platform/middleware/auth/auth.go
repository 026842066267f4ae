// Package auth attaches the caller identity to the request context.
//
// Token validation happens at the edge gateway, which forwards the
// authenticated subject in HeaderUserID. This middleware only parses and
// propagates it.
package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"atatek/pkg/requestcontext"
)

// HeaderUserID carries the authenticated subject set by the gateway.
const HeaderUserID = "X-User-ID"

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","message":"%s"}`, errCode, errDesc))
}

// RequireUser rejects requests without a positive numeric subject.
func RequireUser(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(HeaderUserID))
			if raw == "" {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}
			userID, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || userID <= 0 {
				if logger != nil {
					logger.WarnContext(r.Context(), "rejected malformed subject header",
						"request_id", requestcontext.RequestID(r.Context()),
						"value", raw,
					)
				}
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "invalid subject")
				return
			}
			ctx := requestcontext.WithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
