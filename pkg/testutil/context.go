package testutil

import (
	"net/http"

	"atatek/pkg/requestcontext"
)

// WithUser attaches an authenticated user id to the request, as the auth
// middleware would after reading the gateway header.
func WithUser(req *http.Request, userID int64) *http.Request {
	return req.WithContext(requestcontext.WithUserID(req.Context(), userID))
}
