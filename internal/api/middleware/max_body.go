package middleware

import (
	"fmt"
	"net/http"

	"github.com/cloo-solutions/statusdigest/internal/api"
	"github.com/cloo-solutions/statusdigest/internal/domain"
)

// MaxBodyBytes caps request bodies at limit bytes. Requests that declare a
// larger Content-Length are refused before the handler runs; chunked bodies
// fail with *http.MaxBytesError once they cross the limit. GET and HEAD
// requests and a non-positive limit pass through.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > limit {
				api.HandleError(w, domain.ErrUploadTooLarge.WithCause(fmt.Errorf("limit is %d bytes", limit)))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
