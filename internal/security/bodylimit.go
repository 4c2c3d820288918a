package security

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/noah-isme/storefront/internal/common"
)

// BodyLimit caps request bodies at Max bytes. Zero disables the cap.
type BodyLimit struct {
	Max int64
}

// Middleware answers 413 PAYLOAD_TOO_LARGE for oversized bodies. The body is
// read up front so handlers never see a truncated payload.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.Max <= 0 || r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength > b.Max {
			b.reject(w)
			return
		}

		buf, err := io.ReadAll(http.MaxBytesReader(w, r.Body, b.Max))
		if err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				b.reject(w)
				return
			}
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(buf))
		r.ContentLength = int64(len(buf))
		next.ServeHTTP(w, r)
	})
}

func (b BodyLimit) reject(w http.ResponseWriter) {
	common.JSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request entity too large",
		map[string]any{"maxBytes": b.Max})
}
