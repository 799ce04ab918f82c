package ratelimit

import (
	"fmt"
	"net/http"

	derrors "kompas/pkg/domain-errors"
	"kompas/pkg/platform/httputil"
	"kompas/pkg/requestcontext"
)

// Middleware enforces the budget per caller. Authenticated callers are keyed
// by their caller ID, anonymous ones by client IP.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		identity := requestcontext.CallerID(ctx)
		if identity == "" {
			identity = requestcontext.ClientIP(ctx)
		}
		if identity == "" {
			identity = r.RemoteAddr
		}

		decision := s.TryAcquire(ctx, identity)
		if !decision.Allowed {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(decision.RetryAfter.Seconds())))
			httputil.WriteError(w, derrors.New(derrors.CodeRateLimited, "request budget exhausted"))
			return
		}

		next.ServeHTTP(w, r)
	})
}
