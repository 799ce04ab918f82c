// Package middleware carries the cross-cutting HTTP middleware: request
// metadata propagation and admin endpoint authentication.
package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	derrors "kompas/pkg/domain-errors"
	"kompas/pkg/platform/httputil"
	"kompas/pkg/requestcontext"
)

// RequestMetadata stamps each request with a request ID and the client IP and
// makes both available downstream via the request context.
func RequestMetadata(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", requestID)

			ctx := requestcontext.WithRequestID(r.Context(), requestID)
			ctx = requestcontext.WithClientIP(ctx, clientIP(r))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.IndexByte(fwd, ','); idx >= 0 {
			fwd = fwd[:idx]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// AdminAuth requires a valid HS256 bearer token on admin routes. The token
// subject becomes the caller identity for rate limiting and audit.
func AdminAuth(signingKey string, logger *slog.Logger) func(http.Handler) http.Handler {
	key := []byte(signingKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				httputil.WriteError(w, derrors.New(derrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			claims := &jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return key, nil
			})
			if err != nil || !token.Valid {
				if logger != nil {
					logger.WarnContext(r.Context(), "admin token rejected", "error", err)
				}
				httputil.WriteError(w, derrors.New(derrors.CodeUnauthorized, "invalid bearer token"))
				return
			}

			ctx := requestcontext.WithCallerID(r.Context(), claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return ""
	}
	return auth[len(prefix):]
}
