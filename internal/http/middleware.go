package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fjod/food-orders/internal/domain"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	identityKey  contextKey = "identity"
	loggerKey    contextKey = "logger"
)

const sessionHeader = "X-Session-ID"

// TokenVerifier turns a bearer token into the identity it vouches for.
type TokenVerifier interface {
	Verify(token string) (*domain.Identity, error)
}

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AccessLog attaches a request scoped logger and writes one line per request.
func AccessLog(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLogger := logger.With().Str("request_id", getRequestID(r.Context())).Logger()
			holder := &identityHolder{}
			ctx := context.WithValue(r.Context(), loggerKey, reqLogger)
			ctx = context.WithValue(ctx, identityKey, holder)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			subject := ""
			if holder.identity != nil {
				subject = holder.identity.Subject
			}
			reqLogger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("user_id", subject).
				Msg("request completed")
		})
	}
}

// Authenticate resolves the bearer token when one is sent. Requests without
// a token pass through anonymously; a bad token is rejected outright.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				respondError(w, r, http.StatusUnauthorized, "unauthenticated", "malformed authorization header")
				return
			}
			identity, err := verifier.Verify(token)
			if err != nil {
				respondError(w, r, http.StatusUnauthorized, "unauthenticated", "invalid or expired token")
				return
			}

			// AccessLog installed the holder and reads the identity back from it
			if holder, ok := r.Context().Value(identityKey).(*identityHolder); ok {
				holder.identity = identity
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), identityKey, &identityHolder{identity: identity})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type identityHolder struct {
	identity *domain.Identity
}

func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !identityFromContext(r.Context()).IsAuthenticated() {
			handleServiceError(w, r, domain.ErrAuthenticationRequired)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := identityFromContext(r.Context())
		switch {
		case !id.IsAuthenticated():
			handleServiceError(w, r, domain.ErrAuthenticationRequired)
		case !id.IsAdmin():
			handleServiceError(w, r, domain.ErrPermissionDenied)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func identityFromContext(ctx context.Context) *domain.Identity {
	if holder, ok := ctx.Value(identityKey).(*identityHolder); ok {
		return holder.identity
	}
	return nil
}

func getRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

func loggerFrom(r *http.Request) *zerolog.Logger {
	if l, ok := r.Context().Value(loggerKey).(zerolog.Logger); ok {
		return &l
	}
	nop := zerolog.Nop()
	return &nop
}

// Cart keys live in two namespaces so a guest id can never name a
// customer's cart.
const (
	guestSessionPrefix    = "guest:"
	customerSessionPrefix = "customer:"
)

// sessionID picks the cart session. An authenticated caller always gets the
// cart of its subject; X-Session-ID only ever names a guest cart.
func sessionID(r *http.Request) string {
	if id := identityFromContext(r.Context()); id.IsAuthenticated() {
		return customerSessionPrefix + id.Subject
	}
	return guestSessionID(r)
}

func guestSessionID(r *http.Request) string {
	if s := strings.TrimSpace(r.Header.Get(sessionHeader)); s != "" {
		return guestSessionPrefix + s
	}
	return ""
}
