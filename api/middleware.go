package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/opsdesk/vacation-ledger/ledger"
)

// Actor headers. Authentication happens in front of this service (reverse
// proxy or identity-aware gateway); these headers carry its result.
const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorName = "X-Actor-Name"
	HeaderActorRole = "X-Actor-Role"
)

type actorKey struct{}

// ActorMiddleware resolves the caller from the actor headers. A missing or
// unknown role resolves to read-only.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := ledger.Actor{
			ID:   strings.TrimSpace(r.Header.Get(HeaderActorID)),
			Name: strings.TrimSpace(r.Header.Get(HeaderActorName)),
			Role: ledger.ParseRole(r.Header.Get(HeaderActorRole)),
		}
		if actor.Name == "" {
			actor.Name = actor.ID
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey{}, actor)))
	})
}

// ActorFrom returns the actor stored by ActorMiddleware, or an anonymous
// read-only actor.
func ActorFrom(ctx context.Context) ledger.Actor {
	if a, ok := ctx.Value(actorKey{}).(ledger.Actor); ok {
		return a
	}
	return ledger.Actor{Role: ledger.RoleReadOnly}
}

// RequestLogger logs one line per request with zap.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Info("request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
