package handlers

import (
	"context"
	"net/http"
	"strings"

	"wmsinbound/inbound"
)

// Headers set by the upstream auth proxy.
const (
	HeaderActorID       = "X-Actor-ID"
	HeaderActorElevated = "X-Actor-Elevated"
)

type actorKey struct{}

// Identity reads the caller identity headers into the request context.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := inbound.Actor{
			ID:       strings.TrimSpace(r.Header.Get(HeaderActorID)),
			Elevated: strings.EqualFold(r.Header.Get(HeaderActorElevated), "true"),
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey{}, actor)))
	})
}

// RequireActor rejects requests without an actor id.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ActorFrom(r.Context()).ID == "" {
			writeJSONError(w, http.StatusUnauthorized, "missing "+HeaderActorID+" header", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func ActorFrom(ctx context.Context) inbound.Actor {
	actor, _ := ctx.Value(actorKey{}).(inbound.Actor)
	return actor
}
