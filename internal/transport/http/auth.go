package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/SaugatGautam100/plexify/internal/domain"
)

// Headers set by the identity provider in front of the service.
const (
	headerUserID    = "X-User-ID"
	headerUserRole  = "X-User-Role"
	headerUserEmail = "X-User-Email"
	headerUserName  = "X-User-Name"
)

type actorKey struct{}

// Identity turns the identity headers into a domain.Actor on the request
// context. Requests without them carry the anonymous actor; the services
// decide what an anonymous caller may do.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := domain.Actor{
			ID:    strings.TrimSpace(r.Header.Get(headerUserID)),
			Email: strings.TrimSpace(r.Header.Get(headerUserEmail)),
			Name:  strings.TrimSpace(r.Header.Get(headerUserName)),
			Role:  domain.Role(strings.ToLower(strings.TrimSpace(r.Header.Get(headerUserRole)))),
		}
		ctx := context.WithValue(r.Context(), actorKey{}, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func actorFromContext(ctx context.Context) domain.Actor {
	actor, _ := ctx.Value(actorKey{}).(domain.Actor)
	return actor
}
