package handlers

import (
	"net/http"

	"github.com/bookcourier/bookcourier/internal/auth"
	"github.com/bookcourier/bookcourier/internal/logging"
)

// RequireIdentity resolves the bearer token into a verified identity
// and stores it on the request context. Requests without a valid token
// never reach the wrapped handler.
func (h *Handlers) RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			h.writeError(w, r, http.StatusUnauthorized, "missing bearer token")
			return
		}

		identity, err := h.verifier.Verify(r.Context(), token)
		if err != nil {
			h.loggerFromContext(r.Context()).Warn("token verification failed", "error", err)
			h.writeError(w, r, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := auth.WithIdentity(r.Context(), identity)
		logger := h.loggerFromContext(ctx).With("user_email", identity.Email)
		ctx = logging.WithLogger(ctx, logger)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// identity returns the verified caller. Handlers registered behind
// RequireIdentity can rely on ok being true.
func (h *Handlers) identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.writeError(w, r, http.StatusUnauthorized, "missing identity")
	}
	return identity, ok
}
