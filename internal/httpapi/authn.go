package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"facturante.ar/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/v1/auth/token",
	"/metrics",
	"/healthz",
	"/readyz",
	"/",
}

func (a *API) withAuth(next http.Handler) http.Handler {
	if a == nil || !auth.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		claims, err := auth.ParseAndValidate(token)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				writeError(w, r, http.StatusUnauthorized, "invalid token")
			} else {
				writeError(w, r, http.StatusInternalServerError, "authentication error")
			}
			return
		}

		ctx := auth.ContextWithSession(r.Context(), claims.Subject, claims.EmpresaID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// resolveEmpresa picks the empresa scope for a domain handler: the session
// when one is present, the explicit request value otherwise. An explicit
// value that contradicts the session is rejected.
func resolveEmpresa(w http.ResponseWriter, r *http.Request, explicit string) (string, bool) {
	explicit = strings.TrimSpace(explicit)
	if empresaID, ok := auth.EmpresaFromContext(r.Context()); ok {
		if explicit != "" && explicit != empresaID {
			writeError(w, r, http.StatusForbidden, "empresa fuera del alcance de la sesión")
			return "", false
		}
		return empresaID, true
	}
	if explicit == "" {
		writeError(w, r, http.StatusBadRequest, "empresa_id is required")
		return "", false
	}
	return explicit, true
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
