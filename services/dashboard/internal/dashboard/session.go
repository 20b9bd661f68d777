package dashboard

import (
	"net/http"
	"strings"

	"github.com/appetiteclub/posboard/services/dashboard/internal/posapi"
)

const (
	HeaderRole     = "X-User-Role"
	HeaderBranchID = "X-Branch-ID"
	HeaderTerminal = "X-Terminal"
)

// sessionFromRequest reads the caller identity the browser forwards.
// Nothing here is verified; the backend owns authentication.
func sessionFromRequest(r *http.Request) posapi.Session {
	token := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return posapi.Session{
		Token:    token,
		Role:     strings.TrimSpace(r.Header.Get(HeaderRole)),
		BranchID: strings.TrimSpace(r.Header.Get(HeaderBranchID)),
		Terminal: strings.TrimSpace(r.Header.Get(HeaderTerminal)),
	}
}

// SessionMiddleware stores the request session in the request context.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFromRequest(r)
		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), sess)))
	})
}
