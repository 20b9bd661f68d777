package posapi

import (
	"net/http"
	"strconv"
	"strings"
)

// Session is the caller identity attached to every backend call.
type Session struct {
	Token    string
	Role     string
	BranchID string
	Terminal string
}

// Authenticated reports whether a bearer token is present.
func (s Session) Authenticated() bool {
	return strings.TrimSpace(s.Token) != ""
}

func (s Session) apply(req *http.Request) {
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
	if s.Role != "" {
		req.Header.Set("X-User-Role", s.Role)
	}
}

// discriminators returns the terminal and branch fields the backend
// partitions on. Numeric values are sent as numbers.
func (s Session) discriminators() map[string]interface{} {
	out := map[string]interface{}{}
	if s.Terminal != "" {
		out["terminal"] = numericOrString(s.Terminal)
	}
	if s.BranchID != "" {
		out["branch_id"] = numericOrString(s.BranchID)
	}
	return out
}

func numericOrString(s string) interface{} {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}
