package dashboard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/appetiteclub/posboard/services/dashboard/internal/posapi"
)

func TestSessionFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    posapi.Session
	}{
		{
			name: "allHeaders",
			headers: map[string]string{
				"Authorization": "Bearer abc",
				HeaderRole:      "branch_admin",
				HeaderBranchID:  "3",
				HeaderTerminal:  " 12 ",
			},
			want: posapi.Session{Token: "abc", Role: "branch_admin", BranchID: "3", Terminal: "12"},
		},
		{
			name:    "lowercaseScheme",
			headers: map[string]string{"Authorization": "bearer xyz"},
			want:    posapi.Session{Token: "xyz"},
		},
		{
			name:    "rawToken",
			headers: map[string]string{"Authorization": "xyz"},
			want:    posapi.Session{Token: "xyz"},
		},
		{
			name: "empty",
			want: posapi.Session{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := sessionFromRequest(req); got != tt.want {
				t.Errorf("sessionFromRequest() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSessionMiddleware(t *testing.T) {
	var got posapi.Session
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = getSessionFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRole, "accountant")
	SessionMiddleware(next).ServeHTTP(httptest.NewRecorder(), req)

	if got.Role != "accountant" {
		t.Errorf("Role = %q, want accountant", got.Role)
	}
}

func TestGetSessionFromContext(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want posapi.Session
	}{
		{name: "withSession", ctx: withSession(context.Background(), posapi.Session{Role: "order_taker"}), want: posapi.Session{Role: "order_taker"}},
		{name: "withoutSession", ctx: context.Background()},
		{name: "withWrongType", ctx: context.WithValue(context.Background(), contextKeySession, "order_taker")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getSessionFromContext(tt.ctx); got != tt.want {
				t.Errorf("getSessionFromContext() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRoleViews(t *testing.T) {
	tests := []struct {
		role     string
		resource string
		want     bool
	}{
		{"super_admin", "branches", true},
		{"branch_admin", "branches", false},
		{"branch_admin", "users", true},
		{"accountant", "bills", true},
		{"accountant", "dishes", false},
		{"order_taker", "orders", true},
		{"Order-Taker", "halls", true},
		{"chef", "orders", false},
	}

	for _, tt := range tests {
		if got := Offers(tt.role, tt.resource); got != tt.want {
			t.Errorf("Offers(%q, %q) = %v, want %v", tt.role, tt.resource, got, tt.want)
		}
	}

	for _, resources := range views {
		for _, name := range resources {
			if _, ok := posapi.Lookup(name); !ok {
				t.Errorf("view lists unknown resource %q", name)
			}
		}
	}
}
