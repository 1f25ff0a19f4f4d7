package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"webpoptimizer/internal/middleware"
	"webpoptimizer/internal/security"
	"webpoptimizer/internal/testutil"
)

func TestRequireAdmin(t *testing.T) {
	creds := security.AdminCredentials{User: "admin", PasswordHash: testutil.HashPassword(t, "s3cret")}

	var got security.Principal
	h := middleware.RequireAdmin(creds, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = security.PrincipalFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name     string
		user     string
		password string
		noAuth   bool
		want     int
	}{
		{name: "no credentials", noAuth: true, want: http.StatusUnauthorized},
		{name: "wrong password", user: "admin", password: "bad", want: http.StatusUnauthorized},
		{name: "wrong user", user: "root", password: "s3cret", want: http.StatusUnauthorized},
		{name: "valid", user: "admin", password: "s3cret", want: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = security.Principal{}
			req := httptest.NewRequest("GET", "/admin/stats", nil)
			if !tt.noAuth {
				req.SetBasicAuth(tt.user, tt.password)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, w.Code)
			}
			if tt.want == http.StatusUnauthorized {
				if w.Header().Get("WWW-Authenticate") == "" {
					t.Error("expected WWW-Authenticate challenge")
				}
				return
			}
			if !got.Admin || got.Name != "admin" {
				t.Errorf("principal not propagated: %+v", got)
			}
		})
	}
}
