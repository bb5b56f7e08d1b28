package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/subwatch/backend/internal/auth"
)

func TestOperatorAuthMiddleware(t *testing.T) {
	manager := auth.NewManager("test-secret")
	token, err := manager.Generate("ops", time.Hour)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	tests := []struct {
		name       string
		manager    *auth.Manager
		header     string
		wantStatus int
		wantOp     string
	}{
		{
			name:       "pass-through when disabled",
			manager:    auth.NewManager(""),
			header:     "",
			wantStatus: http.StatusOK,
		},
		{
			name:       "valid token",
			manager:    manager,
			header:     "Bearer " + token,
			wantStatus: http.StatusOK,
			wantOp:     "ops",
		},
		{
			name:       "missing header",
			manager:    manager,
			header:     "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "malformed header",
			manager:    manager,
			header:     "Token abc",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "invalid token",
			manager:    manager,
			header:     "Bearer garbage",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotOp string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotOp, _ = GetOperator(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/pull/start", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			OperatorAuthMiddleware(tt.manager)(next).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantOp != "" && gotOp != tt.wantOp {
				t.Errorf("operator = %q, want %q", gotOp, tt.wantOp)
			}
		})
	}
}
