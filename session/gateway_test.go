package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"driverapp/api"
)

func newTestGateway(t *testing.T, handler http.Handler) *Gateway {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := api.NewClient(api.Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return NewGateway(client)
}

func TestGatewayLogin(t *testing.T) {
	gateway := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login/driver" {
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var creds Credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			t.Fatalf("decode credentials: %v", err)
		}
		if creds.Email != "ann@example.com" {
			t.Errorf("unexpected email: %s", creds.Email)
		}
		json.NewEncoder(w).Encode(loginResponse{
			Message:     "ok",
			AccessToken: "bearer-1",
			User:        BackendUser{ID: "u1", Email: creds.Email, Name: "Ann", Role: "driver"},
		})
	}))

	result, err := gateway.Login(context.Background(), Credentials{Email: "ann@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.AccessToken != "bearer-1" {
		t.Fatalf("unexpected token: %s", result.AccessToken)
	}
	if result.User.ID != "u1" {
		t.Fatalf("unexpected user: %+v", result.User)
	}
}

func TestGatewayValidate(t *testing.T) {
	t.Run("sends bearer token", func(t *testing.T) {
		gateway := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer stored-token" {
				t.Errorf("unexpected authorization header: %q", got)
			}
			json.NewEncoder(w).Encode(validateResponse{
				User: BackendUser{ID: "u1", Email: "a@b.com", Name: "Ann", Role: "driver"},
			})
		}))

		user, err := gateway.Validate(context.Background(), "stored-token")
		if err != nil {
			t.Fatalf("validate: %v", err)
		}
		if user.ID != "u1" {
			t.Fatalf("unexpected user: %+v", user)
		}
	})

	t.Run("rejection surfaces as unauthorized", func(t *testing.T) {
		gateway := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid_token", "message": "token expired"})
		}))

		_, err := gateway.Validate(context.Background(), "stale")
		if err == nil {
			t.Fatal("expected error")
		}
		if !api.IsUnauthorized(err) {
			t.Fatalf("expected unauthorized classification, got %v", err)
		}
	})
}

func TestGatewayRefresh(t *testing.T) {
	gateway := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/refresh" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("refresh must not send a bearer, got %q", got)
		}
		json.NewEncoder(w).Encode(refreshResponse{
			AccessToken: "minted",
			User:        BackendUser{ID: "u1", Email: "a@b.com", Name: "Ann", Role: "driver"},
		})
	}))

	result, err := gateway.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if result.AccessToken != "minted" {
		t.Fatalf("unexpected token: %s", result.AccessToken)
	}
}

func TestGatewayLogout(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		gateway := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/auth/logout" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			json.NewEncoder(w).Encode(map[string]string{"message": "logged out"})
		}))
		if err := gateway.Logout(context.Background(), "bearer"); err != nil {
			t.Fatalf("logout: %v", err)
		}
	})

	t.Run("server failure propagates", func(t *testing.T) {
		gateway := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "session_store_down", "message": "try again"})
		}))
		if err := gateway.Logout(context.Background(), "bearer"); err == nil {
			t.Fatal("expected error from failed remote logout")
		}
	})
}
