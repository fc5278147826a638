package data

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DevRickLin/msg-forwarder/internal/biz/repo"
)

func presenceServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Expected bearer header, got %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Expected JSON accept header, got %q", got)
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func category(t *testing.T, err error) string {
	t.Helper()
	var perr *repo.PresenceError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected *repo.PresenceError, got %T (%v)", err, err)
	}
	return perr.Category
}

func TestPresenceRepo_Values(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"bool true", `{"response":{"vehicle_state":{"is_user_present":true}}}`, true},
		{"bool false", `{"response":{"vehicle_state":{"is_user_present":false}}}`, false},
		{"string true", `{"response":{"vehicle_state":{"is_user_present":"true"}}}`, true},
		{"string zero", `{"response":{"vehicle_state":{"is_user_present":"0"}}}`, false},
		{"number one", `{"response":{"vehicle_state":{"is_user_present":1}}}`, true},
		{"number zero", `{"response":{"vehicle_state":{"is_user_present":0}}}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := presenceServer(t, http.StatusOK, tt.body)
			r := NewPresenceRepo(PresenceConfig{URL: srv.URL, Token: "secret"})

			got, err := r.CheckPresence(context.Background())
			if err != nil {
				t.Fatalf("CheckPresence failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestPresenceRepo_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"http error", http.StatusUnauthorized, `{}`, "http_401"},
		{"server error", http.StatusBadGateway, ``, "http_502"},
		{"invalid json", http.StatusOK, `not json`, repo.PresenceInvalidJSON},
		{"missing field", http.StatusOK, `{"response":{}}`, repo.PresenceMissingField},
		{"null field", http.StatusOK, `{"response":{"vehicle_state":{"is_user_present":null}}}`, repo.PresenceMissingField},
		{"invalid value", http.StatusOK, `{"response":{"vehicle_state":{"is_user_present":"maybe"}}}`, repo.PresenceInvalidValue},
		{"invalid number", http.StatusOK, `{"response":{"vehicle_state":{"is_user_present":2}}}`, repo.PresenceInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := presenceServer(t, tt.status, tt.body)
			r := NewPresenceRepo(PresenceConfig{URL: srv.URL, Token: "secret"})

			_, err := r.CheckPresence(context.Background())
			if got := category(t, err); got != tt.want {
				t.Errorf("Expected category %s, got %s", tt.want, got)
			}
		})
	}
}

func TestPresenceRepo_MissingConfig(t *testing.T) {
	r := NewPresenceRepo(PresenceConfig{URL: "https://example.invalid/data"})
	_, err := r.CheckPresence(context.Background())
	if got := category(t, err); got != repo.PresenceMissingConfig {
		t.Errorf("Expected %s, got %s", repo.PresenceMissingConfig, got)
	}
}

func TestPresenceRepo_InvalidEndpoint(t *testing.T) {
	r := NewPresenceRepo(PresenceConfig{URL: "ftp://vehicle/data", Token: "secret"})
	_, err := r.CheckPresence(context.Background())
	if got := category(t, err); got != repo.PresenceInvalidEndpoint {
		t.Errorf("Expected %s, got %s", repo.PresenceInvalidEndpoint, got)
	}
}

func TestPresenceRepo_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	r := NewPresenceRepo(PresenceConfig{URL: srv.URL, Token: "secret", Timeout: 50 * time.Millisecond})
	_, err := r.CheckPresence(context.Background())
	if got := category(t, err); got != repo.PresenceTimeout {
		t.Errorf("Expected %s, got %s", repo.PresenceTimeout, got)
	}
}

func TestPresenceRepo_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	r := NewPresenceRepo(PresenceConfig{URL: url, Token: "secret"})
	_, err := r.CheckPresence(context.Background())
	if got := category(t, err); got != repo.PresenceNetworkError {
		t.Errorf("Expected %s, got %s", repo.PresenceNetworkError, got)
	}
}

func TestPresenceRepo_CustomPath(t *testing.T) {
	srv := presenceServer(t, http.StatusOK, `{"state":{"present":true}}`)
	r := NewPresenceRepo(PresenceConfig{URL: srv.URL, Token: "secret", JSONPath: "state.present"})

	got, err := r.CheckPresence(context.Background())
	if err != nil || !got {
		t.Errorf("Expected present via custom path, got %v, %v", got, err)
	}
}
