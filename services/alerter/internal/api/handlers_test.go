package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/vanamuthuV/logsy/services/alerter/internal/subscribers"
)

func newTestRouter(store *mockStore, status *mockStatus) http.Handler {
	if status == nil {
		status = &mockStatus{Resolved: true, Names: []string{"email"}}
	}
	return NewRouter(NewHandlers(store, status))
}

func TestGetSubscribers(t *testing.T) {
	tests := []struct {
		name          string
		store         *mockStore
		wantStatus    int
		wantEffective []string
	}{
		{
			name: "lists stored and effective",
			store: &mockStore{List: []subscribers.Subscriber{
				{Email: "a@x.com", Active: true},
				{Email: "b@x.com", Active: false},
				{Email: "a@x.com", Active: true},
			}},
			wantStatus:    http.StatusOK,
			wantEffective: []string{"a@x.com"},
		},
		{
			name:          "empty store",
			store:         &mockStore{List: []subscribers.Subscriber{}},
			wantStatus:    http.StatusOK,
			wantEffective: []string{},
		},
		{
			name:       "redis down",
			store:      &mockStore{LoadErr: errors.New("connection refused")},
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newTestRouter(tt.store, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/subscribers", nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp SubscribersResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !reflect.DeepEqual(resp.Effective, tt.wantEffective) {
				t.Errorf("effective = %v, want %v", resp.Effective, tt.wantEffective)
			}
			if len(resp.Subscribers) != len(tt.store.List) {
				t.Errorf("subscribers = %d, want %d", len(resp.Subscribers), len(tt.store.List))
			}
		})
	}
}

func TestPutSubscribers(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		saveErr    error
		wantStatus int
		wantSaved  int
	}{
		{
			name:       "valid list",
			body:       `[{"id":"1","name":"Ops","email":"ops@example.com","active":true},{"email":"dev@example.com","active":false}]`,
			wantStatus: http.StatusOK,
			wantSaved:  2,
		},
		{name: "empty list", body: `[]`, wantStatus: http.StatusOK},
		{name: "not json", body: `nope`, wantStatus: http.StatusBadRequest},
		{name: "object instead of list", body: `{"email":"a@x.com"}`, wantStatus: http.StatusBadRequest},
		{name: "unknown field", body: `[{"email":"a@x.com","enabled":true}]`, wantStatus: http.StatusBadRequest},
		{name: "missing at", body: `[{"email":"ops.example.com","active":true}]`, wantStatus: http.StatusBadRequest},
		{name: "store failure", body: `[{"email":"a@x.com","active":true}]`, saveErr: errors.New("READONLY"), wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStore{SaveErr: tt.saveErr}
			req := httptest.NewRequest(http.MethodPut, "/api/v1/subscribers", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			newTestRouter(store, nil).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus == http.StatusOK && len(store.Saved) != tt.wantSaved {
				t.Errorf("saved %d entries, want %d", len(store.Saved), tt.wantSaved)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		status     *mockStatus
		wantStatus int
	}{
		{name: "healthy", status: &mockStatus{Resolved: true, Names: []string{"email", "slack"}}, wantStatus: http.StatusOK},
		{name: "redis down", status: &mockStatus{PingErr: errors.New("refused")}, wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newTestRouter(&mockStore{}, tt.status).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var resp HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.IdentityResolved != tt.status.Resolved {
				t.Errorf("identity_resolved = %v", resp.IdentityResolved)
			}
			if !reflect.DeepEqual(resp.Notifiers, tt.status.Names) {
				t.Errorf("notifiers = %v, want %v", resp.Notifiers, tt.status.Names)
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(&mockStore{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/v1/subscribers", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "PUT") {
		t.Errorf("Access-Control-Allow-Methods = %q", got)
	}
}
