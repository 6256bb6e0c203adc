package directory

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPSource_Fetch(t *testing.T) {
	var gotAuth, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"grants":[
			{"external_id":"emp-1","device_id":"gate-1","name":"Alice","phone_number":"+15550100"},
			{"external_id":"emp-2","device_id":"gate-1","serial_number":"ab12","valid_until":"2025-01-01T00:00:00Z"}
		]}`))
	}))
	defer srv.Close()

	snap, err := NewHTTPSource(srv.URL, "s3cret", time.Second).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if gotAuth != "Bearer s3cret" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer s3cret")
	}
	if gotAccept != "application/json" {
		t.Errorf("Accept = %q, want application/json", gotAccept)
	}
	if len(snap.Grants) != 2 {
		t.Fatalf("len(Grants) = %d, want 2", len(snap.Grants))
	}
	if snap.Grants[0].Name != "Alice" || snap.Grants[0].PhoneNumber != "+15550100" {
		t.Errorf("Grants[0] = %+v", snap.Grants[0])
	}
	want := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if until := snap.Grants[1].ValidUntil; until == nil || !until.Equal(want) {
		t.Errorf("Grants[1].ValidUntil = %v, want %v", until, want)
	}
}

func TestHTTPSource_NoTokenOmitsHeader(t *testing.T) {
	var hadAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hadAuth = r.Header["Authorization"]
		_, _ = w.Write([]byte(`{"grants":[]}`))
	}))
	defer srv.Close()

	if _, err := NewHTTPSource(srv.URL, "", time.Second).Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if hadAuth {
		t.Error("Authorization header sent without a token")
	}
}

func TestHTTPSource_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non-200 status",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "nope", http.StatusUnauthorized)
			},
		},
		{
			name: "malformed JSON",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"grants": [`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewHTTPSource(srv.URL, "", time.Second).Fetch(context.Background())
			if !errors.Is(err, ErrFetchFailed) {
				t.Errorf("Fetch() error = %v, want ErrFetchFailed", err)
			}
		})
	}
}

func TestHTTPSource_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPSource(url, "", time.Second).Fetch(context.Background())
	if !errors.Is(err, ErrFetchFailed) {
		t.Errorf("Fetch() error = %v, want ErrFetchFailed", err)
	}
}
