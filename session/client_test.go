package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestClientErrorHidesQuery(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL + "/reporting/secure/v3/positionReport/csv?intAccount=1&sessionId=SECRET-TOKEN"
	srv.Close()

	s, err := Resume("1", "SECRET-TOKEN", HTTPConfig{Domain: srv.URL, RequestsPerSecond: 1000})
	if err != nil {
		t.Fatal(err)
	}
	_, err = s.Client().Get(context.Background(), addr)
	if err == nil {
		t.Fatal("Get() on a closed server expected an error")
	}
	if strings.Contains(err.Error(), "SECRET-TOKEN") {
		t.Errorf("Get() error leaks the session id: %v", err)
	}
	var uerr *url.Error
	if !errors.As(err, &uerr) || !strings.HasSuffix(uerr.URL, "/reporting/secure/v3/positionReport/csv") {
		t.Errorf("Get() error = %v, want a *url.Error on the report path", err)
	}
}

func TestClientRetriesOnce(t *testing.T) {
	old := rateLimitWait
	rateLimitWait = time.Millisecond
	t.Cleanup(func() { rateLimitWait = old })

	tests := []struct {
		name       string
		limited    int32 // number of 429 answers before a 200
		wantStatus int
		wantCalls  int32
	}{
		{"ok", 0, http.StatusOK, 1},
		{"one 429", 1, http.StatusOK, 2},
		{"two 429", 2, http.StatusTooManyRequests, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if calls.Add(1) <= tt.limited {
					http.Error(w, "slow down", http.StatusTooManyRequests)
					return
				}
				fmt.Fprint(w, "ok")
			}))
			defer srv.Close()
			c, err := NewClient(HTTPConfig{Domain: srv.URL, RequestsPerSecond: 1000})
			if err != nil {
				t.Fatal(err)
			}

			resp, err := c.Get(context.Background(), srv.URL+"/report")
			if err != nil {
				t.Fatalf("Get() unexpected error: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("Get() status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if got := calls.Load(); got != tt.wantCalls {
				t.Errorf("portal received %d requests, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestClientTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := NewClient(HTTPConfig{Domain: srv.URL, Timeout: 50 * time.Millisecond, RequestsPerSecond: 1000})
	if err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	_, err = c.Get(context.Background(), srv.URL+"/report")
	var nerr net.Error
	if !errors.As(err, &nerr) || !nerr.Timeout() {
		t.Fatalf("Get() error = %v, want a timeout", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Get() returned after %v, want about 50ms", elapsed)
	}
}
