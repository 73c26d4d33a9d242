package callback

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"judgeengine/internal/model"
)

func sampleResult() model.SubmissionResult {
	return model.SubmissionResult{
		Overall: model.RunResult{Status: model.StatusOK, Score: 100},
	}
}

func TestPostSucceedsOnFirstTry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		var got model.SubmissionResult
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := New()
	if err := p.Post(context.Background(), srv.URL, sampleResult()); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestPostRetriesOn5xxThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := New()
	p.client.Timeout = 0 // httptest is local; avoid counting client timeout against retries

	if err := p.Post(context.Background(), srv.URL, sampleResult()); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestPostDoesNotRetryOn4xx(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	p := New()
	err := p.Post(context.Background(), srv.URL, sampleResult())
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on 4xx)", calls)
	}
}

func TestDelayFuncCapsAtMaxDelay(t *testing.T) {
	d := delayFunc(20)
	if d > maxDelay {
		t.Errorf("delay = %v, want <= %v", d, maxDelay)
	}
}

func TestDelayFuncGrowsWithAttempt(t *testing.T) {
	// Strip jitter by comparing floors: attempt 3's base alone already
	// exceeds attempt 0's base+max-jitter.
	early := delayFunc(0)
	later := delayFunc(3)
	if later < early {
		t.Errorf("expected later attempts to have >= delay, got %v then %v", early, later)
	}
}
