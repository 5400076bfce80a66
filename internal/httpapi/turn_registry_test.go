package httpapi

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestTurnRegistryCounts(t *testing.T) {
	tr := NewTurnRegistry()
	for i := 0; i < 3; i++ {
		if !tr.Add() {
			t.Fatalf("Add #%d rejected before draining", i)
		}
	}
	if got := tr.ActiveCount(); got != 3 {
		t.Fatalf("ActiveCount = %d, want 3", got)
	}

	tr.StartDraining()
	if tr.Add() {
		t.Error("Add accepted while draining")
	}
	if got := tr.ActiveCount(); got != 3 {
		t.Errorf("rejected Add changed ActiveCount to %d", got)
	}
	for i := 0; i < 3; i++ {
		tr.Done()
	}
	if got := tr.ActiveCount(); got != 0 {
		t.Errorf("ActiveCount after Done = %d", got)
	}
}

func TestTurnRegistryWaitReleasesAfterLastTurn(t *testing.T) {
	tr := NewTurnRegistry()
	tr.Add()
	tr.Add()

	released := make(chan struct{})
	go func() {
		tr.Wait()
		close(released)
	}()

	tr.Done()
	select {
	case <-released:
		t.Fatal("Wait returned with a turn still running")
	case <-time.After(20 * time.Millisecond):
	}

	tr.Done()
	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after the last turn")
	}
}

func TestTurnRegistryConcurrentDrain(t *testing.T) {
	tr := NewTurnRegistry()
	const n = 100
	var accepted, rejected atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		if i == n/2 {
			tr.StartDraining()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !tr.Add() {
				rejected.Add(1)
				return
			}
			accepted.Add(1)
			tr.Done()
		}()
	}
	wg.Wait()
	tr.Wait()

	if accepted.Load()+rejected.Load() != n {
		t.Errorf("accepted %d + rejected %d != %d", accepted.Load(), rejected.Load(), n)
	}
	if rejected.Load() < n/2 {
		t.Errorf("rejected = %d, want every turn started after draining", rejected.Load())
	}
}

func TestReadyzFlipsWhenDraining(t *testing.T) {
	tr := NewTurnRegistry()
	r := &Router{logger: testLogger(), turns: tr}

	for _, tc := range []struct {
		drain bool
		code  int
		body  string
	}{
		{false, http.StatusOK, "ok"},
		{true, http.StatusServiceUnavailable, "draining"},
	} {
		if tc.drain {
			tr.StartDraining()
		}
		rec := httptest.NewRecorder()
		r.handleReadyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		if rec.Code != tc.code || rec.Body.String() != tc.body {
			t.Errorf("draining=%v: readyz = %d %q, want %d %q", tc.drain, rec.Code, rec.Body.String(), tc.code, tc.body)
		}
	}
}
