package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/remindctl/remind/history"
)

type fakeStore struct {
	cycles []history.Cycle
}

func (f *fakeStore) RecordCycleStart(context.Context, string, time.Time) (int64, error) {
	return 1, nil
}
func (f *fakeStore) RecordCycleEnd(context.Context, int64, time.Time, error, map[string]string) error {
	return nil
}
func (f *fakeStore) RecentCycles(_ context.Context, _ string, _ int) ([]history.Cycle, error) {
	return f.cycles, nil
}
func (f *fakeStore) Close() error { return nil }

func TestHealthzReturnsOK(t *testing.T) {
	s := New(nil, &fakeStore{}, []string{"daily-digest"}, nil)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	s.mux().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestWorkflowsListsConfiguredNames(t *testing.T) {
	s := New(nil, &fakeStore{}, []string{"daily-digest"}, nil)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/workflows", nil)
	s.mux().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotEmpty(t, rr.Body.String())
}

func TestWorkflowCyclesServesRecentCycles(t *testing.T) {
	started := time.Now()
	s := New(nil, &fakeStore{cycles: []history.Cycle{{ID: 1, WorkflowName: "daily-digest", StartedAt: started}}}, []string{"daily-digest"}, nil)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/workflows/daily-digest/cycles", nil)
	s.mux().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestInternalTimerWithoutResumeReturnsNotImplemented(t *testing.T) {
	s := New(nil, &fakeStore{}, nil, nil)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/internal/timer/daily-digest", nil)
	s.mux().ServeHTTP(rr, req)
	require.Equal(t, http.StatusNotImplemented, rr.Code)
}

func TestInternalTimerCallsResume(t *testing.T) {
	var got string
	resume := func(name string) error {
		got = name
		return nil
	}
	s := New(nil, &fakeStore{}, nil, resume)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/internal/timer/daily-digest", nil)
	s.mux().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "daily-digest", got)
}

func TestInternalTimerRejectsGet(t *testing.T) {
	s := New(nil, &fakeStore{}, nil, func(string) error { return nil })
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/internal/timer/daily-digest", nil)
	s.mux().ServeHTTP(rr, req)
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
