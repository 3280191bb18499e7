package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acuitylabs/triage-ai/internal/artifacts"
	"github.com/acuitylabs/triage-ai/internal/casestore"
	"github.com/acuitylabs/triage-ai/internal/triage"
)

type fakeRunner struct {
	result     *triage.Result
	err        error
	transcript string
}

func (f *fakeRunner) Run(_ context.Context, rawTranscript string) (*triage.Result, *triage.Case, error) {
	f.transcript = rawTranscript
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.result, nil, nil
}

type fakeReader struct {
	summaries map[string]*casestore.Summary
}

func (f *fakeReader) Get(_ context.Context, caseID string) (*casestore.Summary, error) {
	if s, ok := f.summaries[caseID]; ok {
		return s, nil
	}
	return nil, casestore.ErrNotFound
}

func (f *fakeReader) Recent(_ context.Context, _ int) ([]casestore.Summary, error) {
	var out []casestore.Summary
	for _, s := range f.summaries {
		out = append(out, *s)
	}
	return out, nil
}

func testServer(t *testing.T, runner TriageRunner, reader CaseReader, store artifacts.Store) *httptest.Server {
	t.Helper()
	if store == nil {
		fs, err := artifacts.NewFSStore(t.TempDir())
		require.NoError(t, err)
		store = fs
	}
	h := NewCasesHandler(runner, reader, store, nil)

	r := chi.NewRouter()
	r.Get("/health", h.HealthCheck)
	r.Route("/api/cases", func(api chi.Router) {
		api.Post("/", h.Submit)
		api.Get("/", h.ListCases)
		api.Get("/{caseID}", h.GetCase)
		api.Get("/{caseID}/artifacts/{kind}", h.GetArtifact)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func okResult() *triage.Result {
	return &triage.Result{
		CaseID:         "case-1",
		FinalESI:       2,
		Confidence:     0.85,
		AgreementRatio: 1.0,
		Rounds:         1,
		ArtifactKeys: map[artifacts.Kind]string{
			artifacts.KindQuickRef:   "quick_ref/case-1.md",
			artifacts.KindResult:     "results/case-1.json",
			artifacts.KindDiscussion: "discussions/case-1.txt",
		},
	}
}

func TestSubmitPlainText(t *testing.T) {
	runner := &fakeRunner{result: okResult()}
	srv := testServer(t, runner, nil, nil)

	resp, err := http.Post(srv.URL+"/api/cases", "text/plain", strings.NewReader("Patient: chest pain."))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Patient: chest pain.", runner.transcript)
}

func TestSubmitJSONBody(t *testing.T) {
	runner := &fakeRunner{result: okResult()}
	srv := testServer(t, runner, nil, nil)

	resp, err := http.Post(srv.URL+"/api/cases", "application/json", strings.NewReader(`{"transcript": "Nurse: hello"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Nurse: hello", runner.transcript)
}

func TestSubmitEmptyTranscript(t *testing.T) {
	runner := &fakeRunner{err: triage.ErrEmptyTranscript}
	srv := testServer(t, runner, nil, nil)

	resp, err := http.Post(srv.URL+"/api/cases", "text/plain", strings.NewReader("  "))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubmitMalformedJSON(t *testing.T) {
	srv := testServer(t, &fakeRunner{result: okResult()}, nil, nil)

	resp, err := http.Post(srv.URL+"/api/cases", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubmitNoOpinions(t *testing.T) {
	runner := &fakeRunner{err: triage.ErrNoOpinionsProduced}
	srv := testServer(t, runner, nil, nil)

	resp, err := http.Post(srv.URL+"/api/cases", "text/plain", strings.NewReader("Patient: chest pain."))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestGetCase(t *testing.T) {
	reader := &fakeReader{summaries: map[string]*casestore.Summary{
		"case-1": {CaseID: "case-1", FinalESI: 2, ChiefComplaint: "chest pain", CreatedAt: time.Now()},
	}}
	srv := testServer(t, &fakeRunner{}, reader, nil)

	resp, err := http.Get(srv.URL + "/api/cases/case-1")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Get(srv.URL + "/api/cases/missing")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestGetCaseWithoutReader(t *testing.T) {
	srv := testServer(t, &fakeRunner{}, nil, nil)

	resp, err := http.Get(srv.URL + "/api/cases/case-1")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestGetArtifact(t *testing.T) {
	store, err := artifacts.NewFSStore(t.TempDir())
	require.NoError(t, err)
	_, err = store.Put(context.Background(), "case-1", artifacts.KindQuickRef, []byte("# quick ref"))
	require.NoError(t, err)

	srv := testServer(t, &fakeRunner{}, nil, store)

	resp, err := http.Get(srv.URL + "/api/cases/case-1/artifacts/quick_ref")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/markdown; charset=utf-8", resp.Header.Get("Content-Type"))
}

func TestGetArtifactUnknownKind(t *testing.T) {
	srv := testServer(t, &fakeRunner{}, nil, nil)

	resp, err := http.Get(srv.URL + "/api/cases/case-1/artifacts/transcript")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetArtifactMissing(t *testing.T) {
	srv := testServer(t, &fakeRunner{}, nil, nil)

	resp, err := http.Get(srv.URL + "/api/cases/case-1/artifacts/result")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthCheck(t *testing.T) {
	srv := testServer(t, &fakeRunner{}, nil, nil)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListCases(t *testing.T) {
	reader := &fakeReader{summaries: map[string]*casestore.Summary{
		"case-1": {CaseID: "case-1", FinalESI: 2},
	}}
	srv := testServer(t, &fakeRunner{}, reader, nil)

	resp, err := http.Get(srv.URL + "/api/cases")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
