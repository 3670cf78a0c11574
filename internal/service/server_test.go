package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/entityops/einfiler/api/schemas"
	"github.com/entityops/einfiler/internal/config"
	"github.com/entityops/einfiler/internal/extract"
)

type fakeRunner struct {
	lastRecord schemas.CaseRecord
	result     schemas.RunResult
}

func (f *fakeRunner) Execute(_ context.Context, record schemas.CaseRecord) schemas.RunResult {
	f.lastRecord = record
	if f.result.RunID == "" {
		f.result = schemas.RunResult{
			RunID:    "run-1",
			RecordID: record.RecordID,
			Status:   schemas.StatusCompleted,
			Message:  "done",
		}
	}
	return f.result
}

type fakeDecisions struct {
	recordID string
	proceed  bool
}

func (f *fakeDecisions) Put(recordID string, proceed bool) {
	f.recordID = recordID
	f.proceed = proceed
}

type fakeFetcher struct {
	record schemas.CaseRecord
	err    error
}

func (f *fakeFetcher) FetchCase(_ context.Context, recordID string) (schemas.CaseRecord, error) {
	if f.err != nil {
		return schemas.CaseRecord{}, f.err
	}
	f.record.RecordID = recordID
	return f.record, nil
}

type fakeArtifacts struct {
	path      string
	exported  []extract.Fields
	exportErr error
}

func (f *fakeArtifacts) Export(fields extract.Fields) (string, error) {
	if f.exportErr != nil {
		return "", f.exportErr
	}
	f.exported = append(f.exported, fields)
	return f.path, nil
}

func (f *fakeArtifacts) LastPath() string { return f.path }

type fakeHistory struct {
	runs []schemas.RunResult
	err  error
}

func (f *fakeHistory) RunsForRecord(context.Context, string) ([]schemas.RunResult, error) {
	return f.runs, f.err
}

func testServer(t *testing.T, runner RunExecutor, decisions Decisions, fetcher CaseFetcher, artifacts Artifacts) *Server {
	t.Helper()
	return testServerWithHistory(t, runner, decisions, fetcher, artifacts, nil)
}

func testServerWithHistory(t *testing.T, runner RunExecutor, decisions Decisions,
	fetcher CaseFetcher, artifacts Artifacts, history RunHistory) *Server {
	t.Helper()
	cfg := config.ServerConfig{
		Port:          8000,
		APIToken:      "secret",
		ReadTimeout:   5 * time.Second,
		ShutdownGrace: time.Second,
	}
	return NewServer(cfg, zap.NewNop(), runner, decisions, fetcher, artifacts, history)
}

func doRequest(s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthzIsUnauthenticated(t *testing.T) {
	s := testServer(t, &fakeRunner{}, &fakeDecisions{}, nil, nil)
	rec := doRequest(s, http.MethodGet, "/healthz", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestRunRequiresBearerToken(t *testing.T) {
	s := testServer(t, &fakeRunner{}, &fakeDecisions{}, nil, nil)

	rec := doRequest(s, http.MethodPost, "/api/v1/runs", "", schemas.CaseRecord{RecordID: "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(s, http.MethodPost, "/api/v1/runs", "wrong", schemas.CaseRecord{RecordID: "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRunExecutesRecord(t *testing.T) {
	runner := &fakeRunner{}
	s := testServer(t, runner, &fakeDecisions{}, nil, nil)

	rec := doRequest(s, http.MethodPost, "/api/v1/runs", "secret",
		schemas.CaseRecord{RecordID: "500A1", EntityName: "Acme LLC"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "500A1", runner.lastRecord.RecordID)
	assert.Equal(t, "Acme LLC", runner.lastRecord.EntityName)

	var result schemas.RunResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, schemas.StatusCompleted, result.Status)
}

func TestRunRejectsMissingRecordID(t *testing.T) {
	s := testServer(t, &fakeRunner{}, &fakeDecisions{}, nil, nil)
	rec := doRequest(s, http.MethodPost, "/api/v1/runs", "secret", schemas.CaseRecord{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunMapsOutcomeToStatusCode(t *testing.T) {
	tests := []struct {
		status schemas.RunStatus
		code   int
	}{
		{schemas.StatusCompleted, http.StatusOK},
		{schemas.StatusTimedOut, http.StatusGatewayTimeout},
		{schemas.StatusFailed, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		runner := &fakeRunner{result: schemas.RunResult{RunID: "r", Status: tt.status}}
		s := testServer(t, runner, &fakeDecisions{}, nil, nil)
		rec := doRequest(s, http.MethodPost, "/api/v1/runs", "secret", schemas.CaseRecord{RecordID: "x"})
		assert.Equal(t, tt.code, rec.Code, "status %s", tt.status)
	}
}

func TestConfirmationEndpoint(t *testing.T) {
	decisions := &fakeDecisions{}
	s := testServer(t, &fakeRunner{}, decisions, nil, nil)

	rec := doRequest(s, http.MethodPost, "/api/v1/runs/500B2/confirmation", "secret",
		schemas.Confirmation{Proceed: true})

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "500B2", decisions.recordID)
	assert.True(t, decisions.proceed)
}

func TestRunHistoryListsAttempts(t *testing.T) {
	history := &fakeHistory{runs: []schemas.RunResult{
		{RunID: "r1", RecordID: "500F6", Status: schemas.StatusFailed},
		{RunID: "r2", RecordID: "500F6", Status: schemas.StatusCompleted},
	}}
	s := testServerWithHistory(t, &fakeRunner{}, &fakeDecisions{}, nil, nil, history)

	rec := doRequest(s, http.MethodGet, "/api/v1/runs/500F6", "secret", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		RecordID string              `json:"record_id"`
		Runs     []schemas.RunResult `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "500F6", body.RecordID)
	require.Len(t, body.Runs, 2)
	assert.Equal(t, "r1", body.Runs[0].RunID)
}

func TestRunHistoryDisabled(t *testing.T) {
	s := testServer(t, &fakeRunner{}, &fakeDecisions{}, nil, nil)
	rec := doRequest(s, http.MethodGet, "/api/v1/runs/500F6", "secret", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestExportServesLatestArtifact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "salesforce_data.csv")
	require.NoError(t, os.WriteFile(path, []byte("record_id\n500A1\n"), 0o644))

	s := testServer(t, &fakeRunner{}, &fakeDecisions{}, nil, &fakeArtifacts{path: path})
	rec := doRequest(s, http.MethodGet, "/api/v1/export", "secret", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "500A1")
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
}

func TestExportBeforeAnyRun(t *testing.T) {
	s := testServer(t, &fakeRunner{}, &fakeDecisions{}, nil, &fakeArtifacts{})
	rec := doRequest(s, http.MethodGet, "/api/v1/export", "secret", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSalesforceFetchExportsWithoutRunning(t *testing.T) {
	runner := &fakeRunner{}
	fetcher := &fakeFetcher{record: schemas.CaseRecord{EntityName: "Fetched LLC"}}
	artifacts := &fakeArtifacts{path: "/tmp/salesforce_data.csv"}
	s := testServer(t, runner, &fakeDecisions{}, fetcher, artifacts)

	rec := doRequest(s, http.MethodPost, "/api/v1/salesforce/fetch", "secret",
		map[string]string{"record_id": "500C3"})

	require.Equal(t, http.StatusOK, rec.Code)
	// Fetching saves the data; it must not start a wizard run.
	assert.Empty(t, runner.lastRecord.RecordID)
	require.Len(t, artifacts.exported, 1)
	assert.Equal(t, "500C3", artifacts.exported[0].RecordID)

	var body struct {
		Path   string             `json:"path"`
		Record schemas.CaseRecord `json:"record"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "/tmp/salesforce_data.csv", body.Path)
	assert.Equal(t, "Fetched LLC", body.Record.EntityName)
}

func TestSalesforceFetchExportFailure(t *testing.T) {
	fetcher := &fakeFetcher{record: schemas.CaseRecord{EntityName: "Fetched LLC"}}
	artifacts := &fakeArtifacts{exportErr: errors.New("disk full")}
	s := testServer(t, &fakeRunner{}, &fakeDecisions{}, fetcher, artifacts)

	rec := doRequest(s, http.MethodPost, "/api/v1/salesforce/fetch", "secret",
		map[string]string{"record_id": "500C3"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSalesforceFetchNotConfigured(t *testing.T) {
	s := testServer(t, &fakeRunner{}, &fakeDecisions{}, nil, nil)
	rec := doRequest(s, http.MethodPost, "/api/v1/salesforce/fetch", "secret",
		map[string]string{"record_id": "x"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSalesforceFetchRecordNotFound(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("no record")}
	s := testServer(t, &fakeRunner{}, &fakeDecisions{}, fetcher, nil)

	rec := doRequest(s, http.MethodPost, "/api/v1/salesforce/fetch", "secret",
		map[string]string{"record_id": "500D4"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
