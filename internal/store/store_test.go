package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/entityops/einfiler/api/schemas"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	mock.ExpectPing()
	s, err := New(context.Background(), mock, zap.NewNop())
	require.NoError(t, err)
	return s, mock
}

func TestNewFailsWhenPingFails(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectPing().WillReturnError(assert.AnError)
	_, err = New(context.Background(), mock, zap.NewNop())
	assert.Error(t, err)
}

func TestEnsureSchema(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS runs").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRun(t *testing.T) {
	s, mock := newMockStore(t)

	started := time.Date(2025, 8, 27, 10, 0, 0, 0, time.UTC)
	finished := started.Add(90 * time.Second)

	mock.ExpectExec("INSERT INTO runs").
		WithArgs("run-1", "500A1", "Completed", "done", started, finished).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SaveRun(context.Background(), schemas.RunResult{
		RunID:      "run-1",
		RecordID:   "500A1",
		Status:     schemas.StatusCompleted,
		Message:    "done",
		StartedAt:  started,
		FinishedAt: finished,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunsForRecord(t *testing.T) {
	s, mock := newMockStore(t)

	started := time.Date(2025, 8, 27, 10, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{"run_id", "record_id", "status", "message", "started_at", "finished_at"}).
		AddRow("run-1", "500A1", "Failed", "state error", started, started.Add(time.Minute)).
		AddRow("run-2", "500A1", "Completed", "done", started.Add(time.Hour), started.Add(time.Hour+time.Minute))

	mock.ExpectQuery("SELECT (.+) FROM runs").
		WithArgs("500A1").
		WillReturnRows(rows)

	results, err := s.RunsForRecord(context.Background(), "500A1")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, schemas.StatusFailed, results[0].Status)
	assert.Equal(t, "run-2", results[1].RunID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunsForRecordQueryError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT (.+) FROM runs").
		WithArgs("500B2").
		WillReturnError(assert.AnError)

	_, err := s.RunsForRecord(context.Background(), "500B2")
	assert.Error(t, err)
}
