package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"net"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"

	"github.com/vshulcz/rtcobserver/internal/domain"
	"github.com/vshulcz/rtcobserver/internal/misc"
)

func qm(s string) string {
	return regexp.QuoteMeta(s)
}

func newMock(t *testing.T) (sqlmock.Sqlmock, *Repo) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		_ = db.Close()
	})
	return mock, New(db, 0)
}

func fastBackoff(t *testing.T) {
	t.Helper()
	orig := misc.DefaultBackoff
	misc.DefaultBackoff = []time.Duration{time.Millisecond, time.Millisecond}
	t.Cleanup(func() { misc.DefaultBackoff = orig })
}

func payload(t *testing.T, s domain.ClientSample) []byte {
	t.Helper()
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestRepo_SaveMany(t *testing.T) {
	tests := []struct {
		name   string
		retain int
		prune  bool
	}{
		{"keep everything", 0, false},
		{"prune to retention", 10, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, repo := newMock(t)
			repo.retain = tt.retain

			batch := []domain.ClientSample{
				{ClientID: "a", CallID: "call", SampleSeq: 1, Timestamp: 100},
				{ClientID: "a", CallID: "call", SampleSeq: 2, Timestamp: 200},
			}
			mock.ExpectBegin()
			for _, s := range batch {
				mock.ExpectExec(qm(qUpsertSample)).
					WithArgs(s.ClientID, s.SampleSeq, s.CallID, s.Timestamp, sqlmock.AnyArg()).
					WillReturnResult(sqlmock.NewResult(0, 1))
			}
			if tt.prune {
				mock.ExpectExec(qm(qPrune)).WithArgs(sqlmock.AnyArg(), tt.retain).
					WillReturnResult(sqlmock.NewResult(0, 0))
			}
			mock.ExpectCommit()

			if err := repo.SaveMany(context.Background(), batch); err != nil {
				t.Fatalf("SaveMany: %v", err)
			}
		})
	}
}

func TestRepo_SaveMany_Empty(t *testing.T) {
	_, repo := newMock(t)
	if err := repo.SaveMany(context.Background(), nil); err != nil {
		t.Fatalf("SaveMany(nil): %v", err)
	}
}

func TestRepo_SaveMany_RollbackOnError(t *testing.T) {
	mock, repo := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(qm(qUpsertSample)).WillReturnError(&pq.Error{Code: pq.ErrorCode(pgerrcode.UniqueViolation)})
	mock.ExpectRollback()

	err := repo.SaveMany(context.Background(), []domain.ClientSample{{ClientID: "a", SampleSeq: 1}})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestRepo_SaveMany_Retry(t *testing.T) {
	fastBackoff(t)
	mock, repo := newMock(t)

	mock.ExpectBegin().WillReturnError(&pq.Error{Code: pq.ErrorCode(pgerrcode.ConnectionException)})
	mock.ExpectBegin()
	mock.ExpectExec(qm(qUpsertSample)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.SaveMany(context.Background(), []domain.ClientSample{{ClientID: "a", SampleSeq: 1}}); err != nil {
		t.Fatalf("SaveMany: %v", err)
	}
}

func TestRepo_Latest(t *testing.T) {
	const q = `SELECT payload FROM client_samples WHERE client_id=$1 ORDER BY sample_seq DESC LIMIT 1`
	want := domain.ClientSample{ClientID: "a", SampleSeq: 7, Marker: "m"}

	tests := []struct {
		name    string
		setup   func(sqlmock.Sqlmock)
		wantErr error
		wantSeq int64
	}{
		{
			name: "ok",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(qm(q)).WithArgs("a").
					WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(payload(t, want)))
			},
			wantSeq: 7,
		},
		{
			name: "no rows",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(qm(q)).WithArgs("a").WillReturnRows(sqlmock.NewRows([]string{"payload"}))
			},
			wantErr: domain.ErrNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, repo := newMock(t)
			tt.setup(mock)
			got, err := repo.Latest(context.Background(), "a")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if err == nil && (got.SampleSeq != tt.wantSeq || got.Marker != "m") {
				t.Fatalf("sample = %+v", got)
			}
		})
	}
}

func TestRepo_Clients(t *testing.T) {
	mock, repo := newMock(t)
	rows := sqlmock.NewRows([]string{"client_id", "call_id", "count", "seq", "ts"}).
		AddRow("a", "call", int64(3), int64(3), int64(300)).
		AddRow("b", "", int64(1), int64(9), int64(100))
	mock.ExpectQuery(`SELECT client_id, MAX\(call_id\), COUNT\(\*\), MAX\(sample_seq\), MAX\(ts\)`).WillReturnRows(rows)

	got, err := repo.Clients(context.Background())
	if err != nil {
		t.Fatalf("Clients: %v", err)
	}
	if len(got) != 2 || got[0].Samples != 3 || got[0].CallID != "call" || got[1].LastSeq != 9 {
		t.Fatalf("clients = %+v", got)
	}
}

func TestRepo_Snapshot_Retry(t *testing.T) {
	fastBackoff(t)
	mock, repo := newMock(t)

	const q = `SELECT DISTINCT ON \(client_id\) payload`
	mock.ExpectQuery(q).WillReturnError(&pq.Error{Code: pq.ErrorCode(pgerrcode.ConnectionDoesNotExist)})
	rows := sqlmock.NewRows([]string{"payload"}).
		AddRow(payload(t, domain.ClientSample{ClientID: "a", SampleSeq: 2})).
		AddRow([]byte("{broken")).
		AddRow(payload(t, domain.ClientSample{ClientID: "b", SampleSeq: 5}))
	mock.ExpectQuery(q).WillReturnRows(rows)

	got, err := repo.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(got) != 2 || got[0].ClientID != "a" || got[1].SampleSeq != 5 {
		t.Fatalf("snapshot = %+v", got)
	}
}

func TestRepo_Ping(t *testing.T) {
	if err := (&Repo{}).Ping(context.Background()); err == nil {
		t.Fatal("expected error for nil db")
	}

	mock, repo := newMock(t)
	mock.ExpectPing()
	if err := repo.Ping(context.Background()); err != nil {
		t.Fatalf("Ping err: %v", err)
	}
	mock.ExpectPing().WillReturnError(errors.New("down"))
	if err := repo.Ping(context.Background()); err == nil {
		t.Fatal("expected Ping error")
	}
}

func TestRepo_Ping_Retry(t *testing.T) {
	fastBackoff(t)
	mock, repo := newMock(t)
	mock.ExpectPing().WillReturnError(&pq.Error{Code: pq.ErrorCode(pgerrcode.ConnectionException)})
	mock.ExpectPing()
	if err := repo.Ping(context.Background()); err != nil {
		t.Fatalf("Ping error: %v", err)
	}
}

func TestRepo_Latest_ContextCancel(t *testing.T) {
	orig := misc.DefaultBackoff
	misc.DefaultBackoff = []time.Duration{50 * time.Millisecond, 50 * time.Millisecond}
	defer func() { misc.DefaultBackoff = orig }()

	mock, repo := newMock(t)
	mock.ExpectQuery(`SELECT payload FROM client_samples`).
		WillReturnError(&pq.Error{Code: pq.ErrorCode(pgerrcode.ConnectionException)})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := repo.Latest(ctx, "x"); err == nil {
		t.Fatal("expected context-related error")
	}
}

func Test_isRetryablePG(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"driver.ErrBadConn", driver.ErrBadConn, true},
		{"net.OpError", &net.OpError{Op: "dial", Err: errors.New("refused")}, true},
		{"pq 08 (ConnectionFailure)", &pq.Error{Code: pq.ErrorCode(pgerrcode.ConnectionFailure)}, true},
		{"pq ProtocolViolation", &pq.Error{Code: pq.ErrorCode(pgerrcode.ProtocolViolation)}, true},
		{"pq 40 (SerializationFailure)", &pq.Error{Code: pq.ErrorCode(pgerrcode.SerializationFailure)}, true},
		{"pq UniqueViolation (non-retryable)", &pq.Error{Code: pq.ErrorCode(pgerrcode.UniqueViolation)}, false},
		{"no rows", sql.ErrNoRows, false},
		{"generic", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Fatalf("IsRetryable(%T) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
