// Package postgres implements a Postgres-backed client samples repository.
package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"

	"github.com/vshulcz/rtcobserver/internal/domain"
	"github.com/vshulcz/rtcobserver/internal/misc"
	"github.com/vshulcz/rtcobserver/internal/ports"
)

// Repo persists client samples in Postgres with retryable operations.
type Repo struct {
	db     *sql.DB
	retain int
}

var _ ports.SamplesRepo = (*Repo)(nil)

var retryablePGCodes = map[string]struct{}{
	pgerrcode.ConnectionException:                           {},
	pgerrcode.ConnectionDoesNotExist:                        {},
	pgerrcode.ConnectionFailure:                             {},
	pgerrcode.SQLClientUnableToEstablishSQLConnection:       {},
	pgerrcode.SQLServerRejectedEstablishmentOfSQLConnection: {},
	pgerrcode.TransactionResolutionUnknown:                  {},
	pgerrcode.SerializationFailure:                          {},
	pgerrcode.DeadlockDetected:                              {},
	pgerrcode.LockNotAvailable:                              {},
	pgerrcode.TooManyConnections:                            {},
	pgerrcode.AdminShutdown:                                 {},
	pgerrcode.CrashShutdown:                                 {},
	pgerrcode.CannotConnectNow:                              {},
}

// New returns a repository keeping at most retain samples per client. A
// non-positive retain keeps every sample.
func New(db *sql.DB, retain int) *Repo {
	return &Repo{db: db, retain: retain}
}

const qUpsertSample = `
INSERT INTO client_samples (client_id, sample_seq, call_id, ts, payload, received_at)
VALUES ($1, $2, $3, $4, $5, now())
ON CONFLICT (client_id, sample_seq)
DO UPDATE SET call_id=EXCLUDED.call_id, ts=EXCLUDED.ts, payload=EXCLUDED.payload, received_at=now();`

const qPrune = `
DELETE FROM client_samples c
USING (
    SELECT client_id, sample_seq,
           ROW_NUMBER() OVER (PARTITION BY client_id ORDER BY sample_seq DESC) AS rn
    FROM client_samples
    WHERE client_id = ANY($1)
) r
WHERE c.client_id = r.client_id AND c.sample_seq = r.sample_seq AND r.rn > $2;`

// SaveMany stores the batch inside one transaction and prunes the touched
// clients down to the retention limit.
func (r *Repo) SaveMany(ctx context.Context, items []domain.ClientSample) error {
	if len(items) == 0 {
		return nil
	}
	payloads := make([][]byte, len(items))
	clients := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for i, s := range items {
		b, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("marshal sample %s/%d: %w", s.ClientID, s.SampleSeq, err)
		}
		payloads[i] = b
		if _, ok := seen[s.ClientID]; !ok {
			seen[s.ClientID] = struct{}{}
			clients = append(clients, s.ClientID)
		}
	}

	attempt := func() error {
		tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
		if err != nil {
			return err
		}
		defer func() {
			_ = tx.Rollback()
		}()

		for i, s := range items {
			if _, err := tx.ExecContext(ctx, qUpsertSample, s.ClientID, s.SampleSeq, s.CallID, s.Timestamp, payloads[i]); err != nil {
				return err
			}
		}
		if r.retain > 0 {
			if _, err := tx.ExecContext(ctx, qPrune, pq.Array(clients), r.retain); err != nil {
				return err
			}
		}
		return tx.Commit()
	}
	return misc.Retry(ctx, misc.DefaultBackoff, isRetryablePG, attempt)
}

// Latest returns the sample with the highest sequence number of a client.
func (r *Repo) Latest(ctx context.Context, clientID string) (domain.ClientSample, error) {
	const q = `SELECT payload FROM client_samples WHERE client_id=$1 ORDER BY sample_seq DESC LIMIT 1`
	var payload []byte
	op := func() error {
		payload = nil
		return r.db.QueryRowContext(ctx, q, clientID).Scan(&payload)
	}
	if err := misc.Retry(ctx, misc.DefaultBackoff, isRetryablePG, op); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ClientSample{}, domain.ErrNotFound
		}
		return domain.ClientSample{}, err
	}
	var s domain.ClientSample
	if err := json.Unmarshal(payload, &s); err != nil {
		return domain.ClientSample{}, fmt.Errorf("decode sample: %w", err)
	}
	return s, nil
}

// Clients summarizes every client ordered by id.
func (r *Repo) Clients(ctx context.Context) ([]ports.ClientSummary, error) {
	const q = `
SELECT client_id, MAX(call_id), COUNT(*), MAX(sample_seq), MAX(ts)
FROM client_samples
GROUP BY client_id
ORDER BY client_id`
	var out []ports.ClientSummary
	op := func() error {
		rows, err := r.db.QueryContext(ctx, q)
		if err != nil {
			return err
		}
		defer func() {
			_ = rows.Close()
		}()

		res := make([]ports.ClientSummary, 0)
		for rows.Next() {
			var c ports.ClientSummary
			if err := rows.Scan(&c.ClientID, &c.CallID, &c.Samples, &c.LastSeq, &c.UpdatedAt); err != nil {
				return err
			}
			res = append(res, c)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		out = res
		return nil
	}
	if err := misc.Retry(ctx, misc.DefaultBackoff, isRetryablePG, op); err != nil {
		return nil, err
	}
	return out, nil
}

// Snapshot loads the latest sample of every client ordered by client id.
// Rows that no longer decode are skipped.
func (r *Repo) Snapshot(ctx context.Context) ([]domain.ClientSample, error) {
	const q = `
SELECT DISTINCT ON (client_id) payload
FROM client_samples
ORDER BY client_id, sample_seq DESC`
	var out []domain.ClientSample
	op := func() error {
		rows, err := r.db.QueryContext(ctx, q)
		if err != nil {
			return err
		}
		defer func() {
			_ = rows.Close()
		}()

		res := make([]domain.ClientSample, 0)
		for rows.Next() {
			var payload []byte
			if err := rows.Scan(&payload); err != nil {
				continue
			}
			var s domain.ClientSample
			if err := json.Unmarshal(payload, &s); err != nil {
				continue
			}
			res = append(res, s)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		out = res
		return nil
	}
	if err := misc.Retry(ctx, misc.DefaultBackoff, isRetryablePG, op); err != nil {
		return nil, err
	}
	return out, nil
}

// Ping verifies the database connection using a short-lived context.
func (r *Repo) Ping(ctx context.Context) error {
	if r.db == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	op := func() error {
		return r.db.PingContext(ctx)
	}
	return misc.Retry(ctx, misc.DefaultBackoff, isRetryablePG, op)
}

// IsRetryable reports whether the error should trigger a retry according to Postgres semantics.
func IsRetryable(err error) bool {
	return isRetryablePG(err)
}

func isRetryablePG(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var pqe *pq.Error
	if errors.As(err, &pqe) {
		return isRetryablePGCode(string(pqe.Code))
	}
	return false
}

func isRetryablePGCode(code string) bool {
	if _, ok := retryablePGCodes[code]; ok {
		return true
	}
	return strings.HasPrefix(code, "08") || strings.HasPrefix(code, "40")
}
