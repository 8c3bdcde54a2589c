package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-checkout/internal/checkout"
)

const (
	saveSuspensionSQL = `INSERT INTO checkout_suspensions
		(order_id, session_id, rail, charge_id, amount, payload, suspended_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (order_id) DO UPDATE SET
			session_id = EXCLUDED.session_id,
			rail = EXCLUDED.rail,
			charge_id = EXCLUDED.charge_id,
			amount = EXCLUDED.amount,
			payload = EXCLUDED.payload,
			suspended_at = EXCLUDED.suspended_at,
			expires_at = EXCLUDED.expires_at`

	loadSuspensionSQL = `SELECT payload FROM checkout_suspensions
		WHERE order_id = $1 AND expires_at > $2`

	deleteSuspensionSQL = `DELETE FROM checkout_suspensions WHERE order_id = $1`

	purgeSuspensionsSQL = `DELETE FROM checkout_suspensions WHERE expires_at <= $1`
)

var _ checkout.SuspendStore = (*SuspensionRepository)(nil)

// SuspensionRepository keeps redirected checkout sessions in PostgreSQL until
// the buyer returns or the retention window passes.
type SuspensionRepository struct {
	pool *pgxpool.Pool
	ttl  time.Duration
	now  func() time.Time
}

// NewSuspensionRepository returns a SuspensionRepository that uses the given
// pool. Sessions older than ttl are treated as gone.
func NewSuspensionRepository(pool *pgxpool.Pool, ttl time.Duration) *SuspensionRepository {
	return &SuspensionRepository{pool: pool, ttl: ttl, now: time.Now}
}

// Save upserts the session under its order id. The session is serialized to
// JSON for storage in the JSONB column.
func (r *SuspensionRepository) Save(ctx context.Context, s checkout.Session) error {
	payload, err := checkout.MarshalSession(s)
	if err != nil {
		return err
	}

	now := r.now()
	_, err = r.pool.Exec(ctx, saveSuspensionSQL,
		s.OrderID, s.ID, s.Rail.String(), s.ChargeID, s.Total, payload, now, now.Add(r.ttl),
	)
	if err != nil {
		return fmt.Errorf("saving suspension for order %q: %w", s.OrderID, err)
	}
	return nil
}

// Load returns checkout.ErrSessionNotFound when no live suspension exists.
func (r *SuspensionRepository) Load(ctx context.Context, orderID string) (*checkout.Session, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx, loadSuspensionSQL, orderID, r.now()).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, checkout.ErrSessionNotFound
		}
		return nil, fmt.Errorf("loading suspension for order %q: %w", orderID, err)
	}
	return checkout.UnmarshalSession(payload)
}

// Delete removes the suspension of orderID. Deleting a missing row is not an
// error.
func (r *SuspensionRepository) Delete(ctx context.Context, orderID string) error {
	if _, err := r.pool.Exec(ctx, deleteSuspensionSQL, orderID); err != nil {
		return fmt.Errorf("deleting suspension for order %q: %w", orderID, err)
	}
	return nil
}

// PurgeExpired deletes suspensions past their retention window and returns
// how many were removed.
func (r *SuspensionRepository) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, purgeSuspensionsSQL, r.now())
	if err != nil {
		return 0, fmt.Errorf("purging suspensions: %w", err)
	}
	return tag.RowsAffected(), nil
}
