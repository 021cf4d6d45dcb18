package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/walletledger/internal/storage"
)

// PostgresLog persists transaction records in PostgreSQL.
type PostgresLog struct {
	db *pgxpool.Pool
}

// NewPostgresLog constructs a Postgres-backed transaction log.
func NewPostgresLog(db *pgxpool.Pool) *PostgresLog {
	return &PostgresLog{db: db}
}

// Append inserts rec within the unit carried by ctx, if any.
func (l *PostgresLog) Append(ctx context.Context, rec *Transaction) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	const query = `
        INSERT INTO transactions (sender_id, receiver_id, amount, transaction_type, created_at, updated_at)
        VALUES ($1, $2, $3::numeric, $4, clock_timestamp(), clock_timestamp())
        RETURNING id, created_at`
	row := storage.Conn(ctx, l.db).QueryRow(ctx, query, rec.SenderID, rec.ReceiverID, rec.Amount.String(), string(rec.Type))
	if err := row.Scan(&rec.ID, &rec.CreatedAt); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return nil
}

// QueryByUser returns the records sent or received by user, newest first.
func (l *PostgresLog) QueryByUser(ctx context.Context, user int64) ([]Transaction, error) {
	const query = `
        SELECT id, sender_id, receiver_id, amount::text, transaction_type, created_at
        FROM transactions
        WHERE sender_id = $1 OR receiver_id = $1
        ORDER BY created_at DESC, id DESC`
	rows, err := storage.Conn(ctx, l.db).Query(ctx, query, user)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	records := make([]Transaction, 0)
	for rows.Next() {
		var (
			rec    Transaction
			amount string
			kind   string
		)
		if err := rows.Scan(&rec.ID, &rec.SenderID, &rec.ReceiverID, &amount, &kind, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if rec.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("decode amount of transaction %d: %w", rec.ID, err)
		}
		if rec.Type, err = ParseType(kind); err != nil {
			return nil, err
		}
		rec.CreatedAt = rec.CreatedAt.UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}
