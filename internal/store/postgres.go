package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/irocky-stack/rjbtranz/internal/models"
)

// PostgresStore persists transactions in Postgres via pgx. The reference
// ID sequence lives in a database sequence, so concurrent branch sessions
// never mint the same number.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore wraps a pgx connection pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the transactions table and reference sequence.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS transactions (
			id UUID PRIMARY KEY,
			client_name TEXT NOT NULL,
			client_email TEXT NOT NULL DEFAULT '',
			phone_number TEXT NOT NULL DEFAULT '',
			amount DOUBLE PRECISION NOT NULL CHECK (amount > 0),
			from_currency TEXT NOT NULL,
			to_currency TEXT NOT NULL,
			exchange_rate DOUBLE PRECISION NOT NULL CHECK (exchange_rate > 0),
			fee DOUBLE PRECISION NOT NULL CHECK (fee >= 0),
			status TEXT NOT NULL,
			transaction_type TEXT NOT NULL,
			unique_code TEXT NOT NULL,
			format_id TEXT NOT NULL,
			receipt_printed BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE SEQUENCE IF NOT EXISTS transaction_reference_seq;
		CREATE INDEX IF NOT EXISTS idx_transactions_status ON transactions (status);
		CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions (created_at);
	`)
	if err != nil {
		return fmt.Errorf("ensure transactions schema: %w", err)
	}
	return nil
}

const transactionColumns = `id, client_name, client_email, phone_number, amount,
	from_currency, to_currency, exchange_rate, fee, status, transaction_type,
	unique_code, format_id, receipt_printed, created_at`

func (s *PostgresStore) Create(ctx context.Context, tx *models.Transaction) error {
	query := `INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW())
		RETURNING created_at`
	err := s.db.QueryRow(ctx, query,
		tx.ID, tx.ClientName, tx.ClientEmail, tx.PhoneNumber, tx.Amount,
		tx.FromCurrency, tx.ToCurrency, tx.ExchangeRate, tx.Fee,
		string(tx.Status), string(tx.Type), tx.UniqueCode, tx.FormatID,
		tx.ReceiptPrinted,
	).Scan(&tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	tx, err := scanTransaction(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]*models.Transaction, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != "" {
		conds = append(conds, "status = "+arg(string(filter.Status)))
	}
	if filter.Currency != "" {
		p := arg(strings.ToUpper(filter.Currency))
		conds = append(conds, fmt.Sprintf("(from_currency = %s OR to_currency = %s)", p, p))
	}
	if !filter.Since.IsZero() {
		conds = append(conds, "created_at >= "+arg(filter.Since))
	}
	if filter.Search != "" {
		p := arg("%" + strings.ToLower(filter.Search) + "%")
		conds = append(conds, fmt.Sprintf(
			"(LOWER(client_name) LIKE %[1]s OR LOWER(unique_code) LIKE %[1]s OR LOWER(format_id) LIKE %[1]s OR phone_number LIKE %[1]s)", p))
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at ASC"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []*models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id uuid.UUID, status models.Status) error {
	return s.exec(ctx, `UPDATE transactions SET status = $1 WHERE id = $2`, string(status), id)
}

func (s *PostgresStore) MarkReceiptPrinted(ctx context.Context, id uuid.UUID) error {
	return s.exec(ctx, `UPDATE transactions SET receipt_printed = TRUE WHERE id = $1`, id)
}

func (s *PostgresStore) CompleteWithReceipt(ctx context.Context, id uuid.UUID) error {
	return s.exec(ctx,
		`UPDATE transactions SET status = $1, receipt_printed = TRUE WHERE id = $2`,
		string(models.StatusCompleted), id)
}

func (s *PostgresStore) SetExchangeRate(ctx context.Context, id uuid.UUID, rate float64) error {
	return s.exec(ctx, `UPDATE transactions SET exchange_rate = $1 WHERE id = $2`, rate, id)
}

func (s *PostgresStore) Summary(ctx context.Context) (Summary, error) {
	var sum Summary
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'PENDING'),
			COUNT(*) FILTER (WHERE status = 'COMPLETED'),
			COUNT(*) FILTER (WHERE status = 'FAILED'),
			COUNT(*) FILTER (WHERE status = 'CANCELLED'),
			COALESCE(SUM(amount), 0),
			COALESCE(SUM(fee), 0),
			COUNT(*) FILTER (WHERE NOT receipt_printed)
		FROM transactions
	`).Scan(&sum.Total, &sum.Pending, &sum.Completed, &sum.Failed,
		&sum.Cancelled, &sum.TotalVolume, &sum.TotalFees, &sum.ReceiptsLeft)
	if err != nil {
		return Summary{}, fmt.Errorf("transaction summary: %w", err)
	}
	return sum, nil
}

func (s *PostgresStore) NextSequence(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.db.QueryRow(ctx, `SELECT nextval('transaction_reference_seq')`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next reference sequence: %w", err)
	}
	return seq, nil
}

func (s *PostgresStore) exec(ctx context.Context, query string, args ...any) error {
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var (
		tx             models.Transaction
		status, txType string
		createdAt      time.Time
	)
	err := row.Scan(&tx.ID, &tx.ClientName, &tx.ClientEmail, &tx.PhoneNumber,
		&tx.Amount, &tx.FromCurrency, &tx.ToCurrency, &tx.ExchangeRate,
		&tx.Fee, &status, &txType, &tx.UniqueCode, &tx.FormatID,
		&tx.ReceiptPrinted, &createdAt)
	if err != nil {
		return nil, err
	}
	tx.Status = models.Status(status)
	tx.Type = models.TransactionType(txType)
	tx.CreatedAt = createdAt
	return &tx, nil
}
