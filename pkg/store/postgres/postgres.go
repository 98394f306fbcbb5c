package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"account-grid/pkg/account"
	"account-grid/pkg/store"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// PostgresStore reads accounts from the accounts table.
//
// Natural order is the insertion sequence column `seq`, so pages are stable
// across requests as long as rows are only appended.
type PostgresStore struct {
	db   *sql.DB
	name string
}

// Config holds PostgreSQL connection configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns default PostgreSQL configuration.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            5432,
		User:            "postgres",
		Password:        "postgres",
		Database:        "bbbank",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DSN renders the lib/pq connection string.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// NewPostgresStore opens a pool, pings the server and creates the schema.
func NewPostgresStore(cfg Config) (*PostgresStore, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w: %w", store.ErrUnavailable, err)
	}

	s := &PostgresStore{db: db, name: "postgres"}

	if err := s.initTables(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init tables: %w", err)
	}

	return s, nil
}

func (p *PostgresStore) initTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT NOT NULL,
			account_number TEXT NOT NULL UNIQUE,
			account_title TEXT NOT NULL,
			current_balance NUMERIC NOT NULL,
			account_status SMALLINT NOT NULL,
			user_email TEXT NOT NULL,
			user_phone_number TEXT NOT NULL,
			user_profile_pic_url TEXT NOT NULL
		)`,
		// Upgrades tables created with NUMERIC(18,2).
		`ALTER TABLE accounts ALTER COLUMN current_balance TYPE NUMERIC`,
	}

	for _, query := range queries {
		if _, err := p.db.ExecContext(ctx, query); err != nil {
			return err
		}
	}

	return nil
}

// Count returns SELECT COUNT(*) FROM accounts.
func (p *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&count); err != nil {
		return 0, p.wrap(err, "count")
	}
	return count, nil
}

// Slice returns the rows [offset, offset+limit) ordered by seq.
func (p *PostgresStore) Slice(ctx context.Context, offset, limit int) ([]account.Account, error) {
	if err := store.ValidateWindow(offset, limit); err != nil {
		return nil, err
	}

	query := `
		SELECT id, account_number, account_title, current_balance, account_status,
		       user_email, user_phone_number, user_profile_pic_url
		FROM accounts
		ORDER BY seq
		LIMIT $1 OFFSET $2
	`

	rows, err := p.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, p.wrap(err, "slice")
	}
	defer rows.Close()

	accounts := make([]account.Account, 0, limit)
	for rows.Next() {
		var (
			a       account.Account
			balance decimal.Decimal
			status  int
		)
		if err := rows.Scan(
			&a.ID, &a.AccountNumber, &a.AccountTitle, &balance, &status,
			&a.User.Email, &a.User.PhoneNumber, &a.User.ProfilePicURL,
		); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		a.CurrentBalance = balance
		a.AccountStatus = account.Status(status)
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, p.wrap(err, "slice")
	}

	return accounts, nil
}

// Append inserts accounts in one transaction, preserving argument order.
func (p *PostgresStore) Append(ctx context.Context, accounts ...account.Account) error {
	if len(accounts) == 0 {
		return nil
	}
	if err := store.CheckBatch(accounts); err != nil {
		return err
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return p.wrap(err, "append")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO accounts (id, account_number, account_title, current_balance, account_status,
		                      user_email, user_phone_number, user_profile_pic_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`)
	if err != nil {
		return p.wrap(err, "append")
	}
	defer stmt.Close()

	for _, a := range accounts {
		_, err := stmt.ExecContext(ctx,
			a.ID, a.AccountNumber, a.AccountTitle, a.CurrentBalance, int(a.AccountStatus),
			a.User.Email, a.User.PhoneNumber, a.User.ProfilePicURL,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return store.DuplicateError(a.AccountNumber)
			}
			return fmt.Errorf("insert account %s: %w", a.AccountNumber, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return p.wrap(err, "append")
	}
	return nil
}

// Reset empties the table. Used by seeding with --reset and by tests.
func (p *PostgresStore) Reset(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, `TRUNCATE accounts RESTART IDENTITY`); err != nil {
		return p.wrap(err, "reset")
	}
	return nil
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return p.wrap(err, "ping")
	}
	return nil
}

func (p *PostgresStore) Name() string {
	return p.name
}

func (p *PostgresStore) Close() error {
	return p.db.Close()
}

// wrap tags connection-level failures as store.ErrUnavailable.
func (p *PostgresStore) wrap(err error, operation string) error {
	if store.IsUnavailable(err) || errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("postgres %s: %w: %w", operation, store.ErrUnavailable, err)
	}
	return fmt.Errorf("postgres %s: %w", operation, err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
