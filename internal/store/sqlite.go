// Package store provides the account stores behind a starboard ledger.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"starboard/internal/starboard"
	"starboard/internal/store/migrations"
	"starboard/internal/store/sqlc"
)

// SQLiteStore implements starboard.Store on a SQLite database.
// It holds a single connection, so instructions are serialized by the pool.
type SQLiteStore struct {
	db      *sql.DB
	queries *sqlc.Queries
	path    string
}

// NewSQLiteStore opens the ledger at path. path can be a file path or
// ":memory:". The schema is not touched; see MigrateUp and CheckMigrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db, queries: sqlc.New(db), path: path}, nil
}

// OpenConnection opens and configures a SQLite connection for the ledger.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	// One connection: a ":memory:" database exists per connection, and a
	// single writer gives serializable instructions without busy retries.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return db, nil
}

// Update runs fn inside a SQL transaction and commits it if fn succeeds.
func (s *SQLiteStore) Update(ctx context.Context, fn func(tx starboard.Tx) error) error {
	return s.run(ctx, false, fn)
}

// View runs fn inside a read-only SQL transaction.
func (s *SQLiteStore) View(ctx context.Context, fn func(tx starboard.Tx) error) error {
	return s.run(ctx, true, fn)
}

func (s *SQLiteStore) run(ctx context.Context, readOnly bool, fn func(tx starboard.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&sqliteTx{ctx: ctx, q: s.queries.WithTx(sqlTx), readOnly: readOnly}); err != nil {
		return err
	}
	if readOnly {
		return nil
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// RecordInstruction inserts rec into the instruction log and sets rec.ID.
func (s *SQLiteStore) RecordInstruction(ctx context.Context, rec *starboard.InstructionRecord) error {
	id, err := s.queries.CreateInstruction(ctx, sqlc.CreateInstructionParams{
		Instruction: rec.Instruction,
		Signer:      rec.Signer.String(),
		Parameters:  rec.Parameters,
		StartedAt:   rec.StartedAt.UTC(),
		FinishedAt:  rec.FinishedAt.UTC(),
		Status:      rec.Status,
		ErrorCode:   int64(rec.ErrorCode),
		Error:       rec.Error,
	})
	if err != nil {
		return fmt.Errorf("recording instruction: %w", err)
	}
	rec.ID = id
	return nil
}

// ListInstructions returns up to limit instructions, newest first. A limit
// of zero or less returns every instruction.
func (s *SQLiteStore) ListInstructions(ctx context.Context, limit int) ([]*starboard.InstructionRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.queries.ListInstructions(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("listing instructions: %w", err)
	}

	result := make([]*starboard.InstructionRecord, 0, len(rows))
	for _, row := range rows {
		signer, err := starboard.ParseAddress(row.Signer)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", row.ID, err)
		}
		result = append(result, &starboard.InstructionRecord{
			ID:          row.ID,
			Instruction: row.Instruction,
			Signer:      signer,
			Parameters:  row.Parameters,
			StartedAt:   row.StartedAt,
			FinishedAt:  row.FinishedAt,
			Status:      row.Status,
			ErrorCode:   uint32(row.ErrorCode),
			Error:       row.Error,
		})
	}
	return result, nil
}

// Path returns the ledger file path (or ":memory:").
func (s *SQLiteStore) Path() string {
	return s.path
}

// MigrateUp brings the schema to the latest version.
func (s *SQLiteStore) MigrateUp() error {
	return migrations.MigrateUp(s.db)
}

// CheckMigrations verifies the schema is up to date.
func (s *SQLiteStore) CheckMigrations() error {
	return migrations.CheckStatus(s.db)
}

// BackupTo writes a consistent copy of the ledger to destPath using VACUUM INTO.
func (s *SQLiteStore) BackupTo(destPath string) error {
	if _, err := s.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("snapshotting ledger: %w", err)
	}
	return nil
}

// Schema returns the CREATE statements of the ledger tables and indexes,
// excluding SQLite internals and the migration bookkeeping table.
func (s *SQLiteStore) Schema(ctx context.Context) (string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sql || ';'
		FROM sqlite_master
		WHERE type IN ('table', 'index')
		  AND sql IS NOT NULL
		  AND name NOT LIKE 'sqlite_%'
		  AND tbl_name != 'schema_migrations'
		ORDER BY CASE type WHEN 'table' THEN 1 ELSE 2 END, name`)
	if err != nil {
		return "", fmt.Errorf("reading schema: %w", err)
	}
	defer rows.Close()

	var b strings.Builder
	for rows.Next() {
		var stmt string
		if err := rows.Scan(&stmt); err != nil {
			return "", fmt.Errorf("reading schema: %w", err)
		}
		b.WriteString(stmt)
		b.WriteString("\n\n")
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("reading schema: %w", err)
	}
	return b.String(), nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

type sqliteTx struct {
	ctx      context.Context
	q        *sqlc.Queries
	readOnly bool
}

func (t *sqliteTx) Get(addr starboard.Address) (*starboard.Account, error) {
	row, err := t.q.GetAccount(t.ctx, addr[:])
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading account %s: %w", addr, err)
	}

	acct := &starboard.Account{Address: addr, Data: row.Data}
	if acct.Owner, err = starboard.AddressFromBytes(row.Owner); err != nil {
		return nil, fmt.Errorf("account %s owner: %w", addr, err)
	}
	return acct, nil
}

func (t *sqliteTx) Create(acct *starboard.Account) error {
	if t.readOnly {
		return errReadOnly
	}
	err := t.q.CreateAccount(t.ctx, sqlc.CreateAccountParams{
		Address: acct.Address[:],
		Owner:   acct.Owner[:],
		Data:    acct.Data,
	})
	if isConstraintViolation(err) {
		return fmt.Errorf("%w: %s", starboard.ErrAlreadyExists, acct.Address)
	}
	if err != nil {
		return fmt.Errorf("creating account %s: %w", acct.Address, err)
	}
	return nil
}

func (t *sqliteTx) Put(acct *starboard.Account) error {
	if t.readOnly {
		return errReadOnly
	}
	n, err := t.q.UpdateAccount(t.ctx, sqlc.UpdateAccountParams{
		Owner:   acct.Owner[:],
		Data:    acct.Data,
		Address: acct.Address[:],
	})
	if err != nil {
		return fmt.Errorf("writing account %s: %w", acct.Address, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", starboard.ErrNotFound, acct.Address)
	}
	return nil
}

func isConstraintViolation(err error) bool {
	var serr sqlite3.Error
	return errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint
}

var _ starboard.Store = (*SQLiteStore)(nil)
