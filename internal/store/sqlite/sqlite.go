// Package sqlite implements store.Store over an embedded SQLite database.
//
// Credentials are an embedded column of the record tables, so the paired-file
// alignment problem of the flat-file layout does not exist here, and SQL
// transactions make delete and transfer trivially all-or-nothing.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rumor-ml/commons.systems/bankledger/internal/domain"
	"github.com/rumor-ml/commons.systems/bankledger/internal/store"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id       TEXT PRIMARY KEY,
	name     TEXT NOT NULL,
	type     TEXT NOT NULL,
	balance  INTEGER NOT NULL CHECK (balance >= 0),
	dob      TEXT NOT NULL,
	address  TEXT NOT NULL,
	password TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS admins (
	id       TEXT PRIMARY KEY,
	name     TEXT NOT NULL,
	branch   TEXT NOT NULL,
	password TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS transactions (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	date        TEXT NOT NULL,
	user_id     TEXT NOT NULL,
	kind        TEXT NOT NULL,
	amount      INTEGER NOT NULL CHECK (amount >= 0),
	description TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS transfers (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	date        TEXT NOT NULL,
	admin_id    TEXT NOT NULL,
	amount      INTEGER NOT NULL CHECK (amount >= 0),
	description TEXT NOT NULL
);
`

// Store is the SQLite implementation of store.Store.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	// The whole tool is single-session; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) table(role domain.Role) string {
	if role == domain.RoleAdmin {
		return "admins"
	}
	return "users"
}

// CreateUser implements store.Store.
func (s *Store) CreateUser(ctx context.Context, user domain.User, password string) error {
	const q = `INSERT INTO users (id, name, type, balance, dob, address, password)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		user.ID, user.Name, string(user.Type), user.Balance, user.DateOfBirth, user.Address, password)
	return mapConstraint(err)
}

// CreateAdmin implements store.Store.
func (s *Store) CreateAdmin(ctx context.Context, admin domain.Admin, password string) error {
	const q = `INSERT INTO admins (id, name, branch, password) VALUES (?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q, admin.ID, admin.Name, string(admin.Branch), password)
	return mapConstraint(err)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (domain.User, error) {
	var u domain.User
	var accountType string
	if err := row.Scan(&u.ID, &u.Name, &accountType, &u.Balance, &u.DateOfBirth, &u.Address); err != nil {
		return domain.User{}, err
	}
	u.Type = domain.AccountType(accountType)
	return u, nil
}

// User implements store.Store.
func (s *Store) User(ctx context.Context, id string) (domain.User, error) {
	const q = `SELECT id, name, type, balance, dob, address FROM users WHERE id = ?`
	u, err := scanUser(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, store.ErrNotFound
	}
	return u, err
}

// Users implements store.Store.
func (s *Store) Users(ctx context.Context) ([]domain.User, error) {
	const q = `SELECT id, name, type, balance, dob, address FROM users ORDER BY rowid`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdateUser implements store.Store.
func (s *Store) UpdateUser(ctx context.Context, user domain.User) error {
	const q = `UPDATE users SET name = ?, type = ?, balance = ?, dob = ?, address = ? WHERE id = ?`
	res, err := s.db.ExecContext(ctx, q,
		user.Name, string(user.Type), user.Balance, user.DateOfBirth, user.Address, user.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Admin implements store.Store.
func (s *Store) Admin(ctx context.Context, id string) (domain.Admin, error) {
	const q = `SELECT id, name, branch FROM admins WHERE id = ?`
	var a domain.Admin
	var branch string
	err := s.db.QueryRowContext(ctx, q, id).Scan(&a.ID, &a.Name, &branch)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Admin{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Admin{}, err
	}
	a.Branch = domain.Branch(branch)
	return a, nil
}

// Credential implements store.Store.
func (s *Store) Credential(ctx context.Context, role domain.Role, id string) (domain.Credential, error) {
	q := fmt.Sprintf(`SELECT id, password FROM %s WHERE id = ?`, s.table(role))
	var c domain.Credential
	err := s.db.QueryRowContext(ctx, q, id).Scan(&c.ID, &c.Password)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Credential{}, store.ErrNotFound
	}
	return c, err
}

// Credentials implements store.Store.
func (s *Store) Credentials(ctx context.Context, role domain.Role) ([]domain.Credential, error) {
	q := fmt.Sprintf(`SELECT id, password FROM %s ORDER BY rowid`, s.table(role))
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Credential
	for rows.Next() {
		var c domain.Credential
		if err := rows.Scan(&c.ID, &c.Password); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SetPassword implements store.Store.
func (s *Store) SetPassword(ctx context.Context, role domain.Role, id, password string) error {
	q := fmt.Sprintf(`UPDATE %s SET password = ? WHERE id = ?`, s.table(role))
	res, err := s.db.ExecContext(ctx, q, password, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Delete implements store.Store. The record and its credential are one row,
// so the paired-delete alignment problem cannot occur.
func (s *Store) Delete(ctx context.Context, role domain.Role, id string) error {
	q := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, s.table(role))
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Transactions implements store.Store. An empty userID returns every entry.
func (s *Store) Transactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	q := `SELECT date, user_id, kind, amount, description FROM transactions ORDER BY seq`
	args := []any{}
	if userID != "" {
		q = `SELECT date, user_id, kind, amount, description FROM transactions WHERE user_id = ? ORDER BY seq`
		args = append(args, userID)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		var code string
		if err := rows.Scan(&t.Date, &t.UserID, &code, &t.Amount, &t.Description); err != nil {
			return nil, err
		}
		kind, err := domain.KindFromCode(code)
		if err != nil {
			return nil, err
		}
		t.Kind = kind
		out = append(out, t)
	}
	return out, rows.Err()
}

// Transfers implements store.Store.
func (s *Store) Transfers(ctx context.Context) ([]domain.Transfer, error) {
	const q = `SELECT date, admin_id, amount, description FROM transfers ORDER BY seq`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Transfer
	for rows.Next() {
		var t domain.Transfer
		if err := rows.Scan(&t.Date, &t.AdminID, &t.Amount, &t.Description); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ApplyPayment implements store.Store.
func (s *Store) ApplyPayment(ctx context.Context, user domain.User, txn domain.Transaction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := updateBalance(ctx, tx, user); err != nil {
		return err
	}
	if err := insertTransaction(ctx, tx, txn); err != nil {
		return err
	}
	return tx.Commit()
}

// ApplyTransfer implements store.Store.
func (s *Store) ApplyTransfer(ctx context.Context, sender, receiver domain.User,
	withdrawal, deposit domain.Transaction, transfer domain.Transfer) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := updateBalance(ctx, tx, sender); err != nil {
		return err
	}
	if err := updateBalance(ctx, tx, receiver); err != nil {
		return err
	}
	if err := insertTransaction(ctx, tx, withdrawal); err != nil {
		return err
	}
	if err := insertTransaction(ctx, tx, deposit); err != nil {
		return err
	}
	const ins = `INSERT INTO transfers (date, admin_id, amount, description) VALUES (?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, ins,
		transfer.Date, transfer.AdminID, transfer.Amount, transfer.Description); err != nil {
		return err
	}
	return tx.Commit()
}

// Close implements store.Store.
func (s *Store) Close() error {
	return s.db.Close()
}

func updateBalance(ctx context.Context, tx *sql.Tx, user domain.User) error {
	const q = `UPDATE users SET balance = ? WHERE id = ?`
	res, err := tx.ExecContext(ctx, q, user.Balance, user.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func insertTransaction(ctx context.Context, tx *sql.Tx, txn domain.Transaction) error {
	const q = `INSERT INTO transactions (date, user_id, kind, amount, description) VALUES (?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, q, txn.Date, txn.UserID, txn.Kind.Code(), txn.Amount, txn.Description)
	return err
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func mapConstraint(err error) error {
	if err == nil {
		return nil
	}
	// modernc.org/sqlite reports primary-key violations as constraint errors;
	// string matching is the portable check across driver versions.
	if strings.Contains(err.Error(), "constraint failed") {
		return store.ErrDuplicate
	}
	return err
}
