// Package store defines how ledger records are persisted.
package store

import (
	"context"
	"errors"

	"github.com/rumor-ml/commons.systems/bankledger/internal/domain"
)

var (
	// ErrNotFound reports that the identifier is absent from the relevant
	// records.
	ErrNotFound = errors.New("account not found")

	// ErrDuplicate reports a create with an already-used identifier.
	ErrDuplicate = errors.New("duplicate identifier")

	// ErrMisaligned reports that a record file and its paired credential file
	// no longer describe the same entities at the same positions.
	ErrMisaligned = errors.New("record and credential files are misaligned")
)

// Store persists customer and administrator records, their credentials, and
// the two append-only logs.
//
// Mutations are atomic from the caller's perspective: a failed call leaves the
// persisted state exactly as it was, and the paired record/credential files
// never go out of alignment.
type Store interface {
	// CreateUser appends a user record and, at the identical position, its
	// credential. Returns ErrDuplicate if the id is already used.
	CreateUser(ctx context.Context, user domain.User, password string) error
	User(ctx context.Context, id string) (domain.User, error)
	Users(ctx context.Context) ([]domain.User, error)
	// UpdateUser rewrites the stored record for user.ID in place.
	UpdateUser(ctx context.Context, user domain.User) error

	CreateAdmin(ctx context.Context, admin domain.Admin, password string) error
	Admin(ctx context.Context, id string) (domain.Admin, error)

	Credential(ctx context.Context, role domain.Role, id string) (domain.Credential, error)
	Credentials(ctx context.Context, role domain.Role) ([]domain.Credential, error)
	SetPassword(ctx context.Context, role domain.Role, id, password string) error

	// Delete removes the record and its paired credential in lockstep.
	Delete(ctx context.Context, role domain.Role, id string) error

	Transactions(ctx context.Context, userID string) ([]domain.Transaction, error)
	Transfers(ctx context.Context) ([]domain.Transfer, error)

	// ApplyPayment persists one balance mutation: the updated user record and
	// its transaction-log entry land together or not at all.
	ApplyPayment(ctx context.Context, user domain.User, txn domain.Transaction) error

	// ApplyTransfer persists a completed transfer: both updated user records,
	// the withdrawal and deposit log entries, and the transfer-log entry, as
	// one all-or-nothing unit.
	ApplyTransfer(ctx context.Context, sender, receiver domain.User,
		withdrawal, deposit domain.Transaction, transfer domain.Transfer) error

	Close() error
}

// Maintainer is implemented by stores whose backing files an operator may
// inspect and clear. The flat-file store implements it; the SQLite store does
// not expose its single database file this way.
type Maintainer interface {
	// DataFiles lists the base names of the files the store owns.
	DataFiles() []string
	// ClearFile truncates one owned file by base name.
	ClearFile(name string) error
}
