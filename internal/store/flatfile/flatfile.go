// Package flatfile implements store.Store over six comma-delimited text
// files: user and admin records, their row-aligned credential files, and the
// two append-only logs.
//
// A single mutex serializes every operation; the whole-file-rewrite mutation
// strategy is unsafe under concurrent writers, so the store never allows one.
package flatfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rumor-ml/commons.systems/bankledger/internal/domain"
	"github.com/rumor-ml/commons.systems/bankledger/internal/recordfile"
	"github.com/rumor-ml/commons.systems/bankledger/internal/store"
)

// Base names of the files the store owns, kept from the legacy layout so
// existing data directories load unchanged.
const (
	UsersFile        = "userDB.txt"
	UserCredsFile    = "userPK.txt"
	AdminsFile       = "adminDB.txt"
	AdminCredsFile   = "adminPK.txt"
	TransactionsFile = "transactions.txt"
	TransfersFile    = "transfers.txt"
)

// Store is the flat-file implementation of store.Store.
type Store struct {
	mu  sync.Mutex
	dir string

	users        *recordfile.File
	userCreds    *recordfile.File
	admins       *recordfile.File
	adminCreds   *recordfile.File
	transactions *recordfile.File
	transfers    *recordfile.File
}

var (
	_ store.Store      = (*Store)(nil)
	_ store.Maintainer = (*Store)(nil)
)

// Open creates a flat-file store rooted at dir, creating the directory if
// needed. Missing data files read as empty and are created on first write.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}
	return &Store{
		dir:          dir,
		users:        recordfile.NewTrailing(filepath.Join(dir, UsersFile)),
		userCreds:    recordfile.New(filepath.Join(dir, UserCredsFile)),
		admins:       recordfile.NewTrailing(filepath.Join(dir, AdminsFile)),
		adminCreds:   recordfile.New(filepath.Join(dir, AdminCredsFile)),
		transactions: recordfile.New(filepath.Join(dir, TransactionsFile)),
		transfers:    recordfile.New(filepath.Join(dir, TransfersFile)),
	}, nil
}

func (s *Store) pair(role domain.Role) (records, creds *recordfile.File) {
	if role == domain.RoleAdmin {
		return s.admins, s.adminCreds
	}
	return s.users, s.userCreds
}

// CreateUser implements store.Store. The duplicate check runs against the
// credential file, which is the identifier authority for its pair.
func (s *Store) CreateUser(ctx context.Context, user domain.User, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.createPair(domain.RoleUser, user.ID, user.Fields(), password)
}

// CreateAdmin implements store.Store.
func (s *Store) CreateAdmin(ctx context.Context, admin domain.Admin, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.createPair(domain.RoleAdmin, admin.ID, admin.Fields(), password)
}

func (s *Store) createPair(role domain.Role, id string, fields []string, password string) error {
	records, creds := s.pair(role)
	if _, err := creds.FindLine(id); err == nil {
		return store.ErrDuplicate
	} else if !errors.Is(err, recordfile.ErrNotFound) {
		return err
	}

	if err := records.Append(fields); err != nil {
		return err
	}
	cred := domain.Credential{ID: id, Password: password}
	if err := creds.Append(cred.Fields()); err != nil {
		// Undo the record append so the pair stays aligned.
		all, rerr := records.Records()
		if rerr == nil && len(all) > 0 {
			rerr = records.DeleteLine(len(all) - 1)
		}
		if rerr != nil {
			return fmt.Errorf("%w: credential append failed (%v) and record rollback failed: %w",
				store.ErrMisaligned, err, rerr)
		}
		return err
	}
	return nil
}

// User implements store.Store.
func (s *Store) User(ctx context.Context, id string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	return s.user(id)
}

func (s *Store) user(id string) (domain.User, error) {
	fields, _, err := s.users.Record(id)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return domain.UserFromFields(fields)
}

// Users implements store.Store.
func (s *Store) Users(ctx context.Context) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records, err := s.users.Records()
	if err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(records))
	for _, rec := range records {
		u, err := domain.UserFromFields(rec)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

// UpdateUser implements store.Store.
func (s *Store) UpdateUser(ctx context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	idx, err := s.users.FindLine(user.ID)
	if err != nil {
		return mapNotFound(err)
	}
	return s.users.ReplaceLine(idx, user.Fields())
}

// Admin implements store.Store.
func (s *Store) Admin(ctx context.Context, id string) (domain.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return domain.Admin{}, err
	}
	fields, _, err := s.admins.Record(id)
	if err != nil {
		return domain.Admin{}, mapNotFound(err)
	}
	return domain.AdminFromFields(fields)
}

// Credential implements store.Store.
func (s *Store) Credential(ctx context.Context, role domain.Role, id string) (domain.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return domain.Credential{}, err
	}
	_, creds := s.pair(role)
	fields, _, err := creds.Record(id)
	if err != nil {
		return domain.Credential{}, mapNotFound(err)
	}
	return domain.CredentialFromFields(fields)
}

// Credentials implements store.Store.
func (s *Store) Credentials(ctx context.Context, role domain.Role) ([]domain.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, creds := s.pair(role)
	records, err := creds.Records()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Credential, 0, len(records))
	for _, rec := range records {
		c, err := domain.CredentialFromFields(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// SetPassword implements store.Store.
func (s *Store) SetPassword(ctx context.Context, role domain.Role, id, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	_, creds := s.pair(role)
	idx, err := creds.FindLine(id)
	if err != nil {
		return mapNotFound(err)
	}
	cred := domain.Credential{ID: id, Password: password}
	return creds.ReplaceLine(idx, cred.Fields())
}

// Delete implements store.Store. The record and its credential are removed at
// the same line index; a failure after the first rewrite is rolled back so the
// pair never desynchronizes.
func (s *Store) Delete(ctx context.Context, role domain.Role, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	records, creds := s.pair(role)

	recIdx, err := records.FindLine(id)
	if err != nil {
		return mapNotFound(err)
	}
	credIdx, err := creds.FindLine(id)
	if err != nil {
		return mapNotFound(err)
	}
	if recIdx != credIdx {
		return fmt.Errorf("%w: %s found at record line %d but credential line %d",
			store.ErrMisaligned, id, recIdx, credIdx)
	}

	original, err := records.Records()
	if err != nil {
		return err
	}
	if err := records.DeleteLine(recIdx); err != nil {
		return err
	}
	if err := creds.DeleteLine(credIdx); err != nil {
		if rerr := records.WriteAll(original); rerr != nil {
			return fmt.Errorf("%w: credential delete failed (%v) and record restore failed: %w",
				store.ErrMisaligned, err, rerr)
		}
		return err
	}
	return nil
}

// Transactions implements store.Store. An empty userID returns every entry.
func (s *Store) Transactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records, err := s.transactions.Records()
	if err != nil {
		return nil, err
	}
	var out []domain.Transaction
	for _, rec := range records {
		t, err := domain.TransactionFromFields(rec)
		if err != nil {
			return nil, err
		}
		if userID == "" || t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

// Transfers implements store.Store.
func (s *Store) Transfers(ctx context.Context) ([]domain.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records, err := s.transfers.Records()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Transfer, 0, len(records))
	for _, rec := range records {
		t, err := domain.TransferFromFields(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// ApplyPayment implements store.Store. The balance rewrite lands first (one
// atomic rename); a failed log append rolls the balance back.
func (s *Store) ApplyPayment(ctx context.Context, user domain.User, txn domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	idx, err := s.users.FindLine(user.ID)
	if err != nil {
		return mapNotFound(err)
	}
	original, err := s.users.Records()
	if err != nil {
		return err
	}
	origRec := original[idx]

	if err := s.users.ReplaceLine(idx, user.Fields()); err != nil {
		return err
	}
	if err := s.transactions.Append(txn.Fields()); err != nil {
		if rerr := s.users.ReplaceLine(idx, origRec); rerr != nil {
			return fmt.Errorf("transaction log append failed (%v) and balance rollback failed: %w", err, rerr)
		}
		return err
	}
	return nil
}

// ApplyTransfer implements store.Store. Both balance changes land in a single
// atomic ledger rewrite; the three log appends follow, each rolled back on a
// later failure.
func (s *Store) ApplyTransfer(ctx context.Context, sender, receiver domain.User,
	withdrawal, deposit domain.Transaction, transfer domain.Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	records, err := s.users.Records()
	if err != nil {
		return err
	}
	senderIdx, err := s.users.FindLine(sender.ID)
	if err != nil {
		return mapNotFound(err)
	}
	receiverIdx, err := s.users.FindLine(receiver.ID)
	if err != nil {
		return mapNotFound(err)
	}

	original := make([][]string, len(records))
	copy(original, records)
	records[senderIdx] = sender.Fields()
	records[receiverIdx] = receiver.Fields()

	if err := s.users.WriteAll(records); err != nil {
		return err
	}

	restore := func(appended int, cause error) error {
		var errs []error
		for i := 0; i < appended; i++ {
			all, rerr := s.transactions.Records()
			if rerr == nil && len(all) > 0 {
				rerr = s.transactions.DeleteLine(len(all) - 1)
			}
			if rerr != nil {
				errs = append(errs, rerr)
			}
		}
		if rerr := s.users.WriteAll(original); rerr != nil {
			errs = append(errs, rerr)
		}
		if len(errs) > 0 {
			return fmt.Errorf("transfer log append failed (%v) and rollback failed: %w", cause, errors.Join(errs...))
		}
		return cause
	}

	if err := s.transactions.Append(withdrawal.Fields()); err != nil {
		return restore(0, err)
	}
	if err := s.transactions.Append(deposit.Fields()); err != nil {
		return restore(1, err)
	}
	if err := s.transfers.Append(transfer.Fields()); err != nil {
		return restore(2, err)
	}
	return nil
}

// Close implements store.Store. The flat-file store holds no open handles
// between operations.
func (s *Store) Close() error {
	return nil
}

// DataFiles implements store.Maintainer.
func (s *Store) DataFiles() []string {
	return []string{
		UsersFile, UserCredsFile, AdminsFile, AdminCredsFile,
		TransactionsFile, TransfersFile,
	}
}

// ClearFile implements store.Maintainer.
func (s *Store) ClearFile(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range []*recordfile.File{
		s.users, s.userCreds, s.admins, s.adminCreds, s.transactions, s.transfers,
	} {
		if filepath.Base(f.Path()) == name {
			return f.Clear()
		}
	}
	return fmt.Errorf("unknown data file %q", name)
}

func mapNotFound(err error) error {
	if errors.Is(err, recordfile.ErrNotFound) {
		return store.ErrNotFound
	}
	return err
}
