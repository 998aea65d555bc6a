// Package ledger implements the domain operations of the bank: account
// creation, field edits, money movement and statements.
//
// Every mutating operation validates its inputs completely before touching the
// store, so the first failing check aborts with no side effect. Atomicity of
// the writes themselves is the store's contract.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rumor-ml/commons.systems/bankledger/internal/domain"
	"github.com/rumor-ml/commons.systems/bankledger/internal/policy"
	"github.com/rumor-ml/commons.systems/bankledger/internal/store"
	"github.com/rumor-ml/commons.systems/bankledger/internal/validate"
)

// Engine executes ledger operations against a Store under a Policy.
type Engine struct {
	store  store.Store
	policy *policy.Policy
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the engine's clock. Tests use this to pin transaction
// dates and ages.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine over the given store and policy.
func New(st store.Store, pol *policy.Policy, opts ...Option) *Engine {
	e := &Engine{store: st, policy: pol, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateUser validates and persists a new customer account together with its
// credential. Checks run in a fixed order and the first failure aborts with no
// write: id format, duplicate, date of birth, age bounds, password strength,
// account type, balance floor.
func (e *Engine) CreateUser(ctx context.Context, user domain.User, password string) error {
	if !validate.ID(user.ID) {
		return fmt.Errorf("id %q: %w", user.ID, ErrInvalidID)
	}
	if _, err := e.store.Credential(ctx, domain.RoleUser, user.ID); err == nil {
		return fmt.Errorf("user %s: %w", user.ID, store.ErrDuplicate)
	} else if !isNotFound(err) {
		return fmt.Errorf("duplicate check for %s: %w", user.ID, err)
	}
	if !validate.Date(user.DateOfBirth) {
		return fmt.Errorf("date of birth %q: %w", user.DateOfBirth, ErrInvalidDate)
	}
	age, err := validate.Age(user.DateOfBirth, e.now())
	if err != nil {
		return err
	}
	if age < e.policy.MinAge || age > e.policy.MaxAge {
		return fmt.Errorf("age %d not in %d-%d: %w", age, e.policy.MinAge, e.policy.MaxAge, ErrAgeOutOfRange)
	}
	if !validate.Password(password) {
		return ErrWeakPassword
	}
	if !domain.ValidateAccountType(user.Type) {
		return fmt.Errorf("account type %q: %w", user.Type, ErrInvalidAccountType)
	}
	if user.Balance < 0 {
		return fmt.Errorf("opening balance %d: %w", user.Balance, ErrNegativeAmount)
	}
	if err := e.store.CreateUser(ctx, user, password); err != nil {
		return fmt.Errorf("failed to create user %s: %w", user.ID, err)
	}
	return nil
}

// CreateAdmin validates and persists a new administrator with its credential.
// Same shape as CreateUser, without the age check.
func (e *Engine) CreateAdmin(ctx context.Context, admin domain.Admin, password string) error {
	if !validate.ID(admin.ID) {
		return fmt.Errorf("id %q: %w", admin.ID, ErrInvalidID)
	}
	if _, err := e.store.Credential(ctx, domain.RoleAdmin, admin.ID); err == nil {
		return fmt.Errorf("admin %s: %w", admin.ID, store.ErrDuplicate)
	} else if !isNotFound(err) {
		return fmt.Errorf("duplicate check for %s: %w", admin.ID, err)
	}
	if !validate.Password(password) {
		return ErrWeakPassword
	}
	if !domain.ValidateBranch(admin.Branch) {
		return fmt.Errorf("branch %q: %w", admin.Branch, ErrInvalidBranch)
	}
	if err := e.store.CreateAdmin(ctx, admin, password); err != nil {
		return fmt.Errorf("failed to create admin %s: %w", admin.ID, err)
	}
	return nil
}

// ReadField returns the selected column(s) of a record. The column selector is
// "all" or a positional index within the role's schema; a bad column is a
// distinct error from an unknown id.
func (e *Engine) ReadField(ctx context.Context, role domain.Role, id, column string) ([]string, error) {
	col, err := validate.Column(column, role)
	if err != nil {
		return nil, err
	}
	var fields []string
	switch role {
	case domain.RoleAdmin:
		admin, err := e.store.Admin(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("admin %s: %w", id, err)
		}
		fields = admin.Fields()
	default:
		user, err := e.store.User(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("user %s: %w", id, err)
		}
		fields = user.Fields()
	}
	if col.All {
		return fields, nil
	}
	return []string{fields[col.Index]}, nil
}

// EditField changes one mutable column of a user record. Identifier, name and
// account type are not editable; the new value is checked with the column's
// own validator before the rewrite.
func (e *Engine) EditField(ctx context.Context, id string, field domain.UserField, value string) error {
	if !field.Mutable() {
		return fmt.Errorf("%s: %w", field, ErrImmutableField)
	}
	if !validate.UserFieldValue(field, value) {
		return fmt.Errorf("%s %q: %w", field, value, ErrInvalidFieldValue)
	}
	user, err := e.store.User(ctx, id)
	if err != nil {
		return fmt.Errorf("user %s: %w", id, err)
	}
	fields := user.Fields()
	fields[field] = value
	updated, err := domain.UserFromFields(fields)
	if err != nil {
		return err
	}
	if err := e.store.UpdateUser(ctx, updated); err != nil {
		return fmt.Errorf("failed to update user %s: %w", id, err)
	}
	return nil
}

// Delete removes a record and its credential in lockstep.
func (e *Engine) Delete(ctx context.Context, role domain.Role, id string) error {
	if err := e.store.Delete(ctx, role, id); err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", role, id, err)
	}
	return nil
}

// Withdraw debits a user account and appends the transaction-log entry.
// Validation order: account exists, amount non-negative, per-type ceiling,
// description length, sufficient funds.
func (e *Engine) Withdraw(ctx context.Context, id string, amount int64, description string) (domain.Transaction, error) {
	user, err := e.store.User(ctx, id)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("user %s: %w", id, err)
	}
	txn, err := e.debit(&user, amount, description)
	if err != nil {
		return domain.Transaction{}, err
	}
	if err := e.store.ApplyPayment(ctx, user, txn); err != nil {
		return domain.Transaction{}, fmt.Errorf("failed to apply withdrawal for %s: %w", id, err)
	}
	return txn, nil
}

// Deposit credits a user account and appends the transaction-log entry. Same
// shape as Withdraw without the ceiling and funds checks.
func (e *Engine) Deposit(ctx context.Context, id string, amount int64, description string) (domain.Transaction, error) {
	user, err := e.store.User(ctx, id)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("user %s: %w", id, err)
	}
	txn, err := e.credit(&user, amount, description)
	if err != nil {
		return domain.Transaction{}, err
	}
	if err := e.store.ApplyPayment(ctx, user, txn); err != nil {
		return domain.Transaction{}, fmt.Errorf("failed to apply deposit for %s: %w", id, err)
	}
	return txn, nil
}

// Receipt identifies a completed transfer.
type Receipt struct {
	Reference string
	Transfer  domain.Transfer
}

// Transfer moves money between two user accounts on behalf of an
// administrator. The sender debit, receiver credit, both transaction-log
// entries and the transfer-log entry are applied as one all-or-nothing unit;
// a failure anywhere leaves every file unchanged.
func (e *Engine) Transfer(ctx context.Context, adminID, senderID, receiverID string, amount int64, description string) (Receipt, error) {
	if _, err := e.store.Admin(ctx, adminID); err != nil {
		return Receipt{}, fmt.Errorf("admin %s: %w", adminID, err)
	}
	if senderID == receiverID {
		return Receipt{}, fmt.Errorf("%s: %w", senderID, ErrSameAccount)
	}
	sender, err := e.store.User(ctx, senderID)
	if err != nil {
		return Receipt{}, fmt.Errorf("sender %s: %w", senderID, err)
	}
	receiver, err := e.store.User(ctx, receiverID)
	if err != nil {
		return Receipt{}, fmt.Errorf("receiver %s: %w", receiverID, err)
	}
	withdrawal, err := e.debit(&sender, amount, description)
	if err != nil {
		return Receipt{}, err
	}
	deposit, err := e.credit(&receiver, amount, description)
	if err != nil {
		return Receipt{}, err
	}
	transfer := domain.Transfer{
		Date:        domain.FormatDate(e.now()),
		AdminID:     adminID,
		Amount:      amount,
		Description: description,
	}
	if err := e.store.ApplyTransfer(ctx, sender, receiver, withdrawal, deposit, transfer); err != nil {
		return Receipt{}, fmt.Errorf("failed to apply transfer %s -> %s: %w", senderID, receiverID, err)
	}
	return Receipt{Reference: uuid.NewString(), Transfer: transfer}, nil
}

// Authenticate checks an id/password pair against the role's credentials. An
// unknown id and a wrong password produce the same error.
func (e *Engine) Authenticate(ctx context.Context, role domain.Role, id, password string) error {
	cred, err := e.store.Credential(ctx, role, id)
	if err != nil {
		if isNotFound(err) {
			return ErrBadCredentials
		}
		return fmt.Errorf("credential lookup for %s: %w", id, err)
	}
	if cred.Password != password {
		return ErrBadCredentials
	}
	return nil
}

// ChangePassword verifies the old password and stores a new one that meets
// the strength rules.
func (e *Engine) ChangePassword(ctx context.Context, role domain.Role, id, oldPassword, newPassword string) error {
	if err := e.Authenticate(ctx, role, id, oldPassword); err != nil {
		return err
	}
	if !validate.Password(newPassword) {
		return ErrWeakPassword
	}
	if err := e.store.SetPassword(ctx, role, id, newPassword); err != nil {
		return fmt.Errorf("failed to set password for %s: %w", id, err)
	}
	return nil
}

// ListUsers returns every user credential record, in file order.
func (e *Engine) ListUsers(ctx context.Context) ([]domain.Credential, error) {
	return e.store.Credentials(ctx, domain.RoleUser)
}

// User returns one customer record.
func (e *Engine) User(ctx context.Context, id string) (domain.User, error) {
	user, err := e.store.User(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("user %s: %w", id, err)
	}
	return user, nil
}

// debit validates a withdrawal against user and decrements the in-memory
// balance. Nothing is persisted here.
func (e *Engine) debit(user *domain.User, amount int64, description string) (domain.Transaction, error) {
	if amount < 0 {
		return domain.Transaction{}, fmt.Errorf("amount %d: %w", amount, ErrNegativeAmount)
	}
	if limit := e.policy.WithdrawalLimit(user.Type); amount > limit {
		return domain.Transaction{}, fmt.Errorf("amount %d over %s limit %d: %w", amount, user.Type, limit, ErrWithdrawalLimit)
	}
	if err := e.checkDescription(description); err != nil {
		return domain.Transaction{}, err
	}
	if amount > user.Balance {
		return domain.Transaction{}, fmt.Errorf("amount %d exceeds balance %d: %w", amount, user.Balance, ErrInsufficientFunds)
	}
	user.Balance -= amount
	return domain.Transaction{
		Date:        domain.FormatDate(e.now()),
		UserID:      user.ID,
		Kind:        domain.KindWithdrawal,
		Amount:      amount,
		Description: description,
	}, nil
}

// credit validates a deposit against user and increments the in-memory
// balance.
func (e *Engine) credit(user *domain.User, amount int64, description string) (domain.Transaction, error) {
	if amount < 0 {
		return domain.Transaction{}, fmt.Errorf("amount %d: %w", amount, ErrNegativeAmount)
	}
	if err := e.checkDescription(description); err != nil {
		return domain.Transaction{}, err
	}
	user.Balance += amount
	return domain.Transaction{
		Date:        domain.FormatDate(e.now()),
		UserID:      user.ID,
		Kind:        domain.KindDeposit,
		Amount:      amount,
		Description: description,
	}, nil
}

func (e *Engine) checkDescription(description string) error {
	if len(description) > e.policy.MaxDescriptionLength {
		return fmt.Errorf("description %d chars, limit %d: %w",
			len(description), e.policy.MaxDescriptionLength, ErrDescriptionLength)
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
