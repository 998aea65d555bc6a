// Package domain defines the record types persisted by the ledger and the
// closed enums they reference.
package domain

import (
	"fmt"
	"strconv"
	"time"
)

// AccountType represents the customer account type enum.
// Use ValidateAccountType to ensure validity before use.
type AccountType string

const (
	AccountTypeSavings AccountType = "savings"
	AccountTypeCurrent AccountType = "current"
)

var validAccountTypes = map[AccountType]struct{}{
	AccountTypeSavings: {},
	AccountTypeCurrent: {},
}

// ValidateAccountType checks if the account type is valid.
func ValidateAccountType(t AccountType) bool {
	_, ok := validAccountTypes[t]
	return ok
}

// Branch represents the administrator branch enum.
type Branch string

const (
	Branch1 Branch = "1"
	Branch2 Branch = "2"
	Branch3 Branch = "3"
)

var validBranches = map[Branch]struct{}{
	Branch1: {}, Branch2: {}, Branch3: {},
}

// ValidateBranch checks if the branch is valid.
func ValidateBranch(b Branch) bool {
	_, ok := validBranches[b]
	return ok
}

// TransactionKind represents the direction of a balance mutation.
type TransactionKind string

const (
	KindWithdrawal TransactionKind = "withdrawal"
	KindDeposit    TransactionKind = "deposit"
)

// Code returns the single-letter code used in the transaction log.
func (k TransactionKind) Code() string {
	if k == KindWithdrawal {
		return "w"
	}
	return "d"
}

// KindFromCode maps a transaction-log code back to a kind.
func KindFromCode(code string) (TransactionKind, error) {
	switch code {
	case "w":
		return KindWithdrawal, nil
	case "d":
		return KindDeposit, nil
	default:
		return "", fmt.Errorf("unknown transaction code %q", code)
	}
}

// Role distinguishes the two record/credential file pairs.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// DateLayout is the on-disk date format (dd/mm/yyyy).
const DateLayout = "02/01/2006"

// ParseDate parses a dd/mm/yyyy date string into a calendar-validated time.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected dd/mm/yyyy): %w", s, err)
	}
	return t, nil
}

// FormatDate formats a time as dd/mm/yyyy.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// User is a customer record. Balance is whole dollars, never negative.
type User struct {
	ID          string
	Name        string
	Type        AccountType
	Balance     int64
	DateOfBirth string // dd/mm/yyyy
	Address     string
}

// Admin is an administrator record.
type Admin struct {
	ID     string
	Name   string
	Branch Branch
}

// Credential pairs an identifier with its password. The credential file for a
// role is row-aligned with the matching record file.
type Credential struct {
	ID       string
	Password string
}

// Transaction is one append-only transaction-log entry.
type Transaction struct {
	Date        string // dd/mm/yyyy
	UserID      string
	Kind        TransactionKind
	Amount      int64
	Description string
}

// Transfer is one append-only transfer-log entry, recorded in addition to the
// withdrawal/deposit pair the transfer produced.
type Transfer struct {
	Date        string // dd/mm/yyyy
	AdminID     string
	Amount      int64
	Description string
}

// NewUser creates a user record. Callers are expected to have validated the
// free-form inputs already; this guards the enum, the date, and the balance
// floor.
func NewUser(id, name string, accountType AccountType, balance int64, dateOfBirth, address string) (*User, error) {
	if !ValidateAccountType(accountType) {
		return nil, fmt.Errorf("invalid account type: %s", accountType)
	}
	if balance < 0 {
		return nil, fmt.Errorf("balance cannot be negative, got %d", balance)
	}
	if _, err := ParseDate(dateOfBirth); err != nil {
		return nil, err
	}
	return &User{
		ID:          id,
		Name:        name,
		Type:        accountType,
		Balance:     balance,
		DateOfBirth: dateOfBirth,
		Address:     address,
	}, nil
}

// NewAdmin creates an administrator record.
func NewAdmin(id, name string, branch Branch) (*Admin, error) {
	if !ValidateBranch(branch) {
		return nil, fmt.Errorf("invalid branch: %s", branch)
	}
	return &Admin{ID: id, Name: name, Branch: branch}, nil
}

// FormatAmount formats a whole-dollar amount as its decimal string.
func FormatAmount(v int64) string {
	return strconv.FormatInt(v, 10)
}

// ParseAmount parses a whole-dollar amount string. The sign is preserved so
// callers can reject negatives with their own message.
func ParseAmount(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: must be a whole number", s)
	}
	return v, nil
}
