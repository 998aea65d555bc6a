package ledger

import "errors"

// Business-rule failures. Each operation wraps these with the offending
// values; callers match with errors.Is and print the wrapped message verbatim.
var (
	ErrInvalidID          = errors.New("identifier must be exactly five digits")
	ErrWeakPassword       = errors.New("password must be at least eight characters with a digit and a symbol")
	ErrInvalidDate        = errors.New("date must be a valid dd/mm/yyyy date")
	ErrInvalidAccountType = errors.New("account type must be savings or current")
	ErrInvalidBranch      = errors.New("branch must be 1, 2 or 3")
	ErrAgeOutOfRange      = errors.New("age outside the permitted range")
	ErrNegativeAmount     = errors.New("amount must not be negative")
	ErrWithdrawalLimit    = errors.New("amount exceeds the withdrawal limit for this account type")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrDescriptionLength  = errors.New("description is too long")
	ErrImmutableField     = errors.New("field cannot be edited")
	ErrInvalidFieldValue  = errors.New("value is not valid for this field")
	ErrSameAccount        = errors.New("sender and receiver are the same account")
	ErrDateOrder          = errors.New("start date is after end date")
	ErrBadCredentials     = errors.New("incorrect id or password")
)
