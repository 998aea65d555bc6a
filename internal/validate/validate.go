// Package validate provides the pure input predicates used before any record
// is written. None of these functions perform I/O.
package validate

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rumor-ml/commons.systems/bankledger/internal/domain"
)

// IDLength is the fixed width of customer and administrator identifiers.
const IDLength = 5

// PasswordSymbols is the closed set of symbols accepted by Password.
const PasswordSymbols = "!@#$%^&*()`~-_+={}[]|;:\"?/>.,<"

// minPasswordLength is the minimum accepted password length.
const minPasswordLength = 8

// ID reports whether id is exactly five decimal digits.
func ID(id string) bool {
	if len(id) != IDLength {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Password reports whether passwd is at least eight characters and contains at
// least one digit and one symbol from PasswordSymbols.
func Password(passwd string) bool {
	if len(passwd) < minPasswordLength {
		return false
	}
	return strings.ContainsAny(passwd, "0123456789") &&
		strings.ContainsAny(passwd, PasswordSymbols)
}

// AccountType reports whether t is a known account type.
func AccountType(t string) bool {
	return domain.ValidateAccountType(domain.AccountType(t))
}

// Branch reports whether b is a known branch.
func Branch(b string) bool {
	return domain.ValidateBranch(domain.Branch(b))
}

// Date reports whether dt has exactly two slash separators and forms a
// calendar-valid dd/mm/yyyy date.
func Date(dt string) bool {
	if strings.Count(dt, "/") != 2 {
		return false
	}
	_, err := domain.ParseDate(dt)
	return err == nil
}

// Age returns the whole-year age for a dd/mm/yyyy date of birth at the given
// instant, using day-count floor division by 365. The dob must already be
// validated with Date.
func Age(dob string, now time.Time) (int, error) {
	born, err := domain.ParseDate(dob)
	if err != nil {
		return 0, err
	}
	days := int(now.Sub(born).Hours() / 24)
	return days / 365, nil
}

// Column parses a column selector: the literal "all" or a positional index
// inside the role's schema. A selector outside the schema range is an error.
func Column(col string, role domain.Role) (domain.Column, error) {
	if col == "all" {
		return domain.Column{All: true}, nil
	}
	idx, err := strconv.Atoi(col)
	if err != nil {
		return domain.Column{}, fmt.Errorf("invalid column %q: must be \"all\" or an index", col)
	}
	if idx < 0 || idx >= domain.FieldCount(role) {
		return domain.Column{}, fmt.Errorf("column %d out of range for %s records (0-%d)",
			idx, role, domain.FieldCount(role)-1)
	}
	return domain.Column{Index: idx}, nil
}

// UserFieldValue reports whether value is acceptable for the given user
// column. Free-text columns accept anything; typed columns apply their own
// validator.
func UserFieldValue(field domain.UserField, value string) bool {
	switch field {
	case domain.FieldUserID:
		return ID(value)
	case domain.FieldUserType:
		return AccountType(value)
	case domain.FieldUserBalance:
		v, err := domain.ParseAmount(value)
		return err == nil && v >= 0
	case domain.FieldUserDOB:
		return Date(value)
	default:
		return true
	}
}
