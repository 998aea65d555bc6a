package domain

import "fmt"

// UserField names a column of the user record schema. The numeric values match
// the on-disk column positions and must not be permuted.
type UserField int

const (
	FieldUserID UserField = iota
	FieldUserName
	FieldUserType
	FieldUserBalance
	FieldUserDOB
	FieldUserAddress

	NumUserFields = 6
)

var userFieldNames = [NumUserFields]string{
	"id", "name", "type", "balance", "date of birth", "address",
}

func (f UserField) String() string {
	if f < 0 || int(f) >= NumUserFields {
		return fmt.Sprintf("UserField(%d)", int(f))
	}
	return userFieldNames[f]
}

// Mutable reports whether the field may be changed through the edit path.
// Identifier, name and account type are immutable once created.
func (f UserField) Mutable() bool {
	switch f {
	case FieldUserBalance, FieldUserDOB, FieldUserAddress:
		return true
	default:
		return false
	}
}

// AdminField names a column of the admin record schema.
type AdminField int

const (
	FieldAdminID AdminField = iota
	FieldAdminName
	FieldAdminBranch

	NumAdminFields = 3
)

var adminFieldNames = [NumAdminFields]string{"id", "name", "branch"}

func (f AdminField) String() string {
	if f < 0 || int(f) >= NumAdminFields {
		return fmt.Sprintf("AdminField(%d)", int(f))
	}
	return adminFieldNames[f]
}

// Column is a validated column selector: either every field or one positional
// index within the role's schema.
type Column struct {
	All   bool
	Index int
}

// FieldCount returns the schema width for a role.
func FieldCount(role Role) int {
	if role == RoleAdmin {
		return NumAdminFields
	}
	return NumUserFields
}

// FieldNames returns the column headings for a role, in schema order.
func FieldNames(role Role) []string {
	if role == RoleAdmin {
		return adminFieldNames[:]
	}
	return userFieldNames[:]
}

// Fields returns the user record as its on-disk column values.
func (u User) Fields() []string {
	return []string{
		u.ID,
		u.Name,
		string(u.Type),
		FormatAmount(u.Balance),
		u.DateOfBirth,
		u.Address,
	}
}

// UserFromFields decodes a user record from its on-disk column values.
func UserFromFields(fields []string) (User, error) {
	if len(fields) != NumUserFields {
		return User{}, fmt.Errorf("user record has %d fields, want %d", len(fields), NumUserFields)
	}
	balance, err := ParseAmount(fields[FieldUserBalance])
	if err != nil {
		return User{}, fmt.Errorf("user %s: bad balance: %w", fields[FieldUserID], err)
	}
	return User{
		ID:          fields[FieldUserID],
		Name:        fields[FieldUserName],
		Type:        AccountType(fields[FieldUserType]),
		Balance:     balance,
		DateOfBirth: fields[FieldUserDOB],
		Address:     fields[FieldUserAddress],
	}, nil
}

// Fields returns the admin record as its on-disk column values.
func (a Admin) Fields() []string {
	return []string{a.ID, a.Name, string(a.Branch)}
}

// AdminFromFields decodes an admin record from its on-disk column values.
func AdminFromFields(fields []string) (Admin, error) {
	if len(fields) != NumAdminFields {
		return Admin{}, fmt.Errorf("admin record has %d fields, want %d", len(fields), NumAdminFields)
	}
	return Admin{
		ID:     fields[FieldAdminID],
		Name:   fields[FieldAdminName],
		Branch: Branch(fields[FieldAdminBranch]),
	}, nil
}

// Fields returns the credential record as its on-disk column values.
func (c Credential) Fields() []string {
	return []string{c.ID, c.Password}
}

// CredentialFromFields decodes a credential record.
func CredentialFromFields(fields []string) (Credential, error) {
	if len(fields) != 2 {
		return Credential{}, fmt.Errorf("credential record has %d fields, want 2", len(fields))
	}
	return Credential{ID: fields[0], Password: fields[1]}, nil
}

// Fields returns the transaction-log entry as its on-disk column values.
func (t Transaction) Fields() []string {
	return []string{t.Date, t.UserID, t.Kind.Code(), FormatAmount(t.Amount), t.Description}
}

// TransactionFromFields decodes a transaction-log entry.
func TransactionFromFields(fields []string) (Transaction, error) {
	if len(fields) != 5 {
		return Transaction{}, fmt.Errorf("transaction record has %d fields, want 5", len(fields))
	}
	kind, err := KindFromCode(fields[2])
	if err != nil {
		return Transaction{}, err
	}
	amount, err := ParseAmount(fields[3])
	if err != nil {
		return Transaction{}, err
	}
	return Transaction{
		Date:        fields[0],
		UserID:      fields[1],
		Kind:        kind,
		Amount:      amount,
		Description: fields[4],
	}, nil
}

// Fields returns the transfer-log entry as its on-disk column values.
func (t Transfer) Fields() []string {
	return []string{t.Date, t.AdminID, FormatAmount(t.Amount), t.Description}
}

// TransferFromFields decodes a transfer-log entry.
func TransferFromFields(fields []string) (Transfer, error) {
	if len(fields) != 4 {
		return Transfer{}, fmt.Errorf("transfer record has %d fields, want 4", len(fields))
	}
	amount, err := ParseAmount(fields[2])
	if err != nil {
		return Transfer{}, err
	}
	return Transfer{
		Date:        fields[0],
		AdminID:     fields[1],
		Amount:      amount,
		Description: fields[3],
	}, nil
}
