package flatfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rumor-ml/commons.systems/bankledger/internal/domain"
	"github.com/rumor-ml/commons.systems/bankledger/internal/store"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	return s, dir
}

func testUser(id string, balance int64) domain.User {
	return domain.User{
		ID:          id,
		Name:        "May Clark",
		Type:        domain.AccountTypeSavings,
		Balance:     balance,
		DateOfBirth: "15/06/1990",
		Address:     "12 High Street",
	}
}

func TestCreateUserRoundTrip(t *testing.T) {
	s, dir := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, testUser("12345", 100), "defaultpass#0"))

	got, err := s.User(ctx, "12345")
	require.NoError(t, err)
	assert.Equal(t, testUser("12345", 100), got)

	cred, err := s.Credential(ctx, domain.RoleUser, "12345")
	require.NoError(t, err)
	assert.Equal(t, "defaultpass#0", cred.Password)

	// Legacy layout: record lines end with a trailing comma, credentials don't.
	data, err := os.ReadFile(filepath.Join(dir, UsersFile))
	require.NoError(t, err)
	assert.Equal(t, "12345,May Clark,savings,100,15/06/1990,12 High Street,\n", string(data))

	data, err = os.ReadFile(filepath.Join(dir, UserCredsFile))
	require.NoError(t, err)
	assert.Equal(t, "12345,defaultpass#0\n", string(data))
}

func TestCreateUserDuplicate(t *testing.T) {
	s, dir := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, testUser("12345", 100), "defaultpass#0"))
	err := s.CreateUser(ctx, testUser("12345", 999), "other-pass#1")
	assert.ErrorIs(t, err, store.ErrDuplicate)

	// The first record is untouched and no extra line was written.
	got, err := s.User(ctx, "12345")
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.Balance)

	data, err := os.ReadFile(filepath.Join(dir, UsersFile))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "\n"))
}

func TestUserNotFound(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.User(context.Background(), "99999")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUserTruncatedIDNotFound(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, testUser("12345", 100), "defaultpass#0"))

	// A leading fragment of a stored id names no account.
	for _, id := range []string{"123", "1234", "1", "123456", ""} {
		_, err := s.User(ctx, id)
		assert.ErrorIs(t, err, store.ErrNotFound, "id %q", id)

		_, err = s.Credential(ctx, domain.RoleUser, id)
		assert.ErrorIs(t, err, store.ErrNotFound, "id %q", id)
	}
}

func TestUpdateUser(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, testUser("12345", 100), "defaultpass#0"))

	u := testUser("12345", 250)
	u.Address = "9 New Road"
	require.NoError(t, s.UpdateUser(ctx, u))

	got, err := s.User(ctx, "12345")
	require.NoError(t, err)
	assert.Equal(t, int64(250), got.Balance)
	assert.Equal(t, "9 New Road", got.Address)

	assert.ErrorIs(t, s.UpdateUser(ctx, testUser("99999", 0)), store.ErrNotFound)
}

func TestCreateAdminAndCredentials(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	admin := domain.Admin{ID: "54321", Name: "Ray Boss", Branch: domain.Branch2}
	require.NoError(t, s.CreateAdmin(ctx, admin, "adminpass#1"))

	got, err := s.Admin(ctx, "54321")
	require.NoError(t, err)
	assert.Equal(t, admin, got)

	creds, err := s.Credentials(ctx, domain.RoleAdmin)
	require.NoError(t, err)
	require.Len(t, creds, 1)
	assert.Equal(t, domain.Credential{ID: "54321", Password: "adminpass#1"}, creds[0])
}

func TestSetPassword(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, testUser("12345", 100), "defaultpass#0"))
	require.NoError(t, s.SetPassword(ctx, domain.RoleUser, "12345", "newpass#42"))

	cred, err := s.Credential(ctx, domain.RoleUser, "12345")
	require.NoError(t, err)
	assert.Equal(t, "newpass#42", cred.Password)

	assert.ErrorIs(t, s.SetPassword(ctx, domain.RoleUser, "99999", "x"), store.ErrNotFound)
}

func TestDeleteRemovesBothFilesInLockstep(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, testUser("11111", 100), "pass-one#1"))
	require.NoError(t, s.CreateUser(ctx, testUser("22222", 100), "pass-two#2"))
	require.NoError(t, s.CreateUser(ctx, testUser("33333", 100), "pass-three#3"))

	require.NoError(t, s.Delete(ctx, domain.RoleUser, "22222"))

	_, err := s.User(ctx, "22222")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.Credential(ctx, domain.RoleUser, "22222")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// The surviving pairs stay row-aligned.
	users, err := s.Users(ctx)
	require.NoError(t, err)
	creds, err := s.Credentials(ctx, domain.RoleUser)
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Len(t, creds, 2)
	for i := range users {
		assert.Equal(t, users[i].ID, creds[i].ID)
	}

	assert.ErrorIs(t, s.Delete(ctx, domain.RoleUser, "22222"), store.ErrNotFound)
}

func TestDeleteDetectsMisalignedPair(t *testing.T) {
	s, dir := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, testUser("11111", 100), "pass-one#1"))
	require.NoError(t, s.CreateUser(ctx, testUser("22222", 100), "pass-two#2"))

	// Corrupt the pairing: drop the first credential line only.
	credPath := filepath.Join(dir, UserCredsFile)
	require.NoError(t, os.WriteFile(credPath, []byte("22222,pass-two#2\n"), 0644))

	err := s.Delete(ctx, domain.RoleUser, "22222")
	assert.ErrorIs(t, err, store.ErrMisaligned)
}

func TestApplyPayment(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, testUser("12345", 100), "defaultpass#0"))

	u := testUser("12345", 60)
	txn := domain.Transaction{
		Date: "01/02/2024", UserID: "12345", Kind: domain.KindWithdrawal,
		Amount: 40, Description: "groceries",
	}
	require.NoError(t, s.ApplyPayment(ctx, u, txn))

	got, err := s.User(ctx, "12345")
	require.NoError(t, err)
	assert.Equal(t, int64(60), got.Balance)

	txns, err := s.Transactions(ctx, "12345")
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, txn, txns[0])
}

func TestTransactionsFilterByUser(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, testUser("11111", 100), "pass-one#1"))
	require.NoError(t, s.CreateUser(ctx, testUser("22222", 100), "pass-two#2"))

	deposit := func(id string, amount int64) domain.Transaction {
		return domain.Transaction{Date: "01/02/2024", UserID: id, Kind: domain.KindDeposit, Amount: amount}
	}
	require.NoError(t, s.ApplyPayment(ctx, testUser("11111", 100+10), deposit("11111", 10)))
	require.NoError(t, s.ApplyPayment(ctx, testUser("22222", 100+20), deposit("22222", 20)))
	require.NoError(t, s.ApplyPayment(ctx, testUser("11111", 110+30), deposit("11111", 30)))

	mine, err := s.Transactions(ctx, "11111")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, int64(10), mine[0].Amount)
	assert.Equal(t, int64(30), mine[1].Amount)

	all, err := s.Transactions(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestApplyTransfer(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, testUser("11111", 100), "pass-one#1"))
	require.NoError(t, s.CreateUser(ctx, testUser("22222", 0), "pass-two#2"))

	sender := testUser("11111", 50)
	receiver := testUser("22222", 50)
	withdrawal := domain.Transaction{Date: "01/02/2024", UserID: "11111", Kind: domain.KindWithdrawal, Amount: 50, Description: "rent"}
	deposit := domain.Transaction{Date: "01/02/2024", UserID: "22222", Kind: domain.KindDeposit, Amount: 50, Description: "rent"}
	transfer := domain.Transfer{Date: "01/02/2024", AdminID: "54321", Amount: 50, Description: "rent"}

	require.NoError(t, s.ApplyTransfer(ctx, sender, receiver, withdrawal, deposit, transfer))

	gotSender, err := s.User(ctx, "11111")
	require.NoError(t, err)
	assert.Equal(t, int64(50), gotSender.Balance)

	gotReceiver, err := s.User(ctx, "22222")
	require.NoError(t, err)
	assert.Equal(t, int64(50), gotReceiver.Balance)

	txns, err := s.Transactions(ctx, "")
	require.NoError(t, err)
	assert.Len(t, txns, 2)

	transfers, err := s.Transfers(ctx)
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assert.Equal(t, transfer, transfers[0])
}

func TestMaintainer(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, testUser("12345", 100), "defaultpass#0"))

	assert.Equal(t, []string{
		UsersFile, UserCredsFile, AdminsFile, AdminCredsFile,
		TransactionsFile, TransfersFile,
	}, s.DataFiles())

	require.NoError(t, s.ClearFile(UsersFile))
	users, err := s.Users(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	// Only the named file is touched.
	creds, err := s.Credentials(ctx, domain.RoleUser)
	require.NoError(t, err)
	assert.Len(t, creds, 1)

	assert.Error(t, s.ClearFile("passwd"))
}

func TestContextCancellation(t *testing.T) {
	s, _ := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.CreateUser(ctx, testUser("12345", 100), "defaultpass#0"), context.Canceled)
	_, err := s.Users(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
