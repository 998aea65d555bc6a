package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/rumor-ml/commons.systems/bankledger/internal/domain"
)

// StatementRow is one line of an account statement.
type StatementRow struct {
	Date        string
	Kind        domain.TransactionKind
	Amount      int64
	Balance     int64
	Description string
}

// Statement is the account activity inside an inclusive date window. Opening
// is the balance brought down before the first row; an empty Rows slice means
// the account had no transactions in the window and the caller should report
// that instead of rendering an empty table.
type Statement struct {
	AccountID string
	Name      string
	Start     string
	End       string
	Opening   int64
	Rows      []StatementRow
}

// Statement builds the account statement for the inclusive window
// [start, end]. The opening balance is reconstructed by undoing every
// in-window transaction against the currently stored balance, then the rows
// are replayed forward to carry a running balance.
func (e *Engine) Statement(ctx context.Context, id, start, end string) (*Statement, error) {
	user, err := e.store.User(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", id, err)
	}
	from, err := domain.ParseDate(start)
	if err != nil {
		return nil, fmt.Errorf("start date: %w", err)
	}
	to, err := domain.ParseDate(end)
	if err != nil {
		return nil, fmt.Errorf("end date: %w", err)
	}
	if from.After(to) {
		return nil, fmt.Errorf("%s after %s: %w", start, end, ErrDateOrder)
	}

	all, err := e.store.Transactions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("transaction history for %s: %w", id, err)
	}
	var window []domain.Transaction
	for _, txn := range all {
		on, err := domain.ParseDate(txn.Date)
		if err != nil {
			return nil, fmt.Errorf("transaction log for %s: %w", id, err)
		}
		if inWindow(on, from, to) {
			window = append(window, txn)
		}
	}

	st := &Statement{
		AccountID: user.ID,
		Name:      user.Name,
		Start:     start,
		End:       end,
	}
	if len(window) == 0 {
		st.Opening = user.Balance
		return st, nil
	}

	// Walk backward from the stored balance to the balance brought down.
	opening := user.Balance
	for _, txn := range window {
		if txn.Kind == domain.KindWithdrawal {
			opening += txn.Amount
		} else {
			opening -= txn.Amount
		}
	}
	st.Opening = opening

	running := opening
	for _, txn := range window {
		if txn.Kind == domain.KindWithdrawal {
			running -= txn.Amount
		} else {
			running += txn.Amount
		}
		st.Rows = append(st.Rows, StatementRow{
			Date:        txn.Date,
			Kind:        txn.Kind,
			Amount:      txn.Amount,
			Balance:     running,
			Description: txn.Description,
		})
	}
	return st, nil
}

func inWindow(on, from, to time.Time) bool {
	return !on.Before(from) && !on.After(to)
}
