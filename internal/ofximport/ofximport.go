// Package ofximport applies the cash transactions of an OFX/QFX statement
// file to a customer account. Credits become deposits and debits become
// withdrawals, each going through the engine's normal validations, so a
// rejected row is never partially applied.
package ofximport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/aclindsa/ofxgo"

	"github.com/rumor-ml/commons.systems/bankledger/internal/domain"
	"github.com/rumor-ml/commons.systems/bankledger/internal/ledger"
)

// Row is the outcome of one statement transaction. Err is nil when the row
// was applied to the account.
type Row struct {
	PostedDate  string
	Kind        domain.TransactionKind
	Amount      int64
	Description string
	Err         error
}

// Report summarizes one import run.
type Report struct {
	AccountID string
	Applied   int
	Rejected  int
	Rows      []Row
}

// Importer feeds OFX statement rows through a ledger engine.
type Importer struct {
	engine *ledger.Engine
}

// New creates an importer over the given engine.
func New(engine *ledger.Engine) *Importer {
	return &Importer{engine: engine}
}

// CanImport reports whether path looks like an OFX/QFX statement, judged by
// extension and the OFX markers in the file header (both v1 SGML and v2 XML).
func CanImport(path string, header []byte) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".ofx" && ext != ".qfx" {
		return false
	}
	h := strings.ToUpper(string(header))
	return strings.Contains(h, "OFXHEADER") ||
		strings.Contains(h, "<?OFX") ||
		strings.Contains(h, "<OFX>")
}

// Import parses an OFX statement and applies its cash transactions to the
// account. Rows apply independently: a row the engine rejects is reported
// with its reason and the remaining rows still run. The returned error covers
// parse-level failures only.
func (im *Importer) Import(ctx context.Context, r io.Reader, accountID string) (*Report, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read statement: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := ofxgo.ParseResponse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX statement (%d bytes): %w", len(content), err)
	}
	list, err := transactionList(resp)
	if err != nil {
		return nil, err
	}

	report := &Report{AccountID: accountID}
	for _, txn := range list.Transactions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := im.apply(ctx, accountID, txn)
		if row.Err == nil {
			report.Applied++
		} else {
			report.Rejected++
		}
		report.Rows = append(report.Rows, row)
	}
	return report, nil
}

// transactionList finds the cash transaction list of the first bank or credit
// card statement in the response.
func transactionList(resp *ofxgo.Response) (*ofxgo.TransactionList, error) {
	if len(resp.Bank) > 0 {
		stmt, ok := resp.Bank[0].(*ofxgo.StatementResponse)
		if !ok {
			return nil, fmt.Errorf("unexpected bank statement type %T", resp.Bank[0])
		}
		if stmt.BankTranList == nil {
			return nil, fmt.Errorf("bank statement has no transaction list")
		}
		return stmt.BankTranList, nil
	}
	if len(resp.CreditCard) > 0 {
		stmt, ok := resp.CreditCard[0].(*ofxgo.CCStatementResponse)
		if !ok {
			return nil, fmt.Errorf("unexpected credit card statement type %T", resp.CreditCard[0])
		}
		if stmt.BankTranList == nil {
			return nil, fmt.Errorf("credit card statement has no transaction list")
		}
		return stmt.BankTranList, nil
	}
	return nil, fmt.Errorf("no bank or credit card statement in OFX file (bank: %d, creditcard: %d)",
		len(resp.Bank), len(resp.CreditCard))
}

func (im *Importer) apply(ctx context.Context, accountID string, txn ofxgo.Transaction) Row {
	row := Row{Description: description(txn)}
	if posted := txn.DtPosted.Time; !posted.IsZero() {
		row.PostedDate = domain.FormatDate(posted)
	}

	amount, err := wholeAmount(txn)
	if err != nil {
		row.Err = err
		return row
	}
	if amount < 0 {
		row.Kind = domain.KindWithdrawal
		row.Amount = -amount
		_, row.Err = im.engine.Withdraw(ctx, accountID, row.Amount, row.Description)
	} else {
		row.Kind = domain.KindDeposit
		row.Amount = amount
		_, row.Err = im.engine.Deposit(ctx, accountID, row.Amount, row.Description)
	}
	return row
}

// wholeAmount extracts the signed transaction amount, rejecting anything that
// is not an exact whole number. The ledger keeps whole-unit balances only.
func wholeAmount(txn ofxgo.Transaction) (int64, error) {
	v, exact := txn.TrnAmt.Float64()
	if !exact {
		return 0, fmt.Errorf("amount %v cannot be represented exactly", &txn.TrnAmt)
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("amount %v is not a whole number", &txn.TrnAmt)
	}
	return int64(v), nil
}

// description prefers the transaction name, falling back to the memo.
func description(txn ofxgo.Transaction) string {
	d := strings.TrimSpace(txn.Name.String())
	if d == "" {
		d = strings.TrimSpace(txn.Memo.String())
	}
	return d
}
