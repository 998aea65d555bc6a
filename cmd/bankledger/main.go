package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/rumor-ml/commons.systems/bankledger/internal/domain"
	"github.com/rumor-ml/commons.systems/bankledger/internal/ledger"
	"github.com/rumor-ml/commons.systems/bankledger/internal/ofximport"
	"github.com/rumor-ml/commons.systems/bankledger/internal/policy"
	"github.com/rumor-ml/commons.systems/bankledger/internal/session"
	"github.com/rumor-ml/commons.systems/bankledger/internal/store"
	"github.com/rumor-ml/commons.systems/bankledger/internal/store/flatfile"
	"github.com/rumor-ml/commons.systems/bankledger/internal/store/sqlite"
	"github.com/rumor-ml/commons.systems/bankledger/internal/ui"
)

const (
	version  = "0.1.0"
	bankName = "COMMONS COMMUNITY BANK"
)

var (
	versionFlag = flag.Bool("version", false, "Show version")

	dataDir    = flag.String("data", ".", "Directory holding the ledger data files")
	storeKind  = flag.String("store", "flatfile", "Storage backend: flatfile or sqlite")
	policyFile = flag.String("policy", "", "Policy YAML overriding the built-in limits")
)

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, `bankledger - Flat-file banking ledger for a single operator

Usage:
  bankledger [flags]

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprint(os.Stderr, `
Examples:
  # Run against the data files in the current directory
  bankledger

  # Keep the files elsewhere, with custom limits
  bankledger -data ~/bank -policy limits.yaml

  # Use the embedded SQLite backend instead of flat files
  bankledger -data ~/bank -store sqlite

`)
	}

	flag.Parse()

	if *versionFlag {
		fmt.Printf("bankledger version %s\n", version)
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	pol, err := loadPolicy()
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	app := &app{
		engine: ledger.New(st, pol),
		store:  st,
		policy: pol,
		in:     bufio.NewReader(os.Stdin),
	}
	app.loginLoop(ctx)
	return nil
}

func loadPolicy() (*policy.Policy, error) {
	if *policyFile != "" {
		return policy.LoadFromFile(*policyFile)
	}
	return policy.LoadEmbedded()
}

func openStore() (store.Store, error) {
	switch *storeKind {
	case "flatfile":
		return flatfile.Open(*dataDir)
	case "sqlite":
		if err := os.MkdirAll(*dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory %s: %w", *dataDir, err)
		}
		return sqlite.Open(filepath.Join(*dataDir, "bankledger.db"))
	default:
		return nil, fmt.Errorf("unknown store %q (want flatfile or sqlite)", *storeKind)
	}
}

type app struct {
	engine *ledger.Engine
	store  store.Store
	policy *policy.Policy
	in     *bufio.Reader
}

// loginLoop drives the outer menu: pick a tier, authenticate, run that
// tier's menu, come back.
func (a *app) loginLoop(ctx context.Context) {
	ui.Header(bankName)
	for {
		ui.BlueText("1) superuser login  2) admin login  3) user login  q) quit")
		switch a.prompt("choice") {
		case "1":
			if a.promptPassword("superuser password") != a.policy.SuperuserPassword {
				ui.Error("incorrect password")
				continue
			}
			a.superuserMenu(ctx, session.NewSuperuser())
		case "2":
			if s, ok := a.login(ctx, domain.RoleAdmin); ok {
				a.adminMenu(ctx, s)
			}
		case "3":
			if s, ok := a.login(ctx, domain.RoleUser); ok {
				a.userMenu(ctx, s)
			}
		case "q", "Q":
			return
		default:
			ui.Warning("unknown choice")
		}
	}
}

func (a *app) login(ctx context.Context, role domain.Role) (*session.Session, bool) {
	id := a.prompt("id")
	password := a.promptPassword("password")
	if err := a.engine.Authenticate(ctx, role, id, password); err != nil {
		ui.Error(err.Error())
		return nil, false
	}
	ui.Success("logged in")
	return session.New(role, id), true
}

func (a *app) superuserMenu(ctx context.Context, s *session.Session) {
	for {
		ui.BlueText("1) create admin  2) delete admin  3) show admin property  4) list data files  5) clear a data file  b) logout")
		switch a.prompt("choice") {
		case "1":
			a.createAdmin(ctx)
		case "2":
			a.report(a.engine.Delete(ctx, domain.RoleAdmin, a.prompt("admin id")))
		case "3":
			a.showProperty(ctx, domain.RoleAdmin)
		case "4":
			a.listDataFiles()
		case "5":
			a.clearDataFile()
		case "b", "B":
			return
		default:
			ui.Warning("unknown choice")
		}
	}
}

func (a *app) adminMenu(ctx context.Context, s *session.Session) {
	for {
		ui.BlueText("1) create user  2) delete user  3) show user property  4) edit user field")
		ui.BlueText("5) withdraw  6) deposit  7) transfer  8) statement  9) list users  10) import statement file")
		ui.BlueText("11) change my password  b) logout")
		switch a.prompt("choice") {
		case "1":
			a.createUser(ctx)
		case "2":
			a.report(a.engine.Delete(ctx, domain.RoleUser, a.prompt("user id")))
		case "3":
			a.showProperty(ctx, domain.RoleUser)
		case "4":
			a.editUserField(ctx)
		case "5":
			a.withdraw(ctx)
		case "6":
			a.deposit(ctx)
		case "7":
			a.transfer(ctx, s)
		case "8":
			a.statement(ctx, a.prompt("user id"))
		case "9":
			a.listUsers(ctx)
		case "10":
			a.importStatement(ctx)
		case "11":
			a.changePassword(ctx, domain.RoleAdmin, s.AccountID)
		case "b", "B":
			return
		default:
			ui.Warning("unknown choice")
		}
	}
}

func (a *app) userMenu(ctx context.Context, s *session.Session) {
	for {
		ui.BlueText("1) my details  2) statement  3) change my password  b) logout")
		switch a.prompt("choice") {
		case "1":
			fields, err := a.engine.ReadField(ctx, domain.RoleUser, s.AccountID, "all")
			if err != nil {
				ui.Error(err.Error())
				continue
			}
			ui.Table(domain.FieldNames(domain.RoleUser), [][]string{fields})
		case "2":
			a.statement(ctx, s.AccountID)
		case "3":
			a.changePassword(ctx, domain.RoleUser, s.AccountID)
		case "b", "B":
			return
		default:
			ui.Warning("unknown choice")
		}
	}
}

// createUser collects the record fields; password and opening balance come
// from policy defaults.
func (a *app) createUser(ctx context.Context) {
	user := domain.User{
		ID:          a.prompt("id (5 digits)"),
		Name:        a.prompt("name"),
		Type:        domain.AccountType(a.prompt("account type (savings/current)")),
		Balance:     a.policy.OpeningBalance,
		DateOfBirth: a.prompt("date of birth (dd/mm/yyyy)"),
		Address:     a.prompt("address"),
	}
	a.report(a.engine.CreateUser(ctx, user, a.policy.DefaultPassword))
}

func (a *app) createAdmin(ctx context.Context) {
	admin := domain.Admin{
		ID:     a.prompt("id (5 digits)"),
		Name:   a.prompt("name"),
		Branch: domain.Branch(a.prompt("branch (1/2/3)")),
	}
	a.report(a.engine.CreateAdmin(ctx, admin, a.promptPassword("password")))
}

func (a *app) showProperty(ctx context.Context, role domain.Role) {
	id := a.prompt("id")
	column := a.prompt(fmt.Sprintf("column (all or 0-%d)", domain.FieldCount(role)-1))
	fields, err := a.engine.ReadField(ctx, role, id, column)
	if err != nil {
		ui.Error(err.Error())
		return
	}
	headers := domain.FieldNames(role)
	if len(fields) != len(headers) {
		idx, _ := strconv.Atoi(column)
		headers = headers[idx : idx+1]
	}
	ui.Table(headers, [][]string{fields})
}

func (a *app) editUserField(ctx context.Context) {
	id := a.prompt("user id")
	column := a.prompt("column (3 balance, 4 date of birth, 5 address)")
	idx, err := strconv.Atoi(column)
	if err != nil {
		ui.Error(fmt.Sprintf("invalid column %q", column))
		return
	}
	field := domain.UserField(idx)
	a.report(a.engine.EditField(ctx, id, field, a.prompt("new value")))
}

func (a *app) withdraw(ctx context.Context) {
	id := a.prompt("user id")
	amount, ok := a.promptAmount()
	if !ok {
		return
	}
	txn, err := a.engine.Withdraw(ctx, id, amount, a.prompt("description"))
	if err != nil {
		ui.Error(err.Error())
		return
	}
	ui.Success(fmt.Sprintf("withdrew %d from %s on %s", txn.Amount, txn.UserID, txn.Date))
}

func (a *app) deposit(ctx context.Context) {
	id := a.prompt("user id")
	amount, ok := a.promptAmount()
	if !ok {
		return
	}
	txn, err := a.engine.Deposit(ctx, id, amount, a.prompt("description"))
	if err != nil {
		ui.Error(err.Error())
		return
	}
	ui.Success(fmt.Sprintf("deposited %d to %s on %s", txn.Amount, txn.UserID, txn.Date))
}

func (a *app) transfer(ctx context.Context, s *session.Session) {
	sender := a.prompt("sender id")
	receiver := a.prompt("receiver id")
	amount, ok := a.promptAmount()
	if !ok {
		return
	}
	receipt, err := a.engine.Transfer(ctx, s.AccountID, sender, receiver, amount, a.prompt("description"))
	if err != nil {
		ui.Error(err.Error())
		return
	}
	ui.Success(fmt.Sprintf("transferred %d from %s to %s (ref %s)", amount, sender, receiver, receipt.Reference))
}

func (a *app) statement(ctx context.Context, id string) {
	start := a.prompt("start date (dd/mm/yyyy)")
	end := a.prompt("end date (dd/mm/yyyy)")
	st, err := a.engine.Statement(ctx, id, start, end)
	if err != nil {
		ui.Error(err.Error())
		return
	}
	if len(st.Rows) == 0 {
		ui.Info(fmt.Sprintf("no transactions for %s between %s and %s", id, start, end))
		return
	}
	ui.Header(bankName)
	ui.YellowText(fmt.Sprintf("Statement for %s (%s), %s to %s", st.Name, st.AccountID, st.Start, st.End))
	rows := [][]string{{st.Start, "Balance b/d", "", domain.FormatAmount(st.Opening), ""}}
	for _, r := range st.Rows {
		rows = append(rows, []string{
			r.Date,
			string(r.Kind),
			domain.FormatAmount(r.Amount),
			domain.FormatAmount(r.Balance),
			r.Description,
		})
	}
	ui.Table([]string{"date", "type", "amount", "balance", "description"}, rows)
}

func (a *app) listUsers(ctx context.Context) {
	creds, err := a.engine.ListUsers(ctx)
	if err != nil {
		ui.Error(err.Error())
		return
	}
	rows := make([][]string, 0, len(creds))
	for _, c := range creds {
		rows = append(rows, []string{c.ID, c.Password})
	}
	ui.Table([]string{"id", "password"}, rows)
}

func (a *app) importStatement(ctx context.Context) {
	path := a.prompt("statement file (.ofx/.qfx)")
	id := a.prompt("user id")

	ui.Step(1, 3, fmt.Sprintf("Opening %s", path))
	f, err := os.Open(path)
	if err != nil {
		ui.Error(err.Error())
		return
	}
	defer f.Close()

	ui.Step(2, 3, fmt.Sprintf("Applying transactions to %s", id))
	report, err := ofximport.New(a.engine).Import(ctx, f, id)
	if err != nil {
		ui.Error(err.Error())
		return
	}

	ui.Step(3, 3, "Import report")
	for i, row := range report.Rows {
		if row.Err != nil {
			ui.Warning(fmt.Sprintf("row %d (%s %d %q): %v", i+1, row.Kind, row.Amount, row.Description, row.Err))
		}
	}
	ui.Success(fmt.Sprintf("applied %d of %d transactions to %s",
		report.Applied, report.Applied+report.Rejected, report.AccountID))
}

func (a *app) changePassword(ctx context.Context, role domain.Role, id string) {
	current := a.promptPassword("current password")
	next := a.promptPassword("new password")
	a.report(a.engine.ChangePassword(ctx, role, id, current, next))
}

func (a *app) listDataFiles() {
	m, ok := a.store.(store.Maintainer)
	if !ok {
		ui.Warning("this backend does not expose data files")
		return
	}
	for _, name := range m.DataFiles() {
		ui.Info(name)
	}
}

func (a *app) clearDataFile() {
	m, ok := a.store.(store.Maintainer)
	if !ok {
		ui.Warning("this backend does not expose data files")
		return
	}
	name := a.prompt("file name")
	if a.prompt(fmt.Sprintf("really clear %s? (yes/no)", name)) != "yes" {
		ui.Info("cancelled")
		return
	}
	a.report(m.ClearFile(name))
}

func (a *app) report(err error) {
	if err != nil {
		ui.Error(err.Error())
		return
	}
	ui.Success("Successful")
}

func (a *app) prompt(label string) string {
	fmt.Printf("%s: ", label)
	line, err := a.in.ReadString('\n')
	if err != nil && line == "" {
		return ""
	}
	return strings.TrimSpace(line)
}

func (a *app) promptAmount() (int64, bool) {
	raw := a.prompt("amount")
	amount, err := domain.ParseAmount(raw)
	if err != nil {
		ui.Error(err.Error())
		return 0, false
	}
	return amount, true
}

// promptPassword reads without echo when stdin is a terminal, so passwords do
// not land in the scrollback.
func (a *app) promptPassword(label string) string {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return a.prompt(label)
	}
	fmt.Printf("%s: ", label)
	raw, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return ""
	}
	return string(raw)
}
