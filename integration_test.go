package bankledger_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func buildBankledger(t *testing.T) string {
	t.Helper()
	binPath := filepath.Join(t.TempDir(), "bankledger")
	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/bankledger")
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to build binary: %v\nOutput: %s", err, output)
	}
	return binPath
}

func runSession(t *testing.T, binPath, dataDir string, input []string) string {
	t.Helper()
	cmd := exec.Command(binPath, "-data", dataDir)
	cmd.Stdin = strings.NewReader(strings.Join(input, "\n") + "\n")
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("session failed: %v\nOutput: %s", err, output)
	}
	return string(output)
}

// TestIntegration_OperatorSession drives a full operator session through the
// binary: superuser creates an admin, the admin creates a user and moves
// money, and the data files end up in the expected legacy layout.
func TestIntegration_OperatorSession(t *testing.T) {
	binPath := buildBankledger(t)
	dataDir := t.TempDir()
	today := time.Now().Format("02/01/2006")

	output := runSession(t, binPath, dataDir, []string{
		"1",      // superuser login
		"supass", // default superuser password
		"1",      // create admin
		"54321",
		"Ray Boss",
		"1", // branch
		"adminpass#1",
		"b", // logout
		"2", // admin login
		"54321",
		"adminpass#1",
		"1", // create user
		"12345",
		"May Clark",
		"savings",
		"15/06/1990",
		"12 High Street",
		"5", // withdraw
		"12345",
		"40",
		"groceries",
		"8", // statement
		"12345",
		today,
		today,
		"b", // logout
		"q",
	})

	for _, want := range []string{
		"logged in",
		"Successful",
		"withdrew 40 from 12345",
		"Balance b/d",
		"groceries",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in session output, got:\n%s", want, output)
		}
	}

	// Record files carry the legacy trailing comma; credentials do not.
	assertFileContent(t, filepath.Join(dataDir, "adminDB.txt"),
		"54321,Ray Boss,1,\n")
	assertFileContent(t, filepath.Join(dataDir, "adminPK.txt"),
		"54321,adminpass#1\n")
	assertFileContent(t, filepath.Join(dataDir, "userDB.txt"),
		"12345,May Clark,savings,60,15/06/1990,12 High Street,\n")
	assertFileContent(t, filepath.Join(dataDir, "userPK.txt"),
		"12345,defaultpass#0\n")
	assertFileContent(t, filepath.Join(dataDir, "transactions.txt"),
		today+",12345,w,40,groceries\n")
}

// TestIntegration_BadLogin verifies a failed login leaves the operator at the
// outer menu and writes nothing.
func TestIntegration_BadLogin(t *testing.T) {
	binPath := buildBankledger(t)
	dataDir := t.TempDir()

	output := runSession(t, binPath, dataDir, []string{
		"1",
		"wrongpass",
		"2",
		"54321",
		"whatever",
		"q",
	})

	if !strings.Contains(output, "incorrect password") {
		t.Errorf("expected superuser rejection in output, got:\n%s", output)
	}
	if !strings.Contains(output, "incorrect id or password") {
		t.Errorf("expected admin rejection in output, got:\n%s", output)
	}

	entries, err := os.ReadDir(dataDir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			t.Fatal(err)
		}
		if info.Size() != 0 {
			t.Errorf("expected no data written, but %s has %d bytes", e.Name(), info.Size())
		}
	}
}

func assertFileContent(t *testing.T, path, want string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	if string(data) != want {
		t.Errorf("%s = %q; want %q", filepath.Base(path), string(data), want)
	}
}
