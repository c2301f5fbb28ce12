package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/Klingon-tech/klingnet-groupwallet/internal/wallet"
	"github.com/Klingon-tech/klingnet-groupwallet/pkg/types"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

// run executes the CLI with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCommand()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(""))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// hashesIn extracts the address column printed by printAddresses.
func hashesIn(out string) []string {
	var hashes []string
	for _, line := range strings.Split(out, "\n") {
		f := strings.Fields(line)
		for i := 0; i+2 < len(f); i++ {
			if f[i] == "group" {
				hashes = append(hashes, f[i+2])
				break
			}
		}
	}
	return hashes
}

type fakeExplorer struct {
	mu   sync.Mutex
	used map[string]bool
}

func (f *fakeExplorer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/addresses/used" {
		http.NotFound(w, r)
		return
	}
	var addrs []string
	if err := json.NewDecoder(r.Body).Decode(&addrs); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	answers := make([]bool, len(addrs))
	for i, a := range addrs {
		answers[i] = f.used[a]
	}
	_ = json.NewEncoder(w).Encode(answers)
}

func TestCLIGroupsListAndDiscover(t *testing.T) {
	t.Setenv(envMnemonic, testMnemonic)
	t.Setenv(envPassphrase, "")

	fake := &fakeExplorer{used: make(map[string]bool)}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	common := []string{"--network", "devnet", "--explorer-url", srv.URL, "--log-level", "error"}
	dir := t.TempDir()

	out, err := run(t, append([]string{"groups", "--label-prefix", "Group", "--datadir", dir}, common...)...)
	if err != nil {
		t.Fatalf("groups error: %v", err)
	}
	generated := hashesIn(out)
	if len(generated) != types.TotalGroups {
		t.Fatalf("groups printed %d addresses, want %d:\n%s", len(generated), types.TotalGroups, out)
	}
	for g := 0; g < types.TotalGroups; g++ {
		if !strings.Contains(out, "Group "+string(rune('0'+g))) {
			t.Errorf("missing label for group %d:\n%s", g, out)
		}
	}

	out, err = run(t, append([]string{"list", "--datadir", dir}, common...)...)
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if got := hashesIn(out); len(got) != types.TotalGroups {
		t.Fatalf("list printed %d addresses after restore:\n%s", len(got), out)
	}

	fake.mu.Lock()
	for _, h := range generated {
		fake.used[h] = true
	}
	fake.mu.Unlock()
	out, err = run(t, append([]string{"discover", "--quiet", "--datadir", t.TempDir()}, common...)...)
	if err != nil {
		t.Fatalf("discover error: %v", err)
	}
	found := hashesIn(out)
	if len(found) != len(generated) {
		t.Fatalf("discover found %d addresses, want %d:\n%s", len(found), len(generated), out)
	}
	want := make(map[string]bool)
	for _, h := range generated {
		want[h] = true
	}
	for _, h := range found {
		if !want[h] {
			t.Errorf("discover found unexpected address %s", h)
		}
	}
}

func TestCLIAddressSave(t *testing.T) {
	t.Setenv(envMnemonic, testMnemonic)
	t.Setenv(envPassphrase, "")
	dir := t.TempDir()
	common := []string{"--network", "devnet", "--datadir", dir, "--log-level", "error"}

	out, err := run(t, append([]string{"address", "--group", "2", "--save", "--label", "Main"}, common...)...)
	if err != nil {
		t.Fatalf("address error: %v", err)
	}
	if !strings.HasPrefix(out, "*") || !strings.Contains(out, "group 2") {
		t.Errorf("first saved address should be default in group 2:\n%s", out)
	}

	out, err = run(t, append([]string{"list", "--filter", "main"}, common...)...)
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if len(hashesIn(out)) != 1 {
		t.Errorf("list --filter main:\n%s", out)
	}

	if _, err := run(t, append([]string{"address", "--group", "9"}, common...)...); err == nil {
		t.Error("expected error for group 9")
	}
}

func TestCLIMnemonic(t *testing.T) {
	out, err := run(t, "mnemonic")
	if err != nil {
		t.Fatalf("mnemonic error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	words := strings.TrimSpace(lines[len(lines)-1])
	if !wallet.ValidateMnemonic(words) || len(strings.Fields(words)) != 24 {
		t.Errorf("mnemonic output = %q", out)
	}
}

func TestReadMnemonic(t *testing.T) {
	t.Setenv(envMnemonic, "")

	path := filepath.Join(t.TempDir(), "words")
	if err := os.WriteFile(path, []byte("  "+strings.ReplaceAll(testMnemonic, " ", "\n")+"\n"), 0600); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	m, err := readMnemonic(path, strings.NewReader(""), &bytes.Buffer{})
	if err != nil {
		t.Fatalf("readMnemonic(file) error: %v", err)
	}
	if m != testMnemonic {
		t.Errorf("readMnemonic(file) = %q", m)
	}

	m, err = readMnemonic("", strings.NewReader(testMnemonic+"\nignored\n"), &bytes.Buffer{})
	if err != nil {
		t.Fatalf("readMnemonic(stdin) error: %v", err)
	}
	if m != testMnemonic {
		t.Errorf("readMnemonic(stdin) = %q", m)
	}

	t.Setenv(envMnemonic, testMnemonic)
	if m, err = readMnemonic("", strings.NewReader(""), &bytes.Buffer{}); err != nil || m != testMnemonic {
		t.Errorf("readMnemonic(env) = %q, %v", m, err)
	}
}

func TestNormalizeMnemonic(t *testing.T) {
	if _, err := normalizeMnemonic("   "); !errors.Is(err, wallet.ErrPrecondition) {
		t.Errorf("empty mnemonic error = %v, want ErrPrecondition", err)
	}
	if _, err := normalizeMnemonic("abandon abandon abandon"); !errors.Is(err, wallet.ErrInvalidSeed) {
		t.Errorf("bad mnemonic error = %v, want ErrInvalidSeed", err)
	}
}

func TestParseGroups(t *testing.T) {
	groups, err := parseGroups([]int{0, 3})
	if err != nil {
		t.Fatalf("parseGroups() error: %v", err)
	}
	if len(groups) != 2 || groups[1] != 3 {
		t.Errorf("parseGroups() = %v", groups)
	}
	if _, err := parseGroups([]int{4}); err == nil {
		t.Error("expected error for group 4")
	}
}
