package inventory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestVault(t *testing.T) *Vault {
	t.Helper()
	vault, err := NewVault(t.TempDir())
	if err != nil {
		t.Fatalf("construct vault: %v", err)
	}
	return vault
}

func TestConsumeRemovesFirstCredential(t *testing.T) {
	vault := newTestVault(t)
	ctx := context.Background()

	if err := vault.Add(ctx, "netflix-1m", []string{"user1:pass1", "user2:pass2"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	credential, err := vault.Consume(ctx, "netflix-1m")
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if credential != "user1:pass1" {
		t.Fatalf("expected first credential, got %q", credential)
	}

	remaining, err := vault.CountRemaining(ctx, "netflix-1m")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if remaining != 1 {
		t.Fatalf("expected one credential left, got %d", remaining)
	}
}

func TestConsumeEmptyProduct(t *testing.T) {
	vault := newTestVault(t)
	if _, err := vault.Consume(context.Background(), "nothing-here"); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestCountRemainingMissingFileIsZero(t *testing.T) {
	vault := newTestVault(t)
	remaining, err := vault.CountRemaining(context.Background(), "nothing-here")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected zero, got %d", remaining)
	}
}

func TestAddSkipsBlankLines(t *testing.T) {
	vault := newTestVault(t)
	ctx := context.Background()

	if err := vault.Add(ctx, "spotify-1m", []string{" user1:pass1 ", "", "  "}); err != nil {
		t.Fatalf("add: %v", err)
	}
	remaining, err := vault.CountRemaining(ctx, "spotify-1m")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if remaining != 1 {
		t.Fatalf("expected one credential, got %d", remaining)
	}

	credential, err := vault.Consume(ctx, "spotify-1m")
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if credential != "user1:pass1" {
		t.Fatalf("expected trimmed credential, got %q", credential)
	}
}

func TestListProducts(t *testing.T) {
	dir := t.TempDir()
	vault, err := NewVault(dir)
	if err != nil {
		t.Fatalf("construct vault: %v", err)
	}
	ctx := context.Background()

	if err := vault.Add(ctx, "netflix-1m", []string{"a"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := vault.Add(ctx, "spotify-1m", []string{"b"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	// Stray files without the credential extension are ignored.
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("notes"), 0o600); err != nil {
		t.Fatalf("write stray file: %v", err)
	}

	products, err := vault.ListProducts(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected two products, got %v", products)
	}
}

func TestPathTraversalIsNeutralized(t *testing.T) {
	dir := t.TempDir()
	vault, err := NewVault(dir)
	if err != nil {
		t.Fatalf("construct vault: %v", err)
	}
	if err := vault.Add(context.Background(), "../escape", []string{"x"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.txt")); err != nil {
		t.Fatalf("expected file inside the vault dir: %v", err)
	}
}
