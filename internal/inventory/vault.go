package inventory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	pkgerrors "github.com/mnhidayatgani/chatbot-sub000/pkg/errors"
)

const credentialExt = ".txt"

// ErrEmpty is returned when a product's credential file has no
// credentials left.
var ErrEmpty = errors.New("no credentials remaining")

// Vault is the physical inventory: one file per product under the
// configured directory, one sellable credential per line. The stock
// ledger caches counts over this; the vault itself is the source of
// truth.
type Vault struct {
	mu  sync.Mutex
	dir string
}

// NewVault opens the credential directory, creating it when missing.
func NewVault(dir string) (*Vault, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("inventory directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create inventory directory: %w", err)
	}
	return &Vault{dir: dir}, nil
}

// ListProducts enumerates every product with a credential file.
func (v *Vault) ListProducts(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(v.dir)
	if err != nil {
		return nil, fmt.Errorf("read inventory directory: %w", err)
	}
	products := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), credentialExt) {
			continue
		}
		products = append(products, strings.TrimSuffix(entry.Name(), credentialExt))
	}
	return products, nil
}

// CountRemaining counts the credentials left for a product. A missing
// file counts as zero.
func (v *Vault) CountRemaining(ctx context.Context, productID string) (int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	lines, err := v.readLines(productID)
	if err != nil {
		return 0, err
	}
	return int64(len(lines)), nil
}

// Consume removes and returns one credential for the product. The file
// is rewritten via a temp file and rename so a crash mid-consume never
// duplicates or loses more than the one credential in flight.
func (v *Vault) Consume(ctx context.Context, productID string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	lines, err := v.readLines(productID)
	if err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "", ErrEmpty
	}

	credential := lines[0]
	remainder := strings.Join(lines[1:], "\n")
	if remainder != "" {
		remainder += "\n"
	}

	path := v.path(productID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(remainder), 0o600); err != nil {
		return "", fmt.Errorf("write inventory temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("replace inventory file: %w", err)
	}
	return credential, nil
}

// Add appends credentials for a product (restock path).
func (v *Vault) Add(ctx context.Context, productID string, credentials []string) error {
	if len(credentials) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "credentials are required")
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	f, err := os.OpenFile(v.path(productID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open inventory file: %w", err)
	}
	defer f.Close()

	for _, credential := range credentials {
		trimmed := strings.TrimSpace(credential)
		if trimmed == "" {
			continue
		}
		if _, err := f.WriteString(trimmed + "\n"); err != nil {
			return fmt.Errorf("append credential: %w", err)
		}
	}
	return nil
}

func (v *Vault) path(productID string) string {
	return filepath.Join(v.dir, filepath.Base(productID)+credentialExt)
}

func (v *Vault) readLines(productID string) ([]string, error) {
	raw, err := os.ReadFile(v.path(productID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read inventory file: %w", err)
	}
	lines := make([]string, 0, 8)
	for _, line := range strings.Split(string(raw), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		lines = append(lines, trimmed)
	}
	return lines, nil
}
