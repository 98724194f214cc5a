package infra

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/eliteGoblin/focusd/app_block/internal/domain"
)

const (
	keyFileName = "appblock.key"
	keySize     = 32 // SQLCipher raw key for appblock.db
)

// FileKeyProvider keeps the rules database passphrase in a base64 file in
// the data directory. The file and directory are owner-only.
type FileKeyProvider struct {
	dataDir string
}

// NewFileKeyProvider returns a provider for the key of the rules database
// stored in dataDir.
func NewFileKeyProvider(dataDir string) *FileKeyProvider {
	return &FileKeyProvider{dataDir: dataDir}
}

// Path returns the key file location.
func (p *FileKeyProvider) Path() string {
	return filepath.Join(p.dataDir, keyFileName)
}

func (p *FileKeyProvider) GetKey() ([]byte, error) {
	raw, err := os.ReadFile(p.Path())
	if err != nil {
		return nil, fmt.Errorf("failed to read rules database key: %w", err)
	}
	return decodeKey(raw)
}

// StoreKey writes key through a temp file so a crash never leaves a
// truncated key next to an encrypted database.
func (p *FileKeyProvider) StoreKey(key []byte) error {
	if err := checkKeySize(key); err != nil {
		return err
	}
	if err := os.MkdirAll(p.dataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory for rules database key: %w", err)
	}

	tmp := p.Path() + ".tmp"
	if err := os.WriteFile(tmp, []byte(base64.StdEncoding.EncodeToString(key)), 0600); err != nil {
		return fmt.Errorf("failed to write rules database key: %w", err)
	}
	if err := os.Rename(tmp, p.Path()); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to install rules database key: %w", err)
	}
	return nil
}

func (p *FileKeyProvider) KeyExists() bool {
	info, err := os.Stat(p.Path())
	return err == nil && info.Mode().IsRegular()
}

func decodeKey(raw []byte) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("rules database key is corrupt: %w", err)
	}
	if err := checkKeySize(key); err != nil {
		return nil, err
	}
	return key, nil
}

func checkKeySize(key []byte) error {
	if len(key) != keySize {
		return fmt.Errorf("invalid key size for rules database: got %d bytes, want %d", len(key), keySize)
	}
	return nil
}

// GenerateKey returns a fresh random database key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate rules database key: %w", err)
	}
	return key, nil
}

// EnsureKey returns the stored key, creating one the first time the daemon
// opens its data directory.
func EnsureKey(provider domain.KeyProvider) ([]byte, error) {
	if provider.KeyExists() {
		return provider.GetKey()
	}
	key, err := GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := provider.StoreKey(key); err != nil {
		return nil, err
	}
	return key, nil
}

var _ domain.KeyProvider = (*FileKeyProvider)(nil)
