package tokenstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/and161185/machtrueke/internal/crypto/clientcrypto"
)

const (
	tokenName = "token.bin"
	keyName   = "key.bin"
	saltName  = "salt.bin"
	purpose   = "machtrueke/token/v1"
)

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
}

// File stores the token sealed on disk. The sealing key comes from a random
// local key file, or from Argon2id(passphrase) when a passphrase is set.
type File struct {
	dir        string
	passphrase []byte
	now        func() time.Time
}

// NewFile returns a store rooted at dir. An empty passphrase selects key-file mode.
func NewFile(dir, passphrase string) *File {
	f := &File{dir: dir, now: time.Now}
	if passphrase != "" {
		f.passphrase = []byte(passphrase)
	}
	return f
}

// Path returns the sealed token location.
func (f *File) Path() string { return filepath.Join(f.dir, tokenName) }

func (f *File) Load() (string, error) {
	blob, err := os.ReadFile(f.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	key, err := f.key(false)
	if err != nil {
		return "", err
	}
	pt, err := clientcrypto.Open(key, []byte(purpose), blob)
	if err != nil {
		return "", fmt.Errorf("open token: %w", err)
	}
	var tf tokenFile
	if err := json.Unmarshal(pt, &tf); err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}
	if tf.AccessToken == "" {
		return "", ErrNoToken
	}
	if expired(tf.ExpiresAt, f.now()) {
		_ = f.Clear()
		return "", ErrNoToken
	}
	return tf.AccessToken, nil
}

func (f *File) Save(token string) error {
	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	key, err := f.key(true)
	if err != nil {
		return err
	}
	pt, err := json.Marshal(tokenFile{AccessToken: token, ExpiresAt: ExpiryOf(token)})
	if err != nil {
		return err
	}
	blob, err := clientcrypto.Seal(key, []byte(purpose), pt)
	if err != nil {
		return fmt.Errorf("seal token: %w", err)
	}
	return writeAtomic(f.Path(), blob)
}

func (f *File) Clear() error {
	err := os.Remove(f.Path())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}

// key returns the sealing key, creating the key or salt file when create is set.
func (f *File) key(create bool) ([]byte, error) {
	if f.passphrase != nil {
		salt, err := f.material(saltName, clientcrypto.SaltLen, create)
		if err != nil {
			return nil, err
		}
		return clientcrypto.SubKey(clientcrypto.DeriveFromPassphrase(f.passphrase, salt), purpose)
	}
	root, err := f.material(keyName, clientcrypto.KeyLen, create)
	if err != nil {
		return nil, err
	}
	return clientcrypto.SubKey(root, purpose)
}

func (f *File) material(name string, n int, create bool) ([]byte, error) {
	p := filepath.Join(f.dir, name)
	b, err := os.ReadFile(p)
	if err == nil {
		if len(b) != n {
			return nil, fmt.Errorf("%s: unexpected length %d", name, len(b))
		}
		return b, nil
	}
	if !errors.Is(err, fs.ErrNotExist) || !create {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	b, err = clientcrypto.Rand(n)
	if err != nil {
		return nil, err
	}
	if err := writeAtomic(p, b); err != nil {
		return nil, err
	}
	return b, nil
}

func writeAtomic(path string, b []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
