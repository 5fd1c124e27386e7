// Package credstore persists the backend session cookies between CLI runs.
//
// Cookies are written to session.json under the config dir with mode 0600. With a
// passphrase the file holds an XChaCha20-Poly1305 blob keyed by Argon2id instead of
// the cookies themselves.
package credstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/restaurant-client/internal/crypto/clientcrypto"
)

const (
	fileName      = "session.json"
	formatVersion = 1
	keyPurpose    = "dine session cookies v1"

	// DefaultTTL applies to cookies whose value carries no exp claim.
	DefaultTTL = 24 * time.Hour
)

// ErrPassphrase is returned when a sealed file cannot be opened.
var ErrPassphrase = errors.New("credstore: wrong passphrase or corrupted session file")

// Cookie is one persisted cookie.
type Cookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Expires time.Time `json:"expires"`
}

type plainFile struct {
	V       int      `json:"v"`
	Origin  string   `json:"origin"`
	Cookies []Cookie `json:"cookies"`
}

type sealedFile struct {
	V    int    `json:"v"`
	Salt []byte `json:"salt"`
	Blob []byte `json:"blob"`
}

// DefaultDir is $XDG_CONFIG_HOME/dine or ~/.config/dine.
func DefaultDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "dine")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "dine")
}

// Store reads and writes the session file.
type Store struct {
	dir        string
	passphrase []byte
	now        func() time.Time
}

// New returns a Store rooted at dir (DefaultDir when empty). An empty passphrase
// stores cookies in the clear.
func New(dir, passphrase string) *Store {
	if dir == "" {
		dir = DefaultDir()
	}
	var pp []byte
	if passphrase != "" {
		pp = []byte(passphrase)
	}
	return &Store{dir: dir, passphrase: pp, now: time.Now}
}

// Path is the session file location.
func (s *Store) Path() string { return filepath.Join(s.dir, fileName) }

// Sealed reports whether files are written encrypted.
func (s *Store) Sealed() bool { return len(s.passphrase) > 0 }

// Save writes the cookies jar holds for origin. An empty jar removes the file.
func (s *Store) Save(jar http.CookieJar, origin *url.URL) error {
	held := jar.Cookies(rootOf(origin))
	if len(held) == 0 {
		return s.Clear()
	}
	pf := plainFile{V: formatVersion, Origin: origin.Scheme + "://" + origin.Host}
	for _, c := range held {
		pf.Cookies = append(pf.Cookies, Cookie{Name: c.Name, Value: c.Value, Expires: s.expiry(c.Value)})
	}
	body, err := json.Marshal(pf)
	if err != nil {
		return err
	}
	if s.Sealed() {
		if body, err = s.seal(body, pf.Origin); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	tmp := s.Path() + ".tmp"
	if err := os.WriteFile(tmp, body, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.Path())
}

// Load restores unexpired cookies for origin into jar and returns how many it set.
// A missing file is not an error.
func (s *Store) Load(jar http.CookieJar, origin *url.URL) (int, error) {
	raw, err := os.ReadFile(s.Path())
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	want := origin.Scheme + "://" + origin.Host
	body := raw
	if s.Sealed() {
		if body, err = s.open(raw, want); err != nil {
			return 0, err
		}
	}
	var pf plainFile
	if err := json.Unmarshal(body, &pf); err != nil {
		return 0, fmt.Errorf("credstore: decode %s: %w", s.Path(), err)
	}
	if pf.Origin != want {
		return 0, nil
	}
	now := s.now()
	var live []*http.Cookie
	for _, c := range pf.Cookies {
		if c.Expires.IsZero() || !c.Expires.After(now) {
			continue
		}
		live = append(live, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/", Expires: c.Expires})
	}
	if len(live) > 0 {
		jar.SetCookies(rootOf(origin), live)
	}
	return len(live), nil
}

// Clear removes the session file.
func (s *Store) Clear() error {
	err := os.Remove(s.Path())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// expiry reads exp from a JWT cookie value without verifying it.
func (s *Store) expiry(value string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(value, &claims); err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}
	return s.now().Add(DefaultTTL)
}

func (s *Store) seal(body []byte, origin string) ([]byte, error) {
	salt, err := clientcrypto.Rand(clientcrypto.SaltLen)
	if err != nil {
		return nil, err
	}
	key, err := clientcrypto.DeriveKey(s.passphrase, salt, keyPurpose)
	if err != nil {
		return nil, err
	}
	blob, err := clientcrypto.Seal(key, []byte(origin), body)
	if err != nil {
		return nil, err
	}
	return json.Marshal(sealedFile{V: formatVersion, Salt: salt, Blob: blob})
}

func (s *Store) open(raw []byte, origin string) ([]byte, error) {
	var sf sealedFile
	if err := json.Unmarshal(raw, &sf); err != nil || len(sf.Salt) == 0 {
		return nil, ErrPassphrase
	}
	key, err := clientcrypto.DeriveKey(s.passphrase, sf.Salt, keyPurpose)
	if err != nil {
		return nil, err
	}
	body, err := clientcrypto.Open(key, []byte(origin), sf.Blob)
	if err != nil {
		return nil, ErrPassphrase
	}
	return body, nil
}

func rootOf(origin *url.URL) *url.URL {
	return &url.URL{Scheme: origin.Scheme, Host: origin.Host, Path: "/"}
}
