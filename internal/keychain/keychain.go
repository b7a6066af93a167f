// Package keychain keeps the service bearer token in the OS credential store.
package keychain

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	service = "reelgen"
	account = "service-token"
)

// Token returns the stored token, or "" when none is stored.
func Token() (string, error) {
	tok, err := keyring.Get(service, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read keychain: %w", err)
	}
	return tok, nil
}

func SetToken(token string) error {
	if token == "" {
		return errors.New("token must not be empty")
	}
	if err := keyring.Set(service, account, token); err != nil {
		return fmt.Errorf("write keychain: %w", err)
	}
	return nil
}

// ClearToken removes the stored token. Clearing an absent token succeeds.
func ClearToken() error {
	err := keyring.Delete(service, account)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("clear keychain: %w", err)
	}
	return nil
}

// Resolve picks the token to send: an explicit one wins, otherwise the
// keychain entry. A keychain that cannot be read yields no token.
func Resolve(explicit string) string {
	if explicit != "" {
		return explicit
	}
	tok, err := Token()
	if err != nil {
		return ""
	}
	return tok
}
