package jsondata

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fernet/fernet-go"
)

// ErrDecrypt is returned when a .jsone token fails verification, which
// means either the key is wrong or the file was modified.
var ErrDecrypt = errors.New("failed to decrypt: wrong key or corrupted file")

// noExpiry disables the token age check in fernet.VerifyAndDecrypt.
const noExpiry = -1

// NewKey returns a fresh Fernet key in its URL-safe base64 form.
func NewKey() (string, error) {
	var key fernet.Key
	if err := key.Generate(); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return key.Encode(), nil
}

// parseKey accepts a key as printed by Python (b'...') or as plain text.
func parseKey(encoded string) (*fernet.Key, error) {
	encoded = strings.TrimSpace(encoded)
	if strings.HasPrefix(encoded, "b'") && strings.HasSuffix(encoded, "'") {
		encoded = encoded[2 : len(encoded)-1]
	}
	key, err := fernet.DecodeKey(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid key: %w", err)
	}
	return key, nil
}

// Encrypt returns plain as a Fernet token.
func Encrypt(encodedKey string, plain []byte) ([]byte, error) {
	key, err := parseKey(encodedKey)
	if err != nil {
		return nil, err
	}
	return fernet.EncryptAndSign(plain, key)
}

// Decrypt verifies a Fernet token and returns its payload. Tokens never
// expire.
func Decrypt(encodedKey string, token []byte) ([]byte, error) {
	key, err := parseKey(encodedKey)
	if err != nil {
		return nil, err
	}
	plain := fernet.VerifyAndDecrypt([]byte(strings.TrimSpace(string(token))), noExpiry, []*fernet.Key{key})
	if plain == nil {
		return nil, ErrDecrypt
	}
	return plain, nil
}
