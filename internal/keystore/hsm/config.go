// Package hsm is the PKCS#11 Keystore. Secrets are P-256 key pairs generated
// inside the token as sensitive, non-extractable objects; decryption runs the
// key agreement inside the token and only the derived shared secret leaves it.
package hsm

import "errors"

var (
	ErrUnsupported   = errors.New("pkcs11 keystore requires cgo")
	ErrTokenNotFound = errors.New("pkcs11 token not found")
	ErrNoLibrary     = errors.New("pkcs11 library path is empty")
)

// Config selects the module, token and access group
type Config struct {
	LibraryPath string
	TokenLabel  string // empty selects the first slot with a token
	AccessGroup string

	// PIN is the user PIN. Open does not retain it, the caller clears it afterwards.
	PIN []byte
}
