package custody

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidReference     = errors.New("reference must not be empty")
	ErrPublicKeyUnavailable = errors.New("hardware secret public key unavailable")
	ErrEncryptionFailed     = errors.New("encryption failed")
	ErrPersistFailed        = errors.New("failed to persist ciphertext")
	ErrStoreUnavailable     = errors.New("ciphertext store unavailable")
	ErrReferenceNotFound    = errors.New("no ciphertext stored for reference")
	ErrSecretUnavailable    = errors.New("hardware secret unavailable")
	ErrDecryptionFailed     = errors.New("decryption failed")
	ErrDeleteIncomplete     = errors.New("delete incomplete")
)

// DeleteIncompleteError reports which half of a reference survived a Delete.
// A nil field means that half is gone.
type DeleteIncompleteError struct {
	Reference  string
	Ciphertext error
	Secret     error
}

func (e *DeleteIncompleteError) Error() string {
	var parts []string
	if e.Ciphertext != nil {
		parts = append(parts, fmt.Sprintf("ciphertext: %v", e.Ciphertext))
	}
	if e.Secret != nil {
		parts = append(parts, fmt.Sprintf("secret: %v", e.Secret))
	}
	return fmt.Sprintf("%s for %s: %s", ErrDeleteIncomplete, e.Reference, strings.Join(parts, "; "))
}

func (e *DeleteIncompleteError) Unwrap() []error {
	errs := []error{ErrDeleteIncomplete}
	if e.Ciphertext != nil {
		errs = append(errs, e.Ciphertext)
	}
	if e.Secret != nil {
		errs = append(errs, e.Secret)
	}
	return errs
}

// IsDeleteIncompleteError checks if error is DeleteIncompleteError
func IsDeleteIncompleteError(err error) bool {
	var target *DeleteIncompleteError
	return errors.As(err, &target)
}
