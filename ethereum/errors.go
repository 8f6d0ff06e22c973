package ethereum

import (
	"errors"

	"github.com/AlexZinkM/keyvault/internal/address"
	"github.com/AlexZinkM/keyvault/internal/custody"
	"github.com/AlexZinkM/keyvault/internal/directory"
	"github.com/AlexZinkM/keyvault/internal/hdnode"
	"github.com/AlexZinkM/keyvault/internal/keys"
	"github.com/AlexZinkM/keyvault/internal/mnemonic"
)

var (
	ErrAddressMismatch      = errors.New("stored key does not match the requested address")
	ErrAlreadyImported      = errors.New("private key already imported")
	ErrInvalidSeedReference = errors.New("seed reference must be a UUID")
)

// Stable error codes for command output
const (
	CodeAddressMismatch      = "ADDRESS_MISMATCH"
	CodeAlreadyImported      = "ALREADY_IMPORTED"
	CodeReferenceNotFound    = "REFERENCE_NOT_FOUND"
	CodeInvalidReference     = "INVALID_REFERENCE"
	CodeSecretUnavailable    = "SECRET_UNAVAILABLE"
	CodePublicKeyUnavailable = "PUBLIC_KEY_UNAVAILABLE"
	CodeEncryptionFailed     = "ENCRYPTION_FAILED"
	CodeDecryptionFailed     = "DECRYPTION_FAILED"
	CodePersistFailed        = "PERSIST_FAILED"
	CodeDeleteIncomplete     = "DELETE_INCOMPLETE"
	CodeInvalidPrivateKey    = "INVALID_PRIVATE_KEY"
	CodeInvalidDigest        = "INVALID_DIGEST"
	CodeInvalidDigestFormat  = "INVALID_DIGEST_FORMAT"
	CodeInvalidAddress       = "INVALID_ADDRESS"
	CodeInvalidMnemonic      = "INVALID_MNEMONIC"
	CodeDerivationFailed     = "DERIVATION_FAILED"
	CodeSigningFailed        = "SIGNING_FAILED"
	CodeRecordExists         = "RECORD_EXISTS"
	CodeStoreUnavailable     = "STORE_UNAVAILABLE"
	CodeInternal             = "INTERNAL"
)

var errorCodes = []struct {
	err  error
	code string
}{
	{custody.ErrDeleteIncomplete, CodeDeleteIncomplete},
	{ErrAddressMismatch, CodeAddressMismatch},
	{ErrAlreadyImported, CodeAlreadyImported},
	{custody.ErrSecretUnavailable, CodeSecretUnavailable},
	{custody.ErrPublicKeyUnavailable, CodePublicKeyUnavailable},
	{custody.ErrReferenceNotFound, CodeReferenceNotFound},
	{directory.ErrRecordNotFound, CodeReferenceNotFound},
	{custody.ErrDecryptionFailed, CodeDecryptionFailed},
	{custody.ErrEncryptionFailed, CodeEncryptionFailed},
	{custody.ErrPersistFailed, CodePersistFailed},
	{custody.ErrStoreUnavailable, CodeStoreUnavailable},
	{ErrInvalidSeedReference, CodeInvalidReference},
	{custody.ErrInvalidReference, CodeInvalidReference},
	{directory.ErrInvalidReference, CodeInvalidReference},
	{mnemonic.ErrInvalidMnemonic, CodeInvalidMnemonic},
	{keys.ErrInvalidPrivateKey, CodeInvalidPrivateKey},
	{keys.ErrInvalidDigestLength, CodeInvalidDigest},
	{keys.ErrInvalidDigestFormat, CodeInvalidDigestFormat},
	{keys.ErrSigningFailed, CodeSigningFailed},
	{keys.ErrTweakOverflow, CodeDerivationFailed},
	{keys.ErrInvalidTweak, CodeDerivationFailed},
	{hdnode.ErrSeedDerivationFailed, CodeDerivationFailed},
	{hdnode.ErrInvalidChildIndex, CodeDerivationFailed},
	{hdnode.ErrDepthExceeded, CodeDerivationFailed},
	{address.ErrIncorrectLength, CodeInvalidAddress},
	{address.ErrInvalidFormat, CodeInvalidAddress},
	{address.ErrInvalidChecksum, CodeInvalidAddress},
	{address.ErrInvalidPublicKey, CodeInvalidAddress},
}

// ErrorCode maps err to a stable code. Unknown errors map to INTERNAL.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	if directory.IsRecordExistsError(err) {
		return CodeRecordExists
	}
	return CodeInternal
}
