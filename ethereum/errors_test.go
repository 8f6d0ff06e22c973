package ethereum

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AlexZinkM/keyvault/internal/address"
	"github.com/AlexZinkM/keyvault/internal/custody"
	"github.com/AlexZinkM/keyvault/internal/directory"
	"github.com/AlexZinkM/keyvault/internal/keys"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("wrapped: %w", ErrAddressMismatch), CodeAddressMismatch},
		{fmt.Errorf("%w: 0xabc", ErrAlreadyImported), CodeAlreadyImported},
		{fmt.Errorf("%w: %w", custody.ErrSecretUnavailable, errors.New("locked")), CodeSecretUnavailable},
		{custody.ErrReferenceNotFound, CodeReferenceNotFound},
		{directory.ErrRecordNotFound, CodeReferenceNotFound},
		{&custody.DeleteIncompleteError{Reference: "r", Secret: errors.New("busy")}, CodeDeleteIncomplete},
		{&directory.RecordExistsError{Reference: "r"}, CodeRecordExists},
		{fmt.Errorf("%w: %w", custody.ErrStoreUnavailable, errors.New("disk")), CodeStoreUnavailable},
		{fmt.Errorf("%w: odd length", keys.ErrInvalidDigestFormat), CodeInvalidDigestFormat},
		{fmt.Errorf("%w: got 31", keys.ErrInvalidDigestLength), CodeInvalidDigest},
		{keys.ErrInvalidPrivateKey, CodeInvalidPrivateKey},
		{keys.ErrTweakOverflow, CodeDerivationFailed},
		{address.ErrInvalidChecksum, CodeInvalidAddress},
		{errors.New("boom"), CodeInternal},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorCode(tt.err), "%v", tt.err)
	}
}
