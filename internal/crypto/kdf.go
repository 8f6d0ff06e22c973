package crypto

import (
	"crypto/sha256"
	"fmt"

	"github.com/AlexZinkM/keyvault/internal/common"
)

// X963KDF derives length bytes from the shared secret z as defined in ANSI X9.63
// with SHA-256: Hash(z || counter || sharedInfo) for counter = 1, 2, ...
func X963KDF(z, sharedInfo []byte, length int) ([]byte, error) {
	if length <= 0 || length > sha256.Size*0xffff {
		return nil, fmt.Errorf("%w: %d", ErrInvalidKDFLength, length)
	}

	out := make([]byte, 0, length+sha256.Size)
	h := sha256.New()
	for counter := uint32(1); len(out) < length; counter++ {
		h.Reset()
		h.Write(z)
		h.Write(common.Uint32ToBytes(counter))
		h.Write(sharedInfo)
		out = h.Sum(out)
	}

	clear(out[length:])
	return out[:length], nil
}
