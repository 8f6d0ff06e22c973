//go:build !cgo

package hsm

import (
	"crypto/ecdh"

	"go.uber.org/zap"

	"github.com/AlexZinkM/keyvault/internal/keystore"
)

// Keystore is unavailable without cgo
type Keystore struct{}

var _ keystore.Keystore = (*Keystore)(nil)

func Open(Config, *zap.Logger) (*Keystore, error) {
	return nil, ErrUnsupported
}

func (*Keystore) Provision(string) (*ecdh.PublicKey, error) { return nil, ErrUnsupported }
func (*Keystore) PublicKey(string) (*ecdh.PublicKey, error) { return nil, ErrUnsupported }
func (*Keystore) Agree(string, *ecdh.PublicKey) ([]byte, error) { return nil, ErrUnsupported }
func (*Keystore) Delete(string) error { return ErrUnsupported }
func (*Keystore) Close() error { return nil }
