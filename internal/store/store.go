// Package store persists opaque ciphertext blobs keyed by reference id.
package store

import "errors"

var (
	ErrNotFound       = errors.New("ciphertext not found")
	ErrEmptyReference = errors.New("reference must not be empty")
)

// Store is a ciphertext store with atomic read and overwrite per reference.
type Store interface {
	// Put stores ciphertext under ref, replacing any previous value.
	Put(ref string, ciphertext []byte) error

	// Get returns a copy of the ciphertext or ErrNotFound.
	Get(ref string) ([]byte, error)

	Has(ref string) (bool, error)

	// Delete removes ref. A missing reference is not an error.
	Delete(ref string) error

	// References lists stored references in ascending order.
	References() ([]string, error)
}
