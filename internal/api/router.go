// Package api maps keyvault commands onto the account handler
package api

import (
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/AlexZinkM/keyvault/internal/handler"
)

// Opener builds the account handler. It is only called by commands that need
// custody, so `mnemonic generate` and `qr` never open the keystore.
type Opener func() (*handler.AccountHandler, error)

// SetupRouter builds the command tree. Responses go to out, errors are
// returned from Execute for the caller to report.
func SetupRouter(open Opener, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "keyvault",
		Short:         "HD key derivation, signing and envelope-encrypted key custody",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	root.AddCommand(
		mnemonicCommand(out),
		seedCommand(open),
		keyCommand(open),
		deleteCommand(open),
		rewrapCommand(open),
		listCommand(open),
		qrCommand(out),
	)
	return root
}

// withHandler adapts a handler call to cobra's RunE
func withHandler(open Opener, fn func(h *handler.AccountHandler) error) func(*cobra.Command, []string) error {
	return func(*cobra.Command, []string) error {
		h, err := open()
		if err != nil {
			return err
		}
		return fn(h)
	}
}

func mnemonicCommand(out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mnemonic",
		Short: "Mnemonic utilities",
	}

	var words int
	generate := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new BIP39 mnemonic without storing it",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return handler.GenerateMnemonic(out, words)
		},
	}
	generate.Flags().IntVar(&words, "words", 12, "number of words: 12, 15, 18, 21 or 24")

	cmd.AddCommand(generate)
	return cmd
}

func seedCommand(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Stored mnemonic accounts (m/44'/60'/0'/0/{index})",
	}

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import a mnemonic from hidden input",
		Args:  cobra.NoArgs,
		RunE: withHandler(open, func(h *handler.AccountHandler) error {
			return h.ImportSeed()
		}),
	}

	var (
		ref    string
		index  uint32
		digest string
	)

	addressCmd := &cobra.Command{
		Use:   "address",
		Short: "Derive the address at an index",
		Args:  cobra.NoArgs,
		RunE: withHandler(open, func(h *handler.AccountHandler) error {
			return h.SeedAddress(ref, index)
		}),
	}

	signCmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a 32-byte digest with the key at an index",
		Args:  cobra.NoArgs,
		RunE: withHandler(open, func(h *handler.AccountHandler) error {
			return h.SeedSign(ref, index, digest)
		}),
	}

	revealCmd := &cobra.Command{
		Use:   "reveal",
		Short: "Print the stored mnemonic",
		Args:  cobra.NoArgs,
		RunE: withHandler(open, func(h *handler.AccountHandler) error {
			return h.SeedReveal(ref)
		}),
	}

	for _, c := range []*cobra.Command{addressCmd, signCmd, revealCmd} {
		c.Flags().StringVar(&ref, "ref", "", "seed reference (UUID)")
		_ = c.MarkFlagRequired("ref")
	}
	for _, c := range []*cobra.Command{addressCmd, signCmd} {
		c.Flags().Uint32Var(&index, "index", 0, "external address index")
	}
	signCmd.Flags().StringVar(&digest, "digest", "", "32-byte digest in hex")
	_ = signCmd.MarkFlagRequired("digest")

	cmd.AddCommand(importCmd, addressCmd, signCmd, revealCmd)
	return cmd
}

func keyCommand(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Imported private key accounts",
	}

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import a hex private key from hidden input",
		Args:  cobra.NoArgs,
		RunE: withHandler(open, func(h *handler.AccountHandler) error {
			return h.ImportKey()
		}),
	}

	var addr, digest string

	signCmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a 32-byte digest with an imported key",
		Args:  cobra.NoArgs,
		RunE: withHandler(open, func(h *handler.AccountHandler) error {
			return h.KeySign(addr, digest)
		}),
	}
	signCmd.Flags().StringVar(&digest, "digest", "", "32-byte digest in hex")
	_ = signCmd.MarkFlagRequired("digest")

	revealCmd := &cobra.Command{
		Use:   "reveal",
		Short: "Print an imported private key",
		Args:  cobra.NoArgs,
		RunE: withHandler(open, func(h *handler.AccountHandler) error {
			return h.KeyReveal(addr)
		}),
	}

	for _, c := range []*cobra.Command{signCmd, revealCmd} {
		c.Flags().StringVar(&addr, "address", "", "account address")
		_ = c.MarkFlagRequired("address")
	}

	cmd.AddCommand(importCmd, signCmd, revealCmd)
	return cmd
}

func deleteCommand(open Opener) *cobra.Command {
	var (
		ref string
		all bool
	)
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the secret, ciphertext and record of a reference",
		Args:  cobra.NoArgs,
		PreRunE: func(*cobra.Command, []string) error {
			if (ref == "") == !all {
				return errors.New("exactly one of --ref or --all is required")
			}
			return nil
		},
		RunE: withHandler(open, func(h *handler.AccountHandler) error {
			if all {
				return h.DeleteAll()
			}
			return h.Delete(ref)
		}),
	}
	cmd.Flags().StringVar(&ref, "ref", "", "address or seed reference")
	cmd.Flags().BoolVar(&all, "all", false, "delete every stored reference and record")
	return cmd
}

func rewrapCommand(open Opener) *cobra.Command {
	var (
		ref string
		all bool
	)
	cmd := &cobra.Command{
		Use:   "rewrap",
		Short: "Re-encrypt stored ciphertexts under a fresh ephemeral key",
		Args:  cobra.NoArgs,
		PreRunE: func(*cobra.Command, []string) error {
			if (ref == "") == !all {
				return errors.New("exactly one of --ref or --all is required")
			}
			return nil
		},
		RunE: withHandler(open, func(h *handler.AccountHandler) error {
			return h.Rewrap(ref, all)
		}),
	}
	cmd.Flags().StringVar(&ref, "ref", "", "address or seed reference")
	cmd.Flags().BoolVar(&all, "all", false, "rewrap every stored reference")
	return cmd
}

func listCommand(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List account records",
		Args:  cobra.NoArgs,
		RunE: withHandler(open, func(h *handler.AccountHandler) error {
			return h.List()
		}),
	}
}

func qrCommand(out io.Writer) *cobra.Command {
	var (
		addr string
		file string
		size int
	)
	cmd := &cobra.Command{
		Use:   "qr",
		Short: "Write the QR code of an address as PNG",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return handler.QR(out, addr, file, size)
		},
	}
	cmd.Flags().StringVar(&addr, "address", "", "account address")
	cmd.Flags().StringVar(&file, "out", "", "output PNG file")
	cmd.Flags().IntVar(&size, "size", 256, "image size in pixels")
	_ = cmd.MarkFlagRequired("address")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
