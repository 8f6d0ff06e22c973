package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"golang.org/x/term"
)

const (
	BackendMemory = "memory"
	BackendPKCS11 = "pkcs11"
)

// Config contains all configuration parameters for the application.
// Note: the token PIN is prompted at runtime and never read from the environment - use PromptForPIN()
type Config struct {
	KeystoreBackend  string `envconfig:"KEYSTORE_BACKEND" default:"memory"`
	PKCS11Library    string `envconfig:"PKCS11_LIBRARY"`
	PKCS11TokenLabel string `envconfig:"PKCS11_TOKEN_LABEL"`
	AccessGroup      string `envconfig:"ACCESS_GROUP" default:"keyvault"`
	StorePath        string `envconfig:"STORE_PATH" default:"./data/ciphertexts"`
	AccountsDir      string `envconfig:"ACCOUNTS_DIR" default:"./data/accounts"`
	LogLevel         string `envconfig:"LOG_LEVEL" default:"info"`
	LogFile          string `envconfig:"LOG_FILE"`
	MetricsFile      string `envconfig:"METRICS_FILE"`
}

// cfg is the global configuration instance
var cfg *Config

// Init loads configuration from environment variables.
func Init() error {
	c := &Config{}
	if err := envconfig.Process("", c); err != nil {
		return fmt.Errorf("failed to process config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return err
	}
	cfg = c
	return nil
}

// Validate checks cross-field constraints envconfig cannot express
func (c *Config) Validate() error {
	switch c.KeystoreBackend {
	case BackendMemory:
	case BackendPKCS11:
		if c.PKCS11Library == "" {
			return errors.New("PKCS11_LIBRARY is required for the pkcs11 keystore backend")
		}
	default:
		return fmt.Errorf("unknown KEYSTORE_BACKEND %q, must be %s or %s", c.KeystoreBackend, BackendMemory, BackendPKCS11)
	}
	if c.StorePath == "" {
		return errors.New("STORE_PATH must not be empty")
	}
	if c.AccountsDir == "" {
		return errors.New("ACCOUNTS_DIR must not be empty")
	}
	return nil
}

// Get returns the global configuration instance.
// Panics if Init() was not called.
func Get() *Config {
	if cfg == nil {
		panic("config not initialized, call Init() first")
	}
	return cfg
}

// GetKeystoreBackend returns the hardware secret provider name
func GetKeystoreBackend() string {
	return Get().KeystoreBackend
}

// GetPKCS11Library returns the path of the PKCS#11 module
func GetPKCS11Library() string {
	return Get().PKCS11Library
}

// GetPKCS11TokenLabel returns the label of the token holding the secrets
func GetPKCS11TokenLabel() string {
	return Get().PKCS11TokenLabel
}

// GetAccessGroup returns the access group secrets are scoped to
func GetAccessGroup() string {
	return Get().AccessGroup
}

// GetStorePath returns the ciphertext database directory
func GetStorePath() string {
	return Get().StorePath
}

// GetAccountsDir returns the account record directory
func GetAccountsDir() string {
	return Get().AccountsDir
}

// PromptForPIN prompts the user for the token PIN in the terminal.
// The PIN is read without echoing (hidden input).
// Caller must zero the returned slice after use for security.
func PromptForPIN() ([]byte, error) {
	return ReadSecret("Enter token PIN: ")
}

// ReadSecret reads one line of hidden input from the terminal.
// Caller must zero the returned slice after use for security.
func ReadSecret(prompt string) ([]byte, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, errors.New("stdin is not a terminal: run the app interactively to enter secrets")
	}
	fmt.Fprint(os.Stderr, prompt)
	defer fmt.Fprintln(os.Stderr)

	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("input cannot be empty")
	}

	out := make([]byte, len(raw))
	copy(out, raw)
	clear(raw)
	return out, nil
}
