// Command keyvault derives, signs with and keeps custody of account keys.
// Configuration comes from the environment, see internal/config.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/AlexZinkM/keyvault/ethereum"
	"github.com/AlexZinkM/keyvault/internal/api"
	"github.com/AlexZinkM/keyvault/internal/config"
	"github.com/AlexZinkM/keyvault/internal/custody"
	"github.com/AlexZinkM/keyvault/internal/directory"
	"github.com/AlexZinkM/keyvault/internal/handler"
	"github.com/AlexZinkM/keyvault/internal/keystore"
	"github.com/AlexZinkM/keyvault/internal/keystore/hsm"
	"github.com/AlexZinkM/keyvault/internal/logging"
	"github.com/AlexZinkM/keyvault/internal/metrics"
	"github.com/AlexZinkM/keyvault/internal/store"
	badgerstore "github.com/AlexZinkM/keyvault/internal/store/badger"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := config.Init(); err != nil {
		handler.WriteError(os.Stderr, err)
		return 1
	}
	cfg := config.Get()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		handler.WriteError(os.Stderr, err)
		return 1
	}
	defer logger.Sync()

	m := metrics.New()
	defer func() {
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Warn("failed to write metrics", zap.Error(err))
		}
	}()

	deps := &dependencies{
		logger:     logger,
		metrics:    m,
		readSecret: config.ReadSecret,
		out:        os.Stdout,
	}
	defer deps.Close()

	root := api.SetupRouter(deps.Open, os.Stdout)
	if err := root.Execute(); err != nil {
		logger.Debug("command failed", zap.Error(err))
		handler.WriteError(os.Stderr, err)
		return 1
	}
	return 0
}

// dependencies opens custody on first use and closes it on exit.
// Settings are read through the config accessors, so config.Init must run first.
type dependencies struct {
	logger     *zap.Logger
	metrics    *metrics.Metrics
	readSecret handler.SecretReader
	out        io.Writer

	handler *handler.AccountHandler
	closers []func() error
}

func (d *dependencies) Open() (*handler.AccountHandler, error) {
	if d.handler != nil {
		return d.handler, nil
	}

	var (
		ks  keystore.Keystore
		st  store.Store
		dir *directory.Directory
		err error
	)
	switch config.GetKeystoreBackend() {
	case config.BackendPKCS11:
		if ks, err = d.openToken(); err != nil {
			return nil, err
		}
		if st, dir, err = d.openPersistent(); err != nil {
			return nil, err
		}
	default:
		// nothing that refers to a memory secret may outlive the process
		d.logger.Warn("memory keystore selected: secrets, ciphertexts and records are discarded on exit")
		ks = keystore.NewMemory(config.GetAccessGroup())
		st = store.NewMemory()
		if dir, err = d.openScratch(); err != nil {
			return nil, err
		}
	}

	c := custody.New(ks, st, custody.WithLogger(d.logger), custody.WithMetrics(d.metrics))
	accounts := ethereum.NewAccounts(c, dir, d.logger)
	d.handler = handler.NewAccountHandler(accounts, c, d.readSecret, d.out)
	return d.handler, nil
}

func (d *dependencies) openToken() (keystore.Keystore, error) {
	pin, err := config.PromptForPIN()
	if err != nil {
		return nil, err
	}
	defer clear(pin) // Always clear PIN from memory

	ks, err := hsm.Open(hsm.Config{
		LibraryPath: config.GetPKCS11Library(),
		TokenLabel:  config.GetPKCS11TokenLabel(),
		AccessGroup: config.GetAccessGroup(),
		PIN:         pin,
	}, d.logger)
	if err != nil {
		return nil, err
	}
	d.closers = append(d.closers, ks.Close)
	return ks, nil
}

// openPersistent opens the on-disk ciphertext store and record directory
func (d *dependencies) openPersistent() (store.Store, *directory.Directory, error) {
	st, err := badgerstore.Open(config.GetStorePath(), d.logger)
	if err != nil {
		return nil, nil, err
	}
	d.closers = append(d.closers, st.Close)

	dir, err := directory.New(config.GetAccountsDir(), d.logger)
	if err != nil {
		return nil, nil, err
	}
	return st, dir, nil
}

// openScratch creates a record directory that is removed on Close
func (d *dependencies) openScratch() (*directory.Directory, error) {
	tmp, err := os.MkdirTemp("", "keyvault-accounts-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch accounts directory: %w", err)
	}
	d.closers = append(d.closers, func() error { return os.RemoveAll(tmp) })

	return directory.New(tmp, d.logger)
}

// Close releases opened resources in reverse order
func (d *dependencies) Close() {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		d.logger.Warn("failed to close resources", zap.Error(err))
	}
}
