// Package directory keeps one public JSON record per account in a flat
// directory. Records never contain secret material.
package directory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/AlexZinkM/keyvault/internal/common"
	"github.com/AlexZinkM/keyvault/internal/model"
)

const (
	recordExt = ".json"
	tempGlob  = ".record-*.tmp"
)

var (
	ErrRecordNotFound   = errors.New("account record not found")
	ErrInvalidReference = errors.New("invalid record reference")
	ErrInvalidRecord    = errors.New("invalid account record")
)

// RecordExistsError is an error when a record for the reference is already written
type RecordExistsError struct {
	Reference string
}

func (e *RecordExistsError) Error() string {
	return fmt.Sprintf("account record %s already exists", e.Reference)
}

// IsRecordExistsError checks if error is RecordExistsError
func IsRecordExistsError(err error) bool {
	var target *RecordExistsError
	return errors.As(err, &target)
}

type Directory struct {
	dir    string
	logger *zap.Logger
}

// New opens dir, creating it with owner-only permissions if missing
func New(dir string, logger *zap.Logger) (*Directory, error) {
	if dir == "" {
		return nil, errors.New("accounts directory path is empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create accounts directory: %w", err)
	}
	return &Directory{dir: dir, logger: logger}, nil
}

func (d *Directory) Path() string {
	return d.dir
}

func (d *Directory) path(ref string) (string, error) {
	if ref == "" || ref == "." || ref == ".." || strings.ContainsAny(ref, `/\`) || strings.HasPrefix(ref, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}
	return filepath.Join(d.dir, ref+recordExt), nil
}

// Create writes rec only if no record exists under its reference
func (d *Directory) Create(rec *model.AccountRecord) error {
	if err := validate(rec); err != nil {
		return err
	}
	p, err := d.path(rec.Reference())
	if err != nil {
		return err
	}

	// Check file existence
	if _, err := os.Stat(p); err == nil {
		return &RecordExistsError{Reference: rec.Reference()}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to check account record: %w", err)
	}

	return d.Write(rec)
}

// Write stores rec under its reference, replacing any previous record.
// The file is written to a temp file and renamed, so readers never see a partial record.
func (d *Directory) Write(rec *model.AccountRecord) error {
	if err := validate(rec); err != nil {
		return err
	}
	ref := rec.Reference()
	p, err := d.path(ref)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal account record: %w", err)
	}
	// Add UTF-8 BOM for proper display in Windows
	data = append(common.UTF8BOM(), data...)

	tmp, err := os.CreateTemp(d.dir, tempGlob)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set record permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write account record: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync account record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close account record: %w", err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		return fmt.Errorf("failed to replace account record: %w", err)
	}
	committed = true

	d.logger.Debug("account record written", zap.String("reference", ref), zap.String("kind", string(rec.Kind)))
	return nil
}

// Read loads the record stored under ref
func (d *Directory) Read(ref string) (*model.AccountRecord, error) {
	p, err := d.path(ref)
	if err != nil {
		return nil, err
	}
	return readRecord(p, ref)
}

func readRecord(p, ref string) (*model.AccountRecord, error) {
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read account record: %w", err)
	}

	var rec model.AccountRecord
	if err := json.Unmarshal(common.StripBOM(data), &rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	if err := validate(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns every decodable record sorted by reference.
// Files that fail to decode are skipped with a warning.
func (d *Directory) List() ([]*model.AccountRecord, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read accounts directory: %w", err)
	}

	var records []*model.AccountRecord
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != recordExt {
			continue
		}
		ref := strings.TrimSuffix(name, recordExt)
		rec, err := readRecord(filepath.Join(d.dir, name), ref)
		if err != nil {
			d.logger.Warn("skipping unreadable account record", zap.String("file", name), zap.Error(err))
			continue
		}
		records = append(records, rec)
	}

	slices.SortFunc(records, func(a, b *model.AccountRecord) int {
		return strings.Compare(a.Reference(), b.Reference())
	})
	return records, nil
}

// Delete removes the record under ref. A missing record is not an error.
func (d *Directory) Delete(ref string) error {
	p, err := d.path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete account record: %w", err)
	}
	d.logger.Debug("account record deleted", zap.String("reference", ref))
	return nil
}

// DeleteAll removes every record file. Other files in the directory are left alone.
func (d *Directory) DeleteAll() error {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return fmt.Errorf("failed to read accounts directory: %w", err)
	}

	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != recordExt {
			continue
		}
		if err := os.Remove(filepath.Join(d.dir, entry.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to delete account records: %w", errors.Join(errs...))
	}
	return nil
}

func validate(rec *model.AccountRecord) error {
	switch rec.Kind {
	case model.KindPrivateKey:
		if rec.PrivateKey == nil || rec.SeedPhrase != nil {
			return fmt.Errorf("%w: private key record must carry only the private key account", ErrInvalidRecord)
		}
	case model.KindSeedPhrase:
		if rec.SeedPhrase == nil || rec.PrivateKey != nil {
			return fmt.Errorf("%w: seed phrase record must carry only the seed phrase account", ErrInvalidRecord)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidRecord, rec.Kind)
	}
	if rec.Reference() == "" {
		return fmt.Errorf("%w: empty reference", ErrInvalidRecord)
	}
	return nil
}
