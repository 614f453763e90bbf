package spreadsheet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/gofrs/flock"
)

// DefaultLockTimeout bounds the wait for a file lock when the context has no
// deadline of its own
const DefaultLockTimeout = 5 * time.Second

// lockRetryDelay is how often a busy lock file is polled
const lockRetryDelay = 100 * time.Millisecond

// document is the on-disk form of a spreadsheet. only string forms are
// stored; values are recomputed on load.
type document struct {
	ID      string                  `json:"id,omitempty"`
	Version string                  `json:"version"`
	Cells   map[string]cellDocument `json:"cells"`
}

type cellDocument struct {
	StringForm string `json:"stringForm"`
}

// Save writes the spreadsheet to path as JSON and clears Changed. the write
// goes to a temporary file that replaces path, under an exclusive lock on
// path + ".lock".
func (s *Spreadsheet) Save(ctx context.Context, path string) error {
	if path == "" {
		return WrapApplicationError(InvalidArgument, "saving spreadsheet", fmt.Errorf("%w: empty path", ErrReadWrite))
	}

	doc := document{
		ID:      s.id,
		Version: s.version,
		Cells:   make(map[string]cellDocument, len(s.cells)),
	}
	for name, cell := range s.cells {
		doc.Cells[name] = cellDocument{StringForm: cell.StringForm()}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return WrapApplicationError(Internal, "saving spreadsheet", fmt.Errorf("%w: encoding: %w", ErrReadWrite, err))
	}

	lock, err := lockFile(ctx, path, true)
	if err != nil {
		return WrapApplicationError(Internal, "saving spreadsheet", err)
	}
	defer func() { _ = lock.Unlock() }()

	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return WrapApplicationError(Internal, "saving spreadsheet", fmt.Errorf("%w: writing %s: %w", ErrReadWrite, path, err))
	}

	s.changed = false
	s.logger.Info().
		Str("path", path).
		Str("id", s.id).
		Int("cells", len(doc.Cells)).
		Msg("spreadsheet saved")
	return nil
}

// Load reads a spreadsheet saved by Save. the version in the file has to
// match the version configured by opts. cells are replayed in name order
// through SetContentsOfCell, so a file with an invalid name, an invalid
// formula or a cycle is rejected as a whole.
func Load(ctx context.Context, path string, opts ...Option) (*Spreadsheet, error) {
	doc, err := readDocument(ctx, path)
	if err != nil {
		return nil, err
	}

	s := NewSpreadsheet(append(slices.Clip(opts), WithID(doc.ID))...)
	if doc.Version != s.version {
		return nil, WrapApplicationError(FailedPrecondition, "loading "+path,
			fmt.Errorf("%w: file has %q, expected %q", ErrVersionMismatch, doc.Version, s.version))
	}

	for _, name := range slices.Sorted(maps.Keys(doc.Cells)) {
		if _, err := s.SetContentsOfCell(name, doc.Cells[name].StringForm); err != nil {
			return nil, WrapApplicationError(Internal, "loading "+path,
				fmt.Errorf("%w: cell %s: %w", ErrReadWrite, name, err))
		}
	}

	s.changed = false
	s.logger.Info().
		Str("path", path).
		Str("id", s.id).
		Int("cells", len(s.cells)).
		Msg("spreadsheet loaded")
	return s, nil
}

// SavedVersion returns the version recorded in a saved file without
// building the spreadsheet
func SavedVersion(ctx context.Context, path string) (string, error) {
	doc, err := readDocument(ctx, path)
	if err != nil {
		return "", err
	}
	return doc.Version, nil
}

func readDocument(ctx context.Context, path string) (*document, error) {
	if path == "" {
		return nil, WrapApplicationError(InvalidArgument, "loading spreadsheet", fmt.Errorf("%w: empty path", ErrReadWrite))
	}

	lock, err := lockFile(ctx, path, false)
	if err != nil {
		return nil, WrapApplicationError(Internal, "loading "+path, err)
	}
	defer func() { _ = lock.Unlock() }()

	data, err := os.ReadFile(path)
	if err != nil {
		code := Internal
		if errors.Is(err, fs.ErrNotExist) {
			code = NotFound
		}
		return nil, WrapApplicationError(code, "loading "+path, fmt.Errorf("%w: reading: %w", ErrReadWrite, err))
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, WrapApplicationError(Internal, "loading "+path, fmt.Errorf("%w: decoding: %w", ErrReadWrite, err))
	}
	return &doc, nil
}

// lockFile takes the lock file next to path, exclusive for writers and
// shared for readers
func lockFile(ctx context.Context, path string, exclusive bool) (*flock.Flock, error) {
	lockPath := path + ".lock"

	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating lock directory: %w", ErrReadWrite, err)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultLockTimeout)
		defer cancel()
	}

	lock := flock.New(lockPath)
	var (
		locked bool
		err    error
	)
	if exclusive {
		locked, err = lock.TryLockContext(ctx, lockRetryDelay)
	} else {
		locked, err = lock.TryRLockContext(ctx, lockRetryDelay)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: acquiring lock: %w", ErrReadWrite, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: timeout waiting for %s", ErrReadWrite, lockPath)
	}
	return lock, nil
}

// writeFileAtomic writes to a temporary file and renames it over path
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmpFile := path + ".tmp"

	if err := os.WriteFile(tmpFile, data, perm); err != nil {
		return err
	}

	if err := os.Rename(tmpFile, path); err != nil {
		_ = os.Remove(tmpFile)
		return err
	}
	return nil
}
