package docstore

import (
	"fmt"
	"io"
)

// Backup writes a full dump of the database to w and returns the version
// the dump is consistent with.
func (s *BadgerStore) Backup(w io.Writer) (uint64, error) {
	if s.closed.Load() {
		return 0, ErrUnavailable
	}
	version, err := s.db.Backup(w, 0)
	if err != nil {
		return 0, fmt.Errorf("backup database: %w", err)
	}
	return version, nil
}

// Restore loads a dump produced by Backup. Existing keys are overwritten.
func (s *BadgerStore) Restore(r io.Reader) (err error) {
	if s.closed.Load() {
		return ErrUnavailable
	}
	// Load panics on some malformed dumps.
	defer func() {
		if rv := recover(); rv != nil {
			err = fmt.Errorf("restore database: malformed backup: %v", rv)
		}
	}()
	if err := s.db.Load(r, 256); err != nil {
		return fmt.Errorf("restore database: %w", err)
	}
	return nil
}
