package app

import (
	"fmt"
	"packsense/internal/data/packstore"
)

func (s *Session) initPackStore() error {
	if s == nil || s.cfg == nil || !s.cfg.Store.Enabled {
		return nil
	}
	store, err := packstore.Open(s.paths.StorePath)
	if err != nil {
		return fmt.Errorf("open sqlite pack store: %w", err)
	}
	s.packStore = store
	return nil
}

// PrunePackStore drops cached scans of pack files that no longer exist.
func (s *Session) PrunePackStore() (int, error) {
	if s == nil || s.packStore == nil {
		return 0, nil
	}
	return s.packStore.PruneMissing(s.fs.Exists)
}

func (s *Session) closePackStore() error {
	if s == nil || s.packStore == nil {
		return nil
	}
	err := s.packStore.Close()
	s.packStore = nil
	return err
}
