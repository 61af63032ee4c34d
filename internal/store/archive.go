package store

import (
	"errors"

	"github.com/jepicoco/galerie-sub002/internal/models"
)

// ArchiveOlderThan moves terminal orders (retrieved or cancelled) created
// more than olderThanDays ago from the live table to the archive table and
// returns how many orders moved. Orders are never deleted outright.
//
// One locked operation spans both files. Lock order is fixed: live first,
// then archive.
func (s *Store) ArchiveOlderThan(olderThanDays int) (int, error) {
	cutoff := s.nowFunc().AddDate(0, 0, -olderThanDays)
	moved := 0

	err := s.fs.WithExclusiveLock(s.livePath, func() error {
		return s.fs.WithExclusiveLock(s.archivePath, func() error {
			live, err := s.readTable(s.livePath)
			if err != nil {
				return err
			}

			kept := live[:0:0]
			var toArchive []int
			for i := range live {
				if live[i].Status.Terminal() && live[i].CreatedAt.Before(cutoff) {
					toArchive = append(toArchive, i)
				} else {
					kept = append(kept, live[i])
				}
			}
			if len(toArchive) == 0 {
				return nil
			}

			archived, err := s.readTable(s.archivePath)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
			for _, i := range toArchive {
				archived = append(archived, live[i])
			}

			// Archive grows first; if the live rewrite then fails, the worst
			// case is a duplicate in the archive, never a lost order.
			if err := s.writeTable(s.archivePath, archived); err != nil {
				return err
			}
			if err := s.writeTable(s.livePath, kept); err != nil {
				return err
			}
			moved = len(toArchive)
			return nil
		})
	})
	if err != nil {
		return 0, err
	}
	return moved, nil
}

// Archived returns the archive table for the admin history view.
func (s *Store) Archived() ([]models.Order, error) {
	orders, err := s.readTable(s.archivePath)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return orders, nil
}
