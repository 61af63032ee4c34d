package store

import (
	"fmt"

	"github.com/jepicoco/galerie-sub002/internal/models"
)

// PrepEntry is one line of the preparation queue: a line item still to be
// physically prepared for pickup.
type PrepEntry struct {
	Reference   string
	ActivityKey string
	FileName    string
	Quantity    int
	Exported    bool
}

func (s *Store) readPrep() ([]PrepEntry, error) {
	records, err := s.fs.ReadAll(s.prepPath)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return s.codec.DecodePrepRows(records[1:])
}

func (s *Store) writePrep(entries []PrepEntry) error {
	records := [][]string{s.codec.PrepHeader()}
	for _, e := range entries {
		records = append(records, s.codec.EncodePrepRow(e))
	}
	return s.fs.WriteAll(s.prepPath, records, true)
}

// PreparationQueue returns the current queue. Read-only, unlocked.
func (s *Store) PreparationQueue() ([]PrepEntry, error) {
	return s.readPrep()
}

// enqueuePreparation adds the order's line items to the preparation queue.
// Idempotent, keyed by reference: an order already queued is left alone.
// Caller holds the live lock; the prep lock is taken second.
func (s *Store) enqueuePreparation(order *models.Order) error {
	return s.fs.WithExclusiveLock(s.prepPath, func() error {
		entries, err := s.readPrep()
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.Reference == order.Reference {
				return nil
			}
		}
		for _, li := range order.LineItems {
			entries = append(entries, PrepEntry{
				Reference:   order.Reference,
				ActivityKey: li.ActivityKey,
				FileName:    li.FileName,
				Quantity:    li.Quantity,
			})
		}
		return s.writePrep(entries)
	})
}

// removeFromPreparation drops every queue row of a reference, if present.
// Caller holds the live lock; the prep lock is taken second.
func (s *Store) removeFromPreparation(reference string) error {
	return s.fs.WithExclusiveLock(s.prepPath, func() error {
		entries, err := s.readPrep()
		if err != nil {
			return err
		}
		kept := entries[:0]
		for _, e := range entries {
			if e.Reference != reference {
				kept = append(kept, e)
			}
		}
		if len(kept) == len(entries) {
			return nil
		}
		return s.writePrep(kept)
	})
}

// ExportPreparation returns the queue entries not yet pulled into a printer
// export and marks them (and their orders) exported, so the same item is
// never exported twice. Locks live first, then prep.
func (s *Store) ExportPreparation() ([]PrepEntry, error) {
	var pending []PrepEntry
	err := s.fs.WithExclusiveLock(s.livePath, func() error {
		return s.fs.WithExclusiveLock(s.prepPath, func() error {
			entries, err := s.readPrep()
			if err != nil {
				return err
			}
			refs := make(map[string]bool)
			for i := range entries {
				if entries[i].Exported {
					continue
				}
				pending = append(pending, entries[i])
				entries[i].Exported = true
				refs[entries[i].Reference] = true
			}
			if len(pending) == 0 {
				return nil
			}
			if err := s.writePrep(entries); err != nil {
				return err
			}

			orders, err := s.readTable(s.livePath)
			if err != nil {
				return err
			}
			for i := range orders {
				if refs[orders[i].Reference] {
					orders[i].Exported = true
				}
			}
			return s.writeTable(s.livePath, orders)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("export preparation queue: %w", err)
	}
	return pending, nil
}
