package store

import (
	"time"

	"github.com/jepicoco/galerie-sub002/internal/models"
)

// Statistics is a pure aggregation over an already-filtered set of orders.
type Statistics struct {
	Count        int
	TotalAmount  float64
	TotalPhotos  int
	TotalUSBKeys int
	ByStatus     map[models.Status]int
}

func ComputeStatistics(orders []models.Order) Statistics {
	stats := Statistics{
		ByStatus: make(map[models.Status]int),
	}
	for i := range orders {
		o := &orders[i]
		stats.Count++
		stats.TotalAmount += o.TotalAmount()
		stats.TotalPhotos += o.PhotoCount()
		stats.TotalUSBKeys += o.USBCount()
		stats.ByStatus[o.Status]++
	}
	return stats
}

// CountRetrievedBetween counts orders handed over in [start, end). It always
// scans the full live table, so the figure does not depend on whichever
// filter a caller happens to have loaded.
//
// Stored retrieval stamps are wall-clock text with no zone, so the boundaries
// are reprojected to the same frame before comparing. A retrieval late in a
// local day then counts on that day whatever the server's UTC offset is.
func (s *Store) CountRetrievedBetween(start, end time.Time) (int, error) {
	orders, err := s.readTable(s.livePath)
	if err != nil {
		return 0, err
	}
	start, end = wallClock(start), wallClock(end)
	n := 0
	for i := range orders {
		t := orders[i].ActualRetrieval
		if t.IsZero() {
			continue
		}
		t = wallClock(t)
		if !t.Before(start) && t.Before(end) {
			n++
		}
	}
	return n, nil
}

// wallClock reprojects an instant to its wall-clock reading, the frame the
// table stores timestamps in.
func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

// CountRetrievedOn counts orders handed over on one calendar day.
func (s *Store) CountRetrievedOn(day time.Time) (int, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return s.CountRetrievedBetween(start, start.AddDate(0, 0, 1))
}
