package store

import (
	"fmt"

	"github.com/jepicoco/galerie-sub002/internal/models"
)

// Filter names a derived view of the live table.
type Filter string

const (
	FilterAll        Filter = "all"
	FilterUnpaid     Filter = "unpaid"
	FilterPaid       Filter = "paid"
	FilterToRetrieve Filter = "to_retrieve"
	FilterRetrieved  Filter = "retrieved"
	FilterTemp       Filter = "temp"
	FilterValidated  Filter = "validated"
)

// ParseFilter maps user input to a filter, defaulting to all.
func ParseFilter(s string) (Filter, error) {
	if s == "" {
		return FilterAll, nil
	}
	f := Filter(s)
	switch f {
	case FilterAll, FilterUnpaid, FilterPaid, FilterToRetrieve, FilterRetrieved, FilterTemp, FilterValidated:
		return f, nil
	}
	return "", fmt.Errorf("unknown filter %q", s)
}

func (f Filter) match(o *models.Order) bool {
	switch f {
	case FilterAll:
		return true
	case FilterUnpaid:
		return o.Status == models.StatusTemp || o.Status == models.StatusValidated
	case FilterPaid:
		return o.Status == models.StatusPaid
	case FilterToRetrieve:
		return o.Status == models.StatusPaid && o.ActualRetrieval.IsZero()
	case FilterRetrieved:
		return o.Status == models.StatusRetrieved
	case FilterTemp:
		return o.Status == models.StatusTemp
	case FilterValidated:
		return o.Status == models.StatusValidated
	}
	return false
}

func filterOrders(orders []models.Order, f Filter) ([]models.Order, error) {
	if _, err := ParseFilter(string(f)); err != nil {
		return nil, err
	}
	if f == FilterAll || f == "" {
		return orders, nil
	}
	var out []models.Order
	for _, o := range orders {
		if f.match(&o) {
			out = append(out, o)
		}
	}
	return out, nil
}
