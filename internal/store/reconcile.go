package store

import (
	"fmt"
	"math"

	"github.com/jepicoco/galerie-sub002/internal/models"
)

// Inconsistency is one finding of the reconciliation pass. Findings are
// reported, never auto-fixed: the drift may be the symptom of an operator
// error that silent correction would mask.
type Inconsistency struct {
	Reference string
	Kind      string
	Detail    string
}

const (
	InconsistencyPaymentBeforeStatus = "payment_before_status"
	InconsistencyMissingPayment      = "missing_payment"
	InconsistencyRetrievalStatus     = "retrieval_without_status"
	InconsistencyTotalMismatch       = "total_mismatch"
)

// DetectInconsistencies scans the whole live table and reports rows where
// the payment fields, the retrieval stamp or the stored total disagree with
// the status field. The store has no transactions spanning those fields, so
// a partial failure can leave them drifted; this pass is how an operator
// finds and corrects that by hand.
func (s *Store) DetectInconsistencies() ([]Inconsistency, error) {
	records, err := s.fs.ReadAll(s.livePath)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	rows := records[1:]
	orders, err := s.codec.DecodeOrders(rows)
	if err != nil {
		return nil, err
	}

	var report []Inconsistency
	add := func(ref, kind, format string, args ...any) {
		report = append(report, Inconsistency{
			Reference: ref,
			Kind:      kind,
			Detail:    fmt.Sprintf(format, args...),
		})
	}

	totals := make(map[string]float64, len(orders))
	for i := range orders {
		o := &orders[i]
		totals[o.Reference] = o.TotalAmount()

		hasPayment := (o.Payment.Mode != "" && o.Payment.Mode != models.PaymentUnpaid) || !o.Payment.Date.IsZero()
		switch o.Status {
		case models.StatusTemp, models.StatusValidated:
			if hasPayment {
				add(o.Reference, InconsistencyPaymentBeforeStatus,
					"status %s but payment recorded (mode=%s, date=%s)",
					o.Status, o.Payment.Mode, formatTime(o.Payment.Date, dateLayout))
			}
		case models.StatusPaid, models.StatusPrepared, models.StatusRetrieved:
			if o.Payment.Mode == "" || o.Payment.Mode == models.PaymentUnpaid || o.Payment.Date.IsZero() {
				add(o.Reference, InconsistencyMissingPayment,
					"status %s but payment incomplete (mode=%s, date=%s)",
					o.Status, o.Payment.Mode, formatTime(o.Payment.Date, dateLayout))
			}
		}

		if !o.ActualRetrieval.IsZero() && o.Status != models.StatusRetrieved {
			add(o.Reference, InconsistencyRetrievalStatus,
				"retrieval date %s set but status is %s",
				formatTime(o.ActualRetrieval, timeLayout), o.Status)
		}
	}

	for _, row := range rows {
		stored, ok := s.codec.storedTotal(row)
		if !ok {
			continue
		}
		ref := restoreField(row[0])
		if want, known := totals[ref]; known && math.Abs(stored-want) >= 0.01 {
			add(ref, InconsistencyTotalMismatch,
				"stored total %s differs from recomputed %s",
				formatAmount(stored), formatAmount(want))
			// One finding per order is enough even if every row repeats it.
			delete(totals, ref)
		}
	}

	return report, nil
}
