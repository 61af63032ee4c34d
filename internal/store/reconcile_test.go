package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jepicoco/galerie-sub002/internal/models"
)

func findingKinds(report []Inconsistency, ref string) []string {
	var kinds []string
	for _, f := range report {
		if f.Reference == ref {
			kinds = append(kinds, f.Kind)
		}
	}
	return kinds
}

func TestDetectInconsistenciesCleanTable(t *testing.T) {
	s := newTestStore(t)
	seedOrder(t, s, fixture("CMD-OK-1", models.StatusTemp))
	seedOrder(t, s, fixture("CMD-OK-2", models.StatusPaid))
	seedOrder(t, s, fixture("CMD-OK-3", models.StatusRetrieved))

	report, err := s.DetectInconsistencies()
	require.NoError(t, err)
	assert.Empty(t, report)
}

func TestDetectInconsistencies(t *testing.T) {
	s := newTestStore(t)

	// Payment recorded while the order is still unvalidated.
	early := fixture("CMD-EARLY", models.StatusTemp)
	early.Payment = models.PaymentInfo{Mode: models.PaymentCash, Date: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)}
	seedOrder(t, s, early)

	// Status says paid but the payment fields are empty.
	unpaid := fixture("CMD-NOPAY", models.StatusPaid)
	unpaid.Payment = models.PaymentInfo{Mode: models.PaymentUnpaid}
	seedOrder(t, s, unpaid)

	// Retrieval stamp without the retrieved status.
	stamped := fixture("CMD-STAMP", models.StatusPaid)
	stamped.ActualRetrieval = time.Date(2025, 1, 7, 14, 0, 0, 0, time.UTC)
	seedOrder(t, s, stamped)

	report, err := s.DetectInconsistencies()
	require.NoError(t, err)

	assert.Equal(t, []string{InconsistencyPaymentBeforeStatus}, findingKinds(report, "CMD-EARLY"))
	assert.Equal(t, []string{InconsistencyMissingPayment}, findingKinds(report, "CMD-NOPAY"))
	assert.Equal(t, []string{InconsistencyRetrievalStatus}, findingKinds(report, "CMD-STAMP"))
	assert.Len(t, report, 3)
}

func TestDetectInconsistenciesTotalMismatch(t *testing.T) {
	s := newTestStore(t)
	o := sampleOrder()
	o.Status = models.StatusPaid
	seedOrder(t, s, o)

	// Corrupt the stored total on every row of the order; the recomputed
	// amount from unit price and quantity no longer matches.
	records, err := s.fs.ReadAll(s.livePath)
	require.NoError(t, err)
	for i := 1; i < len(records); i++ {
		records[i][9] = "99.00"
	}
	require.NoError(t, s.fs.WriteAll(s.livePath, records, true))

	report, err := s.DetectInconsistencies()
	require.NoError(t, err)

	kinds := findingKinds(report, o.Reference)
	assert.Equal(t, []string{InconsistencyTotalMismatch}, kinds, "one finding per order, not per row")
}
