package store

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jepicoco/galerie-sub002/internal/models"
)

func TestEnsureSingleBOM(t *testing.T) {
	cases := map[string][]byte{
		"no BOM":     []byte("reference;name"),
		"one BOM":    append(append([]byte(nil), utf8BOM...), []byte("reference;name")...),
		"double BOM": append(append(append([]byte(nil), utf8BOM...), utf8BOM...), []byte("reference;name")...),
		"empty":      nil,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			once := EnsureSingleBOM(input)
			assert.True(t, bytes.HasPrefix(once, utf8BOM))
			assert.False(t, bytes.HasPrefix(once[len(utf8BOM):], utf8BOM), "BOM must not repeat")
			assert.Equal(t, once, EnsureSingleBOM(once), "must be idempotent")
		})
	}
}

func TestSanitizeField(t *testing.T) {
	cases := []struct{ in, stored string }{
		{"=SUM(A1:A9)", "'=SUM(A1:A9)"},
		{"+33 6 12 34 56 78", "'+33 6 12 34 56 78"},
		{"-rm -rf", "'-rm -rf"},
		{"@import", "'@import"},
		{"Dupont", "Dupont"},
		{"", ""},
		// Values already starting with quote prefixes gain one more quote and
		// still come back intact.
		{"'=SUM(A1:A9)", "''=SUM(A1:A9)"},
		{"''-x", "'''-x"},
		{"'plain", "'plain"},
		{"'''", "'''"},
	}
	for _, c := range cases {
		assert.Equal(t, c.stored, sanitizeField(c.in))
		assert.Equal(t, c.in, restoreField(sanitizeField(c.in)), "round trip for %q", c.in)
	}
}

func sampleOrder() models.Order {
	return models.Order{
		Reference: "CMD20250110093000-001",
		Customer: models.Customer{
			Name:  "Marie Dupont",
			Email: "marie@example.com",
			Phone: "+33 6 12 34 56 78",
		},
		LineItems: []models.LineItem{
			{ActivityKey: "gala_2025", ItemType: models.ItemTypePhoto, FileName: "IMG_0042.jpg", UnitPrice: 10, Quantity: 1},
			{ActivityKey: "gala_2025", ItemType: models.ItemTypeUSB, FileName: "usb-gala_2025", UnitPrice: 15, Quantity: 1},
		},
		Status: models.StatusValidated,
		Payment: models.PaymentInfo{
			Mode: models.PaymentCard,
			Date: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		},
		CreatedAt:  time.Date(2025, 1, 9, 18, 30, 0, 0, time.UTC),
		MagicToken: "deadbeefdeadbeefdeadbeefdeadbeef",
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	codec := NewCodec()
	o := sampleOrder()

	rows := codec.EncodeOrders([]models.Order{o})
	require.Len(t, rows, 2, "one row per line item")

	decoded, err := codec.DecodeOrders(rows)
	require.NoError(t, err)
	require.Len(t, decoded, 1)

	got := decoded[0]
	assert.Equal(t, o.Reference, got.Reference)
	assert.Equal(t, o.Customer, got.Customer)
	assert.Equal(t, o.LineItems, got.LineItems)
	assert.Equal(t, o.Status, got.Status)
	assert.Equal(t, o.Payment.Mode, got.Payment.Mode)
	assert.True(t, o.Payment.Date.Equal(got.Payment.Date))
	assert.True(t, o.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, o.MagicToken, got.MagicToken)
	assert.InDelta(t, 25, got.TotalAmount(), 0.001)
}

func TestDecodeToleratesShortRows(t *testing.T) {
	codec := NewCodec()
	// A legacy row from before the magic_token and retrieval columns.
	row := []string{
		"CMD20240601120000-001", "Jean", "jean@example.com", "", "kermesse",
		"PHOTO", "IMG_1.jpg", "2.00", "3", "6.00", "temp", "unpaid",
	}
	orders, err := codec.DecodeOrders([][]string{row})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "CMD20240601120000-001", orders[0].Reference)
	assert.Equal(t, 3, orders[0].LineItems[0].Quantity)
	assert.Empty(t, orders[0].MagicToken)
	assert.True(t, orders[0].CreatedAt.IsZero())
}

func TestDecodeRejectsCorruptRows(t *testing.T) {
	codec := NewCodec()

	t.Run("too many columns", func(t *testing.T) {
		row := make([]string, len(liveColumns)+1)
		row[0] = "CMD1"
		_, err := codec.DecodeOrders([][]string{row})
		assert.ErrorIs(t, err, ErrCorruptData)
	})

	t.Run("unknown status", func(t *testing.T) {
		o := sampleOrder()
		row := codec.EncodeRow(&o, o.LineItems[0])
		row[10] = "shipped"
		_, err := codec.DecodeOrders([][]string{row})
		assert.ErrorIs(t, err, ErrCorruptData)
	})

	t.Run("bad amount", func(t *testing.T) {
		o := sampleOrder()
		row := codec.EncodeRow(&o, o.LineItems[0])
		row[7] = "dix"
		_, err := codec.DecodeOrders([][]string{row})
		assert.ErrorIs(t, err, ErrCorruptData)
	})

	t.Run("empty reference", func(t *testing.T) {
		o := sampleOrder()
		row := codec.EncodeRow(&o, o.LineItems[0])
		row[0] = ""
		_, err := codec.DecodeOrders([][]string{row})
		assert.ErrorIs(t, err, ErrCorruptData)
	})
}

func TestDecodeParsesFrenchDecimals(t *testing.T) {
	codec := NewCodec()
	o := sampleOrder()
	row := codec.EncodeRow(&o, o.LineItems[0])
	row[7] = "2,50"
	orders, err := codec.DecodeOrders([][]string{row})
	require.NoError(t, err)
	assert.InDelta(t, 2.5, orders[0].LineItems[0].UnitPrice, 0.001)
}

func TestDecodeGroupsRowsByReference(t *testing.T) {
	codec := NewCodec()
	a := sampleOrder()
	b := sampleOrder()
	b.Reference = "CMD20250110093000-002"
	b.LineItems = b.LineItems[:1]

	rows := codec.EncodeOrders([]models.Order{a, b})
	orders, err := codec.DecodeOrders(rows)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Len(t, orders[0].LineItems, 2)
	assert.Len(t, orders[1].LineItems, 1)
	assert.Equal(t, a.Reference, orders[0].Reference)
	assert.Equal(t, b.Reference, orders[1].Reference)
}
