package store

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jepicoco/galerie-sub002/internal/models"
)

// utf8BOM is the 3-byte UTF-8 byte-order-mark some spreadsheet tools need at
// offset 0 to detect the encoding. The file must carry exactly one.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

const (
	timeLayout = "2006-01-02 15:04:05"
	dateLayout = "2006-01-02"
)

// liveColumns is the fixed, versioned column order of the live and archive
// tables. New columns are only ever appended so older files stay readable.
var liveColumns = []string{
	"reference",
	"customer_name",
	"customer_email",
	"customer_phone",
	"activity",
	"item_type",
	"file_name",
	"unit_price",
	"quantity",
	"total_amount",
	"status",
	"payment_mode",
	"payment_date",
	"deposit_desired",
	"deposit_actual",
	"exported",
	"expected_retrieval",
	"actual_retrieval",
	"created_at",
	"magic_token",
}

// prepColumns is the schema of the preparation queue table.
var prepColumns = []string{
	"reference",
	"activity",
	"file_name",
	"quantity",
	"exported",
}

// Codec maps between one Order line item and one delimited row. It owns the
// BOM invariant and the spreadsheet formula-injection defense; it never
// touches the filesystem.
type Codec struct {
	Comma rune
}

func NewCodec() *Codec {
	return &Codec{Comma: ';'}
}

func (c *Codec) LiveHeader() []string {
	return append([]string(nil), liveColumns...)
}

func (c *Codec) PrepHeader() []string {
	return append([]string(nil), prepColumns...)
}

// EnsureSingleBOM strips any BOM found at the very start and prepends exactly
// one. Idempotent: applying it twice yields the same bytes.
func EnsureSingleBOM(b []byte) []byte {
	return append(append([]byte(nil), utf8BOM...), StripBOM(b)...)
}

// StripBOM removes every leading BOM so a file rewritten many times can never
// accumulate BOM bytes.
func StripBOM(b []byte) []byte {
	for bytes.HasPrefix(b, utf8BOM) {
		b = b[len(utf8BOM):]
	}
	return b
}

// sanitizeField neutralizes values a spreadsheet would evaluate as a formula.
// A leading '=', '+', '-' or '@' gets a single-quote prefix, the convention
// spreadsheet tools themselves use for literal text. A value that already
// carries quote prefixes gets one more, so stripping one on decode is always
// lossless.
func sanitizeField(s string) string {
	if needsQuote(s) {
		return "'" + s
	}
	return s
}

// needsQuote reports whether s reads as a formula once any leading quotes are
// stripped.
func needsQuote(s string) bool {
	i := 0
	for i < len(s) && s[i] == '\'' {
		i++
	}
	if i >= len(s) {
		return false
	}
	switch s[i] {
	case '=', '+', '-', '@':
		return true
	}
	return false
}

// restoreField undoes sanitizeField: it strips exactly one quote, and only
// when the remainder is something the sanitizer would have quoted.
func restoreField(s string) string {
	if len(s) >= 2 && s[0] == '\'' && needsQuote(s[1:]) {
		return s[1:]
	}
	return s
}

// EncodeRow renders one line item of one order. Order-level fields are
// repeated on every row of the group; the decoder reads them from the first.
func (c *Codec) EncodeRow(o *models.Order, li models.LineItem) []string {
	return []string{
		sanitizeField(o.Reference),
		sanitizeField(o.Customer.Name),
		sanitizeField(o.Customer.Email),
		sanitizeField(o.Customer.Phone),
		sanitizeField(li.ActivityKey),
		string(li.ItemType),
		sanitizeField(li.FileName),
		formatAmount(li.UnitPrice),
		strconv.Itoa(li.Quantity),
		formatAmount(o.TotalAmount()),
		string(o.Status),
		string(o.Payment.Mode),
		formatTime(o.Payment.Date, dateLayout),
		formatTime(o.Payment.DepositDesired, dateLayout),
		formatTime(o.Payment.DepositActual, dateLayout),
		formatBool(o.Exported),
		formatTime(o.ExpectedRetrieval, dateLayout),
		formatTime(o.ActualRetrieval, timeLayout),
		formatTime(o.CreatedAt, timeLayout),
		o.MagicToken,
	}
}

// EncodeOrders renders every line item of every order, in order.
func (c *Codec) EncodeOrders(orders []models.Order) [][]string {
	rows := make([][]string, 0, len(orders))
	for i := range orders {
		for _, li := range orders[i].LineItems {
			rows = append(rows, c.EncodeRow(&orders[i], li))
		}
	}
	return rows
}

// EncodePrepRow renders one preparation-queue entry.
func (c *Codec) EncodePrepRow(e PrepEntry) []string {
	return []string{
		sanitizeField(e.Reference),
		sanitizeField(e.ActivityKey),
		sanitizeField(e.FileName),
		strconv.Itoa(e.Quantity),
		formatBool(e.Exported),
	}
}

// DecodeOrders groups data rows (header excluded) by reference into logical
// orders. Rows of one order are written consecutively, but a stray split
// group is merged rather than treated as two orders.
func (c *Codec) DecodeOrders(rows [][]string) ([]models.Order, error) {
	var orders []models.Order
	index := make(map[string]int)
	for i, row := range rows {
		o, li, err := c.decodeRow(row)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrCorruptData, i+1, err)
		}
		if at, ok := index[o.Reference]; ok {
			orders[at].LineItems = append(orders[at].LineItems, li)
			continue
		}
		o.LineItems = []models.LineItem{li}
		index[o.Reference] = len(orders)
		orders = append(orders, o)
	}
	return orders, nil
}

// decodeRow splits one row into its order-level fields and its line item.
// Rows shorter than the current schema come from older file versions; the
// missing trailing fields default to empty. Longer rows are corrupt.
func (c *Codec) decodeRow(row []string) (models.Order, models.LineItem, error) {
	var o models.Order
	var li models.LineItem

	if len(row) > len(liveColumns) {
		return o, li, fmt.Errorf("expected at most %d columns, got %d", len(liveColumns), len(row))
	}
	if len(row) < len(liveColumns) {
		padded := make([]string, len(liveColumns))
		copy(padded, row)
		row = padded
	}

	o.Reference = restoreField(row[0])
	if o.Reference == "" {
		return o, li, fmt.Errorf("empty reference")
	}
	o.Customer.Name = restoreField(row[1])
	o.Customer.Email = restoreField(row[2])
	o.Customer.Phone = restoreField(row[3])

	li.ActivityKey = restoreField(row[4])
	li.ItemType = models.ItemType(row[5])
	li.FileName = restoreField(row[6])

	var err error
	if li.UnitPrice, err = parseAmount(row[7]); err != nil {
		return o, li, fmt.Errorf("unit_price: %v", err)
	}
	if li.Quantity, err = parseCount(row[8]); err != nil {
		return o, li, fmt.Errorf("quantity: %v", err)
	}
	// row[9] is the stored total; recomputed on load, checked by reconciliation.

	o.Status = models.Status(row[10])
	if row[10] != "" && !o.Status.Valid() {
		return o, li, fmt.Errorf("unknown status %q", row[10])
	}
	o.Payment.Mode = models.PaymentMode(row[11])
	if row[11] != "" && !o.Payment.Mode.Valid() {
		return o, li, fmt.Errorf("unknown payment mode %q", row[11])
	}
	if o.Payment.Date, err = parseTime(row[12], dateLayout); err != nil {
		return o, li, fmt.Errorf("payment_date: %v", err)
	}
	if o.Payment.DepositDesired, err = parseTime(row[13], dateLayout); err != nil {
		return o, li, fmt.Errorf("deposit_desired: %v", err)
	}
	if o.Payment.DepositActual, err = parseTime(row[14], dateLayout); err != nil {
		return o, li, fmt.Errorf("deposit_actual: %v", err)
	}
	o.Exported = row[15] == "1"
	if o.ExpectedRetrieval, err = parseTime(row[16], dateLayout); err != nil {
		return o, li, fmt.Errorf("expected_retrieval: %v", err)
	}
	if o.ActualRetrieval, err = parseTime(row[17], timeLayout); err != nil {
		return o, li, fmt.Errorf("actual_retrieval: %v", err)
	}
	if o.CreatedAt, err = parseTime(row[18], timeLayout); err != nil {
		return o, li, fmt.Errorf("created_at: %v", err)
	}
	o.MagicToken = row[19]
	return o, li, nil
}

// storedTotal reads the total_amount column of a raw row, used only by the
// reconciliation pass to detect drift against the recomputed value.
func (c *Codec) storedTotal(row []string) (float64, bool) {
	if len(row) <= 9 || row[9] == "" {
		return 0, false
	}
	v, err := parseAmount(row[9])
	if err != nil {
		return 0, false
	}
	return v, true
}

// DecodePrepRows decodes the preparation-queue table.
func (c *Codec) DecodePrepRows(rows [][]string) ([]PrepEntry, error) {
	entries := make([]PrepEntry, 0, len(rows))
	for i, row := range rows {
		if len(row) > len(prepColumns) {
			return nil, fmt.Errorf("%w: row %d: expected at most %d columns, got %d", ErrCorruptData, i+1, len(prepColumns), len(row))
		}
		if len(row) < len(prepColumns) {
			padded := make([]string, len(prepColumns))
			copy(padded, row)
			row = padded
		}
		qty, err := parseCount(row[3])
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: quantity: %v", ErrCorruptData, i+1, err)
		}
		entries = append(entries, PrepEntry{
			Reference:   restoreField(row[0]),
			ActivityKey: restoreField(row[1]),
			FileName:    restoreField(row[2]),
			Quantity:    qty,
			Exported:    row[4] == "1",
		})
	}
	return entries, nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func parseAmount(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	// Older exports used the French decimal comma.
	s = strings.ReplaceAll(s, ",", ".")
	return strconv.ParseFloat(s, 64)
}

func parseCount(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func formatTime(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(layout)
}

func parseTime(s, layout string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(layout, s); err == nil {
		return t, nil
	}
	// Tolerate the other layout: older files stored bare dates in
	// datetime columns and vice versa.
	other := dateLayout
	if layout == dateLayout {
		other = timeLayout
	}
	return time.Parse(other, s)
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
