package models

import (
	"time"
)

type ItemType string

const (
	ItemTypePhoto ItemType = "PHOTO"
	ItemTypeUSB   ItemType = "USB"
)

// LineItem is one purchased unit within an order: a photo print or a USB key.
type LineItem struct {
	ActivityKey string   `json:"activity_key"`
	ItemType    ItemType `json:"item_type"`
	FileName    string   `json:"file_name"`
	UnitPrice   float64  `json:"unit_price"`
	Quantity    int      `json:"quantity"`
}

func (li LineItem) Amount() float64 {
	return li.UnitPrice * float64(li.Quantity)
}

type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type PaymentInfo struct {
	Mode           PaymentMode `json:"mode"`
	Date           time.Time   `json:"date"`
	DepositDesired time.Time   `json:"deposit_desired"`
	DepositActual  time.Time   `json:"deposit_actual"`
}

// Order is one customer transaction. It spans one or more line items; in the
// backing CSV file each line item is its own row, all rows sharing Reference.
type Order struct {
	Reference         string      `json:"reference"` // Public "CMD2025..." ID
	Customer          Customer    `json:"customer"`
	LineItems         []LineItem  `json:"line_items"`
	Status            Status      `json:"status"`
	Payment           PaymentInfo `json:"payment"`
	Exported          bool        `json:"exported"`
	ExpectedRetrieval time.Time   `json:"expected_retrieval"`
	ActualRetrieval   time.Time   `json:"actual_retrieval"`
	CreatedAt         time.Time   `json:"created_at"`
	MagicToken        string      `json:"magic_token"`
}

// TotalAmount is always recomputed from the line items, never trusted from
// a stored column.
func (o *Order) TotalAmount() float64 {
	var total float64
	for _, li := range o.LineItems {
		total += li.Amount()
	}
	return total
}

func (o *Order) PhotoCount() int {
	return o.countByType(ItemTypePhoto)
}

func (o *Order) USBCount() int {
	return o.countByType(ItemTypeUSB)
}

func (o *Order) countByType(t ItemType) int {
	n := 0
	for _, li := range o.LineItems {
		if li.ItemType == t {
			n += li.Quantity
		}
	}
	return n
}

type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Password string `json:"-"` // Store hashed password
}
