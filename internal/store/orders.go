package store

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jepicoco/galerie-sub002/internal/models"
)

// Store is the order repository: the in-memory materialization of the CSV
// tables plus every mutation path. All cross-request coordination goes
// through the backing files; the store keeps no state between calls apart
// from the reference counter.
//
// Every mutation is a locked read-modify-write of the whole file. Rows are
// variable-length text and an order's line-item count is fixed at creation,
// so rewriting the file is both simpler and sufficient at event volumes.
type Store struct {
	fs    *FileStore
	codec *Codec

	livePath    string
	archivePath string
	prepPath    string

	nowFunc func() time.Time
	refSeq  atomic.Uint32
}

type Config struct {
	LivePath    string
	ArchivePath string
	PrepPath    string
	LockTimeout time.Duration
}

func New(cfg Config) *Store {
	codec := NewCodec()
	timeout := cfg.LockTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Store{
		fs:          NewFileStore(codec, timeout),
		codec:       codec,
		livePath:    cfg.LivePath,
		archivePath: cfg.ArchivePath,
		prepPath:    cfg.PrepPath,
		nowFunc:     time.Now,
	}
}

// CreateRequiredFiles creates any missing backing file with header and BOM.
// Idempotent; run at startup and by the init-files CLI command.
func (s *Store) CreateRequiredFiles() error {
	return s.fs.CreateRequiredFiles(map[string][]string{
		s.livePath:    s.codec.LiveHeader(),
		s.archivePath: s.codec.LiveHeader(),
		s.prepPath:    s.codec.PrepHeader(),
	})
}

// readTable reads and decodes one orders table (live or archive).
func (s *Store) readTable(path string) ([]models.Order, error) {
	records, err := s.fs.ReadAll(path)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return s.codec.DecodeOrders(records[1:])
}

// writeTable re-encodes every order and atomically replaces the table.
func (s *Store) writeTable(path string, orders []models.Order) error {
	records := append([][]string{s.codec.LiveHeader()}, s.codec.EncodeOrders(orders)...)
	return s.fs.WriteAll(path, records, true)
}

// Load reads the live table and returns the orders passing the named filter.
// Reads run outside the lock: a concurrent writer can make the snapshot
// slightly stale, which is fine because every request re-reads.
func (s *Store) Load(filter Filter) ([]models.Order, error) {
	orders, err := s.readTable(s.livePath)
	if err != nil {
		return nil, err
	}
	return filterOrders(orders, filter)
}

// Get returns one order by reference.
func (s *Store) Get(reference string) (*models.Order, error) {
	orders, err := s.readTable(s.livePath)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if orders[i].Reference == reference {
			return &orders[i], nil
		}
	}
	return nil, fmt.Errorf("%w: reference %s", ErrNotFound, reference)
}

// GetByToken returns the order carrying the given magic-link token.
func (s *Store) GetByToken(token string) (*models.Order, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrNotFound)
	}
	orders, err := s.readTable(s.livePath)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if orders[i].MagicToken == token {
			return &orders[i], nil
		}
	}
	return nil, fmt.Errorf("%w: unknown token", ErrNotFound)
}

// GetByEmail returns every live order for a customer email, case-insensitive.
func (s *Store) GetByEmail(email string) ([]models.Order, error) {
	orders, err := s.readTable(s.livePath)
	if err != nil {
		return nil, err
	}
	var matched []models.Order
	for _, o := range orders {
		if strings.EqualFold(o.Customer.Email, email) {
			matched = append(matched, o)
		}
	}
	return matched, nil
}

// Create persists a new order in status temp. Reference, creation time and
// magic token are assigned here; line items are frozen from this point on.
func (s *Store) Create(order *models.Order) error {
	if len(order.LineItems) == 0 {
		return fmt.Errorf("order has no line items")
	}
	for _, li := range order.LineItems {
		if li.Quantity <= 0 {
			return fmt.Errorf("line item %q: quantity must be positive", li.FileName)
		}
	}

	order.Status = models.StatusTemp
	order.CreatedAt = s.nowFunc()
	if order.Payment.Mode == "" {
		order.Payment.Mode = models.PaymentUnpaid
	}
	if order.MagicToken == "" {
		order.MagicToken = generateToken()
	}

	return s.fs.WithExclusiveLock(s.livePath, func() error {
		existing, err := s.readTable(s.livePath)
		if err != nil {
			return err
		}
		taken := make(map[string]bool, len(existing))
		for _, o := range existing {
			taken[o.Reference] = true
		}
		if order.Reference == "" || taken[order.Reference] {
			order.Reference = s.newReference(taken)
		}

		// A brand-new order only grows the file, so append rather than
		// rewriting the whole table.
		for _, li := range order.LineItems {
			if err := s.fs.AppendRow(s.livePath, s.codec.EncodeRow(order, li)); err != nil {
				return err
			}
		}
		return nil
	})
}

// newReference builds a timestamp-derived reference, disambiguated by a
// per-process counter. Caller holds the live lock and passes the refs
// already present. When a whole second's counter space is taken the stamp
// advances, so the loop terminates even against a frozen clock.
func (s *Store) newReference(taken map[string]bool) string {
	base := s.nowFunc()
	stamp := base.Format("20060102150405")
	for attempt := 1; ; attempt++ {
		seq := s.refSeq.Add(1) % 1000
		ref := fmt.Sprintf("CMD%s-%03d", stamp, seq)
		if !taken[ref] {
			return ref
		}
		if attempt%1000 == 0 {
			stamp = base.Add(time.Duration(attempt/1000) * time.Second).Format("20060102150405")
		}
	}
}

// UpdateOrder runs the whole locked read-modify-write cycle for one order:
// load, locate, mutate, re-validate the status transition, apply its side
// effects, rewrite. The preparation-queue side effects run inside the same
// lock so a half-applied state is never observable.
func (s *Store) UpdateOrder(reference string, mutate func(*models.Order) error) (*models.Order, error) {
	var updated *models.Order
	err := s.fs.WithExclusiveLock(s.livePath, func() error {
		orders, err := s.readTable(s.livePath)
		if err != nil {
			return err
		}
		at := -1
		for i := range orders {
			if orders[i].Reference == reference {
				at = i
				break
			}
		}
		if at < 0 {
			return fmt.Errorf("%w: reference %s", ErrNotFound, reference)
		}

		order := cloneOrder(orders[at])
		prev := order.Status
		if err := mutate(&order); err != nil {
			return err
		}
		if order.Reference != reference {
			return fmt.Errorf("reference %s is immutable", reference)
		}
		if !sameLineItems(orders[at].LineItems, order.LineItems) {
			return fmt.Errorf("line items of %s are immutable after creation", reference)
		}

		if order.Status != prev {
			if err := s.applyTransition(&order, prev); err != nil {
				return err
			}
		}

		orders[at] = order
		if err := s.writeTable(s.livePath, orders); err != nil {
			return err
		}
		updated = &order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// applyTransition validates the edge prev -> order.Status and runs its side
// effects. Caller holds the live lock; preparation-queue work takes the prep
// lock second, which is the fixed acquisition order everywhere.
func (s *Store) applyTransition(order *models.Order, prev models.Status) error {
	if !order.Status.Valid() || !prev.CanTransitionTo(order.Status) {
		return fmt.Errorf("%w: %s: %s -> %s", ErrInvalidTransition, order.Reference, prev, order.Status)
	}

	switch order.Status {
	case models.StatusPaid:
		if order.Payment.Mode == models.PaymentUnpaid || order.Payment.Mode == "" || order.Payment.Date.IsZero() {
			return fmt.Errorf("%w: %s: mode=%q date=%q", ErrInconsistentPayment,
				order.Reference, order.Payment.Mode, formatTime(order.Payment.Date, dateLayout))
		}
	case models.StatusValidated:
		if err := s.enqueuePreparation(order); err != nil {
			return err
		}
	case models.StatusRetrieved:
		if order.ActualRetrieval.IsZero() {
			order.ActualRetrieval = s.nowFunc()
		}
		if err := s.removeFromPreparation(order.Reference); err != nil {
			return err
		}
	}
	return nil
}

// AdvanceStatus moves an order along the lifecycle graph.
func (s *Store) AdvanceStatus(reference string, next models.Status) (*models.Order, error) {
	return s.UpdateOrder(reference, func(o *models.Order) error {
		o.Status = next
		return nil
	})
}

// RecordPayment attaches payment details to an order without changing its
// status; the operator advances to paid as a separate step.
func (s *Store) RecordPayment(reference string, payment models.PaymentInfo) (*models.Order, error) {
	if !payment.Mode.Valid() || payment.Mode == models.PaymentUnpaid {
		return nil, fmt.Errorf("%w: %s: payment mode %q", ErrInconsistentPayment, reference, payment.Mode)
	}
	if payment.Date.IsZero() {
		return nil, fmt.Errorf("%w: %s: payment date is required", ErrInconsistentPayment, reference)
	}
	return s.UpdateOrder(reference, func(o *models.Order) error {
		o.Payment = payment
		return nil
	})
}

// MarkRetrieved hands the order over: transitions to retrieved, stamps the
// retrieval time and clears the preparation queue entry.
func (s *Store) MarkRetrieved(reference string) (*models.Order, error) {
	return s.AdvanceStatus(reference, models.StatusRetrieved)
}

// CorrectCustomer is the explicit correction path for contact details.
func (s *Store) CorrectCustomer(reference string, customer models.Customer) (*models.Order, error) {
	return s.UpdateOrder(reference, func(o *models.Order) error {
		o.Customer = customer
		return nil
	})
}

// RegenerateToken issues a fresh magic-link token for an order.
func (s *Store) RegenerateToken(reference string) (*models.Order, error) {
	return s.UpdateOrder(reference, func(o *models.Order) error {
		o.MagicToken = generateToken()
		return nil
	})
}

func cloneOrder(o models.Order) models.Order {
	o.LineItems = append([]models.LineItem(nil), o.LineItems...)
	return o
}

func sameLineItems(a, b []models.LineItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func generateToken() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "fallback-token-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return hex.EncodeToString(b)
}
