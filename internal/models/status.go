package models

type Status string

const (
	StatusTemp      Status = "temp"
	StatusValidated Status = "validated"
	StatusPaid      Status = "paid"
	StatusPrepared  Status = "prepared"
	StatusRetrieved Status = "retrieved"
	StatusCancelled Status = "cancelled"
)

// allowedTransitions is the full lifecycle graph. Any edge not listed here is
// rejected by the store.
var allowedTransitions = map[Status][]Status{
	StatusTemp:      {StatusValidated, StatusCancelled},
	StatusValidated: {StatusPaid, StatusCancelled},
	StatusPaid:      {StatusPrepared, StatusRetrieved},
	StatusPrepared:  {StatusRetrieved},
}

func (s Status) Valid() bool {
	switch s {
	case StatusTemp, StatusValidated, StatusPaid, StatusPrepared, StatusRetrieved, StatusCancelled:
		return true
	}
	return false
}

// Terminal statuses never transition again; only terminal orders are archived.
func (s Status) Terminal() bool {
	return s == StatusRetrieved || s == StatusCancelled
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, t := range allowedTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

type PaymentMode string

const (
	PaymentUnpaid   PaymentMode = "unpaid"
	PaymentCard     PaymentMode = "CB"
	PaymentCheque   PaymentMode = "cheque"
	PaymentCash     PaymentMode = "cash"
	PaymentTransfer PaymentMode = "virement"
)

func (m PaymentMode) Valid() bool {
	switch m {
	case PaymentUnpaid, PaymentCard, PaymentCheque, PaymentCash, PaymentTransfer:
		return true
	}
	return false
}
