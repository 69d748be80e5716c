package errors

import "errors"

// Kind is the closed set of failure categories a checkout operation can
// surface. Adapters switch over it exhaustively.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindInsufficientStock
	KindTransactionNotFound
	KindProductNotFound
	KindTransactionAlreadyFinished
	KindGateway
	KindPersistence
)

var kindNames = map[Kind]string{
	KindInternal:                   "internal_error",
	KindValidation:                 "validation_error",
	KindInsufficientStock:          "insufficient_stock",
	KindTransactionNotFound:        "transaction_not_found",
	KindProductNotFound:            "product_not_found",
	KindTransactionAlreadyFinished: "transaction_already_finished",
	KindGateway:                    "gateway_error",
	KindPersistence:                "persistence_error",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindInternal]
}

// KindOf classifies err. Order matters: an already-finished transaction
// that also carries a persistence cause is reported as already finished.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrValidationFailed):
		return KindValidation
	case errors.Is(err, ErrTransactionAlreadyFinished):
		return KindTransactionAlreadyFinished
	case errors.Is(err, ErrInsufficientStock):
		return KindInsufficientStock
	case errors.Is(err, ErrTransactionNotFound):
		return KindTransactionNotFound
	case errors.Is(err, ErrProductNotFound):
		return KindProductNotFound
	case errors.Is(err, ErrGateway):
		return KindGateway
	case errors.Is(err, ErrPersistence):
		return KindPersistence
	default:
		return KindInternal
	}
}
