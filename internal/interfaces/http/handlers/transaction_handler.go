package handlers

import (
	"context"
	"net/http"

	"github.com/cassiomorais/checkout/internal/application/checkout"
	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/domain/payment"
	"github.com/cassiomorais/checkout/internal/domain/status"
	"github.com/cassiomorais/checkout/internal/domain/transaction"
	"github.com/cassiomorais/checkout/internal/infrastructure/observability"
	"github.com/cassiomorais/checkout/internal/interfaces/http/dto"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Checkout is the orchestrator as seen by the HTTP layer.
type Checkout interface {
	StartTransaction(ctx context.Context, req checkout.StartTransactionRequest) (*transaction.OrderTransaction, error)
	FinishTransactionWithCard(ctx context.Context, req checkout.FinishTransactionRequest) (*transaction.OrderTransaction, error)
}

// FinishLocker takes a short advisory lock per transaction. It only turns
// obviously concurrent finishes into an early 409; the store decides the
// winner either way.
type FinishLocker interface {
	TryLock(ctx context.Context, transactionID uuid.UUID) (release func(context.Context) error, ok bool, err error)
}

type TransactionHandler struct {
	checkout Checkout
	getUC    *checkout.GetTransactionUseCase
	listUC   *checkout.ListTransactionsUseCase
	termsUC  *checkout.AcceptanceTermsUseCase
	locker   FinishLocker
	metrics  *observability.Metrics
}

func NewTransactionHandler(
	co Checkout,
	getUC *checkout.GetTransactionUseCase,
	listUC *checkout.ListTransactionsUseCase,
	termsUC *checkout.AcceptanceTermsUseCase,
	locker FinishLocker,
	metrics *observability.Metrics,
) *TransactionHandler {
	return &TransactionHandler{
		checkout: co,
		getUC:    getUC,
		listUC:   listUC,
		termsUC:  termsUC,
		locker:   locker,
		metrics:  metrics,
	}
}

// Start handles POST /api/v1/transactions
func (h *TransactionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req dto.StartTransactionRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		writeError(w, domainErrors.NewValidationError("product_id", "must be a UUID"))
		return
	}

	t, err := h.checkout.StartTransaction(r.Context(), checkout.StartTransactionRequest{
		ProductID: productID,
		Quantity:  req.Quantity,
		Customer: checkout.CustomerInput{
			Name:     req.Customer.Name,
			LastName: req.Customer.LastName,
			DNI:      req.Customer.DNI,
			Phone:    req.Customer.Phone,
			Email:    req.Customer.Email,
		},
		Delivery: checkout.DeliveryInput{
			Address:       req.Delivery.Address,
			Country:       req.Delivery.Country,
			City:          req.Delivery.City,
			Region:        req.Delivery.Region,
			PostalCode:    req.Delivery.PostalCode,
			RecipientName: req.Delivery.RecipientName,
		},
	})
	h.record("start", t, err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.FromTransaction(t))
}

// Finish handles POST /api/v1/transactions/{id}/finish
func (h *TransactionHandler) Finish(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, domainErrors.NewValidationError("id", "must be a UUID"))
		return
	}

	var req dto.FinishTransactionRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}
	card, err := payment.NewCard(req.Card.Number, req.Card.CVC, req.Card.ExpMonth, req.Card.ExpYear, req.Card.HolderName)
	if err != nil {
		writeError(w, err)
		return
	}

	if h.locker != nil {
		release, ok, err := h.locker.TryLock(r.Context(), id)
		switch {
		case err != nil:
			log.Warn().Err(err).Str("transaction_id", id.String()).Msg("finish lock unavailable, continuing without it")
		case !ok:
			writeJSON(w, http.StatusConflict, dto.ErrorResponse{
				Error: "transaction is being finished by another request",
				Code:  "finish_in_progress",
			})
			return
		default:
			defer func() {
				if err := release(context.WithoutCancel(r.Context())); err != nil {
					log.Warn().Err(err).Str("transaction_id", id.String()).Msg("failed to release finish lock")
				}
			}()
		}
	}

	t, err := h.checkout.FinishTransactionWithCard(r.Context(), checkout.FinishTransactionRequest{
		TransactionID:   id,
		Card:            card,
		Installments:    req.Installments,
		AcceptanceToken: req.AcceptanceToken,
	})
	h.record("finish", t, err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromTransaction(t))
}

// Get handles GET /api/v1/transactions/{id}
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, domainErrors.NewValidationError("id", "must be a UUID"))
		return
	}
	t, err := h.getUC.Execute(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromTransaction(t))
}

// List handles GET /api/v1/transactions
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pageParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	filter := transaction.ListFilter{
		CustomerEmail: r.URL.Query().Get("email"),
		Limit:         limit,
		Offset:        offset,
	}
	if s := r.URL.Query().Get("status"); s != "" {
		name := status.Name(s)
		if !name.Valid() {
			writeError(w, domainErrors.NewValidationError("status", "unknown status "+s))
			return
		}
		filter.Status = &name
	}

	filter = filter.WithDefaults()

	list, err := h.listUC.Execute(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ListResponse[*dto.TransactionResponse]{
		Items:  dto.FromTransactions(list),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// AcceptanceTerms handles GET /api/v1/acceptance-terms
func (h *TransactionHandler) AcceptanceTerms(w http.ResponseWriter, r *http.Request) {
	terms, err := h.termsUC.Execute(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromAcceptances(terms))
}

func (h *TransactionHandler) record(op string, t *transaction.OrderTransaction, err error) {
	if h.metrics == nil {
		return
	}
	outcome := domainErrors.KindOf(err).String()
	if err == nil && t != nil {
		outcome = string(t.Status.Name)
	}
	h.metrics.TransactionsTotal.WithLabelValues(op, outcome).Inc()
}
