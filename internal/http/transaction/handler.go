package transaction

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lebohangm/fakaloan/internal/auth"
	"github.com/lebohangm/fakaloan/internal/customer"
	"github.com/lebohangm/fakaloan/internal/transaction"
)

type Handler struct {
	svc       *transaction.Service
	customers *customer.Service
}

func NewHandler(svc *transaction.Service, customers *customer.Service) *Handler {
	return &Handler{svc: svc, customers: customers}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

type createTransactionRequest struct {
	CustomerID uuid.UUID        `json:"customer_id"`
	Type       transaction.Type `json:"type"`
	Amount     decimal.Decimal  `json:"amount"`
	Note       *string          `json:"note,omitempty"`
	DueBy      *time.Time       `json:"due_by,omitempty"`
	RepaidAt   *time.Time       `json:"repaid_at,omitempty"`
}

func isValidationError(err error) bool {
	return errors.Is(err, transaction.ErrUnknownType) ||
		errors.Is(err, transaction.ErrNonPositiveAmount) ||
		errors.Is(err, transaction.ErrDueByOnRepayment) ||
		errors.Is(err, transaction.ErrRepaidAtOnCredit)
}

// ownsCustomer verifies the authenticated owner owns the customer, writing
// the error response itself when they don't. A foreign customer is hidden
// behind a 404 rather than a 403, like the customer endpoints do.
func (h *Handler) ownsCustomer(w http.ResponseWriter, r *http.Request, customerID uuid.UUID) bool {
	ownerID, ok := auth.OwnerID(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return false
	}

	c, err := h.customers.Get(r.Context(), customerID)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			http.Error(w, "customer not found", http.StatusNotFound)
			return false
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return false
	}

	if c.OwnerID != ownerID {
		http.Error(w, "customer not found", http.StatusNotFound)
		return false
	}

	return true
}

// getOwned loads the transaction and verifies the caller owns the customer
// it belongs to. A transaction under a foreign customer is a 404.
func (h *Handler) getOwned(w http.ResponseWriter, r *http.Request) (*transaction.Transaction, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return nil, false
	}

	tx, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, transaction.ErrNotFound) {
			http.Error(w, "transaction not found", http.StatusNotFound)
			return nil, false
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return nil, false
	}

	if !h.ownsCustomer(w, r, tx.CustomerID) {
		return nil, false
	}

	return tx, true
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.CustomerID == uuid.Nil {
		http.Error(w, "customer_id is required", http.StatusBadRequest)
		return
	}

	if !h.ownsCustomer(w, r, req.CustomerID) {
		return
	}

	tx, err := h.svc.Create(r.Context(), transaction.CreateParams{
		CustomerID: req.CustomerID,
		Type:       req.Type,
		Amount:     req.Amount,
		Note:       req.Note,
		DueBy:      req.DueBy,
		RepaidAt:   req.RepaidAt,
	})
	if err != nil {
		if isValidationError(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(toResponse(tx)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	customerID, err := uuid.Parse(r.URL.Query().Get("customer_id"))
	if err != nil {
		http.Error(w, "customer_id query parameter is required", http.StatusBadRequest)
		return
	}

	if !h.ownsCustomer(w, r, customerID) {
		return
	}

	txs, err := h.svc.ListForCustomer(r.Context(), customerID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponseList(txs)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	tx, ok := h.getOwned(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(tx)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type updateTransactionRequest struct {
	CustomerID *uuid.UUID        `json:"customer_id,omitempty"`
	Type       *transaction.Type `json:"type,omitempty"`
	Amount     *decimal.Decimal  `json:"amount,omitempty"`
	Note       *string           `json:"note,omitempty"`
	DueBy      *time.Time        `json:"due_by,omitempty"`
	RepaidAt   *time.Time        `json:"repaid_at,omitempty"`

	// Nil pointer fields mean "leave unchanged", so clearing due_by or
	// repaid_at needs its own flag.
	ClearDueBy    bool `json:"clear_due_by,omitempty"`
	ClearRepaidAt bool `json:"clear_repaid_at,omitempty"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	tx, ok := h.getOwned(w, r)
	if !ok {
		return
	}

	var req updateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Reassignment needs ownership of the destination customer too.
	if req.CustomerID != nil && *req.CustomerID != tx.CustomerID {
		if !h.ownsCustomer(w, r, *req.CustomerID) {
			return
		}
	}

	updated, err := h.svc.Update(r.Context(), tx.ID, transaction.UpdateParams{
		CustomerID:    req.CustomerID,
		Type:          req.Type,
		Amount:        req.Amount,
		Note:          req.Note,
		DueBy:         req.DueBy,
		RepaidAt:      req.RepaidAt,
		ClearDueBy:    req.ClearDueBy,
		ClearRepaidAt: req.ClearRepaidAt,
	})
	if err != nil {
		if errors.Is(err, transaction.ErrNotFound) {
			http.Error(w, "transaction not found", http.StatusNotFound)
			return
		}

		if isValidationError(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(updated)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	tx, ok := h.getOwned(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), tx.ID); err != nil {
		if errors.Is(err, transaction.ErrNotFound) {
			http.Error(w, "transaction not found", http.StatusNotFound)
			return
		}

		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}
