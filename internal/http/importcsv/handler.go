package importcsv

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lebohangm/fakaloan/internal/auth"
	"github.com/lebohangm/fakaloan/internal/customer"
	"github.com/lebohangm/fakaloan/internal/importer"
	"github.com/lebohangm/fakaloan/internal/matching"
	"github.com/lebohangm/fakaloan/internal/transaction"
)

type Handler struct {
	importSvc *importer.Service
	txSvc     *transaction.Service
	matchSvc  *matching.Service
	customers *customer.Service
}

func NewHandler(importSvc *importer.Service, txSvc *transaction.Service, matchSvc *matching.Service, customers *customer.Service) *Handler {
	return &Handler{
		importSvc: importSvc,
		txSvc:     txSvc,
		matchSvc:  matchSvc,
		customers: customers,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.importCSV)
	r.Post("/mappings", h.learnMapping)
}

type importSuccessResponse struct {
	Imported int `json:"imported"`
}

// importCSV ingests a statement CSV for one customer. All rows land in a
// single batch write followed by a single balance recompute.
func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	customerID, err := uuid.Parse(r.FormValue("customer_id"))
	if err != nil {
		http.Error(w, "customer_id field is required", http.StatusBadRequest)
		return
	}

	ownerID, ok := auth.OwnerID(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	// Importing into a foreign customer would rewrite their balance, so a
	// customer the caller does not own is hidden behind a 404.
	c, err := h.customers.Get(r.Context(), customerID)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			http.Error(w, "customer not found", http.StatusNotFound)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	if c.OwnerID != ownerID {
		http.Error(w, "customer not found", http.StatusNotFound)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	rows, err := h.importSvc.Parse(file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	params := make([]transaction.CreateParams, len(rows))

	for i, row := range rows {
		note := row.RawDescription

		if note != "" {
			suggested, err := h.matchSvc.Suggest(r.Context(), row.RawDescription)
			if err == nil && suggested != "" {
				note = suggested
			}
		}

		date := row.Date
		params[i] = transaction.CreateParams{
			Type:      row.Type,
			Amount:    row.Amount,
			CreatedAt: &date,
		}

		if note != "" {
			params[i].Note = &note
		}
	}

	imported, err := h.txSvc.ImportBatch(r.Context(), customerID, params)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(importSuccessResponse{Imported: len(imported)}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type learnMappingRequest struct {
	RawPattern    string `json:"raw_pattern"`
	PreferredNote string `json:"preferred_note"`
}

func (h *Handler) learnMapping(w http.ResponseWriter, r *http.Request) {
	var req learnMappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.matchSvc.Learn(r.Context(), req.RawPattern, req.PreferredNote); err != nil {
		if errors.Is(err, matching.ErrEmptyMapping) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}
