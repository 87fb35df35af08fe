package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/BerylCAtieno/bill-extractor-api/internal/aggregator"
	"github.com/BerylCAtieno/bill-extractor-api/internal/models"
	"github.com/BerylCAtieno/bill-extractor-api/internal/services"
	"github.com/BerylCAtieno/bill-extractor-api/internal/utils"
)

const (
	MaxBodySize = 1 << 20 // 1MB

	ExtractionIDHeader = "X-Extraction-ID"
)

type ExtractionHandler struct {
	service services.ExtractionService
	logger  *utils.Logger
}

func NewExtractionHandler(service services.ExtractionService, logger *utils.Logger) *ExtractionHandler {
	return &ExtractionHandler{
		service: service,
		logger:  logger,
	}
}

func (h *ExtractionHandler) Extract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)

	var req models.ExtractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.respondError(w, utils.NewBadRequestError("request body exceeds 1MB limit"))
			return
		}
		h.respondError(w, utils.NewBadRequestError("request body must be a JSON object with a document URL"))
		return
	}

	id, resp, err := h.service.Extract(r.Context(), &req)
	if id != "" {
		w.Header().Set(ExtractionIDHeader, id)
	}
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

func (h *ExtractionHandler) GetExtraction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	if id == "" {
		h.respondError(w, utils.NewBadRequestError("extraction ID is required"))
		return
	}

	rec, err := h.service.GetExtraction(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, rec)
}

// respondJSON encodes data before writing the status line, so an encoding
// failure still reaches the client as a failure envelope.
func (h *ExtractionHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("Failed to encode JSON response", "error", err)
		status = http.StatusInternalServerError
		body, _ = json.Marshal(aggregator.Failure(utils.NewInternalError("failed to encode response")))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}

// respondError writes the failure envelope with the status of err's kind.
func (h *ExtractionHandler) respondError(w http.ResponseWriter, err error) {
	appErr := utils.AsAppError(err)

	if appErr.StatusCode >= http.StatusInternalServerError {
		h.logger.Error("Request error", "status", appErr.StatusCode, "kind", appErr.Kind, "error", err)
	} else {
		h.logger.Warn("Request error", "status", appErr.StatusCode, "kind", appErr.Kind, "error", appErr.Message)
	}

	h.respondJSON(w, appErr.StatusCode, aggregator.Failure(appErr))
}
