package router

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/BerylCAtieno/bill-extractor-api/internal/handlers"
	"github.com/BerylCAtieno/bill-extractor-api/internal/metrics"
	"github.com/BerylCAtieno/bill-extractor-api/internal/middleware"
	"github.com/BerylCAtieno/bill-extractor-api/internal/services"
	"github.com/BerylCAtieno/bill-extractor-api/internal/utils"
)

func NewRouter(extractionService services.ExtractionService, m *metrics.Metrics, logger *utils.Logger) http.Handler {
	r := mux.NewRouter()

	// Middlewares
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics(m))
	r.Use(middleware.CORS())
	r.Use(middleware.Recovery(logger))

	extractionHandler := handlers.NewExtractionHandler(extractionService, logger)

	r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	// Extraction endpoints
	api.HandleFunc("/extract", extractionHandler.Extract).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/extractions/{id}", extractionHandler.GetExtraction).Methods(http.MethodGet)

	return r
}
