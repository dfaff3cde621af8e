package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"cultural-map/internal/middleware"
)

// NewRouter wires the map routes behind CORS, panic recovery and access logging
func NewRouter(h *MapHandler, allowedOrigins []string) http.Handler {
	r := mux.NewRouter()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Origin"},
		MaxAge:         86400,
	})

	r.Use(corsHandler.Handler)
	r.Use(middleware.RecoveryMiddleware)
	r.Use(middleware.LoggingMiddleware)

	r.HandleFunc("/", h.HandleMapPage).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/choropleth", h.HandleChoropleth).Methods("GET")
	api.HandleFunc("/regions", h.HandleRegions).Methods("GET")
	api.HandleFunc("/join-report", h.HandleJoinReport).Methods("GET")

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	return r
}
