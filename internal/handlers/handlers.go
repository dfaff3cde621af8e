package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"cultural-map/internal/models"
	"cultural-map/internal/services"
)

// PageTitle is the heading of the interactive map page
const PageTitle = "INDIA'S CULTURAL MAP"

// MapHandler serves the interactive map and its layers
type MapHandler struct {
	mapService *services.MapService
	joinReport models.JoinReport
}

// NewMapHandler creates a new MapHandler instance
func NewMapHandler(mapService *services.MapService, joinReport models.JoinReport) *MapHandler {
	return &MapHandler{
		mapService: mapService,
		joinReport: joinReport,
	}
}

// selectedMetric reads ?metric=, defaulting to the first selectable metric
func selectedMetric(r *http.Request) models.Metric {
	if m := r.URL.Query().Get("metric"); m != "" {
		return models.Metric(m)
	}
	return models.Metrics[0]
}

// HandleMapPage renders the hosting page with the choropleth for the selected metric
func (h *MapHandler) HandleMapPage(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	m, err := h.mapService.Compose(selectedMetric(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := services.RenderMapPage(&buf, PageTitle, m); err != nil {
		log.Printf("Error rendering map page: %v", err)
		http.Error(w, "Error rendering map", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())

	log.Printf("Map page for %s rendered in %v", m.Metric, time.Since(startTime))
}

// HandleChoropleth returns the choropleth binding for the selected metric
func (h *MapHandler) HandleChoropleth(w http.ResponseWriter, r *http.Request) {
	choropleth, err := h.mapService.Choropleth(selectedMetric(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, choropleth)
}

// HandleRegions returns the overlay as a GeoJSON feature collection
func (h *MapHandler) HandleRegions(w http.ResponseWriter, r *http.Request) {
	overlay := h.mapService.Overlay()
	w.Header().Set("Content-Type", "application/geo+json")
	if err := json.NewEncoder(w).Encode(overlay.Features); err != nil {
		http.Error(w, "Error encoding response", http.StatusInternalServerError)
	}
}

// HandleJoinReport returns the names that failed to join at startup
func (h *MapHandler) HandleJoinReport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.joinReport)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Error encoding response", http.StatusInternalServerError)
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, services.ErrUnknownMetric) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	log.Printf("Error processing request: %v", err)
	http.Error(w, "Error processing request", http.StatusInternalServerError)
}
