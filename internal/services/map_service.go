package services

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"math"

	"github.com/aclements/go-moremath/scale"
	"github.com/aclements/go-moremath/stats"
	"github.com/patrickmn/go-cache"
	"github.com/twpayne/go-geom/encoding/geojson"
	"golang.org/x/exp/slices"

	"cultural-map/internal/models"
	"cultural-map/internal/slug"
)

// CultureUnavailable is the popup text for regions without a matching row
const CultureUnavailable = "Cultural information not available"

// YlOrBr is the six-class ColorBrewer palette used for the choropleth
var YlOrBr = []string{"#ffffd4", "#fee391", "#fec44f", "#fe9929", "#d95f0e", "#993404"}

const (
	noDataColor = "#000000"
	fillOpacity = 0.7
	lineOpacity = 0.2

	overlayCacheKey = "overlay"
)

// IndiaViewport centers on India and keeps the map inside its bounding box
var IndiaViewport = models.Viewport{
	Center:    models.LatLng{Lat: 20, Lng: 77},
	Zoom:      4,
	Bounds:    [2]models.LatLng{{Lat: 6, Lng: 68}, {Lat: 36, Lng: 98}},
	MaxBounds: [2]models.LatLng{{Lat: 6, Lng: 68}, {Lat: 36, Lng: 98}},
}

var (
	overlayStyle   = models.Style{FillColor: "#ffffff", Color: "#000000", FillOpacity: 0.1, Weight: 0.5}
	highlightStyle = models.Style{FillColor: "#000000", Color: "#000000", FillOpacity: 0.50, Weight: 0.5}
)

var popupTemplate = template.Must(template.New("popup").Parse(
	`<div class="state-popup" data-href="{{.URL}}" style="cursor: pointer;">` +
		`<h4>{{.Region}}</h4>` +
		`<p><b>Culture:</b> {{.Culture}}</p>` +
		`<p><a href="{{.URL}}">Click to view more details</a></p>` +
		`</div>`))

// MapService composes the interactive map from the census table and the
// region polygons. Layers are cached: the overlay once, the choropleth once
// per metric.
type MapService struct {
	table        *models.CensusTable
	regions      []*models.Region
	nameProperty string
	stateBaseURL string
	viewport     models.Viewport
	cache        *cache.Cache
}

// NewMapService creates a new MapService instance
func NewMapService(table *models.CensusTable, regions []*models.Region, nameProperty, stateBaseURL string) *MapService {
	return &MapService{
		table:        table,
		regions:      regions,
		nameProperty: nameProperty,
		stateBaseURL: stateBaseURL,
		viewport:     IndiaViewport,
		cache:        cache.New(cache.NoExpiration, 0),
	}
}

// ComposeMap loads the regions at regionsPath and composes the map for metric.
func ComposeMap(table *models.CensusTable, regionsPath, nameProperty, stateBaseURL string, metric models.Metric) (*models.Map, error) {
	regions, err := LoadRegions(regionsPath, nameProperty)
	if err != nil {
		return nil, err
	}
	return NewMapService(table, regions, nameProperty, stateBaseURL).Compose(metric)
}

// Regions returns the polygons the service was built with
func (s *MapService) Regions() []*models.Region {
	return s.regions
}

// ValidateMetric returns ErrUnknownMetric unless metric is selectable
func ValidateMetric(metric models.Metric) error {
	if !slices.Contains(models.Metrics, metric) {
		return fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
	}
	return nil
}

// Compose builds the renderable map for metric
func (s *MapService) Compose(metric models.Metric) (*models.Map, error) {
	if err := ValidateMetric(metric); err != nil {
		return nil, err
	}

	choropleth, err := s.Choropleth(metric)
	if err != nil {
		return nil, err
	}

	return &models.Map{
		Viewport:   s.viewport,
		Metric:     metric,
		Metrics:    models.Metrics,
		Choropleth: choropleth,
		Overlay:    s.Overlay(),
	}, nil
}

// Choropleth binds metric onto every region by name
func (s *MapService) Choropleth(metric models.Metric) (*models.Choropleth, error) {
	if err := ValidateMetric(metric); err != nil {
		return nil, err
	}

	key := "choropleth:" + string(metric)
	if cached, found := s.cache.Get(key); found {
		return cached.(*models.Choropleth), nil
	}

	bins := binsFor(s.table.Values(metric))

	choropleth := &models.Choropleth{
		Metric:      metric,
		KeyOn:       "feature.properties." + s.nameProperty,
		FillOpacity: fillOpacity,
		LineOpacity: lineOpacity,
		Cells:       make(map[string]models.ChoroplethCell, len(s.regions)),
		Legend: models.Legend{
			Name:        string(metric),
			Bins:        bins,
			NoDataColor: noDataColor,
		},
	}

	for _, region := range s.regions {
		cell := models.ChoroplethCell{FillColor: noDataColor}
		if row, ok := s.table.FirstByName(region.Name); ok {
			if v, ok := row.MetricValue(metric); ok {
				value := v
				cell.Value = &value
				cell.FillColor = colorFor(bins, v)
			}
		}
		choropleth.Cells[region.Name] = cell
	}

	s.cache.Set(key, choropleth, cache.NoExpiration)
	return choropleth, nil
}

// Overlay builds the outline layer with tooltips and popups. It does not
// depend on the selected metric and is built only once.
func (s *MapService) Overlay() *models.Overlay {
	if cached, found := s.cache.Get(overlayCacheKey); found {
		return cached.(*models.Overlay)
	}

	overlay := &models.Overlay{
		Style:        overlayStyle,
		Highlight:    highlightStyle,
		TooltipAlias: "State:",
		Popups:       make(map[string]models.Popup, len(s.regions)),
		Features:     &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(s.regions))},
	}

	for _, region := range s.regions {
		popup := s.popupFor(region.Name)
		overlay.Popups[region.Name] = popup

		properties := map[string]interface{}{
			s.nameProperty: region.Name,
			"name":         region.Name,
			"info":         popup.HTML,
			"url":          popup.URL,
		}
		overlay.Features.Features = append(overlay.Features.Features, &geojson.Feature{
			ID:         region.Feature.ID,
			Geometry:   region.Feature.Geometry,
			Properties: properties,
		})
	}

	s.cache.Set(overlayCacheKey, overlay, cache.NoExpiration)
	return overlay
}

func (s *MapService) popupFor(name string) models.Popup {
	culture := CultureUnavailable
	if row, ok := s.table.FirstByName(name); ok && row.Culture != "" {
		culture = row.Culture
	}

	popup := models.Popup{
		Region:  name,
		Culture: culture,
		URL:     slug.URL(s.stateBaseURL, name),
	}

	var buf bytes.Buffer
	if err := popupTemplate.Execute(&buf, popup); err != nil {
		log.Printf("Warning: error rendering popup for %s: %v", name, err)
	}
	popup.HTML = buf.String()
	return popup
}

// binsFor splits [min, max] of values into len(YlOrBr) equal-width classes
func binsFor(values []float64) []models.LegendBin {
	if len(values) == 0 {
		return nil
	}

	lo, hi := stats.Bounds(values)
	bins := make([]models.LegendBin, len(YlOrBr))
	width := (hi - lo) / float64(len(YlOrBr))
	for i, color := range YlOrBr {
		bins[i] = models.LegendBin{
			Lower: lo + float64(i)*width,
			Upper: lo + float64(i+1)*width,
			Color: color,
		}
	}
	bins[len(bins)-1].Upper = hi
	return bins
}

// colorFor returns the fill color of the class containing v
func colorFor(bins []models.LegendBin, v float64) string {
	if len(bins) == 0 {
		return noDataColor
	}

	lo, hi := bins[0].Lower, bins[len(bins)-1].Upper
	if lo == hi {
		return bins[0].Color
	}

	s := scale.Linear{Min: lo, Max: hi}
	i := int(math.Floor(s.Map(v) * float64(len(bins))))
	if i >= len(bins) {
		i = len(bins) - 1
	}
	if i < 0 {
		i = 0
	}
	return bins[i].Color
}
