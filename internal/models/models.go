package models

import (
	"encoding/json"
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// Metric names a derived column that can drive the choropleth
type Metric string

const (
	MetricDensity Metric = "density_cleaned"
	MetricCulture Metric = "culture_code"
)

// Metrics lists the selectable metrics in display order
var Metrics = []Metric{MetricDensity, MetricCulture}

// NoCultureCode is assigned to rows without a culture description
const NoCultureCode = -1

// LatLng represents a geographical point in Leaflet order
type LatLng struct {
	Lat float64
	Lng float64
}

// MarshalJSON encodes the point as a [lat, lng] pair
func (p LatLng) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.Lat, p.Lng})
}

// ToGeomPoint converts our LatLng to a go-geom Point
func (p LatLng) ToGeomPoint() *geom.Point {
	return geom.NewPoint(geom.XY).MustSetCoords(geom.Coord{p.Lng, p.Lat})
}

// RegionRecord is one row of the census table
type RegionRecord struct {
	Line            int      `json:"line"`
	Name            string   `json:"name"`
	Population      string   `json:"population"`
	PopulationValue *float64 `json:"population_value,omitempty"`
	DensityRaw      string   `json:"density_raw"`
	Culture         string   `json:"culture"`
	DensityCleaned  *float64 `json:"density_cleaned"`
	CultureCode     int      `json:"culture_code"`
	// Missing holds the column names whose cells were absent or blank
	Missing []string `json:"missing,omitempty"`
}

// HasField reports whether the row carried a value for column
func (r *RegionRecord) HasField(column string) bool {
	for _, m := range r.Missing {
		if m == column {
			return false
		}
	}
	return true
}

// MetricValue returns the row's value for metric and whether it is defined
func (r *RegionRecord) MetricValue(metric Metric) (float64, bool) {
	switch metric {
	case MetricDensity:
		if r.DensityCleaned == nil {
			return 0, false
		}
		return *r.DensityCleaned, true
	case MetricCulture:
		if r.CultureCode == NoCultureCode {
			return 0, false
		}
		return float64(r.CultureCode), true
	}
	return 0, false
}

// CensusTable is the loaded CSV with its derived columns
type CensusTable struct {
	Path   string          `json:"path"`
	Header []string        `json:"header"`
	Rows   []*RegionRecord `json:"rows"`
	// Categories maps a culture code (the index) back to its description
	Categories []string `json:"categories"`
}

// FirstByName returns the first row whose name equals name
func (t *CensusTable) FirstByName(name string) (*RegionRecord, bool) {
	for _, row := range t.Rows {
		if row.Name == name {
			return row, true
		}
	}
	return nil, false
}

// Values returns every defined value of metric, in row order
func (t *CensusTable) Values(metric Metric) []float64 {
	values := make([]float64, 0, len(t.Rows))
	for _, row := range t.Rows {
		if v, ok := row.MetricValue(metric); ok {
			values = append(values, v)
		}
	}
	return values
}

// Region is a named polygon from the geographic feature collection
type Region struct {
	Name    string
	Feature *geojson.Feature
}

// Viewport fixes the initial view and the reachable area of the map
type Viewport struct {
	Center    LatLng    `json:"center"`
	Zoom      int       `json:"zoom"`
	Bounds    [2]LatLng `json:"bounds"`
	MaxBounds [2]LatLng `json:"maxBounds"`
}

// GeomBounds returns the viewport bounds as a go-geom Bounds in lng/lat order
func (v Viewport) GeomBounds() *geom.Bounds {
	return geom.NewBounds(geom.XY).Set(v.Bounds[0].Lng, v.Bounds[0].Lat, v.Bounds[1].Lng, v.Bounds[1].Lat)
}

// Validate checks that the center lies inside the bounds
func (v Viewport) Validate() error {
	if !v.GeomBounds().OverlapsPoint(geom.XY, v.Center.ToGeomPoint().Coords()) {
		return fmt.Errorf("viewport center %v is outside bounds %v", v.Center, v.Bounds)
	}
	return nil
}

// Style is a Leaflet path style
type Style struct {
	FillColor   string  `json:"fillColor"`
	Color       string  `json:"color"`
	FillOpacity float64 `json:"fillOpacity"`
	Weight      float64 `json:"weight"`
}

// LegendBin is one color class of the choropleth
type LegendBin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Color string  `json:"color"`
}

type Legend struct {
	Name        string      `json:"name"`
	Bins        []LegendBin `json:"bins"`
	NoDataColor string      `json:"noDataColor"`
}

// ChoroplethCell is the fill binding of one region
type ChoroplethCell struct {
	Value     *float64 `json:"value"`
	FillColor string   `json:"fillColor"`
}

// Choropleth binds the selected metric onto regions by name
type Choropleth struct {
	Metric      Metric                    `json:"metric"`
	KeyOn       string                    `json:"keyOn"`
	FillOpacity float64                   `json:"fillOpacity"`
	LineOpacity float64                   `json:"lineOpacity"`
	Cells       map[string]ChoroplethCell `json:"cells"`
	Legend      Legend                    `json:"legend"`
}

// Popup is the clickable info box attached to a region
type Popup struct {
	Region  string `json:"region"`
	Culture string `json:"culture"`
	URL     string `json:"url"`
	HTML    string `json:"html"`
}

// Overlay is the static outline layer with tooltips and popups
type Overlay struct {
	Style        Style                      `json:"style"`
	Highlight    Style                      `json:"highlight"`
	TooltipAlias string                     `json:"tooltipAlias"`
	Popups       map[string]Popup           `json:"-"`
	Features     *geojson.FeatureCollection `json:"features"`
}

// Map is a renderable map: a viewport plus its two layers
type Map struct {
	Viewport   Viewport    `json:"viewport"`
	Metric     Metric      `json:"metric"`
	Metrics    []Metric    `json:"metrics"`
	Choropleth *Choropleth `json:"choropleth"`
	Overlay    *Overlay    `json:"overlay"`
}

// JoinReport lists names that appear on only one side of the region join
type JoinReport struct {
	UnmatchedRegions []string `json:"unmatched_regions"`
	UnmatchedRows    []string `json:"unmatched_rows"`
	OutsideView      []string `json:"outside_view"`
	InvalidGeometry  []string `json:"invalid_geometry"`
}

// Clean reports whether every polygon and row found its partner
func (r JoinReport) Clean() bool {
	return len(r.UnmatchedRegions) == 0 && len(r.UnmatchedRows) == 0 &&
		len(r.OutsideView) == 0 && len(r.InvalidGeometry) == 0
}

// PageFailure records a row whose page could not be generated
type PageFailure struct {
	Line   int    `json:"line"`
	Region string `json:"region"`
	Error  string `json:"error"`
}

// GenerationReport summarizes a page generation run
type GenerationReport struct {
	OutputDir string        `json:"output_dir"`
	Files     []string      `json:"files"`
	Failures  []PageFailure `json:"failures"`
}
