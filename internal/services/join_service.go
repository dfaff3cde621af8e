package services

import (
	"fmt"
	"log"

	geom2 "github.com/peterstace/simplefeatures/geom"
	"github.com/twpayne/go-geom/encoding/wkt"
	"golang.org/x/exp/slices"

	"cultural-map/internal/models"
)

// ValidateJoin cross-checks polygon names against row names. Mismatches are
// reported, never returned as errors: the map renders them with defaults.
func ValidateJoin(table *models.CensusTable, regions []*models.Region, viewport models.Viewport) models.JoinReport {
	report := models.JoinReport{
		UnmatchedRegions: []string{},
		UnmatchedRows:    []string{},
		OutsideView:      []string{},
		InvalidGeometry:  []string{},
	}

	rowNames := make(map[string]bool, len(table.Rows))
	for _, row := range table.Rows {
		if row.Name != "" {
			rowNames[row.Name] = true
		}
	}

	regionNames := make(map[string]bool, len(regions))
	view, viewErr := viewPolygon(viewport)
	if viewErr != nil {
		log.Printf("Warning: cannot build view polygon: %v", viewErr)
	}

	for _, region := range regions {
		regionNames[region.Name] = true
		if !rowNames[region.Name] {
			report.UnmatchedRegions = append(report.UnmatchedRegions, region.Name)
		}

		if viewErr != nil || region.Feature.Geometry == nil {
			continue
		}
		g, gerr := toSimpleFeatures(region)
		if gerr != nil {
			report.InvalidGeometry = append(report.InvalidGeometry, region.Name)
			continue
		}
		if !geom2.Intersects(view, g) {
			report.OutsideView = append(report.OutsideView, region.Name)
		}
	}

	for name := range rowNames {
		if !regionNames[name] {
			report.UnmatchedRows = append(report.UnmatchedRows, name)
		}
	}

	slices.Sort(report.UnmatchedRegions)
	slices.Sort(report.UnmatchedRows)
	slices.Sort(report.OutsideView)
	slices.Sort(report.InvalidGeometry)
	return report
}

// LogJoinReport writes one warning per mismatch
func LogJoinReport(report models.JoinReport) {
	if report.Clean() {
		log.Printf("All regions matched a census row")
		return
	}
	for _, name := range report.UnmatchedRegions {
		log.Printf("Warning: region %q has no census row", name)
	}
	for _, name := range report.UnmatchedRows {
		log.Printf("Warning: census row %q has no region polygon", name)
	}
	for _, name := range report.OutsideView {
		log.Printf("Warning: region %q lies outside the map bounds", name)
	}
	for _, name := range report.InvalidGeometry {
		log.Printf("Warning: region %q has an invalid geometry", name)
	}
}

func viewPolygon(v models.Viewport) (geom2.Geometry, error) {
	sw, ne := v.Bounds[0], v.Bounds[1]
	return geom2.UnmarshalWKT(fmt.Sprintf("POLYGON((%f %f, %f %f, %f %f, %f %f, %f %f))",
		sw.Lng, sw.Lat, ne.Lng, sw.Lat, ne.Lng, ne.Lat, sw.Lng, ne.Lat, sw.Lng, sw.Lat))
}

func toSimpleFeatures(region *models.Region) (geom2.Geometry, error) {
	text, err := wkt.Marshal(region.Feature.Geometry)
	if err != nil {
		return geom2.Geometry{}, fmt.Errorf("error encoding %s as WKT: %w", region.Name, err)
	}
	g, err := geom2.UnmarshalWKT(text)
	if err != nil {
		return geom2.Geometry{}, fmt.Errorf("error parsing %s geometry: %w", region.Name, err)
	}
	return g, nil
}
