package services

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"cultural-map/internal/models"
)

// LoadRegions reads a GeoJSON feature collection and names every feature by
// its nameProperty. Features without the property get an empty name and
// simply never match a row. Polygon rings are simplified on the way in.
func LoadRegions(path, nameProperty string) ([]*models.Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &DataLoadError{Path: path, Err: err}
	}
	return ParseRegions(data, nameProperty)
}

// ParseRegions is LoadRegions on an in-memory document.
func ParseRegions(data []byte, nameProperty string) ([]*models.Region, error) {
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("error parsing GeoJSON: %w", err)
	}

	regions := make([]*models.Region, 0, len(fc.Features))
	for i, feature := range fc.Features {
		if feature == nil {
			continue
		}
		name := propertyString(feature.Properties, nameProperty)
		if name == "" {
			log.Printf("Warning: feature %d has no %q property", i, nameProperty)
		}
		if feature.Geometry != nil {
			feature.Geometry = simplifyGeometry(feature.Geometry)
		}
		regions = append(regions, &models.Region{Name: name, Feature: feature})
	}
	return regions, nil
}

// RegionBounds returns the bounding box of every region geometry.
func RegionBounds(regions []*models.Region) *geom.Bounds {
	bounds := geom.NewBounds(geom.XY)
	for _, r := range regions {
		if r.Feature.Geometry != nil {
			bounds.Extend(r.Feature.Geometry)
		}
	}
	return bounds
}

func propertyString(properties map[string]interface{}, key string) string {
	v, ok := properties[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
