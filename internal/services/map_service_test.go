package services

import (
	"errors"
	"path/filepath"
	"strings"

	. "gopkg.in/check.v1"

	"cultural-map/internal/config"
	"cultural-map/internal/models"
)

const regionsGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"st_nm": "Kerala"},
     "geometry": {"type": "Polygon", "coordinates": [[[76,9],[77,9],[77,10],[76,10],[76,9]]]}},
    {"type": "Feature", "properties": {"st_nm": "Tamil Nadu"},
     "geometry": {"type": "MultiPolygon", "coordinates": [[[[78,10],[79,10],[79,11],[78,11],[78,10]]]]}},
    {"type": "Feature", "properties": {"st_nm": "Atlantis"},
     "geometry": {"type": "Polygon", "coordinates": [[[80,20],[81,20],[81,21],[80,21],[80,20]]]}},
    {"type": "Feature", "properties": {"st_nm": "Faraway"},
     "geometry": {"type": "Polygon", "coordinates": [[[10,10],[11,10],[11,11],[10,11],[10,10]]]}}
  ]
}`

type MapSuite struct {
	table   *models.CensusTable
	regions []*models.Region
	service *MapService
}

var _ = Suite(&MapSuite{})

func (s *MapSuite) SetUpTest(c *C) {
	s.table = loadCensus(c, censusCSV, config.EncodingFirstOccurrence)

	var err error
	s.regions, err = ParseRegions([]byte(regionsGeoJSON), "st_nm")
	c.Assert(err, IsNil)
	s.service = NewMapService(s.table, s.regions, "st_nm", "http://localhost:3000/state/")
}

func (s *MapSuite) TestParseRegions(c *C) {
	c.Assert(s.regions, HasLen, 4)
	c.Assert(s.regions[0].Name, Equals, "Kerala")
	c.Assert(s.regions[1].Name, Equals, "Tamil Nadu")
	c.Assert(s.regions[1].Feature.Geometry, NotNil)

	bounds := RegionBounds(s.regions)
	c.Assert(bounds.Min(0), Equals, 10.0)
	c.Assert(bounds.Max(1), Equals, 21.0)
}

func (s *MapSuite) TestFeatureWithoutNameDoesNotMatch(c *C) {
	regions, err := ParseRegions([]byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[76,9],[77,9],[77,10],[76,10],[76,9]]]}}]}`), "st_nm")
	c.Assert(err, IsNil)
	c.Assert(regions[0].Name, Equals, "")

	m, err := NewMapService(s.table, regions, "st_nm", "http://localhost:3000/state/").Compose(models.MetricDensity)
	c.Assert(err, IsNil)
	c.Assert(m.Choropleth.Cells[""].FillColor, Equals, noDataColor)
	c.Assert(m.Overlay.Popups[""].Culture, Equals, CultureUnavailable)
}

func (s *MapSuite) TestLoadRegionsMissingFile(c *C) {
	_, err := LoadRegions(filepath.Join(c.MkDir(), "absent.geojson"), "st_nm")
	var loadErr *DataLoadError
	c.Assert(errors.As(err, &loadErr), Equals, true)
}

func (s *MapSuite) TestParseRegionsRejectsGarbage(c *C) {
	_, err := ParseRegions([]byte("not json"), "st_nm")
	c.Assert(err, NotNil)
}

func (s *MapSuite) TestViewport(c *C) {
	m, err := s.service.Compose(models.MetricDensity)
	c.Assert(err, IsNil)
	c.Assert(m.Viewport.Center, Equals, models.LatLng{Lat: 20, Lng: 77})
	c.Assert(m.Viewport.Zoom, Equals, 4)
	c.Assert(m.Viewport.Bounds, Equals, [2]models.LatLng{{Lat: 6, Lng: 68}, {Lat: 36, Lng: 98}})
	c.Assert(m.Viewport.MaxBounds, Equals, m.Viewport.Bounds)
	c.Assert(m.Viewport.Validate(), IsNil)
	c.Assert(m.Metrics, DeepEquals, []models.Metric{models.MetricDensity, models.MetricCulture})
}

func (s *MapSuite) TestUnknownMetric(c *C) {
	_, err := s.service.Compose(models.Metric("Population"))
	c.Assert(errors.Is(err, ErrUnknownMetric), Equals, true)

	_, err = s.service.Choropleth(models.Metric(""))
	c.Assert(errors.Is(err, ErrUnknownMetric), Equals, true)
}

func (s *MapSuite) TestDensityChoropleth(c *C) {
	m, err := s.service.Compose(models.MetricDensity)
	c.Assert(err, IsNil)

	ch := m.Choropleth
	c.Assert(ch.Metric, Equals, models.MetricDensity)
	c.Assert(ch.KeyOn, Equals, "feature.properties.st_nm")
	c.Assert(ch.FillOpacity, Equals, 0.7)
	c.Assert(ch.LineOpacity, Equals, 0.2)
	c.Assert(ch.Legend.Name, Equals, "density_cleaned")
	c.Assert(ch.Legend.Bins, HasLen, 6)
	c.Assert(ch.Legend.Bins[0].Lower, Equals, 555.0)
	c.Assert(ch.Legend.Bins[5].Upper, Equals, 860.0)

	c.Assert(*ch.Cells["Kerala"].Value, Equals, 860.0)
	c.Assert(ch.Cells["Kerala"].FillColor, Equals, YlOrBr[5])
	c.Assert(*ch.Cells["Tamil Nadu"].Value, Equals, 555.0)
	c.Assert(ch.Cells["Tamil Nadu"].FillColor, Equals, YlOrBr[0])

	c.Assert(ch.Cells["Atlantis"].Value, IsNil)
	c.Assert(ch.Cells["Atlantis"].FillColor, Equals, noDataColor)
}

func (s *MapSuite) TestCultureChoropleth(c *C) {
	ch, err := s.service.Choropleth(models.MetricCulture)
	c.Assert(err, IsNil)
	c.Assert(*ch.Cells["Kerala"].Value, Equals, 0.0)
	c.Assert(ch.Cells["Kerala"].FillColor, Equals, YlOrBr[0])
	c.Assert(*ch.Cells["Tamil Nadu"].Value, Equals, 1.0)
	c.Assert(ch.Cells["Tamil Nadu"].FillColor, Equals, YlOrBr[5])
	c.Assert(ch.Legend.Name, Equals, "culture_code")
}

func (s *MapSuite) TestPopupPlaceholderForUnmatchedRegion(c *C) {
	overlay := s.service.Overlay()
	popup := overlay.Popups["Atlantis"]
	c.Assert(popup.Culture, Equals, "Cultural information not available")
	c.Assert(strings.Contains(popup.HTML, "Cultural information not available"), Equals, true)
	c.Assert(popup.URL, Equals, "http://localhost:3000/state/atlantis")
}

func (s *MapSuite) TestPopupForMatchedRegion(c *C) {
	overlay := s.service.Overlay()
	popup := overlay.Popups["Tamil Nadu"]
	c.Assert(popup.Region, Equals, "Tamil Nadu")
	c.Assert(popup.Culture, Equals, "Bharatanatyam, Pongal")
	c.Assert(popup.URL, Equals, "http://localhost:3000/state/tamil_nadu")
	c.Assert(strings.Contains(popup.HTML, "<h4>Tamil Nadu</h4>"), Equals, true)
	c.Assert(strings.Contains(popup.HTML, "Bharatanatyam, Pongal"), Equals, true)
	c.Assert(strings.Contains(popup.HTML, "Click to view more details"), Equals, true)
	c.Assert(strings.Contains(popup.HTML, `href="http://localhost:3000/state/tamil_nadu"`), Equals, true)
	c.Assert(strings.Contains(popup.HTML, `data-href="http://localhost:3000/state/tamil_nadu"`), Equals, true)
}

func (s *MapSuite) TestPopupEscapesCulture(c *C) {
	s.table.Rows[0].Culture = "<script>alert(1)</script>"
	popup := s.service.Overlay().Popups["Kerala"]
	c.Assert(strings.Contains(popup.HTML, "<script>"), Equals, false)
}

func (s *MapSuite) TestOverlayFeatures(c *C) {
	overlay := s.service.Overlay()
	c.Assert(overlay.Features.Features, HasLen, 4)
	c.Assert(overlay.TooltipAlias, Equals, "State:")
	c.Assert(overlay.Style, Equals, models.Style{FillColor: "#ffffff", Color: "#000000", FillOpacity: 0.1, Weight: 0.5})
	c.Assert(overlay.Highlight.FillOpacity, Equals, 0.5)

	props := overlay.Features.Features[0].Properties
	c.Assert(props["st_nm"], Equals, "Kerala")
	c.Assert(props["url"], Equals, "http://localhost:3000/state/kerala")
	c.Assert(props["info"], Equals, overlay.Popups["Kerala"].HTML)
}

func (s *MapSuite) TestSwitchingMetricKeepsOverlay(c *C) {
	density, err := s.service.Compose(models.MetricDensity)
	c.Assert(err, IsNil)
	culture, err := s.service.Compose(models.MetricCulture)
	c.Assert(err, IsNil)

	c.Assert(density.Overlay == culture.Overlay, Equals, true)
	c.Assert(density.Choropleth == culture.Choropleth, Equals, false)

	again, err := s.service.Compose(models.MetricDensity)
	c.Assert(err, IsNil)
	c.Assert(again.Choropleth == density.Choropleth, Equals, true)
}

func (s *MapSuite) TestComposeMapFromFile(c *C) {
	path := writeFile(c, c.MkDir(), "states.geojson", regionsGeoJSON)
	m, err := ComposeMap(s.table, path, "st_nm", "http://localhost:3000/state/", models.MetricCulture)
	c.Assert(err, IsNil)
	c.Assert(m.Metric, Equals, models.MetricCulture)
	c.Assert(m.Overlay.Features.Features, HasLen, 4)
}

func (s *MapSuite) TestEmptyTableRendersNoData(c *C) {
	empty := &models.CensusTable{}
	ch, err := NewMapService(empty, s.regions, "st_nm", "http://localhost:3000/state/").Choropleth(models.MetricDensity)
	c.Assert(err, IsNil)
	c.Assert(ch.Legend.Bins, HasLen, 0)
	for _, cell := range ch.Cells {
		c.Assert(cell.FillColor, Equals, noDataColor)
	}
}

func (s *MapSuite) TestRenderMapPage(c *C) {
	m, err := s.service.Compose(models.MetricCulture)
	c.Assert(err, IsNil)

	var b strings.Builder
	c.Assert(RenderMapPage(&b, "INDIA'S CULTURAL MAP", m), IsNil)
	page := b.String()

	c.Assert(strings.Contains(page, "leaflet.js"), Equals, true)
	c.Assert(strings.Contains(page, `<option value="culture_code" selected>`), Equals, true)
	c.Assert(strings.Contains(page, `<option value="density_cleaned" >`), Equals, true)
	c.Assert(strings.Contains(page, "tamil_nadu"), Equals, true)
}

func (s *MapSuite) TestColorForSingleValue(c *C) {
	bins := binsFor([]float64{42, 42})
	c.Assert(colorFor(bins, 42), Equals, YlOrBr[0])
	c.Assert(colorFor(nil, 42), Equals, noDataColor)
}

type JoinSuite struct{}

var _ = Suite(&JoinSuite{})

func (s *JoinSuite) TestValidateJoin(c *C) {
	table := loadCensus(c, censusCSV, config.EncodingFirstOccurrence)
	regions, err := ParseRegions([]byte(regionsGeoJSON), "st_nm")
	c.Assert(err, IsNil)

	report := ValidateJoin(table, regions, IndiaViewport)
	c.Assert(report.UnmatchedRegions, DeepEquals, []string{"Atlantis", "Faraway"})
	c.Assert(report.UnmatchedRows, DeepEquals, []string{"Goa", "Ladakh"})
	c.Assert(report.OutsideView, DeepEquals, []string{"Faraway"})
	c.Assert(report.InvalidGeometry, DeepEquals, []string{})
	c.Assert(report.Clean(), Equals, false)
	LogJoinReport(report)
}

func (s *JoinSuite) TestValidateJoinClean(c *C) {
	table := &models.CensusTable{Rows: []*models.RegionRecord{{Name: "Kerala"}}}
	regions, err := ParseRegions([]byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"st_nm":"Kerala"},"geometry":{"type":"Polygon","coordinates":[[[76,9],[77,9],[77,10],[76,10],[76,9]]]}}]}`), "st_nm")
	c.Assert(err, IsNil)

	report := ValidateJoin(table, regions, IndiaViewport)
	c.Assert(report.Clean(), Equals, true)
}
