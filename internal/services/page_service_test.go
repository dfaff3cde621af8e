package services

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	. "gopkg.in/check.v1"

	"cultural-map/internal/config"
	"cultural-map/internal/models"
)

const marketplaceBase = "https://example.com/marketplace/"

type PageSuite struct {
	dir string
}

var _ = Suite(&PageSuite{})

func (s *PageSuite) SetUpTest(c *C) {
	s.dir = filepath.Join(c.MkDir(), "state_pages")
}

func (s *PageSuite) generate(c *C, content string, workers int) *models.GenerationReport {
	table := loadCensus(c, content, config.EncodingFirstOccurrence)
	report, err := NewPageService(s.dir, marketplaceBase, workers, config.Default().Columns).Generate(table)
	c.Assert(err, IsNil)
	return report
}

func readPage(c *C, path string) string {
	data, err := os.ReadFile(path)
	c.Assert(err, IsNil)
	return string(data)
}

// marketplaceHref returns the href of the first <a class="button"> in page
func marketplaceHref(c *C, page string) string {
	doc, err := html.Parse(strings.NewReader(page))
	c.Assert(err, IsNil)

	var href string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if href != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" {
			var link string
			isButton := false
			for _, attr := range n.Attr {
				switch attr.Key {
				case "href":
					link = attr.Val
				case "class":
					isButton = attr.Val == "button"
				}
			}
			if isButton {
				href = link
				return
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return href
}

func (s *PageSuite) TestKeralaPage(c *C) {
	report := s.generate(c, censusCSV, 1)

	path := filepath.Join(s.dir, "kerala.html")
	c.Assert(report.Files, Not(HasLen), 0)
	c.Assert(report.Files[0], Equals, path)

	page := readPage(c, path)
	c.Assert(strings.Contains(page, "<title>Kerala - State Information</title>"), Equals, true)
	c.Assert(strings.Contains(page, "33406061"), Equals, true)
	c.Assert(strings.Contains(page, "860/km2[19] people per sq. km"), Equals, true)
	c.Assert(strings.Contains(page, "Kathakali, Onam"), Equals, true)
	c.Assert(marketplaceHref(c, page), Equals, "https://example.com/marketplace/kerala")
}

func (s *PageSuite) TestSlugInFileNameAndLink(c *C) {
	s.generate(c, censusCSV, 1)

	page := readPage(c, filepath.Join(s.dir, "tamil_nadu.html"))
	c.Assert(marketplaceHref(c, page), Equals, "https://example.com/marketplace/tamil_nadu")
}

func (s *PageSuite) TestFailingRowDoesNotStopOthers(c *C) {
	report := s.generate(c, censusCSV, 1)

	c.Assert(report.Files, HasLen, 3)
	c.Assert(report.Failures, HasLen, 1)
	c.Assert(report.Failures[0].Region, Equals, "Ladakh")
	c.Assert(report.Failures[0].Line, Equals, 5)
	c.Assert(report.Failures[0].Error, Matches, `.*"Culture".*`)

	_, err := os.Stat(filepath.Join(s.dir, "ladakh.html"))
	c.Assert(os.IsNotExist(err), Equals, true)
	for _, name := range []string{"kerala.html", "tamil_nadu.html", "goa.html"} {
		_, err := os.Stat(filepath.Join(s.dir, name))
		c.Assert(err, IsNil, Commentf("%s", name))
	}
}

func (s *PageSuite) TestEmptyDensityRendersNA(c *C) {
	s.generate(c, `State or union territory,Population,Density[a],Culture
Sikkim,610577,,Buddhism
`, 1)

	page := readPage(c, filepath.Join(s.dir, "sikkim.html"))
	c.Assert(strings.Contains(page, "N/A people per sq. km"), Equals, true)
	c.Assert(strings.Contains(page, "Buddhism"), Equals, true)
}

func (s *PageSuite) TestUnparsableDensityIsShownRaw(c *C) {
	s.generate(c, censusCSV, 1)

	page := readPage(c, filepath.Join(s.dir, "goa.html"))
	c.Assert(strings.Contains(page, "unknown people per sq. km"), Equals, true)
}

func (s *PageSuite) TestParallelWorkersWriteEveryPage(c *C) {
	report := s.generate(c, censusCSV, 4)
	c.Assert(report.Files, DeepEquals, []string{
		filepath.Join(s.dir, "kerala.html"),
		filepath.Join(s.dir, "tamil_nadu.html"),
		filepath.Join(s.dir, "goa.html"),
	})

	entries, err := os.ReadDir(s.dir)
	c.Assert(err, IsNil)
	c.Assert(entries, HasLen, 3)
}

func (s *PageSuite) TestRegenerationOverwrites(c *C) {
	s.generate(c, censusCSV, 1)
	s.generate(c, `State or union territory,Population,Density[a],Culture
Kerala,1,2,Theyyam
`, 1)

	page := readPage(c, filepath.Join(s.dir, "kerala.html"))
	c.Assert(strings.Contains(page, "Theyyam"), Equals, true)
	c.Assert(strings.Contains(page, "Kathakali"), Equals, false)
}

func (s *PageSuite) TestMarkupInCellsIsEscaped(c *C) {
	s.generate(c, `State or union territory,Population,Density[a],Culture
Goa,1,2,<b>Carnival</b>
`, 1)

	page := readPage(c, filepath.Join(s.dir, "goa.html"))
	c.Assert(strings.Contains(page, "<b>Carnival</b>"), Equals, false)
	c.Assert(strings.Contains(page, "&lt;b&gt;Carnival&lt;/b&gt;"), Equals, true)
}

func (s *PageSuite) TestExtractMissingField(c *C) {
	svc := NewPageService(s.dir, marketplaceBase, 1, config.Default().Columns)
	row := &models.RegionRecord{Line: 7, Name: "Ladakh", Population: "274000", Missing: []string{"Culture"}}

	_, err := svc.Extract(row)
	var fieldErr *FieldExtractionError
	c.Assert(errors.As(err, &fieldErr), Equals, true)
	c.Assert(fieldErr.Field, Equals, "Culture")
	c.Assert(fieldErr.Line, Equals, 7)
	c.Assert(fieldErr.Region, Equals, "Ladakh")
}

func (s *PageSuite) TestExtractUnnamedRow(c *C) {
	svc := NewPageService(s.dir, marketplaceBase, 1, config.Default().Columns)
	row := &models.RegionRecord{Line: 3, Missing: []string{"State or union territory"}}

	_, err := svc.Extract(row)
	var fieldErr *FieldExtractionError
	c.Assert(errors.As(err, &fieldErr), Equals, true)
	c.Assert(fieldErr.Region, Equals, "<unnamed row at line 3>")
}

func (s *PageSuite) TestOutputDirCannotBeCreated(c *C) {
	blocker := writeFile(c, c.MkDir(), "file", "x")
	table := loadCensus(c, censusCSV, config.EncodingFirstOccurrence)

	_, err := NewPageService(filepath.Join(blocker, "pages"), marketplaceBase, 1, config.Default().Columns).Generate(table)
	c.Assert(err, NotNil)
}
