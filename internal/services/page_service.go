package services

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"os"
	"path/filepath"
	"sync"

	"cultural-map/internal/config"
	"cultural-map/internal/models"
	"cultural-map/internal/slug"
)

// DensityUnavailable replaces an empty density cell on a state page
const DensityUnavailable = "N/A"

// StatePage holds the fields substituted into a state page
type StatePage struct {
	Region          string
	Population      string
	Density         string
	Culture         string
	MarketplaceLink string
}

var statePageTemplate = template.Must(template.New("state").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Region}} - State Information</title>
    <style>
        body {
            font-family: Arial, sans-serif;
            line-height: 1.6;
            margin: 0;
            padding: 0;
            background-color: #f9f9f9;
            color: #333;
        }
        header {
            background: #6200ea;
            color: #fff;
            padding: 10px 20px;
            text-align: center;
        }
        .container {
            max-width: 800px;
            margin: 20px auto;
            background: #fff;
            padding: 20px;
            border-radius: 5px;
            box-shadow: 0 2px 4px rgba(0, 0, 0, 0.1);
        }
        h1 {
            color: #6200ea;
        }
        .button {
            display: inline-block;
            margin-top: 20px;
            padding: 10px 15px;
            color: #fff;
            background-color: #007bff;
            border: none;
            text-decoration: none;
            border-radius: 5px;
            cursor: pointer;
        }
        .button:hover {
            background-color: #0056b3;
        }
    </style>
</head>
<body>
    <header>
        <h1>{{.Region}} - State Information</h1>
    </header>
    <div class="container">
        <h2>State Details</h2>
        <p><b>Population:</b> {{.Population}}</p>
        <p><b>Population Density:</b> {{.Density}} people per sq. km</p>
        <p><b>Culture:</b> {{.Culture}}</p>
        <a href="{{.MarketplaceLink}}" class="button" target="_blank">Visit the Marketplace</a>
    </div>
</body>
</html>
`))

// PageService writes one static HTML page per census row
type PageService struct {
	outputDir          string
	marketplaceBaseURL string
	workers            int
	columns            config.Columns
}

// NewPageService creates a new PageService instance
func NewPageService(outputDir, marketplaceBaseURL string, workers int, columns config.Columns) *PageService {
	if workers < 1 {
		workers = 1
	}
	return &PageService{
		outputDir:          outputDir,
		marketplaceBaseURL: marketplaceBaseURL,
		workers:            workers,
		columns:            columns,
	}
}

type pageResult struct {
	row  *models.RegionRecord
	file string
	err  error
}

// Generate writes a page for every row of table. A row that fails is logged
// and reported, and the remaining rows are still written. The only error
// returned is failure to create the output directory.
func (s *PageService) Generate(table *models.CensusTable) (*models.GenerationReport, error) {
	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("error creating output directory: %w", err)
	}

	log.Printf("Generating state-specific pages...")

	results := make([]pageResult, len(table.Rows))
	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup

	for i, row := range table.Rows {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, row *models.RegionRecord) {
			defer wg.Done()
			defer func() { <-sem }()
			file, err := s.generateOne(row)
			results[i] = pageResult{row: row, file: file, err: err}
		}(i, row)
	}
	wg.Wait()

	report := &models.GenerationReport{
		OutputDir: s.outputDir,
		Files:     make([]string, 0, len(results)),
		Failures:  []models.PageFailure{},
	}
	for _, result := range results {
		if result.err != nil {
			region := regionLabel(result.row)
			log.Printf("Error generating page for %s: %v", region, result.err)
			report.Failures = append(report.Failures, models.PageFailure{
				Line:   result.row.Line,
				Region: region,
				Error:  result.err.Error(),
			})
			continue
		}
		log.Printf("Page generated for: %s", result.row.Name)
		report.Files = append(report.Files, result.file)
	}

	log.Printf("All state-specific pages have been generated and saved in the '%s' directory!", s.outputDir)
	return report, nil
}

func (s *PageService) generateOne(row *models.RegionRecord) (string, error) {
	page, err := s.Extract(row)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := statePageTemplate.Execute(&buf, page); err != nil {
		return "", fmt.Errorf("error rendering page: %w", err)
	}

	path := filepath.Join(s.outputDir, slug.Make(page.Region)+".html")
	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return "", err
	}
	return path, nil
}

// Extract pulls the page fields out of row
func (s *PageService) Extract(row *models.RegionRecord) (StatePage, error) {
	for _, column := range []string{s.columns.Region, s.columns.Population, s.columns.Culture} {
		if !row.HasField(column) {
			return StatePage{}, &FieldExtractionError{Region: regionLabel(row), Line: row.Line, Field: column}
		}
	}

	density := row.DensityRaw
	if !row.HasField(s.columns.Density) {
		density = DensityUnavailable
	}

	return StatePage{
		Region:          row.Name,
		Population:      row.Population,
		Density:         density,
		Culture:         row.Culture,
		MarketplaceLink: slug.URL(s.marketplaceBaseURL, row.Name),
	}, nil
}

func regionLabel(row *models.RegionRecord) string {
	if row.Name != "" {
		return row.Name
	}
	return fmt.Sprintf("<unnamed row at line %d>", row.Line)
}

// writeFileAtomic writes to a temp file then renames it over path, so a
// reader never sees a partial page
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create tmp failed: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write tmp failed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close tmp failed: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("chmod tmp failed: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename failed: %w", err)
	}
	return nil
}
