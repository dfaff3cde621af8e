// Command pages writes one static HTML information page per state in the
// census CSV. Rows that cannot be rendered are reported and skipped; the
// command still exits 0. A missing or malformed CSV exits 1.
package main

import (
	"log"

	"cultural-map/internal/config"
	"cultural-map/internal/services"
)

func main() {
	cfg, err := config.Load("config.json")
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	censusPath := config.GetDataFilePath(cfg.CensusData)
	table, err := services.NewCensusService(censusPath, cfg.Columns, cfg.CultureEncoding).Load()
	if err != nil {
		log.Fatalf("Error: %v. Make sure the file exists and has the expected columns.", err)
	}

	pageService := services.NewPageService(cfg.OutputDir, cfg.MarketplaceBaseURL, cfg.PageWorkers, cfg.Columns)
	report, err := pageService.Generate(table)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	log.Printf("%d pages written, %d rows failed", len(report.Files), len(report.Failures))
}
