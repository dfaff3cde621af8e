package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cultural-map/internal/config"
	"cultural-map/internal/handlers"
	"cultural-map/internal/services"
)

const (
	AppVersion = "1.0.0"
)

func main() {
	log.Printf("Starting Cultural Map v%s", AppVersion)

	cfg, err := config.Load("config.json")
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	censusPath := config.GetDataFilePath(cfg.CensusData)
	regionsPath := config.GetDataFilePath(cfg.RegionsData)
	log.Printf("Using census CSV file at: %s", censusPath)
	log.Printf("Using regions GeoJSON file at: %s", regionsPath)

	table, err := services.NewCensusService(censusPath, cfg.Columns, cfg.CultureEncoding).Load()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	log.Printf("Loaded %d census rows, %d culture categories", len(table.Rows), len(table.Categories))

	regions, err := services.LoadRegions(regionsPath, cfg.RegionNameProperty)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	bounds := services.RegionBounds(regions)
	log.Printf("Loaded %d regions spanning lng [%f, %f], lat [%f, %f]",
		len(regions), bounds.Min(0), bounds.Max(0), bounds.Min(1), bounds.Max(1))

	if err := services.IndiaViewport.Validate(); err != nil {
		log.Fatalf("Error: %v", err)
	}

	joinReport := services.ValidateJoin(table, regions, services.IndiaViewport)
	services.LogJoinReport(joinReport)

	mapService := services.NewMapService(table, regions, cfg.RegionNameProperty, cfg.StatePageBaseURL)
	mapHandler := handlers.NewMapHandler(mapService, joinReport)

	srv := &http.Server{
		Handler:           handlers.NewRouter(mapHandler, cfg.AllowedOrigins),
		Addr:              ":" + cfg.Port,
		WriteTimeout:      15 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("Server starting on port %s...", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("Shutdown signal received")
	case err := <-serverErrors:
		log.Fatalf("Error starting server: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Error during server shutdown: %v", err)
	}
}
