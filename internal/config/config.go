package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
)

// Columns names the CSV header cells the loader expects.
type Columns struct {
	Region     string `json:"region"`
	Population string `json:"population"`
	Density    string `json:"density"`
	Culture    string `json:"culture"`
}

type Config struct {
	CensusData         string   `json:"census_data"`
	RegionsData        string   `json:"regions_data"`
	OutputDir          string   `json:"output_dir"`
	StatePageBaseURL   string   `json:"state_page_base_url"`
	MarketplaceBaseURL string   `json:"marketplace_base_url"`
	RegionNameProperty string   `json:"region_name_property"`
	CultureEncoding    string   `json:"culture_encoding"`
	PageWorkers        int      `json:"page_workers"`
	AllowedOrigins     []string `json:"allowed_origins"`
	Columns            Columns  `json:"columns"`
	Port               string   `json:"-"`
}

const (
	EncodingFirstOccurrence = "first_occurrence"
	EncodingSorted          = "sorted"
)

// Default returns the configuration used when no config.json is present.
func Default() Config {
	return Config{
		CensusData:         "india_censusa.csv",
		RegionsData:        "states_india.geojson",
		OutputDir:          "state_pages",
		StatePageBaseURL:   "http://localhost:3000/state/",
		MarketplaceBaseURL: "https://example.com/marketplace/",
		RegionNameProperty: "st_nm",
		CultureEncoding:    EncodingFirstOccurrence,
		PageWorkers:        1,
		AllowedOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		Columns: Columns{
			Region:     "State or union territory",
			Population: "Population",
			Density:    "Density[a]",
			Culture:    "Culture",
		},
		Port: "8080",
	}
}

// Load returns the default configuration overlaid with the JSON file at path
// (if it exists) and the PORT environment variable.
func Load(path string) (Config, error) {
	cfg := Default()

	if configFile, err := os.Open(path); err == nil {
		defer configFile.Close()
		if err := json.NewDecoder(configFile).Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("error decoding %s: %w", path, err)
		}
		log.Printf("Loaded configuration from %s", path)
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("error opening %s: %w", path, err)
	}

	cfg.Port = getEnvWithDefault("PORT", cfg.Port)
	cfg.PageWorkers = getEnvAsInt("PAGE_WORKERS", cfg.PageWorkers)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the values a config.json overlay may have broken.
func (c Config) Validate() error {
	switch c.CultureEncoding {
	case EncodingFirstOccurrence, EncodingSorted:
	default:
		return fmt.Errorf("unknown culture_encoding %q", c.CultureEncoding)
	}
	if c.PageWorkers < 1 {
		return fmt.Errorf("page_workers must be at least 1, got %d", c.PageWorkers)
	}
	if c.Columns.Region == "" || c.Columns.Population == "" || c.Columns.Density == "" || c.Columns.Culture == "" {
		return fmt.Errorf("all column names must be set")
	}
	if c.RegionNameProperty == "" {
		return fmt.Errorf("region_name_property must be set")
	}
	return nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
