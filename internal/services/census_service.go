package services

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"

	"cultural-map/internal/config"
	"cultural-map/internal/models"
)

var digitRun = regexp.MustCompile(`[0-9]+`)

// CensusService loads the census CSV and derives the map metrics
type CensusService struct {
	filePath string
	columns  config.Columns
	encoding string
}

// NewCensusService creates a new CensusService instance
func NewCensusService(filePath string, columns config.Columns, encoding string) *CensusService {
	return &CensusService{
		filePath: filePath,
		columns:  columns,
		encoding: encoding,
	}
}

// Load reads the whole file into a CensusTable. Any failure to open the file
// or find the expected columns is a *DataLoadError; unreadable rows are logged
// and skipped.
func (s *CensusService) Load() (*models.CensusTable, error) {
	file, err := os.Open(s.filePath)
	if err != nil {
		return nil, &DataLoadError{Path: s.filePath, Err: err}
	}
	defer file.Close()

	reader := csv.NewReader(bufio.NewReader(file))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			err = errors.New("file is empty")
		}
		return nil, &DataLoadError{Path: s.filePath, Err: fmt.Errorf("error reading CSV header: %w", err)}
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	idx, err := s.columnIndexes(header)
	if err != nil {
		return nil, &DataLoadError{Path: s.filePath, Err: err}
	}

	table := &models.CensusTable{
		Path:   s.filePath,
		Header: header,
		Rows:   make([]*models.RegionRecord, 0, 40),
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("Warning: skipping unreadable row in %s: %v", s.filePath, err)
			continue
		}
		line, _ := reader.FieldPos(0)
		table.Rows = append(table.Rows, s.parseRecord(record, idx, line))
	}

	table.Categories = EncodeCultures(table.Rows, s.encoding)
	return table, nil
}

type columnIndex struct {
	region, population, density, culture int
}

func (s *CensusService) columnIndexes(header []string) (columnIndex, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		if _, seen := positions[name]; !seen {
			positions[name] = i
		}
	}

	var missing []string
	lookup := func(name string) int {
		i, ok := positions[name]
		if !ok {
			missing = append(missing, name)
			return -1
		}
		return i
	}

	idx := columnIndex{
		region:     lookup(s.columns.Region),
		population: lookup(s.columns.Population),
		density:    lookup(s.columns.Density),
		culture:    lookup(s.columns.Culture),
	}
	if len(missing) > 0 {
		return idx, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return idx, nil
}

func (s *CensusService) parseRecord(record []string, idx columnIndex, line int) *models.RegionRecord {
	row := &models.RegionRecord{Line: line}

	field := func(i int, column string) string {
		if i >= len(record) || strings.TrimSpace(record[i]) == "" {
			row.Missing = append(row.Missing, column)
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	row.Name = field(idx.region, s.columns.Region)
	row.Population = field(idx.population, s.columns.Population)
	row.DensityRaw = field(idx.density, s.columns.Density)
	row.Culture = field(idx.culture, s.columns.Culture)

	row.PopulationValue = parsePopulation(row.Population)
	row.DensityCleaned = ExtractDensity(row.DensityRaw)
	return row
}

// ExtractDensity parses the first run of digits in raw, so "860/km2[19]"
// yields 860. It returns nil when raw holds no digits.
func ExtractDensity(raw string) *float64 {
	run := digitRun.FindString(raw)
	if run == "" {
		return nil
	}
	v, err := strconv.ParseFloat(run, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parsePopulation(raw string) *float64 {
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return nil
	}
	return &v
}

// EncodeCultures assigns CultureCode on every row and returns the category
// list, indexed by code. With first_occurrence encoding codes follow the order
// in which each description first appears; with sorted encoding they follow
// the sorted distinct descriptions. Rows without a culture get NoCultureCode.
func EncodeCultures(rows []*models.RegionRecord, encoding string) []string {
	categories := make([]string, 0, len(rows))
	codes := make(map[string]int, len(rows))

	for _, row := range rows {
		if row.Culture == "" {
			continue
		}
		if _, ok := codes[row.Culture]; !ok {
			codes[row.Culture] = len(categories)
			categories = append(categories, row.Culture)
		}
	}

	if encoding == config.EncodingSorted {
		slices.Sort(categories)
		for i, c := range categories {
			codes[c] = i
		}
	}

	for _, row := range rows {
		if row.Culture == "" {
			row.CultureCode = models.NoCultureCode
			continue
		}
		row.CultureCode = codes[row.Culture]
	}
	return categories
}
