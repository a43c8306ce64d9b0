// scraper/csv_parser.go
package scraper

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/jszwec/csvutil"

	"github.com/opencovid/api/models"
	"github.com/opencovid/api/utils"
)

// metricRecord mirrors the columns of a metric table. Empty cells decode to nil.
type metricRecord struct {
	Name       string   `csv:"name"`
	Region     string   `csv:"region"`
	SubRegion1 string   `csv:"sub_region_1"`
	Date       string   `csv:"date"`
	Value      *float64 `csv:"value"`
	ValueDaily *float64 `csv:"value_daily"`
}

// ParseMetricCsv reads one metric table. A blank daily value reads as zero and a blank
// cumulative value is flagged for NewMetricTable to carry forward. Rows whose date cannot
// be parsed fail the whole table.
func ParseMetricCsv(reader io.Reader, metric string, geo models.Geo) ([]models.Observation, error) {
	var records []metricRecord

	// csvutil maps the header row onto the struct tags; absent columns (sub_region_1 on
	// pt and can tables) are left empty.
	decoder, err := csvutil.NewDecoder(csv.NewReader(reader))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create CSV decoder for %s: %w", ErrParse, models.TableName(metric, geo), err)
	}
	if err := decoder.Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s: %w", ErrParse, models.TableName(metric, geo), err)
	}

	rows := make([]models.Observation, 0, len(records))
	for i, r := range records {
		parsed := utils.ParseDate(r.Date)
		if !parsed.OK {
			return nil, fmt.Errorf("%w: %s row %d: invalid date %q", ErrParse, models.TableName(metric, geo), i+2, r.Date)
		}
		name := r.Name
		if name == "" {
			name = metric
		}
		rows = append(rows, models.Observation{
			Name:         name,
			Region:       strings.TrimSpace(r.Region),
			SubRegion1:   strings.TrimSpace(r.SubRegion1),
			Date:         parsed.Date,
			Value:        deref(r.Value),
			ValueDaily:   deref(r.ValueDaily),
			ValueMissing: r.Value == nil,
		})
	}
	return rows, nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// ParsePtCsv reads the province/territory reference table.
func ParsePtCsv(reader io.Reader) ([]models.ProvinceTerritory, error) {
	var pt []models.ProvinceTerritory
	decoder, err := csvutil.NewDecoder(csv.NewReader(reader))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create CSV decoder for pt: %w", ErrParse, err)
	}
	if err := decoder.Decode(&pt); err != nil {
		return nil, fmt.Errorf("%w: failed to decode pt: %w", ErrParse, err)
	}
	return pt, nil
}

// ParseHrCsv reads the health region reference table.
func ParseHrCsv(reader io.Reader) ([]models.HealthRegion, error) {
	var hr []models.HealthRegion
	decoder, err := csvutil.NewDecoder(csv.NewReader(reader))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create CSV decoder for hr: %w", ErrParse, err)
	}
	if err := decoder.Decode(&hr); err != nil {
		return nil, fmt.Errorf("%w: failed to decode hr: %w", ErrParse, err)
	}
	return hr, nil
}

// ParseFileIndexCsv reads archive/file_index.csv.
func ParseFileIndexCsv(reader io.Reader) ([]models.FileIndexRow, error) {
	var rows []models.FileIndexRow
	decoder, err := csvutil.NewDecoder(csv.NewReader(reader))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create CSV decoder for file index: %w", ErrParse, err)
	}
	if err := decoder.Decode(&rows); err != nil {
		return nil, fmt.Errorf("%w: failed to decode file index: %w", ErrParse, err)
	}
	return rows, nil
}
