// query/names.go
package query

import (
	"math"

	"github.com/opencovid/api/models"
)

// Names selects the display variant for regions and sub-regions.
type Names struct {
	PT models.NameVariant
	HR models.NameVariant
}

// DefaultNames renders PT codes and HR ids unchanged.
var DefaultNames = Names{PT: models.NameShort, HR: models.NameHRUID}

func (n Names) region(ref *models.GeoReference, code string) string {
	return ref.PTName(code, n.PT)
}

func (n Names) subRegion(ref *models.GeoReference, id string) string {
	return ref.HRName(id, n.HR)
}

// Columns of a record, in output order.
const (
	colName       = "name"
	colRegion     = "region"
	colSubRegion  = "sub_region_1"
	colDate       = "date"
	colValue      = "value"
	colValueDaily = "value_daily"
)

func recordColumns(geo models.Geo) []string {
	if geo.HasSubRegion() {
		return []string{colName, colRegion, colSubRegion, colDate, colValue, colValueDaily}
	}
	return []string{colName, colRegion, colDate, colValue, colValueDaily}
}

// toFrame renders observations with resolved names.
func toFrame(rows []models.Observation, geo models.Geo, ref *models.GeoReference, names Names) *Frame {
	f := &Frame{Columns: recordColumns(geo), Rows: make([][]any, 0, len(rows))}
	for _, o := range rows {
		row := make([]any, 0, len(f.Columns))
		row = append(row, o.Name, names.region(ref, o.Region))
		if geo.HasSubRegion() {
			row = append(row, names.subRegion(ref, o.SubRegion1))
		}
		row = append(row, o.Date.String(), o.Value, o.ValueDaily)
		f.Rows = append(f.Rows, row)
	}
	return f
}

// toLegacyFrame renders observations under the metric's historical column names:
// province, [health_region], <date column>, <daily>, cumulative_<daily>.
func toLegacyFrame(rows []models.Observation, m models.MetricSchema, geo models.Geo, ref *models.GeoReference, names Names) *Frame {
	cols := []string{"province"}
	if geo.HasSubRegion() {
		cols = append(cols, "health_region")
	}
	cols = append(cols, m.LegacyDate, m.LegacyDaily, m.LegacyCumulative)

	f := &Frame{Columns: cols, Rows: make([][]any, 0, len(rows))}
	for _, o := range rows {
		row := make([]any, 0, len(cols))
		row = append(row, names.region(ref, o.Region))
		if geo.HasSubRegion() {
			row = append(row, names.subRegion(ref, o.SubRegion1))
		}
		row = append(row, o.Date.String(), integral(o.ValueDaily), integral(o.Value))
		f.Rows = append(f.Rows, row)
	}
	return f
}

func integral(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return int64(math.Round(v))
}
