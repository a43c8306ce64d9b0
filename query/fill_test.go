package query

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencovid/api/models"
)

func TestFillInsertsMissingDays(t *testing.T) {
	rows := testTimeseries().Tables["cases_hr"].Rows
	filled := Fill(rows, day("2022-01-05"))

	require.Len(t, filled, 18, "3 groups x 6 days")

	var toronto []models.Observation
	for _, o := range filled {
		if o.SubRegion1 == "3595" {
			toronto = append(toronto, o)
		}
	}
	require.Len(t, toronto, 6)
	assert.Equal(t, obs("cases", "ON", "3595", "2021-12-31", 0, 0), toronto[0], "leading cumulative is zero")
	assert.Equal(t, obs("cases", "ON", "3595", "2022-01-01", 1000, 50), toronto[1])
	assert.Equal(t, obs("cases", "ON", "3595", "2022-01-02", 1000, 0), toronto[2], "gap is forward filled")
	assert.Equal(t, obs("cases", "ON", "3595", "2022-01-05", 1100, 0), toronto[5])
}

func TestFillHistoricalStopsAtLatestObservation(t *testing.T) {
	rows := testTimeseries().Tables["cases_hr"].Rows
	filled := Fill(rows, fillEnd(true, day("2022-01-05")))
	require.Len(t, filled, 12, "3 groups x 4 days")
	assert.Equal(t, "2022-01-03", filled[len(filled)-1].Date.String())
}

func TestFillNeverDropsObservations(t *testing.T) {
	rows := testTimeseries().Tables["cases_pt"].Rows
	filled := Fill(rows, day("2021-06-01"))
	assert.Len(t, filled, 6, "end before the last observation extends to it")
}

func TestFillIsIdempotent(t *testing.T) {
	rows := testTimeseries().Tables["cases_hr"].Rows
	end := day("2022-01-05")
	once := Fill(rows, end)
	twice := Fill(once, end)
	assert.Equal(t, once, twice)
}

func TestFillDeltasAndCumulative(t *testing.T) {
	for name, tbl := range testTimeseries().Tables {
		original := make(map[models.GroupKey]map[string]bool)
		for _, o := range tbl.Rows {
			if original[o.Key()] == nil {
				original[o.Key()] = map[string]bool{}
			}
			original[o.Key()][o.Date.String()] = true
		}

		filled := Fill(tbl.Rows, day("2022-01-10"))
		for _, g := range models.GroupRows(filled) {
			for i, o := range g {
				if !original[o.Key()][o.Date.String()] {
					assert.Zero(t, o.ValueDaily, "%s: inserted delta", name)
					assert.Equal(t, math.Trunc(o.ValueDaily), o.ValueDaily)
				}
				if i > 0 {
					assert.GreaterOrEqual(t, o.Value, g[i-1].Value, "%s: cumulative is monotone", name)
					assert.Equal(t, 1, o.Date.DaysSince(g[i-1].Date), "%s: no gaps", name)
				}
			}
		}
	}
}

func TestFillAfterBlankCumulative(t *testing.T) {
	blank := obs("cases", "ON", "", "2022-01-02", 0, 0)
	blank.ValueMissing = true
	table, _ := models.NewMetricTable("cases", models.GeoPT, []models.Observation{
		obs("cases", "ON", "", "2022-01-01", 100, 10),
		blank,
		obs("cases", "ON", "", "2022-01-03", 120, 10),
	})

	filled := Fill(table.Rows, day("2022-01-04"))
	require.Len(t, filled, 4)
	assert.Equal(t, obs("cases", "ON", "", "2022-01-02", 100, 0), filled[1])
	assert.Equal(t, obs("cases", "ON", "", "2022-01-04", 120, 0), filled[3])
	for i := 1; i < len(filled); i++ {
		assert.GreaterOrEqual(t, filled[i].Value, filled[i-1].Value)
	}
}

func TestFillEmpty(t *testing.T) {
	assert.Empty(t, Fill(nil, day("2022-01-01")))
}
