// query/fill.go
package query

import (
	"cloud.google.com/go/civil"

	"github.com/opencovid/api/models"
)

// Fill densifies rows (sorted by location group, then date) to one row per day per group,
// from the earliest date in the table through end. Inserted rows carry a daily change of
// zero and the group's last cumulative value, or zero before its first observation.
// Observed rows are never altered and never dropped, even past end.
func Fill(rows []models.Observation, end civil.Date) []models.Observation {
	start, last, ok := dateBounds(rows)
	if !ok {
		return rows
	}
	return fillBetween(rows, start, last, end)
}

// dateBounds returns the earliest and latest date in rows.
func dateBounds(rows []models.Observation) (first, last civil.Date, ok bool) {
	if len(rows) == 0 {
		return civil.Date{}, civil.Date{}, false
	}
	first, last = rows[0].Date, rows[0].Date
	for _, r := range rows {
		if r.Date.Before(first) {
			first = r.Date
		}
		if r.Date.After(last) {
			last = r.Date
		}
	}
	return first, last, true
}

// fillBetween fills every group of rows over [start, max(end, last)]. start and last are
// the bounds of the whole table, which may be wider than rows after location filtering.
func fillBetween(rows []models.Observation, start, last, end civil.Date) []models.Observation {
	if len(rows) == 0 {
		return rows
	}
	if !end.IsValid() || end.Before(last) {
		end = last
	}

	groups := models.GroupRows(rows)
	days := end.DaysSince(start) + 1
	out := make([]models.Observation, 0, len(groups)*days)
	for _, g := range groups {
		proto := g[0]
		cumulative := 0.0
		i := 0
		for d := start; !d.After(end); d = d.AddDays(1) {
			if i < len(g) && g[i].Date == d {
				cumulative = g[i].Value
				out = append(out, g[i])
				i++
				continue
			}
			out = append(out, models.Observation{
				Name:       proto.Name,
				Region:     proto.Region,
				SubRegion1: proto.SubRegion1,
				Date:       d,
				Value:      cumulative,
			})
		}
	}
	return out
}

// fillEnd is the last day a fill covers: the latest observation for historical queries
// (a before bound was given) and today otherwise.
func fillEnd(historical bool, today civil.Date) civil.Date {
	if historical {
		return civil.Date{}
	}
	return today
}
