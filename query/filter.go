// query/filter.go
package query

import (
	"github.com/opencovid/api/models"
	"github.com/opencovid/api/utils"
)

// LocationFilter keeps rows whose region or sub-region was requested. The zero value keeps
// every row.
type LocationFilter struct {
	regions    map[string]bool
	subRegions map[string]bool
}

// Active reports whether the filter drops anything.
func (f LocationFilter) Active() bool {
	return len(f.regions) > 0 || len(f.subRegions) > 0
}

func (f LocationFilter) Match(o models.Observation) bool {
	if !f.Active() {
		return true
	}
	return f.regions[o.Region] || f.subRegions[o.SubRegion1]
}

// ResolveLocations validates loc tokens against the geography reference. At pt level
// tokens are PT codes; at hr level they may be PT codes or HR ids; at can level only
// CAN is accepted and nothing is filtered. Tokens that do not resolve are dropped, and
// if none resolve the request fails with ErrInvalidLocation.
func ResolveLocations(geo models.Geo, tokens []string, ref *models.GeoReference) (LocationFilter, error) {
	tokens = utils.NormalizeLocationTokens(tokens)
	if len(tokens) == 0 {
		return LocationFilter{}, nil
	}

	f := LocationFilter{regions: map[string]bool{}, subRegions: map[string]bool{}}
	valid := 0
	for _, tok := range tokens {
		switch geo {
		case models.GeoCAN:
			if tok == models.CanadaRegion {
				valid++
			}
		case models.GeoPT:
			if p, ok := ref.PTByCode(tok); ok {
				f.regions[p.Region] = true
				valid++
			}
		case models.GeoHR:
			if p, ok := ref.PTByCode(tok); ok {
				f.regions[p.Region] = true
				valid++
			} else if h, ok := ref.HRByID(tok); ok {
				f.subRegions[h.HRUID] = true
				valid++
			}
		}
	}
	if valid == 0 {
		return LocationFilter{}, ErrInvalidLocation
	}
	if geo == models.GeoCAN {
		return LocationFilter{}, nil
	}
	return f, nil
}

func filterLocations(rows []models.Observation, f LocationFilter) []models.Observation {
	if !f.Active() {
		return rows
	}
	out := make([]models.Observation, 0, len(rows))
	for _, r := range rows {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// DateFilter selects rows by date. Exactly one form applies, in this order: an exact
// date, the last N rows per location, the first N rows per location, then the
// after/before range.
type DateFilter struct {
	Arg    utils.DateArg
	After  utils.ParsedDate
	Before utils.ParsedDate
	// LatestIfInvalid turns an unparseable date into "the last row per location" instead
	// of ignoring it.
	LatestIfInvalid bool
}

// NewDateFilter parses the raw date, after and before values.
func NewDateFilter(date, after, before string, latestIfInvalid bool) DateFilter {
	return DateFilter{
		Arg:             utils.ParseDateArg(date),
		After:           utils.ParseDate(after),
		Before:          utils.ParseDate(before),
		LatestIfInvalid: latestIfInvalid,
	}
}

// Empty reports whether no usable date constraint was given.
func (f DateFilter) Empty() bool {
	return f.Arg.Kind == utils.DateArgNone && !f.After.OK && !f.Before.OK
}

// Apply filters rows sorted by location group and date.
func (f DateFilter) Apply(rows []models.Observation) []models.Observation {
	arg := f.Arg
	if arg.Kind == utils.DateArgInvalid {
		if f.LatestIfInvalid {
			arg = utils.DateArg{Kind: utils.DateArgLast, N: 1}
		} else {
			arg = utils.DateArg{Kind: utils.DateArgNone}
		}
	}

	switch arg.Kind {
	case utils.DateArgExact:
		return keep(rows, func(o models.Observation) bool { return o.Date == arg.Date })
	case utils.DateArgLast:
		return window(rows, arg.N, true)
	case utils.DateArgFirst:
		return window(rows, arg.N, false)
	}

	if !f.After.OK && !f.Before.OK {
		return rows
	}
	return keep(rows, func(o models.Observation) bool {
		if f.After.OK && o.Date.Before(f.After.Date) {
			return false
		}
		if f.Before.OK && o.Date.After(f.Before.Date) {
			return false
		}
		return true
	})
}

func keep(rows []models.Observation, pred func(models.Observation) bool) []models.Observation {
	out := make([]models.Observation, 0, len(rows))
	for _, r := range rows {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}

// window keeps n rows from the end (last) or start of every location group.
func window(rows []models.Observation, n int, last bool) []models.Observation {
	if n <= 0 {
		return nil
	}
	var out []models.Observation
	for _, g := range models.GroupRows(rows) {
		if len(g) > n {
			if last {
				g = g[len(g)-n:]
			} else {
				g = g[:n]
			}
		}
		out = append(out, g...)
	}
	return out
}
