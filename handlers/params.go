// handlers/params.go
package handlers

import (
	"errors"
	"strconv"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/opencovid/api/models"
	"github.com/opencovid/api/query"
	"github.com/opencovid/api/utils"
)

// Booleans are bound as strings so that a malformed value is reported against its
// parameter name instead of as a generic binding failure.

// outputParams selects json or csv. fmt is the older name for format.
type outputParams struct {
	Format string `form:"format" binding:"omitempty,oneof=json csv"`
	Fmt    string `form:"fmt" binding:"omitempty,oneof=json csv"`
}

func (p outputParams) format() string {
	if p.Format != "" {
		return p.Format
	}
	return p.Fmt
}

type tableParams struct {
	outputParams
	Geo     string   `form:"geo"`
	Loc     []string `form:"loc"`
	Date    string   `form:"date"`
	After   string   `form:"after"`
	Before  string   `form:"before"`
	Fill    string   `form:"fill" binding:"omitempty,boolean"`
	Version string   `form:"version" binding:"omitempty,boolean"`
	PTNames string   `form:"pt_names"`
	HRNames string   `form:"hr_names"`
}

type timeseriesParams struct {
	tableParams
	Stat   []string `form:"stat"`
	Legacy string   `form:"legacy" binding:"omitempty,boolean"`
}

type archiveParams struct {
	outputParams
	UUID                 []string `form:"uuid"`
	RemoveDuplicates     string   `form:"remove_duplicates" binding:"omitempty,boolean"`
	KeepOnlyFinalForDate string   `form:"keep_only_final_for_date" binding:"omitempty,boolean"`
	Date                 string   `form:"date"`
	After                string   `form:"after"`
	Before               string   `form:"before"`
}

type versionParams struct {
	Route    string `form:"route" binding:"omitempty,oneof=timeseries summary datasets archive"`
	DateOnly string `form:"date_only" binding:"omitempty,boolean"`
	// dateonly is the older spelling.
	DateOnlyAlias string `form:"dateonly" binding:"omitempty,boolean"`
}

type otherParams struct {
	Stat    string `form:"stat" binding:"omitempty,oneof=pt hr"`
	Version string `form:"version" binding:"omitempty,boolean"`
}

type refreshesParams struct {
	Source string `form:"source"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

// bindQuery binds the query string into dst and reports the first invalid parameter.
func bindQuery(c *gin.Context, dst any) error {
	err := c.ShouldBindQuery(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return query.InvalidParameter(verrs[0].Field())
	}
	return query.InvalidParameter("query parameters")
}

// flag reads a boolean parameter that has already passed validation.
func flag(s string, def bool) bool {
	if s == "" {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}

func (p tableParams) options(today civil.Date, fillDefault bool) (query.Options, error) {
	geo := models.GeoPT
	if p.Geo != "" {
		g, ok := models.ParseGeo(p.Geo)
		if !ok {
			return query.Options{}, query.InvalidParameter("geo")
		}
		geo = g
	}
	pt, ok := models.ParsePTNames(p.PTNames)
	if !ok {
		return query.Options{}, query.InvalidParameter("pt_names")
	}
	hr, ok := models.ParseHRNames(p.HRNames)
	if !ok {
		return query.Options{}, query.InvalidParameter("hr_names")
	}
	return query.Options{
		Geo:       geo,
		Locations: utils.SplitList(p.Loc),
		Date:      p.Date,
		After:     p.After,
		Before:    p.Before,
		Fill:      flag(p.Fill, fillDefault),
		Names:     query.Names{PT: pt, HR: hr},
		Version:   flag(p.Version, false),
		Today:     today,
	}, nil
}
