// models/version.go
package models

import (
	"net/http"
	"strings"

	"cloud.google.com/go/civil"
)

// Version is an upstream source's freshness marker. Token is opaque and compared for
// equality only. Date is set when the token carries a calendar date.
type Version struct {
	Token string
	Date  civil.Date
}

// NewVersion wraps a token and derives Date from it. Both the update_time.txt form
// ("2023-06-01 14:30 EDT") and HTTP Last-Modified values are understood.
func NewVersion(token string) Version {
	v := Version{Token: strings.TrimSpace(token)}
	if f := strings.Fields(v.Token); len(f) > 0 {
		if d, err := civil.ParseDate(f[0]); err == nil {
			v.Date = d
			return v
		}
	}
	if t, err := http.ParseTime(v.Token); err == nil {
		v.Date = civil.DateOf(t)
	}
	return v
}

// Equal is the only freshness test: two tokens are the same version iff they are equal.
func (v Version) Equal(other Version) bool {
	return v.Token == other.Token
}

// DateOnly returns the calendar date of the version, or the token's first field when it
// has none.
func (v Version) DateOnly() string {
	if v.Date.IsValid() {
		return v.Date.String()
	}
	if f := strings.Fields(v.Token); len(f) > 0 {
		return f[0]
	}
	return ""
}
