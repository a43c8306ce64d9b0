// models/geo.go
package models

import "strings"

// Geo is a geography level.
type Geo string

const (
	GeoPT  Geo = "pt"
	GeoHR  Geo = "hr"
	GeoCAN Geo = "can"
)

// ParseGeo accepts pt, hr or can (case-insensitive).
func ParseGeo(s string) (Geo, bool) {
	switch g := Geo(strings.ToLower(strings.TrimSpace(s))); g {
	case GeoPT, GeoHR, GeoCAN:
		return g, true
	}
	return "", false
}

// HasSubRegion reports whether tables at this level carry a sub_region_1 column.
func (g Geo) HasSubRegion() bool { return g == GeoHR }

// CanadaRegion is the region value used by national tables.
const CanadaRegion = "CAN"

// UnknownHRUID is the health region id reserved for cases that could not be assigned to a
// health region. It is not tied to any province.
const UnknownHRUID = "9999"

// NameVariant selects how region and sub-region identifiers are displayed.
type NameVariant string

const (
	NameShort     NameVariant = "short"
	NameCanonical NameVariant = "canonical"
	NamePRUID     NameVariant = "pruid"
	NameHRUID     NameVariant = "hruid"
	NameCCODWG    NameVariant = "ccodwg"
)

// ParsePTNames validates a pt_names value. Empty means the default (short code).
func ParsePTNames(s string) (NameVariant, bool) {
	switch v := NameVariant(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return NameShort, true
	case NameShort, NameCanonical, NamePRUID, NameCCODWG:
		return v, true
	}
	return "", false
}

// ParseHRNames validates an hr_names value. Empty means the default (numeric id).
func ParseHRNames(s string) (NameVariant, bool) {
	switch v := NameVariant(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return NameHRUID, true
	case NameHRUID, NameShort, NameCanonical, NameCCODWG:
		return v, true
	}
	return "", false
}

// ProvinceTerritory is one row of geo/pt.csv.
type ProvinceTerritory struct {
	Region        string `csv:"region" json:"region"` // two-letter code, e.g. "ON"
	NameCanonical string `csv:"name_canonical" json:"name_canonical"`
	PRUID         string `csv:"pruid" json:"pruid"`
	NameCCODWG    string `csv:"name_ccodwg" json:"name_ccodwg"`
}

// HealthRegion is one row of geo/hr.csv.
type HealthRegion struct {
	Region        string `csv:"region" json:"region"` // parent PT code
	HRUID         string `csv:"hruid" json:"hruid"`
	NameCanonical string `csv:"name_canonical" json:"name_canonical"`
	NameShort     string `csv:"name_short" json:"name_short"`
	NameCCODWG    string `csv:"name_ccodwg" json:"name_ccodwg"`
}

var unknownHRNames = map[NameVariant]string{
	NameHRUID:     UnknownHRUID,
	NameShort:     "Unknown",
	NameCanonical: "Unknown",
	NameCCODWG:    "Not Reported",
}

// GeoReference indexes the PT and HR lookup tables. It is built once per snapshot and is
// read-only afterwards.
type GeoReference struct {
	PT []ProvinceTerritory
	HR []HealthRegion

	ptByCode map[string]ProvinceTerritory
	hrByID   map[string]HealthRegion
}

// NewGeoReference indexes the given rows. The unknown health region always resolves even if
// the upstream table leaves it out.
func NewGeoReference(pt []ProvinceTerritory, hr []HealthRegion) *GeoReference {
	g := &GeoReference{
		PT:       pt,
		HR:       hr,
		ptByCode: make(map[string]ProvinceTerritory, len(pt)),
		hrByID:   make(map[string]HealthRegion, len(hr)+1),
	}
	for _, p := range pt {
		g.ptByCode[strings.ToUpper(p.Region)] = p
	}
	for _, h := range hr {
		g.hrByID[h.HRUID] = h
	}
	if _, ok := g.hrByID[UnknownHRUID]; !ok {
		g.hrByID[UnknownHRUID] = HealthRegion{
			HRUID:         UnknownHRUID,
			NameCanonical: unknownHRNames[NameCanonical],
			NameShort:     unknownHRNames[NameShort],
			NameCCODWG:    unknownHRNames[NameCCODWG],
		}
	}
	return g
}

// PTByCode looks up a province or territory by its two-letter code.
func (g *GeoReference) PTByCode(code string) (ProvinceTerritory, bool) {
	p, ok := g.ptByCode[strings.ToUpper(code)]
	return p, ok
}

// HRByID looks up a health region by id.
func (g *GeoReference) HRByID(id string) (HealthRegion, bool) {
	h, ok := g.hrByID[id]
	return h, ok
}

// PTName renders a PT code in the requested variant. Unmapped codes are returned as-is.
func (g *GeoReference) PTName(code string, v NameVariant) string {
	p, ok := g.PTByCode(code)
	if !ok {
		return code
	}
	switch v {
	case NameCanonical:
		return p.NameCanonical
	case NamePRUID:
		return p.PRUID
	case NameCCODWG:
		return p.NameCCODWG
	default:
		return p.Region
	}
}

// PTCode is the inverse of PTName.
func (g *GeoReference) PTCode(name string, v NameVariant) (string, bool) {
	for _, p := range g.PT {
		if g.PTName(p.Region, v) == name {
			return p.Region, true
		}
	}
	return "", false
}

// HRName renders a health region id in the requested variant. Ids missing from the
// reference table and the unknown region both resolve to the variant's placeholder.
func (g *GeoReference) HRName(id string, v NameVariant) string {
	h, ok := g.HRByID(id)
	if !ok || id == UnknownHRUID {
		if label, ok := unknownHRNames[v]; ok {
			return label
		}
		return UnknownHRUID
	}
	switch v {
	case NameShort:
		return h.NameShort
	case NameCanonical:
		return h.NameCanonical
	case NameCCODWG:
		return h.NameCCODWG
	default:
		return h.HRUID
	}
}
