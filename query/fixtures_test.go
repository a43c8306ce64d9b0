package query

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/opencovid/api/models"
	"github.com/opencovid/api/snapshot"
)

func day(s string) civil.Date {
	d, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func obs(name, region, sub, date string, value, daily float64) models.Observation {
	return models.Observation{Name: name, Region: region, SubRegion1: sub, Date: day(date), Value: value, ValueDaily: daily}
}

func testGeoRef() *models.GeoReference {
	return models.NewGeoReference(
		[]models.ProvinceTerritory{
			{Region: "AB", NameCanonical: "Alberta", PRUID: "48", NameCCODWG: "Alberta"},
			{Region: "ON", NameCanonical: "Ontario", PRUID: "35", NameCCODWG: "Ontario"},
		},
		[]models.HealthRegion{
			{Region: "AB", HRUID: "4832", NameCanonical: "Calgary Zone", NameShort: "Calgary", NameCCODWG: "Calgary"},
			{Region: "ON", HRUID: "3595", NameCanonical: "City of Toronto Health Unit", NameShort: "Toronto", NameCCODWG: "Toronto"},
		},
	)
}

func table(metric string, geo models.Geo, rows ...models.Observation) *models.MetricTable {
	t, _ := models.NewMetricTable(metric, geo, rows)
	return t
}

func testTimeseries() *models.Timeseries {
	tables := []*models.MetricTable{
		table("cases", models.GeoHR,
			obs("cases", "ON", "3595", "2022-01-01", 1000, 50),
			obs("cases", "ON", "3595", "2022-01-03", 1100, 100),
			obs("cases", "ON", "9999", "2022-01-02", 5, 5),
			obs("cases", "AB", "4832", "2021-12-31", 10, 10),
			obs("cases", "AB", "4832", "2022-01-01", 12, 2),
		),
		table("cases", models.GeoPT,
			obs("cases", "ON", "", "2022-01-01", 2000, 100),
			obs("cases", "ON", "", "2022-01-02", 2100, 100),
			obs("cases", "ON", "", "2022-01-03", 2150, 50),
			obs("cases", "AB", "", "2022-01-01", 500, 20),
		),
		table("deaths", models.GeoPT,
			obs("deaths", "ON", "", "2022-01-02", 10, 1),
			obs("deaths", "ON", "", "2022-01-03", 11.4, 1.4),
		),
		table("cases", models.GeoCAN,
			obs("cases", "CAN", "", "2022-01-01", 3000, 120),
			obs("cases", "CAN", "", "2022-01-02", 3150, 150),
			obs("cases", "CAN", "", "2022-01-03", 3250, 100),
		),
	}
	ts := &models.Timeseries{Tables: map[string]*models.MetricTable{}, Geo: testGeoRef()}
	for _, t := range tables {
		ts.Tables[models.TableName(t.Metric, t.Geo)] = t
	}
	return ts
}

func testSnapshot() *snapshot.Snapshot[*models.Timeseries] {
	return &snapshot.Snapshot[*models.Timeseries]{
		Version:  models.NewVersion("2022-01-03 21:00 EST"),
		Data:     testTimeseries(),
		LoadedAt: time.Date(2022, 1, 3, 21, 5, 0, 0, time.UTC),
	}
}

func opts(geo models.Geo) Options {
	return Options{Geo: geo, Names: DefaultNames, Today: day("2022-01-05")}
}
