package bronze

import (
	"context"
	"time"

	"github.com/SurEtBon/backend/internal/runlog"
)

// osmColumns are the COPY targets for bronze.osm_france_food_service.
// The geohash column is derived in the database after the load.
var osmColumns = []string{
	"osm_id", "name", "name_normalized", "category", "brand", "operator",
	"cuisine", "opening_hours", "phone", "website", "siret",
	"code_commune", "nom_commune", "latitude", "longitude", "geom",
}

// OSMSnapshotDate returns the snapshot date label for the OSM dataset.
// OpenDataSoft refreshes it weekly on Mondays, so the label is the most
// recent Monday (today, if today is a Monday).
func OSMSnapshotDate(now time.Time) string {
	daysSinceMonday := (int(now.Weekday()) + 6) % 7
	return now.AddDate(0, 0, -daysSinceMonday).Format("2006-01-02")
}

// LoadOSM downloads the current OSM France food service snapshot, archives
// it, and loads it into bronze.osm_france_food_service.
func (l *Loader) LoadOSM(ctx context.Context) (*runlog.Run, error) {
	ds, err := LookupDataset("osm_france_food_service")
	if err != nil {
		return nil, err
	}
	return l.load(ctx, ds, OSMSnapshotDate(time.Now()), osmColumns, mapOSMRow)
}

// mapOSMRow converts one export record to COPY values. Records without an
// OSM id are skipped; records without coordinates load with NULL geometry.
func mapOSMRow(idx map[string]int, record []string) ([]any, error) {
	osmID := field(idx, record, "meta_osm_id")
	if osmID == "" {
		return nil, nil
	}

	name := field(idx, record, "name")

	var latVal, lngVal, geomVal any
	if lat, lng, ok := parseGeoPoint(field(idx, record, "meta_geo_point")); ok {
		ewkbData, err := PointEWKB(lng, lat)
		if err != nil {
			return nil, err
		}
		latVal, lngVal, geomVal = lat, lng, ewkbData
	}

	return []any{
		osmID,
		nullable(name),
		nullable(NormalizeName(name)),
		nullable(field(idx, record, "type")),
		nullable(field(idx, record, "brand")),
		nullable(field(idx, record, "operator")),
		nullable(field(idx, record, "cuisine")),
		nullable(field(idx, record, "opening_hours")),
		nullable(field(idx, record, "phone")),
		nullable(field(idx, record, "website")),
		nullable(field(idx, record, "siret")),
		nullable(field(idx, record, "meta_code_com")),
		nullable(field(idx, record, "meta_name_com")),
		latVal,
		lngVal,
		geomVal,
	}, nil
}
