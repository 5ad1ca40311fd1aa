package bronze

import (
	"context"
	"strconv"
	"time"

	"github.com/SurEtBon/backend/internal/runlog"
)

// alimColumns are the COPY targets for bronze.export_alimconfiance.
var alimColumns = []string{
	"etablissement", "name_normalized", "siret", "adresse", "code_postal",
	"commune", "date_inspection", "activite", "synthese_eval",
	"code_synthese_eval", "latitude", "longitude", "geom",
}

// LoadAlimConfiance downloads the current Alim'Confiance inspection export,
// archives it, and loads it into bronze.export_alimconfiance. The export has
// no published snapshot cadence, so the run date labels the archive.
func (l *Loader) LoadAlimConfiance(ctx context.Context) (*runlog.Run, error) {
	ds, err := LookupDataset("export_alimconfiance")
	if err != nil {
		return nil, err
	}
	return l.load(ctx, ds, time.Now().Format("2006-01-02"), alimColumns, mapAlimRow)
}

// mapAlimRow converts one inspection record to COPY values. Records without
// an establishment name are skipped.
func mapAlimRow(idx map[string]int, record []string) ([]any, error) {
	etablissement := field(idx, record, "app_libelle_etablissement")
	if etablissement == "" {
		return nil, nil
	}

	var dateVal any
	if d, ok := parseDate(field(idx, record, "date_inspection")); ok {
		dateVal = d
	}

	var codeVal any
	if code, err := strconv.Atoi(field(idx, record, "app_code_synthese_eval_sanit")); err == nil {
		codeVal = int16(code)
	}

	var latVal, lngVal, geomVal any
	if lat, lng, ok := parseGeoPoint(field(idx, record, "geores")); ok {
		ewkbData, err := PointEWKB(lng, lat)
		if err != nil {
			return nil, err
		}
		latVal, lngVal, geomVal = lat, lng, ewkbData
	}

	return []any{
		etablissement,
		nullable(NormalizeName(etablissement)),
		nullable(field(idx, record, "siret")),
		nullable(field(idx, record, "adresse_2_ua")),
		nullable(field(idx, record, "code_postal")),
		nullable(field(idx, record, "libelle_commune")),
		dateVal,
		nullable(field(idx, record, "app_libelle_activite_etablissement")),
		nullable(field(idx, record, "synthese_eval_sanit")),
		codeVal,
		latVal,
		lngVal,
		geomVal,
	}, nil
}
