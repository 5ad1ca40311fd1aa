package bronze

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// PointEWKB encodes a WGS84 longitude/latitude pair as EWKB bytes with
// SRID 4326, suitable for COPY into a geometry(Point, 4326) column.
func PointEWKB(lng, lat float64) ([]byte, error) {
	g := geom.NewPointFlat(geom.XY, []float64{lng, lat}).SetSRID(4326)

	data, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "bronze: encode point")
	}
	return data, nil
}
