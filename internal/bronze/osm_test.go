package bronze

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSMSnapshotDate(t *testing.T) {
	tests := []struct {
		name string
		now  string
		want string
	}{
		{"monday uses today", "2026-08-24", "2026-08-24"},
		{"tuesday uses previous monday", "2026-08-25", "2026-08-24"},
		{"sunday uses previous monday", "2026-08-30", "2026-08-24"},
		{"saturday uses previous monday", "2026-08-29", "2026-08-24"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now, err := time.Parse("2006-01-02", tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, OSMSnapshotDate(now))
		})
	}
}

func osmTestIndex() map[string]int {
	return headerIndex([]string{
		"name", "type", "brand", "operator", "cuisine", "opening_hours",
		"phone", "website", "siret", "meta_osm_id", "meta_code_com",
		"meta_name_com", "meta_geo_point",
	})
}

func TestMapOSMRow(t *testing.T) {
	record := []string{
		"Crêperie du Port", "restaurant", "", "", "crepe", "Mo-Su 12:00-22:00",
		"+33 2 98 00 00 00", "https://example.fr", "12345678901234",
		"node/123456", "29232", "Quimper", "47.9960, -4.1024",
	}

	row, err := mapOSMRow(osmTestIndex(), record)
	require.NoError(t, err)
	require.Len(t, row, len(osmColumns))

	assert.Equal(t, "node/123456", row[0])
	assert.Equal(t, "Crêperie du Port", row[1])
	assert.Equal(t, "creperie du port", row[2])
	assert.Equal(t, "restaurant", row[3])
	assert.Nil(t, row[4]) // empty brand loads as NULL
	assert.Equal(t, 47.9960, row[13])
	assert.Equal(t, -4.1024, row[14])
	assert.NotNil(t, row[15]) // EWKB geometry
}

func TestMapOSMRow_SkipsMissingID(t *testing.T) {
	record := []string{
		"Sans ID", "restaurant", "", "", "", "", "", "", "", "", "", "", "48.0, 2.0",
	}

	row, err := mapOSMRow(osmTestIndex(), record)
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestMapOSMRow_MissingCoordinates(t *testing.T) {
	record := []string{
		"Chez Gérard", "bar", "", "", "", "", "", "", "", "node/99", "", "", "",
	}

	row, err := mapOSMRow(osmTestIndex(), record)
	require.NoError(t, err)
	require.Len(t, row, len(osmColumns))
	assert.Nil(t, row[13])
	assert.Nil(t, row[14])
	assert.Nil(t, row[15])
}

func TestParseGeoPoint(t *testing.T) {
	lat, lng, ok := parseGeoPoint("48.8530, 2.3499")
	require.True(t, ok)
	assert.InDelta(t, 48.8530, lat, 1e-9)
	assert.InDelta(t, 2.3499, lng, 1e-9)

	_, _, ok = parseGeoPoint("")
	assert.False(t, ok)

	_, _, ok = parseGeoPoint("not-a-point")
	assert.False(t, ok)

	_, _, ok = parseGeoPoint("48.8, abc")
	assert.False(t, ok)
}
