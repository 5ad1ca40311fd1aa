package bronze

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func alimTestIndex() map[string]int {
	return headerIndex([]string{
		"app_libelle_etablissement", "siret", "adresse_2_ua", "code_postal",
		"libelle_commune", "date_inspection", "app_libelle_activite_etablissement",
		"synthese_eval_sanit", "app_code_synthese_eval_sanit", "geores",
	})
}

func TestMapAlimRow(t *testing.T) {
	record := []string{
		"LE BISTROT DE L'ÉCLUSE", "12345678901234", "12 QUAI DE LA LOIRE",
		"44000", "NANTES", "2026-05-06T00:00:00+02:00",
		"Restaurants", "Très satisfaisant", "1", "47.2184,-1.5536",
	}

	row, err := mapAlimRow(alimTestIndex(), record)
	require.NoError(t, err)
	require.Len(t, row, len(alimColumns))

	assert.Equal(t, "LE BISTROT DE L'ÉCLUSE", row[0])
	assert.Equal(t, "le bistrot de l'ecluse", row[1])
	assert.Equal(t, "12345678901234", row[2])
	assert.Equal(t, "NANTES", row[5])

	date, ok := row[6].(time.Time)
	require.True(t, ok)
	assert.Equal(t, "2026-05-06", date.Format("2006-01-02"))

	assert.Equal(t, "Très satisfaisant", row[8])
	assert.Equal(t, int16(1), row[9])
	assert.Equal(t, 47.2184, row[10])
	assert.Equal(t, -1.5536, row[11])
	assert.NotNil(t, row[12])
}

func TestMapAlimRow_SkipsMissingEstablishment(t *testing.T) {
	record := []string{"", "", "", "", "", "", "", "", "", ""}

	row, err := mapAlimRow(alimTestIndex(), record)
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestMapAlimRow_UnparseableFieldsLoadAsNull(t *testing.T) {
	record := []string{
		"CHEZ GERARD", "", "", "", "", "pas une date",
		"", "", "n/a", "pas un point",
	}

	row, err := mapAlimRow(alimTestIndex(), record)
	require.NoError(t, err)
	assert.Nil(t, row[6])  // date_inspection
	assert.Nil(t, row[9])  // code_synthese_eval
	assert.Nil(t, row[10]) // latitude
	assert.Nil(t, row[12]) // geom
}

func TestParseDate(t *testing.T) {
	d, ok := parseDate("2026-08-24")
	require.True(t, ok)
	assert.Equal(t, 2026, d.Year())

	d, ok = parseDate("2026-08-24T00:00:00+02:00")
	require.True(t, ok)
	assert.Equal(t, time.August, d.Month())

	_, ok = parseDate("24/08/2026")
	assert.False(t, ok)

	_, ok = parseDate("")
	assert.False(t, ok)
}
