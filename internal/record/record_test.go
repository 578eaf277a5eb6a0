package record

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formrunner/internal/catalog"
	"formrunner/internal/form"
)

func TestNormalizeSynonymColumns(t *testing.T) {
	cases := []struct {
		name string
		raw  map[string]string
	}{
		{"lowercase website", map[string]string{"website": "https://example.com"}},
		{"capitalized Website", map[string]string{"Website": "https://example.com"}},
		{"url synonym", map[string]string{"URL": "https://example.com"}},
		{"site synonym", map[string]string{"Site": "https://example.com"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := Normalize(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, "https://example.com", rec.Website)
		})
	}
}

func TestNormalizeRequiresAbsoluteURL(t *testing.T) {
	for _, raw := range []map[string]string{
		{"Name": "John Smith"},
		{"website": ""},
		{"website": "example.com"},
		{"website": "ftp://example.com"},
	} {
		_, err := Normalize(raw)
		require.Error(t, err)
		var verr *ValidationError
		assert.True(t, errors.As(err, &verr))
		assert.Equal(t, "website", verr.Field)
	}
}

func TestNormalizeNameSplitting(t *testing.T) {
	rec, err := Normalize(map[string]string{
		"website": "https://example.com",
		"Name":    "John Smith",
	})
	require.NoError(t, err)
	assert.Equal(t, "John", rec.FirstName)
	assert.Equal(t, "Smith", rec.LastName)

	rec, err = Normalize(map[string]string{
		"website": "https://example.com",
		"Name":    "Madonna",
	})
	require.NoError(t, err)
	assert.Equal(t, "Madonna", rec.FirstName)
	assert.Equal(t, "", rec.LastName)
}

func TestNormalizeDiscreteNamesWinOverCombined(t *testing.T) {
	rec, err := Normalize(map[string]string{
		"website":    "https://example.com",
		"Name":       "Wrong Person",
		"First Name": "Ada",
		"Last Name":  "Lovelace",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada", rec.FirstName)
	assert.Equal(t, "Lovelace", rec.LastName)
}

func TestNormalizeDefaultsToEmptyStrings(t *testing.T) {
	rec, err := Normalize(map[string]string{"website": "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, "", rec.Email)
	assert.Equal(t, "", rec.Phone)
	assert.Equal(t, "", rec.Message)
	assert.Equal(t, "", rec.Company)
	assert.Equal(t, "", rec.Country)
}

func TestSplitName(t *testing.T) {
	first, last := SplitName("John  Maynard Smith")
	assert.Equal(t, "John", first)
	assert.Equal(t, "Maynard Smith", last)

	first, last = SplitName("   ")
	assert.Equal(t, "", first)
	assert.Equal(t, "", last)
}

func TestValueFor(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)

	rec := ContactRecord{
		Website:   "https://example.com",
		FirstName: "John",
		LastName:  "Smith",
		Email:     "john@example.com",
	}

	assert.Equal(t, "john@example.com", rec.ValueFor(form.KindEmail, cat))
	assert.Equal(t, "John Smith", rec.ValueFor(form.KindFullName, cat))
	// Empty record fields fall back to catalog defaults.
	assert.Equal(t, cat.DefaultFor("phone"), rec.ValueFor(form.KindPhone, cat))
	assert.Equal(t, cat.DefaultFor("country"), rec.ValueFor(form.KindCountry, cat))
	// Unknown kinds have no value at all.
	assert.Equal(t, "", rec.ValueFor(form.KindUnknown, cat))
}
