package i18n

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	d, err := Load()
	require.NoError(t, err)

	tests := map[string]string{
		"en":    "en",
		"fr":    "fr",
		"ar":    "ar",
		"fr-FR": "fr",
		"ar-MA": "ar",
		"de":    "en",
		"":      "en",
		"zz-ZZ": "en",
	}
	for in, want := range tests {
		assert.Equal(t, want, d.Resolve(in), "locale %q", in)
	}
}

func TestLookupAndFallback(t *testing.T) {
	d, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Properties", d.Lookup("en", "properties.title"))
	assert.Equal(t, "Propriétés", d.Lookup("fr", "properties.title"))
	assert.Equal(t, "Tanger", d.Lookup("fr", "home.locations.tangier"))
	assert.Equal(t, "Properties", d.Lookup("xx", "properties.title"))
	assert.Equal(t, "properties.nothing", d.Lookup("en", "properties.nothing"))
	assert.Equal(t, "properties.filter", d.Lookup("en", "properties.filter"))

	section, ok := d.Section("en", "properties.sort").(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Newest", section["newest"])
}

func TestEveryLocaleNamesEveryLocation(t *testing.T) {
	d, err := Load()
	require.NoError(t, err)

	for _, locale := range Supported {
		for _, city := range Locations {
			key := "home.locations." + city
			assert.NotEqual(t, key, d.Lookup(locale, key), "%s missing %s", locale, city)
		}
	}
}

func TestLoadFSReportsMissingBundle(t *testing.T) {
	fsys := fstest.MapFS{
		"dicts/en.json": {Data: []byte(`{"common":{}}`)},
	}

	_, err := LoadFS(fsys, "dicts")
	assert.Error(t, err)
}

func TestDirection(t *testing.T) {
	assert.Equal(t, "rtl", Direction("ar"))
	assert.Equal(t, "ltr", Direction("fr"))
}

func TestPriceFormatter(t *testing.T) {
	en := NewPriceFormatter("en")
	assert.Equal(t, "MAD 1,500,000", en.Format(1_500_000))
	assert.Equal(t, "MAD 0 - MAD 20,000,000", en.FormatRange(0, 20_000_000))
	assert.Equal(t, "MAD 1,000", en.Format(999.6))

	fr := NewPriceFormatter("fr").Format(1_500_000)
	assert.True(t, strings.HasSuffix(fr, " MAD"), fr)
	assert.NotContains(t, fr, ",")

	assert.Equal(t, en.Format(42), NewPriceFormatter("de").Format(42))
}
