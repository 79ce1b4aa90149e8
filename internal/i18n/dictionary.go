// Package i18n serves the translated string bundles of the site and the
// locale-aware price formatting used by the views.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"golang.org/x/text/language"
)

//go:embed dictionaries/*.json
var dictionaryFS embed.FS

// DefaultLocale is served for any locale without a bundle.
const DefaultLocale = "en"

// Supported lists the bundled locales; the first entry is the fallback.
var Supported = []string{"en", "fr", "ar"}

// Locations are the city keys featured on the home page, in display order.
var Locations = []string{"casablanca", "marrakech", "tangier", "rabat", "agadir", "fes"}

// Dictionary is one locale's nested string bundle.
type Dictionary map[string]interface{}

// Dictionaries holds every bundle, keyed by locale.
type Dictionaries struct {
	byLocale map[string]Dictionary
	matcher  language.Matcher
}

// Load parses the embedded bundles.
func Load() (*Dictionaries, error) {
	return LoadFS(dictionaryFS, "dictionaries")
}

// LoadFS parses <dir>/<locale>.json for every supported locale.
func LoadFS(fsys fs.FS, dir string) (*Dictionaries, error) {
	d := &Dictionaries{byLocale: make(map[string]Dictionary, len(Supported))}

	tags := make([]language.Tag, 0, len(Supported))
	for _, locale := range Supported {
		data, err := fs.ReadFile(fsys, path.Join(dir, locale+".json"))
		if err != nil {
			return nil, fmt.Errorf("failed to read dictionary %s: %w", locale, err)
		}

		var dict Dictionary
		if err := json.Unmarshal(data, &dict); err != nil {
			return nil, fmt.Errorf("failed to parse dictionary %s: %w", locale, err)
		}
		d.byLocale[locale] = dict
		tags = append(tags, language.MustParse(locale))
	}
	d.matcher = language.NewMatcher(tags)

	return d, nil
}

// Resolve maps a requested locale ("fr", "fr-FR", "de") onto a bundled one.
func (d *Dictionaries) Resolve(locale string) string {
	locale = strings.TrimSpace(locale)
	if _, ok := d.byLocale[locale]; ok {
		return locale
	}
	if locale == "" {
		return DefaultLocale
	}

	_, idx := language.MatchStrings(d.matcher, locale)
	if idx < 0 || idx >= len(Supported) {
		return DefaultLocale
	}
	return Supported[idx]
}

// Get returns the bundle for locale, falling back to DefaultLocale.
func (d *Dictionaries) Get(locale string) Dictionary {
	return d.byLocale[d.Resolve(locale)]
}

// Section returns the subtree under a dotted key, or nil.
func (d *Dictionaries) Section(locale, key string) interface{} {
	var node interface{} = map[string]interface{}(d.Get(locale))
	for _, part := range strings.Split(key, ".") {
		m, ok := node.(map[string]interface{})
		if !ok {
			return nil
		}
		if node, ok = m[part]; !ok {
			return nil
		}
	}
	return node
}

// Lookup returns the string under a dotted key, or the key itself when missing.
func (d *Dictionaries) Lookup(locale, key string) string {
	if s, ok := d.Section(locale, key).(string); ok {
		return s
	}
	return key
}

// Direction is the text direction of locale.
func Direction(locale string) string {
	if locale == "ar" {
		return "rtl"
	}
	return "ltr"
}
