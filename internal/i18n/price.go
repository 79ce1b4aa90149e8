package i18n

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Currency is the ISO code listings are priced in.
const Currency = "MAD"

// PriceFormatter renders listing prices for one locale.
type PriceFormatter interface {
	Format(price float64) string
	FormatRange(min, max float64) string
}

// numberingTags matches the regional variants the site formats with.
var numberingTags = map[string]language.Tag{
	"en": language.AmericanEnglish,
	"fr": language.MustParse("fr-FR"),
	"ar": language.MustParse("ar-MA"),
}

type moneyFormatter struct {
	printer     *message.Printer
	symbolFirst bool
}

// NewPriceFormatter formats whole MAD amounts with the grouping of locale.
// Unknown locales format like DefaultLocale.
func NewPriceFormatter(locale string) PriceFormatter {
	tag, ok := numberingTags[locale]
	if !ok {
		locale = DefaultLocale
		tag = numberingTags[DefaultLocale]
	}
	return &moneyFormatter{
		printer:     message.NewPrinter(tag),
		symbolFirst: locale == "en",
	}
}

func (f *moneyFormatter) Format(price float64) string {
	amount := f.printer.Sprint(number.Decimal(math.Round(price), number.MaxFractionDigits(0)))
	if f.symbolFirst {
		return Currency + " " + amount
	}
	return amount + " " + Currency
}

func (f *moneyFormatter) FormatRange(min, max float64) string {
	return f.Format(min) + " - " + f.Format(max)
}
