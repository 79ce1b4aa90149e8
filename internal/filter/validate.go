package filter

const (
	ErrNegativeMinPrice = "minimum price cannot be negative"
	ErrMaxBelowMin      = "maximum price must be greater than minimum price"
	ErrInvalidBedrooms  = "invalid bedroom count"
)

// ValidationResult lists human-readable problems with a Criteria value.
type ValidationResult struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}

// Validate checks the price range and bedroom selector of c.
// It is advisory: Properties does not consult it.
func Validate(c Criteria) ValidationResult {
	errs := []string{}

	if c.PriceRange[0] < 0 {
		errs = append(errs, ErrNegativeMinPrice)
	}

	if c.PriceRange[1] < c.PriceRange[0] {
		errs = append(errs, ErrMaxBelowMin)
	}

	if c.Bedrooms != "" && c.Bedrooms != AnyBedrooms {
		if n, ok := parseLeadingInt(c.Bedrooms); !ok || n < 0 {
			errs = append(errs, ErrInvalidBedrooms)
		}
	}

	return ValidationResult{
		IsValid: len(errs) == 0,
		Errors:  errs,
	}
}
