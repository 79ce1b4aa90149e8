package filter

// Update changes exactly one field of a Criteria value.
// The set of updates is closed: only the types in this file implement it.
type Update interface {
	isUpdate()
}

type (
	SetSearch     struct{ Value string }
	SetLocation   struct{ Value string }
	SetType       struct{ Value string }
	SetPriceRange struct{ Min, Max float64 }
	// SetBedrooms takes a numeric threshold as text or AnyBedrooms.
	SetBedrooms struct{ Value string }
)

func (SetSearch) isUpdate()     {}
func (SetLocation) isUpdate()   {}
func (SetType) isUpdate()       {}
func (SetPriceRange) isUpdate() {}
func (SetBedrooms) isUpdate()   {}

// Reduce returns c with the single field named by u replaced.
// No validation happens here.
func Reduce(c Criteria, u Update) Criteria {
	switch u := u.(type) {
	case SetSearch:
		c.Search = u.Value
	case SetLocation:
		c.Location = u.Value
	case SetType:
		c.Type = u.Value
	case SetPriceRange:
		c.PriceRange = [2]float64{u.Min, u.Max}
	case SetBedrooms:
		c.Bedrooms = u.Value
	}
	return c
}
