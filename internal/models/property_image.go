package models

// PropertyImage represents an image attached to a listing
type PropertyImage struct {
	ID         int    `gorm:"primaryKey;autoIncrement" json:"id"`
	PropertyID int    `gorm:"not null;index" json:"-"`
	Image      string `gorm:"type:text;not null" json:"image"`
	IsMain     bool   `gorm:"not null;default:false" json:"is_main"`
	SortOrder  int    `gorm:"not null;default:0;index" json:"-"`
}

// TableName specifies the table name for PropertyImage
func (PropertyImage) TableName() string {
	return "property_images"
}
