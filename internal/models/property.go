package models

import "time"

// Property is one listing as published by the listings backend.
// The site never writes it; every source hands out read-only copies.
type Property struct {
	ID          int             `gorm:"primaryKey" json:"id"`
	Title       string          `gorm:"type:varchar(255);not null" json:"title"`
	Location    string          `gorm:"type:varchar(100);not null;index" json:"location"`
	Price       float64         `gorm:"type:decimal(14,2);not null;index" json:"price"`
	Bedrooms    int             `gorm:"not null;default:0" json:"bedrooms"`
	Bathrooms   int             `gorm:"not null;default:0" json:"bathrooms"`
	Area        float64         `gorm:"type:decimal(10,2)" json:"area"`
	Type        string          `gorm:"type:varchar(50);not null;index" json:"type"`
	Description string          `gorm:"type:text" json:"description"`
	MainImage   *string         `gorm:"type:text" json:"main_image"`
	Features    []string        `gorm:"serializer:json" json:"features"`
	Images      []PropertyImage `gorm:"foreignKey:PropertyID" json:"images"`
	IsPublished bool            `gorm:"not null;default:true;index" json:"is_published"`
	CreatedAt   time.Time       `gorm:"not null" json:"created_at"`
}

// TableName はテーブル名を明示的に指定
func (Property) TableName() string {
	return "properties"
}

// PrimaryImage returns the locator of the image to show first.
// Images flagged main win, then the first image, then MainImage.
func (p *Property) PrimaryImage() string {
	for _, img := range p.Images {
		if img.IsMain {
			return img.Image
		}
	}
	if len(p.Images) > 0 {
		return p.Images[0].Image
	}
	if p.MainImage != nil {
		return *p.MainImage
	}
	return ""
}
