package models

import (
	"math"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var Brands = []string{"nike", "adidas", "reebok", "puma", "other"}

const MaxShoeImages = 5

type Shoe struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name         string             `bson:"name" json:"name"`
	Brand        string             `bson:"brand" json:"brand"`
	Price        float64            `bson:"price" json:"price"`
	Description  string             `bson:"description" json:"description"`
	Images       []string           `bson:"images" json:"images"`
	Colors       []string           `bson:"colors" json:"colors"`
	Sizes        []float64          `bson:"sizes" json:"sizes"`
	Rating       float64            `bson:"rating" json:"rating"`
	Discount     float64            `bson:"discount" json:"discount"`
	Stock        int                `bson:"stock" json:"stock"`
	IsNewArrival bool               `bson:"isNewArrival" json:"isNewArrival"`
	Featured     bool               `bson:"featured" json:"featured"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func ValidBrand(b string) bool {
	for _, x := range Brands {
		if x == b {
			return true
		}
	}
	return false
}

func (s *Shoe) Normalize() {
	s.Name = strings.TrimSpace(s.Name)
	s.Brand = strings.ToLower(strings.TrimSpace(s.Brand))
	s.Description = strings.TrimSpace(s.Description)
	if s.Images == nil {
		s.Images = []string{}
	}
	if s.Colors == nil {
		s.Colors = []string{}
	}
	if s.Sizes == nil {
		s.Sizes = []float64{}
	}
}

func (s Shoe) Validate() error {
	switch {
	case s.Name == "":
		return invalid("Shoe name is required")
	case !ValidBrand(s.Brand):
		return invalid("Brand must be one of %s", strings.Join(Brands, ", "))
	case s.Price < 0 || math.IsNaN(s.Price):
		return invalid("Price cannot be negative")
	case s.Rating < 0 || s.Rating > 5:
		return invalid("Rating must be between 0 and 5")
	case s.Discount < 0 || s.Discount > 100:
		return invalid("Discount must be between 0 and 100")
	case s.Stock < 0:
		return invalid("Stock cannot be negative")
	case len(s.Images) > MaxShoeImages:
		return invalid("A shoe can have at most %d images", MaxShoeImages)
	}
	for _, size := range s.Sizes {
		if size <= 0 {
			return invalid("Sizes must be positive numbers")
		}
	}
	return nil
}

// EffectivePrice is the price after the percentage discount, in cents
// precision.
func (s Shoe) EffectivePrice() float64 {
	if s.Discount <= 0 {
		return RoundMoney(s.Price)
	}
	return RoundMoney(s.Price * (1 - s.Discount/100))
}

func (s Shoe) HasSize(size float64) bool {
	for _, x := range s.Sizes {
		if x == size {
			return true
		}
	}
	return false
}

func (s Shoe) HasColor(color string) bool {
	for _, x := range s.Colors {
		if strings.EqualFold(x, color) {
			return true
		}
	}
	return false
}

// CoverImage is the first image or "" when the shoe has none.
func (s Shoe) CoverImage() string {
	if len(s.Images) == 0 {
		return ""
	}
	return s.Images[0]
}

// ShoeUpdate is a partial update; nil fields are left untouched.
type ShoeUpdate struct {
	Name         *string    `json:"name"`
	Brand        *string    `json:"brand"`
	Price        *float64   `json:"price"`
	Description  *string    `json:"description"`
	Images       *[]string  `json:"images"`
	Colors       *[]string  `json:"colors"`
	Sizes        *[]float64 `json:"sizes"`
	Rating       *float64   `json:"rating"`
	Discount     *float64   `json:"discount"`
	Stock        *int       `json:"stock"`
	IsNewArrival *bool      `json:"isNewArrival"`
	Featured     *bool      `json:"featured"`
}

// Apply copies the set fields onto s.
func (u ShoeUpdate) Apply(s *Shoe) {
	if u.Name != nil {
		s.Name = *u.Name
	}
	if u.Brand != nil {
		s.Brand = *u.Brand
	}
	if u.Price != nil {
		s.Price = *u.Price
	}
	if u.Description != nil {
		s.Description = *u.Description
	}
	if u.Images != nil {
		s.Images = *u.Images
	}
	if u.Colors != nil {
		s.Colors = *u.Colors
	}
	if u.Sizes != nil {
		s.Sizes = *u.Sizes
	}
	if u.Rating != nil {
		s.Rating = *u.Rating
	}
	if u.Discount != nil {
		s.Discount = *u.Discount
	}
	if u.Stock != nil {
		s.Stock = *u.Stock
	}
	if u.IsNewArrival != nil {
		s.IsNewArrival = *u.IsNewArrival
	}
	if u.Featured != nil {
		s.Featured = *u.Featured
	}
}

func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
