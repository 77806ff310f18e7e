package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validShoe() Shoe {
	return Shoe{Name: "Air Max 270", Brand: "nike", Price: 149.99, Sizes: []float64{8, 9.5}, Stock: 3}
}

func TestShoeValidate(t *testing.T) {
	s := validShoe()
	require.NoError(t, s.Validate())

	cases := map[string]func(*Shoe){
		"Shoe name is required":             func(s *Shoe) { s.Name = "" },
		"Brand must be one of":              func(s *Shoe) { s.Brand = "asics" },
		"Price cannot be negative":          func(s *Shoe) { s.Price = -1 },
		"Rating must be between 0 and 5":    func(s *Shoe) { s.Rating = 5.5 },
		"Discount must be between 0 and 100": func(s *Shoe) { s.Discount = 101 },
		"Stock cannot be negative":          func(s *Shoe) { s.Stock = -2 },
		"Sizes must be positive":            func(s *Shoe) { s.Sizes = []float64{0} },
		"at most 5 images":                  func(s *Shoe) { s.Images = make([]string, 6) },
	}
	for msg, mutate := range cases {
		s := validShoe()
		mutate(&s)
		err := s.Validate()
		require.Error(t, err, msg)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Message, msg)
	}
}

func TestShoeNormalize(t *testing.T) {
	s := Shoe{Name: "  Classic ", Brand: " Reebok "}
	s.Normalize()
	assert.Equal(t, "Classic", s.Name)
	assert.Equal(t, "reebok", s.Brand)
	assert.NotNil(t, s.Images)
	assert.NotNil(t, s.Sizes)
}

func TestEffectivePrice(t *testing.T) {
	s := Shoe{Price: 149.99, Discount: 10}
	assert.Equal(t, 134.99, s.EffectivePrice())

	s.Discount = 0
	assert.Equal(t, 149.99, s.EffectivePrice())

	s = Shoe{Price: 110, Discount: 15}
	assert.Equal(t, 93.5, s.EffectivePrice())
}

func TestShoeVariants(t *testing.T) {
	s := Shoe{Sizes: []float64{8, 9.5}, Colors: []string{"#FF0000"}}
	assert.True(t, s.HasSize(9.5))
	assert.False(t, s.HasSize(10))
	assert.True(t, s.HasColor("#ff0000"))
	assert.False(t, s.HasColor("#000000"))
}

func TestShoeUpdateApply(t *testing.T) {
	s := validShoe()
	price := 99.0
	featured := true
	ShoeUpdate{Price: &price, Featured: &featured}.Apply(&s)
	assert.Equal(t, 99.0, s.Price)
	assert.True(t, s.Featured)
	assert.Equal(t, "Air Max 270", s.Name)
}
