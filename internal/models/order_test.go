package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCanTransition(t *testing.T) {
	allowed := [][2]OrderStatus{
		{OrderPending, OrderProcessing},
		{OrderPending, OrderCancelled},
		{OrderProcessing, OrderShipped},
		{OrderProcessing, OrderCancelled},
		{OrderShipped, OrderDelivered},
	}
	for _, tr := range allowed {
		assert.True(t, CanTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}

	denied := [][2]OrderStatus{
		{OrderPending, OrderShipped},
		{OrderPending, OrderDelivered},
		{OrderShipped, OrderCancelled},
		{OrderDelivered, OrderCancelled},
		{OrderCancelled, OrderPending},
		{OrderDelivered, OrderProcessing},
		{"bogus", OrderPending},
	}
	for _, tr := range denied {
		assert.False(t, CanTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}
}

func TestOrderStatusValid(t *testing.T) {
	assert.True(t, OrderShipped.Valid())
	assert.False(t, OrderStatus("lost").Valid())
}

func TestShippingInfoComplete(t *testing.T) {
	s := ShippingInfo{Name: " A ", Address: "1 Road", City: "Pune", State: "MH", Zip: "411001", Country: "India", Phone: "9876543210"}
	s.Normalize()
	assert.Equal(t, "A", s.Name)
	assert.True(t, s.Complete())

	s.Phone = ""
	assert.False(t, s.Complete())
}

func TestOrderQuantities(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	o := Order{Items: []OrderItem{
		{ShoeID: a, Quantity: 1, Size: 9},
		{ShoeID: a, Quantity: 2, Size: 10},
		{ShoeID: b, Quantity: 4},
	}}
	assert.Equal(t, map[primitive.ObjectID]int{a: 3, b: 4}, o.Quantities())
}
