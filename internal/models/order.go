package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

var validNext = map[OrderStatus]map[OrderStatus]bool{
	OrderPending:    {OrderProcessing: true, OrderCancelled: true},
	OrderProcessing: {OrderShipped: true, OrderCancelled: true},
	OrderShipped:    {OrderDelivered: true},
	OrderDelivered:  {},
	OrderCancelled:  {},
}

func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

func (s OrderStatus) Valid() bool {
	_, ok := validNext[s]
	return ok
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

type PaymentKind string

const (
	PayCOD PaymentKind = "cod"
	PayUPI PaymentKind = "upi"
)

func (k PaymentKind) Valid() bool { return k == PayCOD || k == PayUPI }

type OrderItem struct {
	ShoeID   primitive.ObjectID `bson:"shoeId" json:"shoeId"`
	Name     string             `bson:"name" json:"name"`
	Price    float64            `bson:"price" json:"price"`
	Quantity int                `bson:"quantity" json:"quantity"`
	Image    string             `bson:"image,omitempty" json:"image,omitempty"`
	Size     float64            `bson:"size,omitempty" json:"size,omitempty"`
	Color    string             `bson:"color,omitempty" json:"color,omitempty"`
}

func (i OrderItem) LineTotal() float64 {
	return RoundMoney(i.Price * float64(i.Quantity))
}

type ShippingInfo struct {
	Name    string `bson:"name" json:"name"`
	Address string `bson:"address" json:"address"`
	City    string `bson:"city" json:"city"`
	State   string `bson:"state" json:"state"`
	Zip     string `bson:"zip" json:"zip"`
	Country string `bson:"country" json:"country"`
	Phone   string `bson:"phone" json:"phone"`
}

func (s *ShippingInfo) Normalize() {
	for _, f := range []*string{&s.Name, &s.Address, &s.City, &s.State, &s.Zip, &s.Country, &s.Phone} {
		*f = strings.TrimSpace(*f)
	}
}

func (s ShippingInfo) Complete() bool {
	return s.Name != "" && s.Address != "" && s.City != "" && s.State != "" &&
		s.Zip != "" && s.Country != "" && s.Phone != ""
}

// Customer is a snapshot of who placed the order.
type Customer struct {
	FirstName string `bson:"firstName" json:"firstName"`
	LastName  string `bson:"lastName" json:"lastName"`
	Email     string `bson:"email" json:"email"`
}

type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	User            primitive.ObjectID `bson:"user" json:"user"`
	Customer        Customer           `bson:"customer" json:"customer"`
	Items           []OrderItem        `bson:"items" json:"items"`
	ShippingInfo    ShippingInfo       `bson:"shippingInfo" json:"shippingInfo"`
	PaymentMethod   PaymentKind        `bson:"paymentMethod" json:"paymentMethod"`
	PaymentStatus   PaymentStatus      `bson:"paymentStatus" json:"paymentStatus"`
	Subtotal        float64            `bson:"subtotal" json:"subtotal"`
	CODFee          float64            `bson:"codFee" json:"codFee"`
	Total           float64            `bson:"total" json:"total"`
	Status          OrderStatus        `bson:"status" json:"status"`
	StockReserved   bool               `bson:"stockReserved" json:"-"`
	PaymentIntentID string             `bson:"paymentIntentId,omitempty" json:"paymentIntentId,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Quantities sums the ordered quantity per shoe across size/colour lines.
func (o *Order) Quantities() map[primitive.ObjectID]int {
	out := make(map[primitive.ObjectID]int, len(o.Items))
	for _, it := range o.Items {
		out[it.ShoeID] += it.Quantity
	}
	return out
}
