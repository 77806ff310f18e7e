package models

import (
	"net/mail"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultAvatar     = "https://www.gravatar.com/avatar/?d=mp"
	MaxNameLength     = 50
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

type User struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	FirstName      string               `bson:"firstName" json:"firstName"`
	LastName       string               `bson:"lastName" json:"lastName"`
	Email          string               `bson:"email" json:"email"`
	Password       string               `bson:"password" json:"-"`
	Avatar         string               `bson:"avatar" json:"avatar"`
	Active         bool                 `bson:"active" json:"-"`
	Addresses      []Address            `bson:"addresses" json:"addresses"`
	PaymentMethods []PaymentMethod      `bson:"paymentMethods" json:"paymentMethods"`
	Wishlist       []primitive.ObjectID `bson:"wishlist" json:"wishlist"`
	CreatedAt      time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time            `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// InWishlist reports whether shoeID is already saved.
func (u *User) InWishlist(shoeID primitive.ObjectID) bool {
	for _, id := range u.Wishlist {
		if id == shoeID {
			return true
		}
	}
	return false
}

// Profile holds the editable identity fields of a user.
type Profile struct {
	FirstName string
	LastName  string
	Email     string
}

// Normalize trims names and lowercases the email.
func (p *Profile) Normalize() {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.Email = NormalizeEmail(p.Email)
}

func (p Profile) Validate() error {
	if p.FirstName == "" || p.LastName == "" || p.Email == "" {
		return invalid("All fields are required")
	}
	if len([]rune(p.FirstName)) > MaxNameLength {
		return invalid("First name cannot exceed %d characters", MaxNameLength)
	}
	if len([]rune(p.LastName)) > MaxNameLength {
		return invalid("Last name cannot exceed %d characters", MaxNameLength)
	}
	if !ValidEmail(p.Email) {
		return invalid("Please provide a valid email")
	}
	return nil
}

func ValidatePassword(pw string) error {
	if len(pw) < MinPasswordLength {
		return invalid("Password must be at least %d characters", MinPasswordLength)
	}
	if len(pw) > MaxPasswordLength {
		return invalid("Password cannot exceed %d characters", MaxPasswordLength)
	}
	return nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndexByte(email, '@')
	return at > 0 && strings.Contains(email[at:], ".")
}
