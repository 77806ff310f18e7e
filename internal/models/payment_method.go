package models

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	CardVisa       = "Visa"
	CardMastercard = "Mastercard"
	CardAmex       = "Amex"
	CardOther      = "Other"
)

var (
	last4Pattern  = regexp.MustCompile(`^\d{4}$`)
	expiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/(\d{2})$`)
)

// PaymentMethod is a saved card reference. Only the last four digits are
// kept; the provider token stands in for the card itself.
type PaymentMethod struct {
	ID         primitive.ObjectID `bson:"_id" json:"_id"`
	Type       string             `bson:"type" json:"type"`
	Last4      string             `bson:"last4" json:"last4"`
	Expiry     string             `bson:"expiry" json:"expiry"`
	ProviderID string             `bson:"providerId,omitempty" json:"providerId,omitempty"`
	IsDefault  bool               `bson:"isDefault" json:"isDefault"`
}

func (p *PaymentMethod) Normalize() {
	p.Type = strings.TrimSpace(p.Type)
	if p.Type == "" {
		p.Type = CardOther
	}
	p.Last4 = strings.TrimSpace(p.Last4)
	p.Expiry = strings.TrimSpace(p.Expiry)
	p.ProviderID = strings.TrimSpace(p.ProviderID)
}

func (p PaymentMethod) Validate(now time.Time) error {
	switch p.Type {
	case CardVisa, CardMastercard, CardAmex, CardOther:
	default:
		return invalid("Card type must be Visa, Mastercard, Amex or Other")
	}
	if !last4Pattern.MatchString(p.Last4) {
		return invalid("last4 must be exactly 4 digits")
	}
	m := expiryPattern.FindStringSubmatch(p.Expiry)
	if m == nil {
		return invalid("Expiry must be in MM/YY format")
	}
	month, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[2])
	// A card is valid through the last day of its expiry month.
	end := time.Date(2000+year, time.Month(month)+1, 1, 0, 0, 0, 0, time.UTC)
	if !now.UTC().Before(end) {
		return invalid("Card has expired")
	}
	return nil
}
