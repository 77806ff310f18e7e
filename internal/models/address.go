package models

import (
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var phonePattern = regexp.MustCompile(`^[6-9]\d{9}$`)

const (
	AddressHome  = "Home"
	AddressWork  = "Work"
	AddressOther = "Other"
)

type Address struct {
	ID        primitive.ObjectID `bson:"_id" json:"_id"`
	Type      string             `bson:"type" json:"type"`
	Street    string             `bson:"street" json:"street"`
	City      string             `bson:"city" json:"city"`
	State     string             `bson:"state" json:"state"`
	Zip       string             `bson:"zip" json:"zip"`
	Country   string             `bson:"country" json:"country"`
	Phone     string             `bson:"phone,omitempty" json:"phone,omitempty"`
	IsDefault bool               `bson:"isDefault" json:"isDefault"`
}

func (a *Address) Normalize() {
	a.Type = strings.TrimSpace(a.Type)
	if a.Type == "" {
		a.Type = AddressHome
	}
	a.Street = strings.TrimSpace(a.Street)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.Zip = strings.TrimSpace(a.Zip)
	a.Country = strings.TrimSpace(a.Country)
	a.Phone = strings.TrimSpace(a.Phone)
}

func (a Address) Validate() error {
	switch a.Type {
	case AddressHome, AddressWork, AddressOther:
	default:
		return invalid("Address type must be Home, Work or Other")
	}
	if a.Street == "" || a.City == "" || a.State == "" || a.Zip == "" || a.Country == "" {
		return invalid("Street, city, state, zip and country are required")
	}
	if a.Phone != "" && !ValidPhone(a.Phone) {
		return invalid("Please provide a valid 10-digit phone number")
	}
	return nil
}

func ValidPhone(p string) bool { return phonePattern.MatchString(p) }

// defaultable is implemented by embedded sub-documents that share the
// "exactly one default" rule.
type defaultable interface {
	Address | PaymentMethod
}

func getID[T defaultable](v *T) primitive.ObjectID {
	switch x := any(v).(type) {
	case *Address:
		return x.ID
	case *PaymentMethod:
		return x.ID
	}
	return primitive.NilObjectID
}

func setDefault[T defaultable](v *T, on bool) {
	switch x := any(v).(type) {
	case *Address:
		x.IsDefault = on
	case *PaymentMethod:
		x.IsDefault = on
	}
}

func isDefault[T defaultable](v *T) bool {
	switch x := any(v).(type) {
	case *Address:
		return x.IsDefault
	case *PaymentMethod:
		return x.IsDefault
	}
	return false
}

// AppendDefaultable adds item to list. The first entry is always the
// default; an entry added as default clears the flag on the others.
func AppendDefaultable[T defaultable](list []T, item T) []T {
	if len(list) == 0 {
		setDefault(&item, true)
	}
	if isDefault(&item) {
		for i := range list {
			setDefault(&list[i], false)
		}
	}
	return append(list, item)
}

// ReplaceDefaultable swaps the entry with item's id. Clearing the flag on
// the current default is ignored.
func ReplaceDefaultable[T defaultable](list []T, item T) ([]T, bool) {
	id := getID(&item)
	for i := range list {
		if getID(&list[i]) != id {
			continue
		}
		wasDefault := isDefault(&list[i])
		if !isDefault(&item) && wasDefault {
			setDefault(&item, true)
		}
		list[i] = item
		if isDefault(&item) {
			for j := range list {
				if j != i {
					setDefault(&list[j], false)
				}
			}
		}
		return list, true
	}
	return list, false
}

// RemoveDefaultable drops the entry with id and promotes the first remaining
// entry when the removed one was the default.
func RemoveDefaultable[T defaultable](list []T, id primitive.ObjectID) ([]T, bool) {
	for i := range list {
		if getID(&list[i]) != id {
			continue
		}
		wasDefault := isDefault(&list[i])
		out := append(list[:i:i], list[i+1:]...)
		if wasDefault && len(out) > 0 {
			setDefault(&out[0], true)
		}
		return out, true
	}
	return list, false
}

// MarkDefault makes id the single default entry.
func MarkDefault[T defaultable](list []T, id primitive.ObjectID) ([]T, bool) {
	found := false
	for i := range list {
		if getID(&list[i]) == id {
			found = true
		}
	}
	if !found {
		return list, false
	}
	for i := range list {
		setDefault(&list[i], getID(&list[i]) == id)
	}
	return list, true
}
