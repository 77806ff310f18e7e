package repository

import (
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	SortPriceLow  = "price-low"
	SortPriceHigh = "price-high"
	SortRating    = "rating"
	SortNewest    = "newest"
)

// ShoeFilter mirrors the catalog query string.
type ShoeFilter struct {
	Brand       string
	MinPrice    *float64
	MaxPrice    *float64
	Search      string
	Featured    bool
	NewArrivals bool
	Sort        string
	// IDs restricts the result to these shoes, e.g. the hits of a search
	// index. A non-nil empty slice matches nothing.
	IDs   []primitive.ObjectID
	Limit int64
	Skip  int64
}

// ShoeQuery turns a filter into a Mongo filter document and sort.
func ShoeQuery(f ShoeFilter) (bson.M, bson.D) {
	q := bson.M{}

	if b := strings.ToLower(strings.TrimSpace(f.Brand)); b != "" && b != "all" {
		q["brand"] = b
	}

	price := bson.M{}
	if f.MinPrice != nil {
		price["$gte"] = *f.MinPrice
	}
	if f.MaxPrice != nil {
		price["$lte"] = *f.MaxPrice
	}
	if len(price) > 0 {
		q["price"] = price
	}

	if s := strings.TrimSpace(f.Search); s != "" && f.IDs == nil {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
		q["$or"] = bson.A{
			bson.M{"name": rx},
			bson.M{"description": rx},
		}
	}

	if f.Featured {
		q["featured"] = true
	}
	if f.NewArrivals {
		q["isNewArrival"] = true
	}
	if f.IDs != nil {
		q["_id"] = bson.M{"$in": f.IDs}
	}

	return q, shoeSort(f.Sort)
}

func shoeSort(s string) bson.D {
	switch s {
	case SortPriceLow:
		return bson.D{{Key: "price", Value: 1}}
	case SortPriceHigh:
		return bson.D{{Key: "price", Value: -1}}
	case SortRating:
		return bson.D{{Key: "rating", Value: -1}}
	case SortNewest:
		return bson.D{{Key: "createdAt", Value: -1}}
	default:
		return bson.D{{Key: "featured", Value: -1}, {Key: "createdAt", Value: -1}}
	}
}
