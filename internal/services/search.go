package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"stride_back_end/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ShoeIndex keeps a full-text index of the catalog.
type ShoeIndex interface {
	Index(ctx context.Context, s *models.Shoe) error
	Remove(ctx context.Context, id primitive.ObjectID) error
	// Search returns the ids of matching shoes, best match first.
	Search(ctx context.Context, query string, limit int) ([]primitive.ObjectID, error)
}

type ElasticShoeIndex struct {
	es    *elasticsearch.Client
	index string
}

func NewElasticShoeIndex(es *elasticsearch.Client, index string) *ElasticShoeIndex {
	return &ElasticShoeIndex{es: es, index: index}
}

type shoeDocument struct {
	Name        string   `json:"name"`
	Brand       string   `json:"brand"`
	Description string   `json:"description"`
	Colors      []string `json:"colors"`
	Price       float64  `json:"price"`
}

func (x *ElasticShoeIndex) Index(ctx context.Context, s *models.Shoe) error {
	data, err := json.Marshal(shoeDocument{
		Name:        s.Name,
		Brand:       s.Brand,
		Description: s.Description,
		Colors:      s.Colors,
		Price:       s.Price,
	})
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{
		Index:      x.index,
		DocumentID: s.ID.Hex(),
		Body:       bytes.NewReader(data),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, x.es)
	if err != nil {
		return fmt.Errorf("index shoe %s: %w", s.ID.Hex(), err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index shoe %s: %s", s.ID.Hex(), res.String())
	}
	return nil
}

func (x *ElasticShoeIndex) Remove(ctx context.Context, id primitive.ObjectID) error {
	req := esapi.DeleteRequest{Index: x.index, DocumentID: id.Hex(), Refresh: "true"}
	res, err := req.Do(ctx, x.es)
	if err != nil {
		return fmt.Errorf("remove shoe %s: %w", id.Hex(), err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("remove shoe %s: %s", id.Hex(), res.String())
	}
	return nil
}

func (x *ElasticShoeIndex) Search(ctx context.Context, query string, limit int) ([]primitive.ObjectID, error) {
	if limit <= 0 {
		limit = 100
	}
	body, err := json.Marshal(map[string]any{
		"size":    limit,
		"_source": false,
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"name^3", "brand^2", "description"},
				"fuzziness": "AUTO",
			},
		},
	})
	if err != nil {
		return nil, err
	}

	req := esapi.SearchRequest{Index: []string{x.index}, Body: bytes.NewReader(body)}
	res, err := req.Do(ctx, x.es)
	if err != nil {
		return nil, fmt.Errorf("search shoes: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("search shoes: %s: %s", res.Status(), msg)
	}
	return decodeHitIDs(res.Body)
}

func decodeHitIDs(r io.Reader) ([]primitive.ObjectID, error) {
	var out struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	ids := make([]primitive.ObjectID, 0, len(out.Hits.Hits))
	for _, h := range out.Hits.Hits {
		if id, err := primitive.ObjectIDFromHex(h.ID); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
