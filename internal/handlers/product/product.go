// Package product serves the shoe catalog.
package product

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"stride_back_end/internal/handlers"
	"stride_back_end/internal/models"
	"stride_back_end/internal/repository"
	"stride_back_end/internal/services"
	"stride_back_end/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	searchHitLimit  = 200
)

type Handler struct {
	shoes   repository.ShoeRepository
	index   services.ShoeIndex
	storage services.ImageStorage
	log     *zap.Logger
}

// New builds the catalog handler. index may be nil, in which case text
// search runs against the database.
func New(shoes repository.ShoeRepository, index services.ShoeIndex, storage services.ImageStorage, log *zap.Logger) *Handler {
	return &Handler{shoes: shoes, index: index, storage: storage, log: log}
}

func parseFilter(c *gin.Context) (repository.ShoeFilter, string) {
	f := repository.ShoeFilter{
		Brand:       c.Query("brand"),
		Search:      strings.TrimSpace(c.Query("search")),
		Featured:    c.Query("featured") == "true",
		NewArrivals: c.Query("newArrivals") == "true",
		Sort:        c.Query("sort"),
	}
	for _, p := range []struct {
		key string
		dst **float64
	}{{"minPrice", &f.MinPrice}, {"maxPrice", &f.MaxPrice}} {
		raw := c.Query(p.key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			return f, "Invalid price filter"
		}
		*p.dst = &v
	}

	page, limit := 0, 0
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return f, "Invalid page"
		}
		page = n
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return f, "Invalid limit"
		}
		limit = min(n, maxPageSize)
	}
	if page > 0 && limit == 0 {
		limit = defaultPageSize
	}
	if limit > 0 {
		f.Limit = int64(limit)
		if page > 1 {
			f.Skip = int64((page - 1) * limit)
		}
	}
	return f, ""
}

// List returns the filtered catalog.
func (h *Handler) List(c *gin.Context) {
	f, msg := parseFilter(c)
	if msg != "" {
		utils.RespondFail(c, http.StatusBadRequest, msg)
		return
	}

	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	var rank map[primitive.ObjectID]int
	if f.Search != "" && h.index != nil {
		ids, err := h.index.Search(ctx, f.Search, searchHitLimit)
		if err != nil {
			h.log.Warn("search index unavailable, using database match", zap.Error(err))
		} else {
			f.IDs = ids
			rank = make(map[primitive.ObjectID]int, len(ids))
			for i, id := range ids {
				rank[id] = i
			}
		}
	}

	shoes, err := h.shoes.List(ctx, f)
	if err != nil {
		handlers.Internal(c, err)
		return
	}
	if rank != nil && f.Sort == "" {
		sortByRank(shoes, rank)
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"results": len(shoes),
		"data":    gin.H{"shoes": shoes},
	})
}

func sortByRank(shoes []models.Shoe, rank map[primitive.ObjectID]int) {
	// Insertion sort: hit lists are short and already nearly ordered.
	for i := 1; i < len(shoes); i++ {
		for j := i; j > 0 && rank[shoes[j].ID] < rank[shoes[j-1].ID]; j-- {
			shoes[j], shoes[j-1] = shoes[j-1], shoes[j]
		}
	}
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := handlers.ObjectIDParam(c, "id", "Invalid shoe ID")
	if !ok {
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	shoe, err := h.shoes.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		utils.RespondFail(c, http.StatusNotFound, "Shoe not found")
		return
	}
	if err != nil {
		handlers.Internal(c, err)
		return
	}
	utils.RespondData(c, http.StatusOK, gin.H{"shoe": shoe})
}

// Create accepts either a JSON shoe or a multipart form with up to five
// images. In the form, colors and sizes are JSON encoded arrays.
func (h *Handler) Create(c *gin.Context) {
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	var shoe models.Shoe
	var uploaded []string
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		s, urls, ok := h.bindShoeForm(ctx, c)
		if !ok {
			return
		}
		shoe, uploaded = s, urls
	} else if err := c.ShouldBindJSON(&shoe); err != nil {
		utils.RespondFail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.shoes.Create(ctx, &shoe); err != nil {
		h.deleteImages(ctx, uploaded)
		handlers.ModelError(c, err)
		return
	}
	h.reindex(ctx, &shoe)
	h.log.Info("shoe created", zap.String("shoe_id", shoe.ID.Hex()), zap.String("name", shoe.Name))
	utils.RespondData(c, http.StatusCreated, gin.H{"shoe": shoe})
}

func (h *Handler) bindShoeForm(ctx context.Context, c *gin.Context) (models.Shoe, []string, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxFormSize)
	form, err := c.MultipartForm()
	if err != nil {
		utils.RespondFail(c, http.StatusBadRequest, "Invalid form data")
		return models.Shoe{}, nil, false
	}

	value := func(k string) string {
		if v := form.Value[k]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}
	number := func(k string) (float64, bool) {
		raw := value(k)
		if raw == "" {
			return 0, true
		}
		v, err := strconv.ParseFloat(raw, 64)
		return v, err == nil
	}

	s := models.Shoe{
		Name:         value("name"),
		Brand:        value("brand"),
		Description:  value("description"),
		IsNewArrival: value("isNewArrival") == "true",
		Featured:     value("featured") == "true",
	}
	var ok bool
	fields := []struct {
		key string
		dst *float64
	}{{"price", &s.Price}, {"rating", &s.Rating}, {"discount", &s.Discount}}
	for _, f := range fields {
		if *f.dst, ok = number(f.key); !ok {
			utils.RespondFail(c, http.StatusBadRequest, "Invalid "+f.key)
			return models.Shoe{}, nil, false
		}
	}
	if raw := value("stock"); raw != "" {
		if s.Stock, err = strconv.Atoi(raw); err != nil {
			utils.RespondFail(c, http.StatusBadRequest, "Invalid stock")
			return models.Shoe{}, nil, false
		}
	}
	if raw := value("colors"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &s.Colors); err != nil {
			utils.RespondFail(c, http.StatusBadRequest, "colors must be a JSON array")
			return models.Shoe{}, nil, false
		}
	}
	if raw := value("sizes"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &s.Sizes); err != nil {
			utils.RespondFail(c, http.StatusBadRequest, "sizes must be a JSON array of numbers")
			return models.Shoe{}, nil, false
		}
	}

	// Validate before storing any image so a bad form leaves nothing behind.
	check := s
	check.Normalize()
	if err := check.Validate(); err != nil {
		handlers.ModelError(c, err)
		return models.Shoe{}, nil, false
	}

	files := form.File["images"]
	if err := checkImages(files, 0); err != nil {
		utils.RespondFail(c, http.StatusBadRequest, err.Error())
		return models.Shoe{}, nil, false
	}
	urls, err := h.saveImages(ctx, files)
	if err != nil {
		handlers.Internal(c, err)
		return models.Shoe{}, nil, false
	}
	s.Images = urls
	return s, urls, true
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := handlers.ObjectIDParam(c, "id", "Invalid shoe ID")
	if !ok {
		return
	}
	var u models.ShoeUpdate
	if err := c.ShouldBindJSON(&u); err != nil {
		utils.RespondFail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	shoe, err := h.shoes.Update(ctx, id, u)
	if errors.Is(err, repository.ErrNotFound) {
		utils.RespondFail(c, http.StatusNotFound, "Shoe not found")
		return
	}
	if err != nil {
		handlers.ModelError(c, err)
		return
	}
	h.reindex(ctx, shoe)
	utils.RespondData(c, http.StatusOK, gin.H{"shoe": shoe})
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := handlers.ObjectIDParam(c, "id", "Invalid shoe ID")
	if !ok {
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	shoe, err := h.shoes.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		utils.RespondFail(c, http.StatusNotFound, "Shoe not found")
		return
	}
	if err != nil {
		handlers.Internal(c, err)
		return
	}
	h.deleteImages(ctx, shoe.Images)
	if h.index != nil {
		if err := h.index.Remove(ctx, id); err != nil {
			h.log.Warn("shoe not removed from search index", zap.String("shoe_id", id.Hex()), zap.Error(err))
		}
	}
	h.log.Info("shoe deleted", zap.String("shoe_id", id.Hex()))
	c.Status(http.StatusNoContent)
}

// AddImages appends uploaded images to an existing shoe.
func (h *Handler) AddImages(c *gin.Context) {
	id, ok := handlers.ObjectIDParam(c, "id", "Invalid shoe ID")
	if !ok {
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	shoe, err := h.shoes.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		utils.RespondFail(c, http.StatusNotFound, "Shoe not found")
		return
	}
	if err != nil {
		handlers.Internal(c, err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxFormSize)
	form, err := c.MultipartForm()
	if err != nil {
		utils.RespondFail(c, http.StatusBadRequest, "Invalid form data")
		return
	}
	files := form.File["images"]
	if len(files) == 0 {
		utils.RespondFail(c, http.StatusBadRequest, "No images uploaded")
		return
	}
	if err := checkImages(files, len(shoe.Images)); err != nil {
		utils.RespondFail(c, http.StatusBadRequest, err.Error())
		return
	}
	urls, err := h.saveImages(ctx, files)
	if err != nil {
		handlers.Internal(c, err)
		return
	}
	updated, err := h.shoes.AddImages(ctx, id, urls)
	if err != nil {
		h.deleteImages(ctx, urls)
		handlers.Internal(c, err)
		return
	}
	utils.RespondData(c, http.StatusOK, gin.H{"shoe": updated})
}

func (h *Handler) reindex(ctx context.Context, s *models.Shoe) {
	if h.index == nil {
		return
	}
	if err := h.index.Index(ctx, s); err != nil {
		h.log.Warn("shoe not indexed", zap.String("shoe_id", s.ID.Hex()), zap.Error(err))
	}
}
