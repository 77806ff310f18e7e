package product

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stride_back_end/internal/models"
	"stride_back_end/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func init() { gin.SetMode(gin.TestMode) }

type env struct {
	r       *gin.Engine
	shoes   *testutil.Shoes
	index   *testutil.Index
	storage *testutil.Storage
}

func catalog() []models.Shoe {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	airMax := testutil.Shoe("Nike Air Max 270", 149.99, 50)
	airMax.Featured = true
	airMax.Rating = 4.5
	airMax.CreatedAt = base

	ultra := testutil.Shoe("Adidas Ultraboost 21", 179.99, 30)
	ultra.Brand = "adidas"
	ultra.Description = "Responsive running shoe"
	ultra.IsNewArrival = true
	ultra.Rating = 4.8
	ultra.CreatedAt = base.Add(time.Hour)

	classic := testutil.Shoe("Reebok Classic Leather", 89.99, 0)
	classic.Brand = "reebok"
	classic.Rating = 4.2
	classic.CreatedAt = base.Add(2 * time.Hour)
	return []models.Shoe{airMax, ultra, classic}
}

func newEnv(t *testing.T, withIndex bool) *env {
	t.Helper()
	e := &env{shoes: testutil.NewShoes(catalog()...), storage: testutil.NewStorage()}
	var h *Handler
	if withIndex {
		e.index = testutil.NewIndex()
		h = New(e.shoes, e.index, e.storage, zap.NewNop())
	} else {
		h = New(e.shoes, nil, e.storage, zap.NewNop())
	}

	r := gin.New()
	r.GET("/api/shoes", h.List)
	r.GET("/api/shoes/:id", h.Get)
	r.POST("/api/shoes", h.Create)
	r.PUT("/api/shoes/:id", h.Update)
	r.DELETE("/api/shoes/:id", h.Delete)
	r.POST("/api/shoes/:id/images", h.AddImages)
	e.r = r
	return e
}

func (e *env) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

type listBody struct {
	Status  string `json:"status"`
	Results int    `json:"results"`
	Data    struct {
		Shoes []models.Shoe `json:"shoes"`
	} `json:"data"`
}

func (e *env) list(t *testing.T, query string) listBody {
	t.Helper()
	w := e.serve(httptest.NewRequest(http.MethodGet, "/api/shoes"+query, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var b listBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	return b
}

func names(b listBody) []string {
	out := make([]string, len(b.Data.Shoes))
	for i, s := range b.Data.Shoes {
		out[i] = s.Name
	}
	return out
}

func TestListFilters(t *testing.T) {
	e := newEnv(t, false)

	all := e.list(t, "")
	assert.Equal(t, 3, all.Results)
	assert.Equal(t, "success", all.Status)

	assert.Equal(t, []string{"Adidas Ultraboost 21"}, names(e.list(t, "?brand=adidas")))
	assert.Equal(t, 3, e.list(t, "?brand=all").Results)
	assert.Equal(t, []string{"Reebok Classic Leather"}, names(e.list(t, "?maxPrice=100")))
	assert.Equal(t, []string{"Adidas Ultraboost 21"}, names(e.list(t, "?minPrice=150")))
	assert.Equal(t, []string{"Nike Air Max 270"}, names(e.list(t, "?featured=true")))
	assert.Equal(t, []string{"Adidas Ultraboost 21"}, names(e.list(t, "?newArrivals=true")))
	assert.Equal(t, []string{"Adidas Ultraboost 21"}, names(e.list(t, "?search=RUNNING")))
}

func TestListSortAndPaging(t *testing.T) {
	e := newEnv(t, false)

	assert.Equal(t,
		[]string{"Reebok Classic Leather", "Nike Air Max 270", "Adidas Ultraboost 21"},
		names(e.list(t, "?sort=price-low")))
	assert.Equal(t,
		[]string{"Adidas Ultraboost 21", "Nike Air Max 270", "Reebok Classic Leather"},
		names(e.list(t, "?sort=rating")))
	assert.Equal(t, []string{"Nike Air Max 270"}, names(e.list(t, "?sort=price-low&limit=1&page=2")))
}

func TestListRejectsBadPrice(t *testing.T) {
	e := newEnv(t, false)
	w := e.serve(httptest.NewRequest(http.MethodGet, "/api/shoes?minPrice=cheap", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListSearchUsesIndex(t *testing.T) {
	e := newEnv(t, true)
	shoes := catalog()
	for i := range shoes {
		require.NoError(t, e.index.Index(context.Background(), &shoes[i]))
	}

	// "nike" is only in the indexed brand text, not in any description.
	assert.Equal(t, []string{"Nike Air Max 270"}, names(e.list(t, "?search=nike")))

	e.index.Err = errors.New("cluster red")
	assert.Equal(t, []string{"Adidas Ultraboost 21"}, names(e.list(t, "?search=running")),
		"falls back to the database match")
}

func TestGet(t *testing.T) {
	e := newEnv(t, false)
	shoe := catalog()[0]
	list := e.list(t, "?featured=true")
	require.Len(t, list.Data.Shoes, 1)
	id := list.Data.Shoes[0].ID.Hex()

	w := e.serve(httptest.NewRequest(http.MethodGet, "/api/shoes/"+id, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), shoe.Name)

	w = e.serve(httptest.NewRequest(http.MethodGet, "/api/shoes/xyz", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid shoe ID")

	w = e.serve(httptest.NewRequest(http.MethodGet, "/api/shoes/"+primitive.NewObjectID().Hex(), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Shoe not found")
}

func TestCreateJSON(t *testing.T) {
	e := newEnv(t, true)
	body := `{"name":"Puma RS-X","brand":"Puma","price":109.99,"discount":15,"sizes":[8,9.5],"colors":["Red"],"stock":40}`
	req := httptest.NewRequest(http.MethodPost, "/api/shoes", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := e.serve(req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"brand":"puma"`)
	assert.Equal(t, 4, e.list(t, "").Results)

	ids, err := e.index.Search(context.Background(), "rs-x", 10)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestCreateJSONValidation(t *testing.T) {
	e := newEnv(t, false)
	req := httptest.NewRequest(http.MethodPost, "/api/shoes", strings.NewReader(`{"name":"X","brand":"vans","price":10}`))
	req.Header.Set("Content-Type", "application/json")

	w := e.serve(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Brand must be one of")
}

func multipartShoe(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for name, content := range files {
		fw, err := mw.CreateFormFile("images", name)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestCreateMultipart(t *testing.T) {
	e := newEnv(t, false)
	body, ct := multipartShoe(t, map[string]string{
		"name":   "Air Jordan 1",
		"brand":  "nike",
		"price":  "180",
		"sizes":  "[8, 9, 10.5]",
		"colors": `["Chicago"]`,
		"stock":  "12",
	}, map[string][]byte{"front.jpg": []byte("jpeg"), "side.PNG": []byte("png")})
	req := httptest.NewRequest(http.MethodPost, "/api/shoes", body)
	req.Header.Set("Content-Type", ct)

	w := e.serve(req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			Shoe models.Shoe `json:"shoe"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data.Shoe.Images, 2)
	assert.Equal(t, []float64{8, 9, 10.5}, resp.Data.Shoe.Sizes)
	assert.Len(t, e.storage.Files, 2)
}

func TestCreateMultipartRejectsBadUploads(t *testing.T) {
	e := newEnv(t, false)
	fields := map[string]string{"name": "Air Jordan 1", "brand": "nike", "price": "180"}

	body, ct := multipartShoe(t, fields, map[string][]byte{"doc.gif": []byte("gif")})
	req := httptest.NewRequest(http.MethodPost, "/api/shoes", body)
	req.Header.Set("Content-Type", ct)
	w := e.serve(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Only .jpg, .jpeg and .png")

	six := map[string][]byte{}
	for _, n := range []string{"1", "2", "3", "4", "5", "6"} {
		six[n+".jpg"] = []byte("x")
	}
	body, ct = multipartShoe(t, fields, six)
	req = httptest.NewRequest(http.MethodPost, "/api/shoes", body)
	req.Header.Set("Content-Type", ct)
	w = e.serve(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "at most 5 images")
	assert.Empty(t, e.storage.Files)
}

func TestUpdateAndDelete(t *testing.T) {
	e := newEnv(t, false)
	id := e.list(t, "?brand=reebok").Data.Shoes[0].ID.Hex()

	req := httptest.NewRequest(http.MethodPut, "/api/shoes/"+id, strings.NewReader(`{"stock":7,"discount":20}`))
	req.Header.Set("Content-Type", "application/json")
	w := e.serve(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"stock":7`)

	req = httptest.NewRequest(http.MethodPut, "/api/shoes/"+id, strings.NewReader(`{"rating":9}`))
	req.Header.Set("Content-Type", "application/json")
	w = e.serve(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.serve(httptest.NewRequest(http.MethodDelete, "/api/shoes/"+id, nil))
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, e.storage.Deleted, "/uploads/Reebok Classic Leather.jpg")

	w = e.serve(httptest.NewRequest(http.MethodDelete, "/api/shoes/"+id, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateKeepsConcurrentStockChange(t *testing.T) {
	e := newEnv(t, false)
	shoe := e.list(t, "?brand=adidas").Data.Shoes[0]
	e.shoes.AfterRead = func(id primitive.ObjectID) {
		require.NoError(t, e.shoes.DecrementStock(context.Background(), id, 2))
	}

	req := httptest.NewRequest(http.MethodPut, "/api/shoes/"+shoe.ID.Hex(), strings.NewReader(`{"name":"Adidas Ultraboost 22"}`))
	req.Header.Set("Content-Type", "application/json")
	w := e.serve(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	e.shoes.AfterRead = nil
	got, err := e.shoes.FindByID(context.Background(), shoe.ID)
	require.NoError(t, err)
	assert.Equal(t, "Adidas Ultraboost 22", got.Name)
	assert.Equal(t, 28, got.Stock)
}

func TestAddImages(t *testing.T) {
	e := newEnv(t, false)
	id := e.list(t, "?brand=adidas").Data.Shoes[0].ID.Hex()

	body, ct := multipartShoe(t, nil, map[string][]byte{"extra.jpeg": []byte("jpeg")})
	req := httptest.NewRequest(http.MethodPost, "/api/shoes/"+id+"/images", body)
	req.Header.Set("Content-Type", ct)
	w := e.serve(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			Shoe models.Shoe `json:"shoe"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data.Shoe.Images, 2)
}
