package user

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stride_back_end/internal/cache"
	"stride_back_end/internal/cart"
	"stride_back_end/internal/handlers"
	"stride_back_end/internal/middleware"
	"stride_back_end/internal/models"
	"stride_back_end/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func init() { gin.SetMode(gin.TestMode) }

type env struct {
	r     *gin.Engine
	h     *Handler
	users *testutil.Users
	shoes *testutil.Shoes
	carts *testutil.Carts
}

func newEnv(t *testing.T, shoes ...models.Shoe) *env {
	t.Helper()
	e := &env{users: testutil.NewUsers(), shoes: testutil.NewShoes(shoes...), carts: testutil.NewCarts()}
	e.h = New(e.users, e.shoes, e.carts, testutil.Tokens(), zap.NewNop())
	e.h.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }

	r := gin.New()
	auth := middleware.AuthRequired(testutil.Tokens(), e.users, zap.NewNop())
	r.POST("/api/auth/register", e.h.Register)
	r.POST("/api/auth/login", e.h.Login)
	r.GET("/api/auth/me", auth, e.h.Me)
	r.PUT("/api/auth/update", auth, e.h.Update)
	r.DELETE("/api/auth/me", auth, e.h.Delete)
	r.GET("/api/addresses", auth, e.h.ListAddresses)
	r.POST("/api/addresses", auth, e.h.AddAddress)
	r.PUT("/api/addresses/:id", auth, e.h.UpdateAddress)
	r.DELETE("/api/addresses/:id", auth, e.h.DeleteAddress)
	r.PATCH("/api/addresses/:id/default", auth, e.h.SetDefaultAddress)
	r.POST("/api/payment-methods", auth, e.h.AddPaymentMethod)
	r.GET("/api/wishlist", auth, e.h.GetWishlist)
	r.POST("/api/wishlist", auth, e.h.AddToWishlist)
	r.DELETE("/api/wishlist/:shoeId", auth, e.h.RemoveFromWishlist)
	r.POST("/api/wishlist/move-to-cart", auth, e.h.MoveToCart)
	e.r = r
	return e
}

func (e *env) do(method, path, authz, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func data(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	d, ok := decode(t, w)["data"].(map[string]any)
	require.True(t, ok, w.Body.String())
	return d
}

func TestRegister(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodPost, "/api/auth/register", "",
		`{"firstName":" Jane ","lastName":"Doe","email":"Jane@Example.com","password":"supersecret"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, "success", body["status"])
	assert.NotEmpty(t, body["token"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "jane@example.com", user["email"])
	assert.Equal(t, "Jane", user["firstName"])
	assert.NotContains(t, user, "password")

	w = e.do(http.MethodPost, "/api/auth/register", "",
		`{"firstName":"J","lastName":"D","email":"jane@example.com","password":"supersecret"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email already in use", decode(t, w)["message"])
}

func TestRegisterValidation(t *testing.T) {
	e := newEnv(t)
	cases := map[string]struct {
		body string
		msg  string
	}{
		"missing":  {`{"firstName":"Jane","email":"jane@example.com","password":"supersecret"}`, "All fields are required"},
		"email":    {`{"firstName":"Jane","lastName":"Doe","email":"jane","password":"supersecret"}`, "Please provide a valid email"},
		"password": {`{"firstName":"Jane","lastName":"Doe","email":"jane@example.com","password":"short"}`, "Password must be at least 8 characters"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			w := e.do(http.MethodPost, "/api/auth/register", "", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tc.msg, decode(t, w)["message"])
		})
	}
}

func TestLogin(t *testing.T) {
	e := newEnv(t)
	testutil.CreateUser(t, e.users, "jane@example.com")

	w := e.do(http.MethodPost, "/api/auth/login", "", `{"email":"JANE@example.com","password":"password123"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, decode(t, w)["token"])

	w = e.do(http.MethodPost, "/api/auth/login", "", `{"email":"jane@example.com","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid credentials", decode(t, w)["message"])

	w = e.do(http.MethodPost, "/api/auth/login", "", `{"email":"ghost@example.com","password":"password123"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(http.MethodPost, "/api/auth/login", "", `{"email":"jane@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email and password required", decode(t, w)["message"])
}

func TestLoginUpgradesBcryptHash(t *testing.T) {
	e := newEnv(t)
	legacy, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{FirstName: "Old", LastName: "Timer", Email: "old@example.com", Password: string(legacy)}
	require.NoError(t, e.users.Create(context.Background(), u))

	w := e.do(http.MethodPost, "/api/auth/login", "", `{"email":"old@example.com","password":"password123"}`)
	require.Equal(t, http.StatusOK, w.Code)

	stored, err := e.users.FindByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.Password, "$argon2id$"))
}

func TestLoginMergesGuestCart(t *testing.T) {
	shoe := testutil.Shoe("Air Max", 100, 5)
	e := newEnv(t, shoe)
	u := testutil.CreateUser(t, e.users, "jane@example.com")
	guest := uuid.NewString()
	ctx := context.Background()

	guestCart := cart.Cart{}
	require.NoError(t, guestCart.Add(cart.Item{ShoeID: shoe.ID.Hex(), Name: shoe.Name, Price: 100, Size: 9, Quantity: 2}))
	require.NoError(t, e.carts.Save(ctx, cache.GuestOwner(guest), guestCart))

	w := e.do(http.MethodPost, "/api/auth/login", "", `{"email":"jane@example.com","password":"password123"}`,
		handlers.GuestSessionHeader, guest)
	require.Equal(t, http.StatusOK, w.Code)

	merged, err := e.carts.Load(ctx, cache.UserOwner(u.ID.Hex()))
	require.NoError(t, err)
	assert.Equal(t, 2, merged.Count())
	leftover, err := e.carts.Load(ctx, cache.GuestOwner(guest))
	require.NoError(t, err)
	assert.Empty(t, leftover.Items)
}

func TestMeAndUpdate(t *testing.T) {
	e := newEnv(t)
	u := testutil.CreateUser(t, e.users, "jane@example.com")
	authz := testutil.Bearer(t, u)

	w := e.do(http.MethodGet, "/api/auth/me", authz, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jane@example.com", data(t, w)["user"].(map[string]any)["email"])

	w = e.do(http.MethodPut, "/api/auth/update", authz, `{"firstName":"Janet"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := data(t, w)["user"].(map[string]any)
	assert.Equal(t, "Janet", updated["firstName"])
	assert.Equal(t, "User", updated["lastName"])

	w = e.do(http.MethodPut, "/api/auth/update", authz, `{"newPassword":"brandnew123","currentPassword":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(http.MethodPut, "/api/auth/update", authz, `{"newPassword":"brandnew123","currentPassword":"password123"}`)
	require.Equal(t, http.StatusOK, w.Code)
	w = e.do(http.MethodPost, "/api/auth/login", "", `{"email":"jane@example.com","password":"brandnew123"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDeleteDeactivates(t *testing.T) {
	e := newEnv(t)
	u := testutil.CreateUser(t, e.users, "jane@example.com")
	authz := testutil.Bearer(t, u)

	w := e.do(http.MethodDelete, "/api/auth/me", authz, "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = e.do(http.MethodGet, "/api/auth/me", authz, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "User no longer exists", decode(t, w)["message"])
}

func TestAddressDefaults(t *testing.T) {
	e := newEnv(t)
	u := testutil.CreateUser(t, e.users, "jane@example.com")
	authz := testutil.Bearer(t, u)
	addr := `{"street":"1 Main St","city":"Pune","state":"MH","zip":"411001","country":"India"}`

	w := e.do(http.MethodPost, "/api/addresses", authz, addr)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = e.do(http.MethodPost, "/api/addresses", authz, addr)
	require.Equal(t, http.StatusCreated, w.Code)

	list := data(t, w)["addresses"].([]any)
	require.Len(t, list, 2)
	first, second := list[0].(map[string]any), list[1].(map[string]any)
	assert.Equal(t, true, first["isDefault"])
	assert.Equal(t, false, second["isDefault"])
	assert.Equal(t, "Home", second["type"])

	w = e.do(http.MethodPatch, "/api/addresses/"+second["_id"].(string)+"/default", authz, "")
	require.Equal(t, http.StatusOK, w.Code)
	list = data(t, w)["addresses"].([]any)
	assert.Equal(t, false, list[0].(map[string]any)["isDefault"])
	assert.Equal(t, true, list[1].(map[string]any)["isDefault"])

	w = e.do(http.MethodDelete, "/api/addresses/"+second["_id"].(string), authz, "")
	require.Equal(t, http.StatusOK, w.Code)
	list = data(t, w)["addresses"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, true, list[0].(map[string]any)["isDefault"])
}

func TestAddressValidation(t *testing.T) {
	e := newEnv(t)
	u := testutil.CreateUser(t, e.users, "jane@example.com")
	authz := testutil.Bearer(t, u)

	w := e.do(http.MethodPost, "/api/addresses", authz,
		`{"street":"1 Main St","city":"Pune","state":"MH","zip":"411001","country":"India","phone":"12345"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Please provide a valid 10-digit phone number", decode(t, w)["message"])

	w = e.do(http.MethodPut, "/api/addresses/not-an-id", authz, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentMethods(t *testing.T) {
	e := newEnv(t)
	u := testutil.CreateUser(t, e.users, "jane@example.com")
	authz := testutil.Bearer(t, u)

	w := e.do(http.MethodPost, "/api/payment-methods", authz, `{"type":"Visa","last4":"4242","expiry":"12/27"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.do(http.MethodPost, "/api/payment-methods", authz, `{"type":"Visa","last4":"4242","expiry":"01/26"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Card has expired", decode(t, w)["message"])

	w = e.do(http.MethodPost, "/api/payment-methods", authz, `{"cardNumber":"4242424242424242","last4":"4242","expiry":"12/27"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWishlistAndMoveToCart(t *testing.T) {
	inStock := testutil.Shoe("Air Max", 100, 5)
	soldOut := testutil.Shoe("Classic", 80, 0)
	e := newEnv(t, inStock, soldOut)
	u := testutil.CreateUser(t, e.users, "jane@example.com")
	authz := testutil.Bearer(t, u)

	for _, s := range []models.Shoe{inStock, soldOut} {
		w := e.do(http.MethodPost, "/api/wishlist", authz, `{"shoeId":"`+s.ID.Hex()+`"}`)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
	w := e.do(http.MethodPost, "/api/wishlist", authz, `{"shoeId":"bad"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodGet, "/api/wishlist", authz, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, data(t, w)["wishlist"], 2)

	w = e.do(http.MethodPost, "/api/wishlist/move-to-cart", authz, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), data(t, w)["moved"])

	c, err := e.carts.Load(context.Background(), cache.UserOwner(u.ID.Hex()))
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, inStock.ID.Hex(), c.Items[0].ShoeID)
	assert.Equal(t, 8.0, c.Items[0].Size)

	w = e.do(http.MethodGet, "/api/wishlist", authz, "")
	remaining := data(t, w)["wishlist"].([]any)
	require.Len(t, remaining, 1)
	assert.Equal(t, soldOut.ID.Hex(), remaining[0].(map[string]any)["_id"])

	w = e.do(http.MethodDelete, "/api/wishlist/"+soldOut.ID.Hex(), authz, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, data(t, w)["wishlist"])
}
