package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"stride_back_end/internal/middleware"
	"stride_back_end/internal/models"
	"stride_back_end/internal/services"
	"stride_back_end/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/webhook"
	"go.uber.org/zap"
)

func init() { gin.SetMode(gin.TestMode) }

const whsec = "whsec_test"

type env struct {
	r     *gin.Engine
	svc   *services.OrderService
	users *testutil.Users
	shoes *testutil.Shoes
	shoe  models.Shoe
}

func newEnv(t *testing.T, gateway services.PaymentGateway, secret string) *env {
	t.Helper()
	e := &env{users: testutil.NewUsers(), shoe: testutil.Shoe("Gel Kayano", 160, 4)}
	e.shoes = testutil.NewShoes(e.shoe)
	e.svc = services.NewOrderService(services.OrderServiceConfig{
		Shoes:    e.shoes,
		Orders:   testutil.NewOrders(),
		Payments: gateway,
		CODFee:   50,
	})
	t.Cleanup(e.svc.Wait)
	h := New(e.svc, secret, zap.NewNop())

	r := gin.New()
	r.POST("/api/payments/intent", middleware.AuthRequired(testutil.Tokens(), e.users, zap.NewNop()), h.CreateIntent)
	r.POST("/api/payments/webhook", h.Webhook)
	e.r = r
	return e
}

func (e *env) upiOrder(t *testing.T, u *models.User) *models.Order {
	t.Helper()
	o, err := e.svc.Place(context.Background(), u, services.PlaceOrderInput{
		Items:         []services.OrderItemInput{{ShoeID: e.shoe.ID.Hex(), Quantity: 2, Size: 9}},
		ShippingInfo:  testutil.Shipping(),
		PaymentMethod: "upi",
	})
	require.NoError(t, err)
	return o
}

func (e *env) startIntent(t *testing.T, u *models.User, orderID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/payments/intent", strings.NewReader(`{"orderId":"`+orderID+`"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", testutil.Bearer(t, u))
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func eventPayload(t *testing.T, typ, intentID, orderID string) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]any{
		"id":          "evt_test",
		"object":      "event",
		"type":        typ,
		"api_version": stripe.APIVersion,
		"data": map[string]any{
			"object": map[string]any{
				"id":       intentID,
				"object":   "payment_intent",
				"metadata": map[string]string{"order_id": orderID},
			},
		},
	})
	require.NoError(t, err)
	return b
}

func (e *env) webhook(payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func TestCreateIntent(t *testing.T) {
	e := newEnv(t, &testutil.Gateway{}, "")
	u := testutil.CreateUser(t, e.users, "jane@stride.test")
	o := e.upiOrder(t, u)

	w := e.startIntent(t, u, o.ID.Hex())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Data struct {
			ClientSecret    string  `json:"clientSecret"`
			PaymentIntentID string  `json:"paymentIntentId"`
			Amount          float64 `json:"amount"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "pi_test_1", body.Data.PaymentIntentID)
	assert.NotEmpty(t, body.Data.ClientSecret)
	assert.Equal(t, 320.0, body.Data.Amount)

	other := testutil.CreateUser(t, e.users, "john@stride.test")
	assert.Equal(t, http.StatusNotFound, e.startIntent(t, other, o.ID.Hex()).Code)
	assert.Equal(t, http.StatusBadRequest, e.startIntent(t, u, "nope").Code)
}

func TestCreateIntentWithoutGateway(t *testing.T) {
	e := newEnv(t, nil, "")
	u := testutil.CreateUser(t, e.users, "jane@stride.test")
	o := e.upiOrder(t, u)

	w := e.startIntent(t, u, o.ID.Hex())
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "Online payments are not configured")
}

func TestUnsignedWebhookCompletesOrder(t *testing.T) {
	e := newEnv(t, &testutil.Gateway{}, "")
	u := testutil.CreateUser(t, e.users, "jane@stride.test")
	o := e.upiOrder(t, u)
	require.Equal(t, http.StatusOK, e.startIntent(t, u, o.ID.Hex()).Code)

	w := e.webhook(eventPayload(t, "payment_intent.succeeded", "pi_test_1", o.ID.Hex()), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got, err := e.svc.Get(context.Background(), u.ID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderProcessing, got.Status)
	assert.Equal(t, models.PaymentCompleted, got.PaymentStatus)
	assert.Equal(t, 2, e.shoes.Stock(e.shoe.ID))

	// Stripe redelivers events; the second delivery changes nothing.
	w = e.webhook(eventPayload(t, "payment_intent.succeeded", "pi_test_1", o.ID.Hex()), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, e.shoes.Stock(e.shoe.ID))
}

func TestWebhookIgnoresUnknownIntentAndEvents(t *testing.T) {
	e := newEnv(t, &testutil.Gateway{}, "")
	u := testutil.CreateUser(t, e.users, "jane@stride.test")
	o := e.upiOrder(t, u)
	require.Equal(t, http.StatusOK, e.startIntent(t, u, o.ID.Hex()).Code)

	w := e.webhook(eventPayload(t, "payment_intent.succeeded", "pi_someone_else", o.ID.Hex()), "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = e.webhook(eventPayload(t, "charge.refunded", "pi_test_1", o.ID.Hex()), "")
	assert.Equal(t, http.StatusOK, w.Code)

	got, err := e.svc.Get(context.Background(), u.ID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, got.PaymentStatus)

	w = e.webhook([]byte("{not json"), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignedWebhook(t *testing.T) {
	e := newEnv(t, &testutil.Gateway{}, whsec)
	u := testutil.CreateUser(t, e.users, "jane@stride.test")
	o := e.upiOrder(t, u)
	require.Equal(t, http.StatusOK, e.startIntent(t, u, o.ID.Hex()).Code)

	payload := eventPayload(t, "payment_intent.payment_failed", "pi_test_1", o.ID.Hex())

	w := e.webhook(payload, "t=1,v1=bad")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: whsec})
	w = e.webhook(signed.Payload, signed.Header)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got, err := e.svc.Get(context.Background(), u.ID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, got.Status)
	assert.Equal(t, models.PaymentFailed, got.PaymentStatus)
	assert.Equal(t, 4, e.shoes.Stock(e.shoe.ID))
}
