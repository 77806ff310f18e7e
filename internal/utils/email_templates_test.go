package utils

import (
	"testing"

	"stride_back_end/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestOrderEmail(t *testing.T) {
	o := &models.Order{
		ID:       primitive.NewObjectID(),
		Customer: models.Customer{FirstName: "Asha"},
		Items: []models.OrderItem{
			{Name: "Nike <Air> Max", Price: 134.99, Quantity: 2, Size: 9},
		},
		Subtotal: 269.98,
		CODFee:   50,
		Total:    319.98,
		Status:   models.OrderPending,
	}

	subject, body, err := OrderEmail(o)
	require.NoError(t, err)
	assert.Contains(t, subject, "Order confirmed")
	assert.Contains(t, subject, o.ID.Hex()[16:])
	assert.Contains(t, body, "Hi Asha")
	assert.Contains(t, body, "Nike &lt;Air&gt; Max", "names are escaped")
	assert.Contains(t, body, "₹269.98")
	assert.Contains(t, body, "Cash on delivery fee: ₹50.00")
	assert.Contains(t, body, "₹319.98")

	o.Status = models.OrderShipped
	o.CODFee = 0
	subject, body, err = OrderEmail(o)
	require.NoError(t, err)
	assert.Contains(t, subject, "shipped")
	assert.NotContains(t, body, "Cash on delivery")
}
