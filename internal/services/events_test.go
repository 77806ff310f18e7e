package services

import (
	"encoding/json"
	"testing"
	"time"

	"stride_back_end/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNewOrderEnvelope(t *testing.T) {
	o := &models.Order{
		ID:            primitive.NewObjectID(),
		User:          primitive.NewObjectID(),
		Status:        models.OrderPending,
		PaymentStatus: models.PaymentPending,
		PaymentMethod: models.PayCOD,
		Total:         250,
	}
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.FixedZone("IST", 5*3600+1800))

	ev, err := NewOrderEnvelope(EventOrderCreated, o, at)
	require.NoError(t, err)
	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, EventOrderCreated, ev.EventType)
	assert.Equal(t, 1, ev.EventVersion)
	assert.Equal(t, o.ID.Hex(), ev.CorrelationID)
	assert.Equal(t, time.UTC, ev.OccurredAt.Location())

	var p OrderEventPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &p))
	assert.Equal(t, o.User.Hex(), p.UserID)
	assert.Equal(t, models.PayCOD, p.PaymentMethod)
	assert.Equal(t, 250.0, p.Total)
}
