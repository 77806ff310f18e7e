package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeHitIDs(t *testing.T) {
	body := `{"hits":{"total":{"value":3},"hits":[
		{"_id":"64b7f0c2a1b2c3d4e5f60718","_score":2.1},
		{"_id":"legacy-id","_score":1.5},
		{"_id":"64b7f0c2a1b2c3d4e5f60719","_score":0.9}
	]}}`
	ids, err := decodeHitIDs(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, "64b7f0c2a1b2c3d4e5f60718", ids[0].Hex())
	assert.Equal(t, "64b7f0c2a1b2c3d4e5f60719", ids[1].Hex())
}

func TestDecodeHitIDsEmpty(t *testing.T) {
	ids, err := decodeHitIDs(strings.NewReader(`{"hits":{"hits":[]}}`))
	require.NoError(t, err)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)

	_, err = decodeHitIDs(strings.NewReader(`not json`))
	assert.Error(t, err)
}
