package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribedTo(t *testing.T) {
	client := &WSClient{subscribed: map[string]bool{}}

	// No subscriptions means everything
	assert.True(t, client.subscribedTo("BTC"))

	client.subscribed["BTC"] = true
	assert.True(t, client.subscribedTo("BTC"))
	assert.False(t, client.subscribedTo("ETH"))
}

func TestFilterForClient(t *testing.T) {
	service := &RealtimeQuoteService{}
	client := &WSClient{subscribed: map[string]bool{"BTC": true}}

	message := WebSocketMessage{
		Type: "quotes",
		Data: []AssetQuoteSnapshot{
			{Symbol: "BTC", Price: 65000},
			{Symbol: "ETH", Price: 3500},
		},
	}

	payload, err := service.filterForClient(client, message)
	require.NoError(t, err)
	require.NotNil(t, payload)

	var decoded struct {
		Type string               `json:"type"`
		Data []AssetQuoteSnapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "quotes", decoded.Type)
	require.Len(t, decoded.Data, 1)
	assert.Equal(t, "BTC", decoded.Data[0].Symbol)
}

func TestFilterForClientNoMatches(t *testing.T) {
	service := &RealtimeQuoteService{}
	client := &WSClient{subscribed: map[string]bool{"SOL": true}}

	message := WebSocketMessage{
		Type: "quotes",
		Data: []AssetQuoteSnapshot{{Symbol: "BTC"}},
	}

	payload, err := service.filterForClient(client, message)
	require.NoError(t, err)
	assert.Nil(t, payload)
}

func TestFilterForClientNonQuotePayload(t *testing.T) {
	service := &RealtimeQuoteService{}
	client := &WSClient{subscribed: map[string]bool{"BTC": true}}

	message := WebSocketMessage{Type: "status", Data: map[string]string{"state": "ok"}}

	payload, err := service.filterForClient(client, message)
	require.NoError(t, err)
	assert.NotNil(t, payload)
}
