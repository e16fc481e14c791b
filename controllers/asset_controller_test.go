package controllers

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func historicalFetchContext(body string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest("POST", "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c
}

func TestHistoricalFetchCount(t *testing.T) {
	// Empty body falls back to the default
	assert.Equal(t, 30, historicalFetchCount(historicalFetchContext("")))
	assert.Equal(t, 30, historicalFetchCount(historicalFetchContext("{}")))

	assert.Equal(t, 90, historicalFetchCount(historicalFetchContext(`{"count":90}`)))

	// Out-of-range counts are clamped to the default
	assert.Equal(t, 30, historicalFetchCount(historicalFetchContext(`{"count":0}`)))
	assert.Equal(t, 30, historicalFetchCount(historicalFetchContext(`{"count":1000}`)))
}
