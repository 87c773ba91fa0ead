package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendLowStockAlert_RequestShape(t *testing.T) {
	var gotRequest emailRequest
	var gotAPIKey, gotContentType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("api-key")
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	g := NewGateway(server.URL, "secret-key", "Your Store", "bagsuz@app.com", time.Second)

	err := g.SendLowStockAlert(context.Background(), "sales@acme.test", "Tote", 3)
	require.NoError(t, err)

	assert.Equal(t, "secret-key", gotAPIKey)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, emailParty{Name: "Your Store", Email: "bagsuz@app.com"}, gotRequest.Sender)
	require.Len(t, gotRequest.To, 1)
	assert.Equal(t, "sales@acme.test", gotRequest.To[0].Email)
	assert.Equal(t, "⚠️ Low Stock Alert: Tote", gotRequest.Subject)
	assert.Contains(t, gotRequest.HTMLContent, "<strong>Tote</strong>")
	assert.Contains(t, gotRequest.HTMLContent, "Only 3 units are left")
}

func TestSendLowStockAlert_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid key"}`))
	}))
	defer server.Close()

	g := NewGateway(server.URL, "bad-key", "Your Store", "bagsuz@app.com", time.Second)

	err := g.SendLowStockAlert(context.Background(), "sales@acme.test", "Tote", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "invalid key")
}

func TestSendLowStockAlert_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	g := NewGateway(server.URL, "key", "Your Store", "bagsuz@app.com", time.Second)

	err := g.SendLowStockAlert(context.Background(), "sales@acme.test", "Tote", 3)
	assert.Error(t, err)
}

func TestSendLowStockAlert_HonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	g := NewGateway(server.URL, "key", "Your Store", "bagsuz@app.com", time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := g.SendLowStockAlert(ctx, "sales@acme.test", "Tote", 3)
	assert.Error(t, err)
}
