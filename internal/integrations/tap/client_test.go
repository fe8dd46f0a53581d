package tap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ingaz2013/sari-sub001/internal/integrations/httpjson"
	"github.com/ingaz2013/sari-sub001/internal/services"
)

func TestCreateCharge(t *testing.T) {
	var got chargeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/charges", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"chg_TS01","status":"INITIATED","transaction":{"url":"https://tap.example/pay"}}`))
	}))
	defer srv.Close()

	c := New(httpjson.New("tap", time.Second), srv.URL)
	ch, err := c.CreateCharge(context.Background(), "sk_test", services.ChargeRequest{
		Amount: 8998, Currency: "SAR", CustomerName: "سارة", CustomerPhone: "966501234567",
		RedirectURL: "https://sari.example/payment/callback",
		Metadata:    map[string]string{"orderId": "o1"},
	})
	require.NoError(t, err)
	assert.Equal(t, &services.Charge{ID: "chg_TS01", URL: "https://tap.example/pay"}, ch)
	assert.Equal(t, 89.98, got.Amount)
	assert.Equal(t, "src_all", got.Source.ID)
	assert.Equal(t, phone{CountryCode: "966", Number: "501234567"}, got.Customer.Phone)
	assert.Equal(t, "o1", got.Metadata["orderId"])
}

func TestCreateCharge_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"chg_1","status":"FAILED"}`))
	}))
	defer srv.Close()
	c := New(httpjson.New("tap", time.Second), srv.URL)

	_, err := c.CreateCharge(context.Background(), "", services.ChargeRequest{})
	assert.ErrorContains(t, err, "no secret key")
	_, err = c.CreateCharge(context.Background(), "sk", services.ChargeRequest{})
	assert.ErrorContains(t, err, "without id or url")
}

func TestLocalPhone(t *testing.T) {
	assert.Equal(t, "501234567", localPhone("+966 50 123 4567").Number)
	assert.Equal(t, "501234567", localPhone("0501234567").Number)
	assert.Equal(t, "501234567", localPhone("00966501234567").Number)
}
