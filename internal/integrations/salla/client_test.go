package salla

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

func TestCreateOrder_MapsRequestAndResponse(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"data":{"id":123456,"reference_id":78910,"payment_url":"https://s.example/pay"}}`))
	}))
	defer srv.Close()

	c := New(httpjson.New("salla", time.Second), srv.URL)
	out, err := c.CreateOrder(context.Background(), "tok", services.PlatformOrderRequest{
		CustomerName: "سارة", CustomerPhone: "966501234567", CustomerEmail: "966501234567@temp.salla.sa",
		Address: "حي النرجس", City: "الرياض",
		Items: []services.PlatformItem{{ProductID: "1001", Quantity: 2, Price: 4999}},
	})
	require.NoError(t, err)
	assert.Equal(t, &services.PlatformOrder{Success: true, ExternalOrderID: "123456", OrderNumber: "78910", PaymentURL: "https://s.example/pay"}, out)

	cust := got["customer"].(map[string]any)
	assert.Equal(t, "سارة", cust["first_name"])
	assert.Equal(t, "العميل", cust["last_name"])
	items := got["items"].([]any)
	assert.Equal(t, 49.99, items[0].(map[string]any)["price"])
	assert.Equal(t, "SA", got["shipping"].(map[string]any)["country"])
	assert.Nil(t, got["coupon_code"])
}

func TestCreateOrder_FailureModes(t *testing.T) {
	status, body := http.StatusOK, `{"data":{}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()
	c := New(httpjson.New("salla", time.Second), srv.URL)

	out, err := c.CreateOrder(context.Background(), "tok", services.PlatformOrderRequest{})
	require.NoError(t, err)
	assert.False(t, out.Success)

	status, body = http.StatusUnauthorized, `{"error":{"message":"Unauthorized"}}`
	_, err = c.CreateOrder(context.Background(), "tok", services.PlatformOrderRequest{})
	assert.ErrorContains(t, err, "401")
}

func TestSplitName(t *testing.T) {
	f, l := splitName("محمد بن علي")
	assert.Equal(t, "محمد", f)
	assert.Equal(t, "بن علي", l)
	f, l = splitName("  ")
	assert.Equal(t, "العميل", f)
	assert.Equal(t, "العميل", l)
}
