// Package salla creates orders on the Salla commerce platform with a
// merchant's own access token.
package salla

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/ingaz2013/sari-sub001/internal/integrations/httpjson"
	"github.com/ingaz2013/sari-sub001/internal/money"
	"github.com/ingaz2013/sari-sub001/internal/services"
)

// DefaultBaseURL is the Salla merchant API.
const DefaultBaseURL = "https://api.salla.dev/admin/v2"

const (
	defaultLastName = "العميل"
	country         = "SA"
	paymentMethod   = "cod"
)

// Client implements services.CommercePlatform.
type Client struct {
	HTTP    *httpjson.Client
	BaseURL string
}

// New returns a client for baseURL (DefaultBaseURL when empty).
func New(hc *httpjson.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{HTTP: hc, BaseURL: strings.TrimRight(baseURL, "/")}
}

type customer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Mobile    string `json:"mobile"`
	Email     string `json:"email"`
}

type item struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type shipping struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
	Country string `json:"country"`
	Phone   string `json:"phone"`
}

type orderRequest struct {
	Customer      customer `json:"customer"`
	Items         []item   `json:"items"`
	Shipping      shipping `json:"shipping"`
	PaymentMethod string   `json:"payment_method"`
	Notes         string   `json:"notes,omitempty"`
	CouponCode    *string  `json:"coupon_code"`
}

type orderResponse struct {
	Data struct {
		ID          any    `json:"id"`
		ReferenceID any    `json:"reference_id"`
		PaymentURL  string `json:"payment_url"`
	} `json:"data"`
}

// CreateOrder posts the order. A 2xx response without an order id is
// reported as Success=false.
func (c *Client) CreateOrder(ctx context.Context, accessToken string, req services.PlatformOrderRequest) (*services.PlatformOrder, error) {
	first, last := splitName(req.CustomerName)
	body := orderRequest{
		Customer: customer{FirstName: first, LastName: last, Mobile: req.CustomerPhone, Email: req.CustomerEmail},
		Shipping: shipping{
			Name:    req.CustomerName,
			Address: req.Address,
			City:    req.City,
			Country: country,
			Phone:   req.CustomerPhone,
		},
		PaymentMethod: paymentMethod,
		Notes:         req.Notes,
	}
	if req.CouponCode != "" {
		code := req.CouponCode
		body.CouponCode = &code
	}
	for _, it := range req.Items {
		body.Items = append(body.Items, item{ProductID: it.ProductID, Quantity: it.Quantity, Price: money.MajorFloat(it.Price)})
	}

	h := http.Header{}
	h.Set("Authorization", "Bearer "+accessToken)
	var out orderResponse
	if err := c.HTTP.JSON(ctx, http.MethodPost, c.BaseURL+"/orders", h, body, &out); err != nil {
		return nil, errors.Wrap(err, "salla: create order")
	}
	id, ref := idString(out.Data.ID), idString(out.Data.ReferenceID)
	if id == "" {
		return &services.PlatformOrder{Success: false}, nil
	}
	if ref == "" {
		ref = id
	}
	return &services.PlatformOrder{Success: true, ExternalOrderID: id, OrderNumber: ref, PaymentURL: out.Data.PaymentURL}, nil
}

func splitName(name string) (string, string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return defaultLastName, defaultLastName
	case 1:
		return parts[0], defaultLastName
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

// idString accepts the numeric or string ids Salla returns.
func idString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return fmt.Sprintf("%.0f", x)
	default:
		return fmt.Sprint(x)
	}
}

var _ services.CommercePlatform = (*Client)(nil)
