// Package tap creates Tap Payments charges with a merchant's own secret key.
package tap

import (
	"context"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/ingaz2013/sari-sub001/internal/integrations/httpjson"
	"github.com/ingaz2013/sari-sub001/internal/money"
	"github.com/ingaz2013/sari-sub001/internal/services"
)

// DefaultBaseURL is the Tap charges API.
const DefaultBaseURL = "https://api.tap.company/v2"

const countryCode = "966"

// Client implements services.PaymentGateway.
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

type phone struct {
	CountryCode string `json:"country_code"`
	Number      string `json:"number"`
}

type chargeRequest struct {
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Description string  `json:"description,omitempty"`
	Customer    struct {
		FirstName string `json:"first_name"`
		Phone     phone  `json:"phone"`
	} `json:"customer"`
	Source struct {
		ID string `json:"id"`
	} `json:"source"`
	Redirect struct {
		URL string `json:"url"`
	} `json:"redirect"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type chargeResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Transaction struct {
		URL string `json:"url"`
	} `json:"transaction"`
}

// CreateCharge creates a charge payable through every enabled source. The
// amount is converted to the major currency unit on the wire.
func (c *Client) CreateCharge(ctx context.Context, secretKey string, req services.ChargeRequest) (*services.Charge, error) {
	if secretKey == "" {
		return nil, errors.New("tap: no secret key")
	}
	var body chargeRequest
	body.Amount = money.MajorFloat(req.Amount)
	body.Currency = req.Currency
	body.Description = req.Description
	body.Customer.FirstName = req.CustomerName
	body.Customer.Phone = localPhone(req.CustomerPhone)
	body.Source.ID = "src_all"
	body.Redirect.URL = req.RedirectURL
	body.Metadata = req.Metadata

	h := http.Header{}
	h.Set("Authorization", "Bearer "+secretKey)
	var out chargeResponse
	if err := c.HTTP.JSON(ctx, http.MethodPost, c.BaseURL+"/charges", h, body, &out); err != nil {
		return nil, errors.Wrap(err, "tap: create charge")
	}
	if out.ID == "" || out.Transaction.URL == "" {
		return nil, errors.Errorf("tap: charge response without id or url (status %q)", out.Status)
	}
	return &services.Charge{ID: out.ID, URL: out.Transaction.URL}, nil
}

// localPhone splits a Saudi number into country code and local part.
func localPhone(p string) phone {
	var b strings.Builder
	for _, r := range p {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := strings.TrimPrefix(b.String(), "00")
	digits = strings.TrimPrefix(digits, countryCode)
	return phone{CountryCode: countryCode, Number: strings.TrimPrefix(digits, "0")}
}

var _ services.PaymentGateway = (*Client)(nil)
