// Package greenapi sends WhatsApp messages through Green API instances.
//
// Every call uses the credentials of the connection it is given; outbound
// sends are paced per instance with a token bucket so a reminder sweep or a
// burst of replies cannot trip the provider's spam protection.
package greenapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/ingaz2013/sari-sub001/internal/domain"
	"github.com/ingaz2013/sari-sub001/internal/integrations/httpjson"
)

// DefaultBaseURL is used when a connection has no API URL of its own.
const DefaultBaseURL = "https://api.green-api.com"

// Client implements services.Messenger.
type Client struct {
	HTTP    *httpjson.Client
	BaseURL string
	// SendRPS paces sends per instance; zero disables pacing.
	SendRPS float64

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New returns a client with per-instance pacing of rps messages per second.
func New(hc *httpjson.Client, baseURL string, rps float64) *Client {
	return &Client{HTTP: hc, BaseURL: baseURL, SendRPS: rps}
}

type sendResponse struct {
	IDMessage string `json:"idMessage"`
}

// SendText sends a text message to phone.
func (c *Client) SendText(ctx context.Context, conn domain.WhatsAppConnection, phone, text string) (string, error) {
	return c.send(ctx, conn, "sendMessage", map[string]any{
		"chatId":  ChatID(phone),
		"message": text,
	})
}

// SendFile sends a file by URL with an optional caption.
func (c *Client) SendFile(ctx context.Context, conn domain.WhatsAppConnection, phone, fileURL, fileName, caption string) (string, error) {
	return c.send(ctx, conn, "sendFileByUrl", map[string]any{
		"chatId":   ChatID(phone),
		"urlFile":  fileURL,
		"fileName": fileName,
		"caption":  caption,
	})
}

func (c *Client) send(ctx context.Context, conn domain.WhatsAppConnection, method string, body map[string]any) (string, error) {
	if conn.InstanceID == "" || conn.APIToken == "" {
		return "", errors.New("greenapi: connection has no instance credentials")
	}
	if err := c.limiter(conn.InstanceID).Wait(ctx); err != nil {
		return "", errors.Wrap(err, "greenapi: pacing")
	}
	var out sendResponse
	if err := c.HTTP.JSON(ctx, http.MethodPost, c.endpoint(conn, method), nil, body, &out); err != nil {
		return "", errors.Wrapf(err, "greenapi: %s", method)
	}
	if out.IDMessage == "" {
		return "", errors.Errorf("greenapi: %s returned no message id", method)
	}
	return out.IDMessage, nil
}

func (c *Client) endpoint(conn domain.WhatsAppConnection, method string) string {
	base := conn.APIURL
	if base == "" {
		base = c.BaseURL
	}
	if base == "" {
		base = DefaultBaseURL
	}
	return fmt.Sprintf("%s/waInstance%s/%s/%s", strings.TrimRight(base, "/"), conn.InstanceID, method, conn.APIToken)
}

func (c *Client) limiter(instanceID string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.limiters == nil {
		c.limiters = make(map[string]*rate.Limiter)
	}
	l, ok := c.limiters[instanceID]
	if !ok {
		limit := rate.Inf
		if c.SendRPS > 0 {
			limit = rate.Limit(c.SendRPS)
		}
		l = rate.NewLimiter(limit, 1)
		c.limiters[instanceID] = l
	}
	return l
}

// ChatID converts a phone number into a personal chat id.
func ChatID(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String() + "@c.us"
}
