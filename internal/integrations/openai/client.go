// Package openai implements the language-model collaborators on the OpenAI
// HTTP API: strict JSON-schema completions for order extraction, Whisper
// transcription for voice notes, and the conversational sales assistant.
package openai

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/pkg/errors"

	"github.com/ingaz2013/sari-sub001/internal/domain"
	"github.com/ingaz2013/sari-sub001/internal/integrations/httpjson"
	"github.com/ingaz2013/sari-sub001/internal/money"
	"github.com/ingaz2013/sari-sub001/internal/services"
)

const (
	DefaultBaseURL         = "https://api.openai.com/v1"
	DefaultModel           = "gpt-4o"
	DefaultTranscribeModel = "whisper-1"

	maxAudioBytes  = 25 << 20
	replyMaxTokens = 500
	catalogInReply = 30
)

// Client talks to the OpenAI API with one key.
type Client struct {
	HTTP            *httpjson.Client
	BaseURL         string
	APIKey          string
	Model           string
	TranscribeModel string
}

// New returns a client with defaults for empty settings.
func New(hc *httpjson.Client, baseURL, apiKey, model string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{HTTP: hc, BaseURL: strings.TrimRight(baseURL, "/"), APIKey: apiKey, Model: model, TranscribeModel: DefaultTranscribeModel}
}

func (c *Client) auth() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+c.APIKey)
	return h
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens,omitempty"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func (c *Client) chat(ctx context.Context, req chatRequest) (string, error) {
	var out chatResponse
	if err := c.HTTP.JSON(ctx, http.MethodPost, c.BaseURL+"/chat/completions", c.auth(), req, &out); err != nil {
		return "", errors.Wrap(err, "openai: chat completion")
	}
	if len(out.Choices) == 0 {
		return "", errors.New("openai: no choices")
	}
	msg := out.Choices[0].Message
	if msg.Refusal != "" {
		return "", errors.Errorf("openai: refused: %s", msg.Refusal)
	}
	return msg.Content, nil
}

// CompleteJSON implements services.Completer. The schema is sent as the
// response format; the caller validates the returned document.
func (c *Client) CompleteJSON(ctx context.Context, req services.CompletionRequest) ([]byte, error) {
	content, err := c.chat(ctx, chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		ResponseFormat: map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   req.SchemaName,
				"schema": req.Schema,
			},
		},
	})
	if err != nil {
		return nil, err
	}
	return []byte(content), nil
}

type transcription struct {
	Text string `json:"text"`
}

// Transcribe implements services.Transcriber: the audio is downloaded and
// uploaded to the transcription endpoint.
func (c *Client) Transcribe(ctx context.Context, audioURL, language string) (string, error) {
	audio, contentType, err := c.HTTP.Get(ctx, audioURL, maxAudioBytes)
	if err != nil {
		return "", errors.Wrap(err, "openai: fetch audio")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", audioFileName(audioURL, contentType))
	if err != nil {
		return "", errors.Wrap(err, "openai: multipart")
	}
	if _, err := fw.Write(audio); err != nil {
		return "", errors.Wrap(err, "openai: multipart")
	}
	_ = mw.WriteField("model", c.TranscribeModel)
	if language != "" {
		_ = mw.WriteField("language", language)
	}
	if err := mw.Close(); err != nil {
		return "", errors.Wrap(err, "openai: multipart")
	}

	h := c.auth()
	h.Set("Content-Type", mw.FormDataContentType())
	var out transcription
	if err := c.HTTP.Do(ctx, http.MethodPost, c.BaseURL+"/audio/transcriptions", h, &body, &out); err != nil {
		return "", errors.Wrap(err, "openai: transcription")
	}
	return strings.TrimSpace(out.Text), nil
}

func audioFileName(rawURL, contentType string) string {
	if base := path.Base(strings.SplitN(rawURL, "?", 2)[0]); strings.Contains(base, ".") {
		return base
	}
	switch {
	case strings.Contains(contentType, "mpeg"):
		return "voice.mp3"
	case strings.Contains(contentType, "mp4"):
		return "voice.m4a"
	default:
		return "voice.ogg"
	}
}

const assistantPrompt = `أنت ساري، مساعد مبيعات ذكي وودود عبر الواتساب.

- تتحدث باللهجة السعودية بطريقة طبيعية وودودة، وتستخدم الإيموجي باعتدال
- تجيب عن أسئلة المنتجات والأسعار والتوصيل وتساعد العميل على إتمام طلبه
- لا تخترع معلومات عن المنتجات، استخدم فقط المعلومات المتوفرة أدناه
- ردودك قصيرة ومباشرة`

// Reply implements services.Responder.
func (c *Client) Reply(ctx context.Context, req services.ReplyRequest) (string, error) {
	msgs := []chatMessage{{Role: "system", Content: assistantPrompt + replyContext(req)}}
	for _, m := range req.History {
		if m.Content == "" {
			continue
		}
		role := "user"
		if m.Direction == domain.DirectionOutgoing {
			role = "assistant"
		}
		msgs = append(msgs, chatMessage{Role: role, Content: m.Content})
	}
	if n := len(msgs); n == 1 || msgs[n-1].Content != req.Message || msgs[n-1].Role != "user" {
		msgs = append(msgs, chatMessage{Role: "user", Content: req.Message})
	}
	return c.chat(ctx, chatRequest{Model: c.Model, Messages: msgs, Temperature: 0.8, MaxTokens: replyMaxTokens})
}

func replyContext(req services.ReplyRequest) string {
	var b strings.Builder
	if req.StoreName != "" {
		fmt.Fprintf(&b, "\n\nاسم المتجر: %s", req.StoreName)
	}
	if req.CustomerName != "" {
		fmt.Fprintf(&b, "\nاسم العميل: %s", req.CustomerName)
	}
	if len(req.Catalog) > 0 {
		b.WriteString("\n\nالمنتجات المتوفرة:")
		for i, p := range req.Catalog {
			if i == catalogInReply {
				break
			}
			fmt.Fprintf(&b, "\n- %s (%s ريال)", p.Name, money.Format(p.Price))
			if p.Stock <= 0 {
				b.WriteString(" غير متوفر حالياً")
			}
		}
	}
	return b.String()
}

// Compile-time checks.
var (
	_ services.Completer   = (*Client)(nil)
	_ services.Transcriber = (*Client)(nil)
	_ services.Responder   = (*Client)(nil)
)
