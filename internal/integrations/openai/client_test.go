package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ingaz2013/sari-sub001/internal/domain"
	"github.com/ingaz2013/sari-sub001/internal/integrations/httpjson"
	"github.com/ingaz2013/sari-sub001/internal/services"
)

func newClient(url string) *Client {
	return New(httpjson.New("openai", time.Second), url, "sk-test", "")
}

func TestCompleteJSON_SendsSchemaAndReturnsContent(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"products\":[]}"}}]}`))
	}))
	defer srv.Close()

	out, err := newClient(srv.URL).CompleteJSON(context.Background(), services.CompletionRequest{
		System: "sys", User: "أبي عطر", SchemaName: "order_details",
		Schema: map[string]any{"type": "object"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"products":[]}`, string(out))
	assert.Equal(t, DefaultModel, got["model"])
	rf := got["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", rf["type"])
	assert.Equal(t, "order_details", rf["json_schema"].(map[string]any)["name"])
}

func TestCompleteJSON_RefusalAndEmpty(t *testing.T) {
	body := `{"choices":[{"message":{"refusal":"no"}}]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()
	c := newClient(srv.URL)

	_, err := c.CompleteJSON(context.Background(), services.CompletionRequest{})
	assert.ErrorContains(t, err, "refused")

	body = `{"choices":[]}`
	_, err = c.CompleteJSON(context.Background(), services.CompletionRequest{})
	assert.ErrorContains(t, err, "no choices")
}

func TestTranscribe_DownloadsAndUploads(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/media/v1.ogg", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "audio/ogg")
		_, _ = w.Write([]byte("OggS-audio"))
	})
	mux.HandleFunc("/audio/transcriptions", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, DefaultTranscribeModel, r.FormValue("model"))
		assert.Equal(t, "ar", r.FormValue("language"))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		data, _ := io.ReadAll(f)
		assert.Equal(t, "OggS-audio", string(data))
		assert.Equal(t, "v1.ogg", hdr.Filename)
		_, _ = w.Write([]byte(`{"text":"  أبي عطر العود "}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	text, err := newClient(srv.URL).Transcribe(context.Background(), srv.URL+"/media/v1.ogg", "ar")
	require.NoError(t, err)
	assert.Equal(t, "أبي عطر العود", text)
}

func TestReply_BuildsConversation(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"أهلاً"}}]}`))
	}))
	defer srv.Close()

	out, err := newClient(srv.URL).Reply(context.Background(), services.ReplyRequest{
		StoreName: "متجر سارة",
		Message:   "كم سعر العطر؟",
		Catalog:   []domain.Product{{Name: "عطر العود", Price: 15000, Stock: 0}},
		History: []domain.Message{
			{Direction: domain.DirectionIncoming, Content: "مرحبا"},
			{Direction: domain.DirectionOutgoing, Content: "أهلاً بك"},
			{Direction: domain.DirectionIncoming, Content: "كم سعر العطر؟"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "أهلاً", out)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "- عطر العود (150 ريال) غير متوفر حالياً")
	assert.Equal(t, "assistant", got.Messages[2].Role)
	assert.Equal(t, chatMessage{Role: "user", Content: "كم سعر العطر؟"}, got.Messages[3])
}

func TestAudioFileName(t *testing.T) {
	assert.Equal(t, "a.oga", audioFileName("https://x/a.oga?sig=1", ""))
	assert.Equal(t, "voice.mp3", audioFileName("https://x/download", "audio/mpeg"))
	assert.Equal(t, "voice.ogg", audioFileName("https://x/download", ""))
}
