// Package webhook decodes Green API webhook notifications into a typed Event.
//
// Decode checks the payload shape against a JSON schema before decoding, so
// malformed bodies are recognised up front and acknowledged as no-ops by the
// caller instead of surfacing as pipeline failures.
package webhook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ingaz2013/sari-sub001/internal/domain"
)

// ErrUnprocessable is returned for a body that is not a well-formed webhook.
var ErrUnprocessable = errors.New("unprocessable webhook payload")

// TypeIncomingMessage is the only webhook type the pipeline processes.
const TypeIncomingMessage = "incomingMessageReceived"

// Provider message type discriminators.
const (
	MsgText         = "textMessage"
	MsgExtendedText = "extendedTextMessage"
	MsgAudio        = "audioMessage"
	MsgVoice        = "voiceMessage"
	MsgImage        = "imageMessage"
	MsgVideo        = "videoMessage"
	MsgDocument     = "documentMessage"
)

// Event is a decoded webhook notification.
type Event struct {
	Type          string
	InstanceID    string
	ReceiverPhone string
	MessageID     string
	Timestamp     time.Time
	ChatID        string
	SenderPhone   string
	SenderName    string
	MessageType   string
	Text          string
	MediaURL      string
	FileName      string
}

// IsIncoming reports whether the event is an inbound customer message.
func (e *Event) IsIncoming() bool { return e.Type == TypeIncomingMessage }

// IsGroup reports whether the message was posted in a group chat.
func (e *Event) IsGroup() bool { return strings.HasSuffix(e.ChatID, "@g.us") }

// IsVoice reports whether the message is an audio or voice note.
func (e *Event) IsVoice() bool { return e.MessageType == MsgAudio || e.MessageType == MsgVoice }

// Kind maps the provider message type onto the stored message type.
func (e *Event) Kind() string {
	switch e.MessageType {
	case MsgAudio, MsgVoice:
		return domain.MessageVoice
	case MsgImage:
		return domain.MessageImage
	case MsgVideo:
		return domain.MessageVideo
	case MsgDocument:
		return domain.MessageDocument
	default:
		return domain.MessageText
	}
}

type payload struct {
	TypeWebhook  string `json:"typeWebhook"`
	InstanceData struct {
		IDInstance json.RawMessage `json:"idInstance"`
		Wid        string          `json:"wid"`
	} `json:"instanceData"`
	Timestamp  int64  `json:"timestamp"`
	IDMessage  string `json:"idMessage"`
	SenderData struct {
		ChatID     string `json:"chatId"`
		Sender     string `json:"sender"`
		SenderName string `json:"senderName"`
		ChatName   string `json:"chatName"`
	} `json:"senderData"`
	MessageData struct {
		TypeMessage     string `json:"typeMessage"`
		TextMessageData struct {
			TextMessage string `json:"textMessage"`
		} `json:"textMessageData"`
		ExtendedTextMessageData struct {
			Text string `json:"text"`
		} `json:"extendedTextMessageData"`
		FileMessageData struct {
			DownloadURL string `json:"downloadUrl"`
			Caption     string `json:"caption"`
			FileName    string `json:"fileName"`
		} `json:"fileMessageData"`
		DownloadURL string `json:"downloadUrl"`
		Caption     string `json:"caption"`
		FileName    string `json:"fileName"`
	} `json:"messageData"`
}

// Decode validates body and returns the typed Event. Every shape problem is
// reported as an error wrapping ErrUnprocessable.
func Decode(body []byte) (*Event, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnprocessable, err)
	}
	if err := envelope.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnprocessable, err)
	}

	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnprocessable, err)
	}

	ev := &Event{
		Type:          p.TypeWebhook,
		InstanceID:    strings.Trim(string(p.InstanceData.IDInstance), `"`),
		ReceiverPhone: PhoneFromChatID(p.InstanceData.Wid),
		MessageID:     p.IDMessage,
		ChatID:        p.SenderData.ChatID,
		SenderPhone:   PhoneFromChatID(firstNonEmpty(p.SenderData.Sender, p.SenderData.ChatID)),
		SenderName:    firstNonEmpty(p.SenderData.SenderName, p.SenderData.ChatName),
		MessageType:   p.MessageData.TypeMessage,
	}
	if p.Timestamp > 0 {
		ev.Timestamp = time.Unix(p.Timestamp, 0).UTC()
	}
	if !ev.IsIncoming() {
		return ev, nil
	}
	if err := incoming.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnprocessable, err)
	}

	md := p.MessageData
	ev.Text = strings.TrimSpace(firstNonEmpty(
		md.TextMessageData.TextMessage,
		md.ExtendedTextMessageData.Text,
		md.FileMessageData.Caption,
		md.Caption,
	))
	ev.MediaURL = firstNonEmpty(md.FileMessageData.DownloadURL, md.DownloadURL)
	ev.FileName = firstNonEmpty(md.FileMessageData.FileName, md.FileName)
	return ev, nil
}

// PhoneFromChatID strips the "@c.us" style suffix from a chat id and keeps
// digits only.
func PhoneFromChatID(chatID string) string {
	if i := strings.IndexByte(chatID, '@'); i >= 0 {
		chatID = chatID[:i]
	}
	var b strings.Builder
	for _, r := range chatID {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
