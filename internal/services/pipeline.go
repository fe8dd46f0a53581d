// Package services – Pipeline
//
// Pipeline is the webhook entry point. For each decoded event it:
//
//  1. drops anything that is not an inbound one-to-one message
//  2. resolves the merchant from the receiving number (instance id fallback)
//  3. claims the delivery so a redelivered event is processed once
//  4. finds or creates the conversation and stores the inbound message
//  5. transcribes voice notes (apology and stop on failure)
//  6. classifies the text and runs either the order branch
//     (extract, compose) or the reply branch (Responder, cart tracking)
//
// Storage failures before any customer-visible effect release the claim and
// are returned, so the provider's redelivery retries the event. Failures of
// external calls end in a customer message instead.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/ingaz2013/sari-sub001/internal/classifier"
	"github.com/ingaz2013/sari-sub001/internal/domain"
	"github.com/ingaz2013/sari-sub001/internal/observability"
	"github.com/ingaz2013/sari-sub001/internal/repo"
	"github.com/ingaz2013/sari-sub001/internal/search"
	"github.com/ingaz2013/sari-sub001/internal/webhook"
)

// Outcome is what the pipeline did with an event.
type Outcome string

const (
	OutcomeProcessed     Outcome = "processed"
	OutcomeIgnored       Outcome = "ignored"
	OutcomeDuplicate     Outcome = "duplicate"
	OutcomeUnprocessable Outcome = "unprocessable"
)

const (
	defaultTranscribeTimeout = 30 * time.Second
	defaultReplyTimeout      = 30 * time.Second
	defaultHistoryLimit      = 20
	transcriptionLanguage    = "ar"
)

// Pipeline processes inbound WhatsApp messages.
type Pipeline struct {
	DB          *gorm.DB
	Guard       DeliveryGuard
	Messenger   Messenger
	Transcriber Transcriber
	Classifier  *classifier.Classifier
	Extractor   *OrderExtractor
	Composer    *OrderComposer
	Responder   Responder
	Carts       *CartService

	TranscribeTimeout time.Duration
	ReplyTimeout      time.Duration
	HistoryLimit      int
}

// inbound is the per-event state shared by the branches.
type inbound struct {
	ev   *webhook.Event
	conn *domain.WhatsAppConnection
	conv *domain.Conversation
	msg  *domain.Message
	text string
}

// Handle processes one event. The returned error is nil for every outcome
// except ErrUnknownConnection and storage failures.
//
// Cancellation of ctx is ignored: once started, an event runs to completion
// so a claimed message never stops between the platform order and its local
// row. Each external call is bounded by its own timeout.
func (p *Pipeline) Handle(ctx context.Context, ev *webhook.Event) (out Outcome, err error) {
	ctx = context.WithoutCancel(ctx)
	tr := otel.Tracer("services/Pipeline")
	ctx, span := tr.Start(ctx, "Handle",
		trace.WithAttributes(
			attribute.String("webhook.type", ev.Type),
			attribute.String("webhook.instance", ev.InstanceID),
			attribute.String("webhook.message_id", ev.MessageID),
			attribute.String("message.type", ev.MessageType),
		),
	)
	defer func() {
		label := string(out)
		switch {
		case errors.Is(err, ErrUnknownConnection):
			label = "unknown_connection"
		case err != nil:
			label = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(attribute.String("webhook.outcome", label))
		observability.WebhookOutcomes.WithLabelValues(label).Inc()
		span.End()
	}()
	log := loggerFrom(ctx)

	if !ev.IsIncoming() || ev.IsGroup() || ev.SenderPhone == "" {
		return OutcomeIgnored, nil
	}

	conn, err := p.resolveConnection(ctx, ev)
	if err != nil {
		if errors.Is(err, ErrUnknownConnection) {
			log.Error().Str("instance", ev.InstanceID).Str("receiver", maskPhone(ev.ReceiverPhone)).Msg("webhook for unknown connection")
		}
		return "", err
	}
	span.SetAttributes(attribute.String("merchant.id", conn.MerchantID))

	claimed, err := p.Guard.Claim(ctx, ev.InstanceID, ev.MessageID)
	if err != nil {
		return "", err
	}
	if !claimed {
		log.Info().Str("message_id", ev.MessageID).Msg("duplicate webhook delivery")
		return OutcomeDuplicate, nil
	}

	in, err := p.store(ctx, ev, conn)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return OutcomeDuplicate, nil
		}
		if rerr := p.Guard.Release(ctx, ev.InstanceID, ev.MessageID); rerr != nil {
			log.Error().Err(rerr).Str("message_id", ev.MessageID).Msg("release webhook claim")
		}
		return "", err
	}

	p.process(ctx, in)

	if err := repo.MarkMessageProcessed(ctx, p.DB, in.msg.ID); err != nil {
		log.Warn().Err(err).Str("message_id", in.msg.ID).Msg("mark message processed")
	}
	if c, ok := p.Guard.(interface {
		Complete(ctx context.Context, instanceID, messageID string) error
	}); ok {
		if err := c.Complete(ctx, ev.InstanceID, ev.MessageID); err != nil {
			log.Warn().Err(err).Str("message_id", ev.MessageID).Msg("complete webhook claim")
		}
	}
	return OutcomeProcessed, nil
}

func (p *Pipeline) resolveConnection(ctx context.Context, ev *webhook.Event) (*domain.WhatsAppConnection, error) {
	if ev.ReceiverPhone != "" {
		conn, err := repo.FindConnectionByPhone(ctx, p.DB, ev.ReceiverPhone)
		if err == nil {
			return conn, nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
	}
	if ev.InstanceID != "" {
		conn, err := repo.FindConnectionByInstance(ctx, p.DB, ev.InstanceID)
		if err == nil {
			return conn, nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
	}
	return nil, ErrUnknownConnection
}

// store resolves the conversation and writes the inbound message. Voice
// notes are stored empty and filled in after transcription.
func (p *Pipeline) store(ctx context.Context, ev *webhook.Event, conn *domain.WhatsAppConnection) (*inbound, error) {
	conv, err := repo.FindOrCreateConversation(ctx, p.DB, conn.MerchantID, ev.SenderPhone, ev.SenderName)
	if err != nil {
		return nil, err
	}
	content := ev.Text
	if ev.IsVoice() {
		content = ""
	}
	msg, err := repo.CreateMessage(ctx, p.DB, repo.NewMessage{
		ConversationID:    conv.ID,
		Direction:         domain.DirectionIncoming,
		Type:              ev.Kind(),
		Content:           content,
		MediaURL:          ev.MediaURL,
		ProviderMessageID: ev.MessageID,
	})
	if err != nil {
		return nil, err
	}
	if err := repo.TouchConversation(ctx, p.DB, conv.ID, time.Now().UTC()); err != nil {
		return nil, err
	}
	return &inbound{ev: ev, conn: conn, conv: conv, msg: msg, text: content}, nil
}

func (p *Pipeline) process(ctx context.Context, in *inbound) {
	log := loggerFrom(ctx)

	if in.ev.IsVoice() {
		text, err := p.transcribe(ctx, in)
		if err != nil {
			log.Warn().Err(err).Str("message_id", in.msg.ID).Msg("voice transcription failed")
			p.reply(ctx, in, msgVoiceApology)
			return
		}
		in.text = text
		p.reply(ctx, in, voiceAckMessage(text))
	}
	if strings.TrimSpace(in.text) == "" {
		return
	}

	c := p.Classifier
	if c == nil {
		c = classifier.Default()
	}
	verdict := c.Classify(in.text)
	if verdict.OrderIntent && p.Extractor != nil && p.Composer != nil {
		p.order(ctx, in)
		return
	}
	p.respond(ctx, in, verdict)
}

func (p *Pipeline) transcribe(ctx context.Context, in *inbound) (string, error) {
	if p.Transcriber == nil {
		return "", errors.New("no transcriber configured")
	}
	if in.ev.MediaURL == "" {
		return "", errors.New("voice note without media url")
	}
	timeout := p.TranscribeTimeout
	if timeout <= 0 {
		timeout = defaultTranscribeTimeout
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	text, err := p.Transcriber.Transcribe(tctx, in.ev.MediaURL, transcriptionLanguage)
	observability.ObserveExternal("transcription", start, err)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("empty transcript")
	}
	if err := repo.SetMessageContent(ctx, p.DB, in.msg.ID, text); err != nil {
		loggerFrom(ctx).Warn().Err(err).Str("message_id", in.msg.ID).Msg("store transcript")
	}
	return text, nil
}

// order runs the extractor and composer. The composer sends the
// confirmation itself; failures get a clarification or an apology.
func (p *Pipeline) order(ctx context.Context, in *inbound) {
	log := loggerFrom(ctx)
	merchantID := in.conn.MerchantID

	parsed, err := p.Extractor.Parse(ctx, merchantID, in.text)
	if err != nil {
		log.Info().Err(err).Str("phone", maskPhone(in.ev.SenderPhone)).Msg("order not understood")
		observability.OrderFailures.WithLabelValues("extraction").Inc()
		p.reply(ctx, in, msgOrderClarification)
		return
	}

	name := in.ev.SenderName
	if parsed.CustomerName != "" {
		name = parsed.CustomerName
	}
	res, err := p.Composer.Compose(ctx, ComposeRequest{
		MerchantID:    merchantID,
		CustomerPhone: in.ev.SenderPhone,
		CustomerName:  name,
		Parsed:        parsed,
		Message:       in.text,
	})
	switch {
	case err == nil:
		log.Info().Str("order_id", res.Order.ID).Str("order_number", res.Order.OrderNumber).Msg("order created from message")
	case errors.Is(err, ErrNoValidProducts):
		p.reply(ctx, in, msgOrderClarification)
	default:
		log.Error().Err(err).Str("phone", maskPhone(in.ev.SenderPhone)).Msg("order composition failed")
		p.reply(ctx, in, msgOrderFailed)
	}
}

// respond answers a non-order message and, for product selections, records
// the interest as an open cart.
func (p *Pipeline) respond(ctx context.Context, in *inbound, verdict classifier.Verdict) {
	log := loggerFrom(ctx)
	merchantID := in.conn.MerchantID

	catalog, err := repo.ListActiveProducts(ctx, p.DB, merchantID)
	if err != nil {
		log.Warn().Err(err).Msg("load catalog for reply")
	}

	if p.Responder != nil {
		text, err := p.generateReply(ctx, in, catalog)
		if err != nil {
			log.Warn().Err(err).Str("phone", maskPhone(in.ev.SenderPhone)).Msg("reply generation failed")
			text = msgReplyFailed
		}
		p.reply(ctx, in, text)
	}

	if verdict.ProductSelection && p.Carts != nil {
		p.trackCart(ctx, in, catalog)
	}
}

func (p *Pipeline) generateReply(ctx context.Context, in *inbound, catalog []domain.Product) (string, error) {
	req := ReplyRequest{
		MerchantID:   in.conn.MerchantID,
		CustomerName: in.ev.SenderName,
		Message:      in.text,
		Catalog:      catalog,
	}
	if m, err := repo.GetMerchant(ctx, p.DB, in.conn.MerchantID); err == nil {
		req.StoreName = m.BusinessName
	}
	limit := p.HistoryLimit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if hist, err := repo.ListMessages(ctx, p.DB, in.conv.ID, limit); err == nil {
		req.History = hist
	}

	timeout := p.ReplyTimeout
	if timeout <= 0 {
		timeout = defaultReplyTimeout
	}
	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	text, err := p.Responder.Reply(rctx, req)
	observability.ObserveExternal("responder", start, err)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("empty reply")
	}
	return text, nil
}

// trackCart is isolated from the reply: any failure is only logged.
func (p *Pipeline) trackCart(ctx context.Context, in *inbound, catalog []domain.Product) {
	items, total := mentionedProducts(in.text, catalog)
	if len(items) == 0 {
		return
	}
	id, err := p.Carts.Track(ctx, in.conn.MerchantID, in.ev.SenderPhone, in.ev.SenderName, items, total)
	log := loggerFrom(ctx)
	if err != nil {
		log.Warn().Err(err).Str("phone", maskPhone(in.ev.SenderPhone)).Msg("cart tracking failed")
		return
	}
	log.Debug().Str("cart_id", id).Int("items", len(items)).Msg("cart tracked")
}

// mentionedProducts returns one unit of every catalog product named in text.
func mentionedProducts(text string, catalog []domain.Product) ([]domain.OrderItem, int64) {
	norm := search.Normalize(text)
	var items []domain.OrderItem
	var total int64
	for _, pr := range catalog {
		name := search.Normalize(strings.TrimSpace(pr.Name))
		if name == "" || !strings.Contains(norm, name) {
			continue
		}
		items = append(items, domain.OrderItem{
			ProductID:         pr.ID,
			ExternalProductID: pr.ExternalProductID,
			Name:              pr.Name,
			Quantity:          1,
			Price:             pr.Price,
		})
		total += pr.Price
	}
	return items, total
}

// reply sends text to the customer and records it in the conversation.
// Both steps are best-effort.
func (p *Pipeline) reply(ctx context.Context, in *inbound, text string) {
	log := loggerFrom(ctx)
	start := time.Now()
	providerID, err := p.Messenger.SendText(ctx, *in.conn, in.ev.SenderPhone, text)
	observability.ObserveExternal("whatsapp_send", start, err)
	if err != nil {
		log.Warn().Err(err).Str("phone", maskPhone(in.ev.SenderPhone)).Msg("reply not sent")
		return
	}
	if _, err := repo.CreateMessage(ctx, p.DB, repo.NewMessage{
		ConversationID:    in.conv.ID,
		Direction:         domain.DirectionOutgoing,
		Type:              domain.MessageText,
		Content:           text,
		ProviderMessageID: providerID,
		Processed:         true,
	}); err != nil {
		log.Warn().Err(err).Str("conversation_id", in.conv.ID).Msg("store outgoing message")
	}
}
