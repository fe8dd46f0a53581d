package domain

import "time"

// Conversation statuses.
const (
	ConversationActive   = "active"
	ConversationClosed   = "closed"
	ConversationArchived = "archived"
)

// Message directions.
const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
)

// Message types.
const (
	MessageText     = "text"
	MessageVoice    = "voice"
	MessageImage    = "image"
	MessageVideo    = "video"
	MessageDocument = "document"
)

// Conversation is the thread between one merchant and one customer phone.
// It is created lazily on the first inbound message, touched on every
// message, and never hard-deleted.
type Conversation struct {
	ID            string    `json:"id"              gorm:"type:char(36);primaryKey"`
	MerchantID    string    `json:"merchant_id"     gorm:"type:char(36);not null;uniqueIndex:ux_conv_merchant_phone,priority:1"`
	CustomerPhone string    `json:"customer_phone"  gorm:"type:varchar(32);not null;uniqueIndex:ux_conv_merchant_phone,priority:2"`
	CustomerName  string    `json:"customer_name"   gorm:"type:varchar(255)"`
	Status        string    `json:"status"          gorm:"type:varchar(16);not null;default:'active'"`
	LastMessageAt time.Time `json:"last_message_at" gorm:"index"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName returns the database table name for Conversation.
func (Conversation) TableName() string { return "conversations" }

// Message is a single inbound or outbound WhatsApp message.
//
// Content is immutable once written, with one exception: voice messages are
// stored with empty content and filled in after transcription. The
// ProviderMessageID is unique per conversation so a redelivered webhook cannot
// store the same inbound message twice.
type Message struct {
	ID                string    `json:"id"                            gorm:"type:char(36);primaryKey"`
	ConversationID    string    `json:"conversation_id"               gorm:"type:char(36);not null;index:idx_conv_msgs,priority:1;uniqueIndex:ux_msg_provider,priority:1"`
	Direction         string    `json:"direction"                     gorm:"type:varchar(16);not null;check:direction IN ('incoming','outgoing')"`
	Type              string    `json:"type"                          gorm:"type:varchar(16);not null"`
	Content           string    `json:"content"                       gorm:"type:text;not null;default:''"`
	MediaURL          string    `json:"media_url,omitempty"           gorm:"type:text"`
	ProviderMessageID *string   `json:"provider_message_id,omitempty" gorm:"type:varchar(128);uniqueIndex:ux_msg_provider,priority:2"`
	IsProcessed       bool      `json:"is_processed"                  gorm:"not null;default:false"`
	CreatedAt         time.Time `json:"created_at"                    gorm:"index:idx_conv_msgs,priority:2"`
	UpdatedAt         time.Time `json:"updated_at"`

	Conversation Conversation `json:"-" gorm:"foreignKey:ConversationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }
