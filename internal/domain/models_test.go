package domain

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&Merchant{}, &WhatsAppConnection{}, &Conversation{}, &Message{},
		&Order{}, &DiscountCode{}, &ReferralCode{}, &Referral{},
		&AbandonedCart{}, &NotificationTemplate{}, &WebhookReceipt{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestMigration_NaturalKeyIndexes(t *testing.T) {
	db := newTestDB(t)
	m := db.Migrator()

	cases := []struct {
		model any
		index string
	}{
		{&WhatsAppConnection{}, "ux_wa_phone"},
		{&WhatsAppConnection{}, "ux_wa_instance"},
		{&Conversation{}, "ux_conv_merchant_phone"},
		{&Message{}, "ux_msg_provider"},
		{&DiscountCode{}, "ux_discount_code"},
		{&ReferralCode{}, "ux_referral_code"},
		{&ReferralCode{}, "ux_referral_merchant_phone"},
		{&Referral{}, "ux_referral_code_phone"},
		{&AbandonedCart{}, "ux_cart_open"},
		{&NotificationTemplate{}, "ux_template_merchant_status"},
		{&WebhookReceipt{}, "ux_receipt_instance_msg"},
	}
	for _, tc := range cases {
		if !m.HasIndex(tc.model, tc.index) {
			t.Errorf("expected index %q on %T", tc.index, tc.model)
		}
	}
}

func TestConversation_UniquePerMerchantPhone(t *testing.T) {
	db := newTestDB(t)
	now := time.Now().UTC()

	if err := db.Create(&Conversation{ID: "c1", MerchantID: "m1", CustomerPhone: "966500000001", Status: ConversationActive, LastMessageAt: now}).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}
	err := db.Create(&Conversation{ID: "c2", MerchantID: "m1", CustomerPhone: "966500000001", Status: ConversationActive, LastMessageAt: now}).Error
	if err == nil {
		t.Fatal("expected unique violation for same merchant/phone")
	}
	if err := db.Create(&Conversation{ID: "c3", MerchantID: "m2", CustomerPhone: "966500000001", Status: ConversationActive, LastMessageAt: now}).Error; err != nil {
		t.Fatalf("other merchant should be allowed: %v", err)
	}
}

func TestAbandonedCart_OpenKeyAllowsManyClosed(t *testing.T) {
	db := newTestDB(t)
	key := CartOpenKey("m1", "966500000001")

	open := &AbandonedCart{ID: "a1", MerchantID: "m1", CustomerPhone: "966500000001", OpenKey: &key}
	if err := db.Create(open).Error; err != nil {
		t.Fatalf("insert open: %v", err)
	}
	dup := &AbandonedCart{ID: "a2", MerchantID: "m1", CustomerPhone: "966500000001", OpenKey: &key}
	if err := db.Create(dup).Error; err == nil {
		t.Fatal("expected second open cart to be rejected")
	}

	// Closed carts carry a NULL key and never collide.
	for _, id := range []string{"a3", "a4"} {
		c := &AbandonedCart{ID: id, MerchantID: "m1", CustomerPhone: "966500000001", ReminderSent: true}
		if err := db.Create(c).Error; err != nil {
			t.Fatalf("insert closed %s: %v", id, err)
		}
	}
}

func TestOrder_ItemsRoundTrip(t *testing.T) {
	db := newTestDB(t)
	o := &Order{
		ID: "o1", MerchantID: "m1", ExternalOrderID: "x1", OrderNumber: "1001",
		CustomerPhone: "966500000001", TotalAmount: 9998, Status: OrderPending,
		Items: []OrderItem{{ProductID: "p1", Name: "آيفون 15", Quantity: 2, Price: 4999}},
	}
	if err := db.Create(o).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}
	var got Order
	if err := db.First(&got, "id = ?", "o1").Error; err != nil {
		t.Fatalf("readback: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].LineTotal() != 9998 {
		t.Fatalf("unexpected items: %+v", got.Items)
	}
}

func TestMessage_DirectionCheck(t *testing.T) {
	db := newTestDB(t)
	if err := db.Create(&Conversation{ID: "c1", MerchantID: "m1", CustomerPhone: "1", LastMessageAt: time.Now()}).Error; err != nil {
		t.Fatalf("conv: %v", err)
	}
	err := db.Create(&Message{ID: "x", ConversationID: "c1", Direction: "sideways", Type: MessageText}).Error
	if err == nil {
		t.Fatal("expected check constraint violation")
	}
}
