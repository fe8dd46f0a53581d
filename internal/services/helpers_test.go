package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ingaz2013/sari-sub001/internal/domain"
	"github.com/ingaz2013/sari-sub001/internal/events"
	"github.com/ingaz2013/sari-sub001/internal/repo"
)

// ---------- test helpers ----------

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

const (
	testMerchant    = "11111111-1111-1111-1111-111111111111"
	testStorePhone  = "966555000111"
	testInstance    = "1101000001"
	testCustomer    = "966501234567"
	testCommerceTok = "salla-token"
)

// seedMerchant creates a merchant with a connected WhatsApp number, a
// commerce connection, and the given catalog.
func seedMerchant(t *testing.T, db *gorm.DB, products ...domain.Product) {
	t.Helper()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	must(db.Create(&domain.Merchant{ID: testMerchant, BusinessName: "متجر سارة"}).Error)
	must(db.Create(&domain.WhatsAppConnection{
		ID: uuid.NewString(), MerchantID: testMerchant, PhoneNumber: testStorePhone,
		InstanceID: testInstance, APIToken: "tok", Status: domain.ConnectionConnected,
	}).Error)
	must(db.Create(&domain.CommerceConnection{ID: uuid.NewString(), MerchantID: testMerchant, AccessToken: testCommerceTok}).Error)
	for i := range products {
		p := products[i]
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		p.MerchantID = testMerchant
		p.IsActive = true
		must(db.Create(&p).Error)
	}
}

func iphone() domain.Product {
	return domain.Product{ID: "p-iphone", ExternalProductID: "1001", Name: "آيفون 15", Price: 4999, Stock: 10}
}

func perfume() domain.Product {
	return domain.Product{ID: "p-perfume", ExternalProductID: "1002", Name: "عطر العود", Price: 15000, Stock: 5}
}

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

// ---------- fakes ----------

type sentMessage struct {
	Phone string
	Text  string
}

type fakeMessenger struct {
	mu     sync.Mutex
	sent   []sentMessage
	failOn map[int]bool // 1-based call index that fails
	calls  int
}

func (f *fakeMessenger) SendText(ctx context.Context, _ domain.WhatsAppConnection, phone, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.failOn[f.calls] {
		return "", errors.New("send failed")
	}
	f.sent = append(f.sent, sentMessage{Phone: phone, Text: text})
	return fmt.Sprintf("out-%d", f.calls), nil
}

func (f *fakeMessenger) SendFile(ctx context.Context, conn domain.WhatsAppConnection, phone, _, _, caption string) (string, error) {
	return f.SendText(ctx, conn, phone, caption)
}

func (f *fakeMessenger) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, s := range f.sent {
		out = append(out, s.Text)
	}
	return out
}

type fakeCompleter struct {
	out   []byte
	err   error
	delay time.Duration
	last  CompletionRequest
}

func (f *fakeCompleter) CompleteJSON(ctx context.Context, req CompletionRequest) ([]byte, error) {
	f.last = req
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.out, f.err
}

type fakeTranscriber struct {
	text  string
	err   error
	block bool
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, _, _ string) (string, error) {
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.text, f.err
}

type fakeResponder struct {
	reply string
	err   error
}

func (f *fakeResponder) Reply(context.Context, ReplyRequest) (string, error) { return f.reply, f.err }

type fakePlatform struct {
	calls int
	last  PlatformOrderRequest
	resp  *PlatformOrder
	err   error
	after func() // runs once the order is accepted
}

func (f *fakePlatform) CreateOrder(_ context.Context, _ string, req PlatformOrderRequest) (*PlatformOrder, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	if f.after != nil {
		defer f.after()
	}
	if f.resp != nil {
		return f.resp, nil
	}
	return &PlatformOrder{Success: true, ExternalOrderID: "ext-1", OrderNumber: "1001", PaymentURL: "https://store.example/pay/1001"}, nil
}

type fakeGateway struct {
	calls int
	last  ChargeRequest
	err   error
}

func (f *fakeGateway) CreateCharge(_ context.Context, _ string, req ChargeRequest) (*Charge, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &Charge{ID: "chg_1", URL: "https://tap.example/pay/chg_1"}, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (f *fakePublisher) Publish(_ context.Context, ev events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakePublisher) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeGuard struct {
	mu       sync.Mutex
	claimed  map[string]bool
	released []string
}

func (f *fakeGuard) Claim(_ context.Context, instanceID, messageID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimed == nil {
		f.claimed = map[string]bool{}
	}
	k := instanceID + "/" + messageID
	if f.claimed[k] {
		return false, nil
	}
	f.claimed[k] = true
	return true, nil
}

func (f *fakeGuard) Release(_ context.Context, instanceID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := instanceID + "/" + messageID
	delete(f.claimed, k)
	f.released = append(f.released, k)
	return nil
}
