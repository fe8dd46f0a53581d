package main

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ingaz2013/sari-sub001/internal/classifier"
	"github.com/ingaz2013/sari-sub001/internal/config"
	"github.com/ingaz2013/sari-sub001/internal/dedupe"
	"github.com/ingaz2013/sari-sub001/internal/events"
	"github.com/ingaz2013/sari-sub001/internal/http/handlers"
	"github.com/ingaz2013/sari-sub001/internal/integrations/greenapi"
	"github.com/ingaz2013/sari-sub001/internal/integrations/httpjson"
	"github.com/ingaz2013/sari-sub001/internal/integrations/openai"
	"github.com/ingaz2013/sari-sub001/internal/integrations/salla"
	"github.com/ingaz2013/sari-sub001/internal/integrations/tap"
	"github.com/ingaz2013/sari-sub001/internal/repo"
	"github.com/ingaz2013/sari-sub001/internal/services"
)

// app is the wired object graph behind every subcommand.
type app struct {
	DB     *gorm.DB
	Events events.Publisher
	Guard  services.DeliveryGuard

	Pipeline  *services.Pipeline
	Carts     *services.CartService
	Orders    *services.OrderStatusService
	Referrals *services.ReferralService
	Notifier  *services.Notifier
	Discounts *services.DiscountService
}

// openDB connects and migrates.
func openDB(cfg config.DBConfig) (*gorm.DB, error) {
	db, err := repo.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// wire builds the services over db. Optional infrastructure falls back to
// in-process implementations: the database guard without Redis, a no-op
// publisher without Kafka and the catalog responder without a model key.
func wire(cfg config.Config, db *gorm.DB) (*app, error) {
	ic := cfg.Integrations

	cls, err := classifier.Load(cfg.ClassifierKeywordsFile)
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}

	a := &app{DB: db}

	if len(cfg.Kafka.Brokers) > 0 {
		a.Events = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	} else {
		a.Events = events.Nop{}
	}

	if cfg.Redis.Addr != "" {
		a.Guard = dedupe.NewRedisGuard(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Webhook.DedupeTTL)
	} else {
		a.Guard = &dedupe.DBGuard{DB: db, TTL: cfg.Webhook.DedupeTTL}
	}

	messenger := greenapi.New(httpjson.New("greenapi", ic.ExternalTimeout), ic.GreenAPIBaseURL, ic.GreenAPISendRPS)

	discounts := &services.DiscountService{DB: db}
	a.Discounts = discounts
	a.Referrals = &services.ReferralService{DB: db, Discounts: discounts}
	a.Notifier = &services.Notifier{DB: db, Messenger: messenger}
	a.Carts = &services.CartService{
		DB:           db,
		Discounts:    discounts,
		Messenger:    messenger,
		Events:       a.Events,
		AbandonAfter: cfg.Cart.AbandonAfter,
		Delay:        cfg.Cart.SweepDelay,
		Jitter:       cfg.Cart.SweepJitter,
		Limit:        cfg.Cart.SweepLimit,
	}
	a.Orders = &services.OrderStatusService{
		DB:        db,
		Notifier:  a.Notifier,
		Referrals: a.Referrals,
		Discounts: discounts,
		Events:    a.Events,
	}

	a.Pipeline = &services.Pipeline{
		DB:         db,
		Guard:      a.Guard,
		Messenger:  messenger,
		Classifier: cls,
		Composer: &services.OrderComposer{
			DB:        db,
			Discounts: discounts,
			Referrals: a.Referrals,
			Carts:     a.Carts,
			Notifier:  a.Notifier,
			Platform:  salla.New(httpjson.New("salla", ic.ExternalTimeout), ic.SallaAPIBase),
			Gateway:   tap.New(httpjson.New("tap", ic.ExternalTimeout), ic.TapAPIBase),
			Events:    a.Events,
			AppURL:    ic.AppURL,
		},
		Responder:         &services.CatalogResponder{},
		Carts:             a.Carts,
		TranscribeTimeout: ic.TranscribeTimeout,
		ReplyTimeout:      ic.ExternalTimeout,
	}

	if ic.OpenAIAPIKey != "" {
		llm := openai.New(httpjson.New("openai", ic.ExternalTimeout), ic.OpenAIBaseURL, ic.OpenAIAPIKey, ic.OpenAIModel)
		a.Pipeline.Transcriber = llm
		a.Pipeline.Responder = llm
		a.Pipeline.Extractor = &services.OrderExtractor{
			DB:        db,
			Completer: llm,
			Matcher:   services.NewProductMatcher(cfg.ProductMatcher, cfg.Threshold),
			Timeout:   ic.ExtractTimeout,
		}
	} else {
		log.Warn().Msg("OPENAI_API_KEY not set: order extraction and voice notes disabled, replies come from the catalog")
	}
	return a, nil
}

// handlerServices exposes the app to the HTTP layer.
func (a *app) handlerServices() handlers.Services {
	return handlers.Services{
		Pipeline:  a.Pipeline,
		Carts:     a.Carts,
		Orders:    a.Orders,
		Referrals: a.Referrals,
		Templates: a.Notifier,
		Discounts: a.Discounts,
	}
}

// Close releases the broker, guard and database connections.
func (a *app) Close() error {
	var errs []error
	if a.Events != nil {
		errs = append(errs, a.Events.Close())
	}
	if g, ok := a.Guard.(interface{ Close() error }); ok {
		errs = append(errs, g.Close())
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		errs = append(errs, sqlDB.Close())
	}
	return errors.Join(errs...)
}

// bootstrap opens the database and wires the app.
func bootstrap(cfg config.Config) (*app, error) {
	db, err := openDB(cfg.DB)
	if err != nil {
		return nil, err
	}
	a, err := wire(cfg, db)
	if err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return nil, err
	}
	return a, nil
}
