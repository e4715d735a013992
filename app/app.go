package app

import (
	"context"
	"fmt"

	"snap2sell/admin"
	"snap2sell/auth"
	"snap2sell/cart"
	"snap2sell/chatbot"
	"snap2sell/config"
	"snap2sell/db"
	"snap2sell/gateway"
	"snap2sell/globals"
	"snap2sell/ml"
	"snap2sell/mq"
	"snap2sell/orders"
	"snap2sell/products"
	"snap2sell/ratelim"
	"snap2sell/rdx"
	"snap2sell/receipt"
	"snap2sell/reviews"

	"github.com/sirupsen/logrus"
)

// App holds every client component, wired once per process.
type App struct {
	Config *config.Config
	Log    logrus.FieldLogger

	Store   db.Storage
	Bus     *mq.Bus
	API     *gateway.Client
	Session *auth.Session
	Cart    *cart.Store

	Checkout *orders.Checkout
	Orders   *orders.Service
	Products *products.Service
	Reviews  *reviews.Service
	Chatbot  *chatbot.Service
	ML       *ml.Service
	Admin    *admin.Service
	Receipts *receipt.Signer
}

// New builds the application over cfg. The session is restored before New returns, so the
// caller sees the persisted login (or none).
func New(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*App, error) {
	store, err := OpenStorage(ctx, cfg.Storage, cfg.Redis, cfg.Mongo, log)
	if err != nil {
		return nil, err
	}
	return Assemble(ctx, cfg, store, log), nil
}

// Assemble wires the components over an already opened store.
func Assemble(ctx context.Context, cfg *config.Config, store db.Storage, log logrus.FieldLogger) *App {
	bus := mq.NewBus(log)
	vault := auth.NewVault(store, log)
	api := gateway.New(gateway.Options{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Limiter: ratelim.NewRateLimiter(cfg.API.Rate, cfg.API.Burst),
		Bus:     bus,
		Logger:  log,
	}, vault)

	session := auth.NewSession(api, vault, store, bus, log)
	session.Restore(ctx)

	c := cart.New(ctx, store, bus, log)
	orderSvc := orders.NewService(api)

	return &App{
		Config:   cfg,
		Log:      log,
		Store:    store,
		Bus:      bus,
		API:      api,
		Session:  session,
		Cart:     c,
		Checkout: orders.NewCheckout(c, orderSvc, bus, log),
		Orders:   orderSvc,
		Products: products.NewService(api),
		Reviews:  reviews.NewService(api),
		Chatbot:  chatbot.NewService(api),
		ML:       ml.NewService(api),
		Admin:    admin.NewService(api),
		Receipts: receipt.NewSigner(cfg.Storage.Secret),
	}
}

// OpenStorage selects the durable state backend. Tokens are sealed when a secret is set.
func OpenStorage(ctx context.Context, st config.Storage, rc config.Redis, mc config.Mongo, log logrus.FieldLogger) (db.Storage, error) {
	var (
		store db.Storage
		err   error
	)
	switch st.Driver {
	case "", "file":
		store, err = db.NewFileStore(st.Path)
	case "memory":
		store = db.NewMemoryStore()
	case "redis":
		store, err = rdx.Connect(ctx, rc.Addr, rc.Password, rc.DB, rc.Prefix, log)
	case "mongo":
		store, err = db.ConnectMongo(ctx, mc.URI, mc.Database, mc.Collection)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", st.Driver)
	}
	if err != nil {
		return nil, err
	}
	if st.Secret != "" {
		store = db.NewSealedStore(store, st.Secret, globals.SensitiveKeys...)
	}
	return store, nil
}

// WatchCart keeps the cart fresh until ctx ends.
func (a *App) WatchCart(ctx context.Context) {
	go a.Cart.Watch(ctx, a.Config.Cart.PollInterval)
}

func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	if err := a.Store.Close(); err != nil {
		return fmt.Errorf("close storage: %w", err)
	}
	return nil
}
