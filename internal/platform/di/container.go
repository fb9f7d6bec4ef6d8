// internal/platform/di/container.go
package di

import (
	"context"
	"fmt"
	"log"

	"cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"

	httpin "cartsync/internal/adapters/in/http"
	"cartsync/internal/adapters/in/http/handler"
	"cartsync/internal/adapters/in/http/middleware"
	dbout "cartsync/internal/adapters/out/db"
	fsout "cartsync/internal/adapters/out/firestore"
	gcsout "cartsync/internal/adapters/out/gcs"
	httpout "cartsync/internal/adapters/out/http"
	sqliteout "cartsync/internal/adapters/out/sqlite"
	query "cartsync/internal/application/query"
	usecase "cartsync/internal/application/usecase"
	cartdom "cartsync/internal/domain/cart"
	iddom "cartsync/internal/domain/identity"
	stockdom "cartsync/internal/domain/stock"
	"cartsync/internal/infra/config"
	"cartsync/internal/infra/database"
	firestoreinfra "cartsync/internal/infra/firestore"
)

// Container holds the wired object graph for one cart engine process.
type Container struct {
	Config *config.Config

	Engine   *usecase.CartEngine
	Monitor  *usecase.StockMonitor
	CartView *query.CartViewService
	Notices  *handler.NoticeHub

	FirebaseAuth *middleware.FirebaseAuthClient

	closers []func() error
}

// NewContainer wires the engine from environment configuration.
//
// Cart store selection: CART_API_BASE_URL > DATABASE_URL > Firestore.
// Stock oracle selection: STOCK_BASE_URL > Firestore "inventories".
// The SQLite mirror is always on (MIRROR_DB_PATH).
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	if cfg == nil {
		cfg = config.Load()
	}
	c := &Container{Config: cfg}

	// 1) Durable local mirror (required: rehydration depends on it).
	mirror, err := sqliteout.Open(cfg.MirrorDBPath)
	if err != nil {
		return nil, fmt.Errorf("di: mirror open failed (path=%s): %w", cfg.MirrorDBPath, err)
	}
	c.closers = append(c.closers, mirror.Close)
	log.Printf("[di] mirror ready path=%s", cfg.MirrorDBPath)

	// 2) Firestore client, created lazily: only when the store or the
	// oracle falls back to it.
	var fsClient *firestoreinfra.ClientWrapper
	firestoreClient := func() (*firestoreinfra.ClientWrapper, error) {
		if fsClient != nil {
			return fsClient, nil
		}
		cw, err := firestoreinfra.NewClient(ctx, cfg.FirestoreProjectID, cfg.FirestoreCredentialsFile)
		if err != nil {
			return nil, err
		}
		fsClient = cw
		c.closers = append(c.closers, cw.Close)
		return cw, nil
	}

	// 3) Cart store.
	var store cartdom.Store
	switch {
	case cfg.CartAPIBaseURL != "":
		store = httpout.NewCartStoreClient(cfg.CartAPIBaseURL)
		log.Printf("[di] cart store = http base=%s", cfg.CartAPIBaseURL)

	case cfg.DatabaseURL != "" || cfg.DatabaseURLSecret != "":
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn, err = resolveSecret(ctx, cfg.GCPProjectID, cfg.DatabaseURLSecret)
			if err != nil {
				c.Close()
				return nil, fmt.Errorf("di: DATABASE_URL_SECRET resolve failed: %w", err)
			}
		}
		conn, err := database.NewConnection(dsn)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("di: postgres connect failed: %w", err)
		}
		c.closers = append(c.closers, conn.Close)
		store = dbout.NewCartStorePG(conn.Client)
		log.Printf("[di] cart store = postgres")

	default:
		cw, err := firestoreClient()
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("di: firestore init failed: %w", err)
		}
		store = fsout.NewCartStoreFS(cw.Client)
		log.Printf("[di] cart store = firestore project=%s", cw.ProjectID)
	}

	// 4) Stock oracle.
	var oracle stockdom.Oracle
	if cfg.StockBaseURL != "" {
		oracle = httpout.NewStockOracleClient(cfg.StockBaseURL)
		log.Printf("[di] stock oracle = http base=%s", cfg.StockBaseURL)
	} else {
		cw, err := firestoreClient()
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("di: firestore init failed: %w", err)
		}
		oracle = fsout.NewStockOracleFS(cw.Client)
		log.Printf("[di] stock oracle = firestore project=%s", cw.ProjectID)
	}

	// 5) Forced-flush beacon (only meaningful against the HTTP store).
	var flusher usecase.FlushTransport
	if cfg.CartAPIBaseURL != "" {
		flusher = httpout.NewBeaconClient(cfg.CartAPIBaseURL)
	}

	// 6) Firebase Auth (best-effort: without it /login rejects everything).
	{
		fbApp, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectID})
		if err != nil {
			log.Printf("[di] WARN: firebase app init failed: %v", err)
		} else if authClient, err := fbApp.Auth(ctx); err != nil {
			log.Printf("[di] WARN: firebase auth init failed: %v", err)
		} else {
			c.FirebaseAuth = authClient
			log.Printf("[di] firebase auth initialized")
		}
	}

	// 7) Line image resolution (best-effort).
	var images query.ImageURLResolver
	if cfg.ProductImageBucket != "" {
		gcsClient, err := storage.NewClient(ctx)
		if err != nil {
			log.Printf("[di] WARN: gcs client init failed: %v (image urls disabled)", err)
		} else {
			c.closers = append(c.closers, gcsClient.Close)
			images = gcsout.NewLineImageResolverGCS(gcsClient, cfg.ProductImageBucket)
			log.Printf("[di] image resolver bucket=%s", cfg.ProductImageBucket)
		}
	}

	// 8) Engine assembly.
	c.Notices = handler.NewNoticeHub()

	sched := usecase.NewSyncScheduler(store, flusher, cfg.Debounce)
	cache := usecase.NewCartCache(mirror)
	c.Engine = usecase.NewCartEngine(usecase.EngineDeps{
		Cache:        cache,
		Oracle:       oracle,
		Store:        store,
		Scheduler:    sched,
		Notifier:     usecase.MultiNotifier(c.Notices, usecase.LogNotifier{}),
		StockTimeout: cfg.StockTimeout,
	})
	c.Monitor = usecase.NewStockMonitor(c.Engine, cfg.RevalidateInterval, cfg.RevalidateSample)
	c.CartView = query.NewCartViewService(c.Engine, images)

	// 9) Start as guest; the mirror restores the last local cart.
	if err := c.Engine.Rehydrate(ctx, iddom.Guest()); err != nil {
		log.Printf("[di] WARN: guest rehydrate failed: %v (starting empty)", err)
	}

	return c, nil
}

// RouterDeps exposes the container for HTTP mounting.
func (c *Container) RouterDeps() httpin.RouterDeps {
	return httpin.RouterDeps{
		Engine:       c.Engine,
		CartView:     c.CartView,
		Notices:      c.Notices,
		FirebaseAuth: c.FirebaseAuth,
	}
}

// Close releases held resources in reverse acquisition order.
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	var firstErr error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.closers = nil
	return firstErr
}
