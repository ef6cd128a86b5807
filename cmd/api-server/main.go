package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"bookhub/internal/auth"
	"bookhub/internal/catalog"
	"bookhub/internal/loans"
	synchub "bookhub/internal/sync"
	"bookhub/pkg/database"
	"bookhub/pkg/models"
	"bookhub/pkg/storage"
	"bookhub/pkg/utils"
)

func main() {
	srvCfg := utils.LoadServerConfig()

	cfg := database.DefaultConfig()
	db := database.MustOpen(cfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	store := storage.DefaultFileStore()
	books, err := loadCatalog(store, srvCfg.LenientLoad)
	if err != nil {
		log.Fatalf("catalog load failed: %v", err)
	}
	log.Printf("[catalog] loaded %d books from %s", len(books), store.Path)

	hub := synchub.NewHub()
	loanRepo := loans.NewRepo(db)
	bookSvc := catalog.NewService(
		catalog.FromBooks(books),
		catalog.WithStore(store, srvCfg.AutoSave),
		catalog.WithPublisher(hub),
		catalog.WithLoans(loanRepo),
	)
	if err := bookSvc.Check(); err != nil {
		log.Fatalf("catalog index check failed: %v", err)
	}

	authCfg := utils.LoadAuthConfig()
	a := &app{
		cfg:    srvCfg,
		dbPath: cfg.Path,
		db:     db,
		store:  store,
		hub:    hub,
		books:  bookSvc,
		loans:  loanRepo,
		tokens: auth.TokenService{
			Secret:   []byte(authCfg.JWTSecret),
			Issuer:   authCfg.JWTIssuer,
			Duration: authCfg.JWTDuration,
		},
	}
	router := a.routes(gin.Default())
	tcpSrv := synchub.NewServer(srvCfg.TCPAddr, hub)

	httpSrv := &http.Server{
		Addr:    srvCfg.HTTPAddr,
		Handler: router,
	}

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("HTTP API server listening on %s", srvCfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("shutdown signal received: %s", sig)
	case err := <-errCh:
		log.Printf("server error: %v", err)
	}

	log.Println("shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	if err := tcpSrv.Close(); err != nil {
		log.Printf("tcp shutdown error: %v", err)
	}

	wg.Wait()
	bookSvc.Close()

	if err := bookSvc.Checkpoint(shutdownCtx); err != nil {
		log.Printf("[catalog] final save failed: %v", err)
	} else {
		log.Printf("[catalog] saved %d books to %s", bookSvc.Size(), store.Path)
	}
	log.Println("servers stopped")
}

type app struct {
	cfg    utils.ServerConfig
	dbPath string
	db     *sql.DB
	store  *storage.FileStore
	hub    *synchub.Hub
	books  *catalog.Service
	loans  *loans.Repo
	tokens auth.TokenService
}

func (a *app) routes(router *gin.Engine) *gin.Engine {
	// Optional: avoid “trusted all proxies” warning
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	router.GET("/ws", synchub.WSHandler(a.hub))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": a.dbPath, "catalog": a.store.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := a.hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := a.db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"db":          "ok",
			"books":       a.books.Size(),
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	router.GET("/debug", func(c *gin.Context) {
		stats := a.hub.Stats()
		c.JSON(http.StatusOK, gin.H{
			"db":          a.dbPath,
			"catalog":     a.store.Path,
			"autosave":    a.cfg.AutoSave,
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
			"last_seq":    stats.LastSeq,
		})
	})

	// Auth (includes GET /auth/me)
	authRepo := auth.NewRepo(a.db)
	auth.NewHandler(authRepo, a.tokens).RegisterRoutes(router.Group("/auth"))
	requireAuth := auth.AuthMiddleware(a.tokens, authRepo)

	// Catalog (reads public, writes protected)
	catalog.NewHandler(a.books).RegisterRoutes(router.Group("/books"), requireAuth)

	// Loans (protected)
	loanSvc := loans.NewService(a.loans, a.books, nil)
	loans.NewHandler(loanSvc).RegisterRoutes(router.Group("/users", requireAuth))

	return router
}

// loadCatalog reads the saved catalog. In lenient mode bad records are
// logged and skipped instead of failing startup.
func loadCatalog(store *storage.FileStore, lenient bool) ([]models.Book, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if !lenient {
		return store.Load(ctx)
	}

	books, skipped, err := store.LoadLenient(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range skipped {
		log.Printf("[catalog] skipped record: %v", e)
	}
	return books, nil
}
