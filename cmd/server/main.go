package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
	"github.com/joho/godotenv"

	"github.com/jepicoco/galerie-sub002/internal/appdb"
	"github.com/jepicoco/galerie-sub002/internal/config"
	"github.com/jepicoco/galerie-sub002/internal/gallery"
	"github.com/jepicoco/galerie-sub002/internal/handlers"
	"github.com/jepicoco/galerie-sub002/internal/mailer"
	"github.com/jepicoco/galerie-sub002/internal/store"
)

func main() {
	handlerOpts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	// TextHandler for console readability; JSONHandler would suit production.
	logger := slog.New(slog.NewTextHandler(os.Stdout, handlerOpts))
	slog.SetDefault(logger)

	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err == nil {
		slog.Debug("Loaded .env file")
	}

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Order store + backing files
	orderStore := store.New(store.Config{
		LivePath:    cfg.LiveOrdersPath(),
		ArchivePath: cfg.ArchiveOrdersPath(),
		PrepPath:    cfg.PreparationPath(),
		LockTimeout: cfg.LockTimeout,
	})
	if err := orderStore.CreateRequiredFiles(); err != nil {
		slog.Error("Failed to create backing files", "error", err)
		os.Exit(1)
	}

	// 3. Ancillary DB (admin users, consultation analytics)
	db, err := appdb.Open(cfg.AppDBPath)
	if err != nil {
		slog.Error("Failed to open app database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.InitSchema(); err != nil {
		slog.Error("Failed to init app database schema", "error", err)
		os.Exit(1)
	}

	// 4. Session Setup
	sessionStore := sessions.NewCookieStore(cfg.SessionKey)
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.Secure = cfg.CookieSecure
	sessionStore.Options.SameSite = http.SameSiteLaxMode
	sessionStore.Options.Path = "/"
	if cfg.CookieDomain != "" {
		sessionStore.Options.Domain = cfg.CookieDomain
	}

	// 5. Templates
	templates := handlers.NewTemplateCache()
	if err := templates.Load("templates"); err != nil {
		slog.Error("Failed to load templates", "error", err)
		os.Exit(1)
	}

	scanner := gallery.NewScanner(cfg.PhotosDir, cfg.ThumbsDir)
	mail := mailer.New(mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	})

	// 6. Handlers
	adminHandler := &handlers.AdminHandler{
		Store:        orderStore,
		AppDB:        db,
		SessionStore: sessionStore,
		Templates:    templates,
	}
	adminGallery := &handlers.AdminGalleryHandler{
		AdminHandler: adminHandler,
		Scanner:      scanner,
	}
	homeHandler := &handlers.HomeHandler{
		Scanner:      scanner,
		AppDB:        db,
		Templates:    templates,
		SessionStore: sessionStore,
	}
	orderHandler := &handlers.OrderHandler{
		Store:        orderStore,
		Scanner:      scanner,
		Templates:    templates,
		SessionStore: sessionStore,
		Mailer:       mail,
		BaseURL:      cfg.BaseURL,
		PhotoPrice:   cfg.PhotoPrice,
		USBPrice:     cfg.USBPrice,
	}

	mux := http.NewServeMux()

	// Static Files
	fileServer := http.FileServer(http.Dir("./static"))
	mux.Handle("/static/", http.StripPrefix("/static", fileServer))

	// Rate Limiter (1 request per minute on public POSTs)
	rateLimiter := handlers.NewRateLimiter(1 * time.Minute)

	// Public Routes
	mux.HandleFunc("/", homeHandler.Index)
	mux.HandleFunc("/gallery/{activity}", homeHandler.Gallery)
	mux.HandleFunc("/order", orderHandler.OrderForm)
	mux.HandleFunc("POST /order", rateLimiter.Middleware(orderHandler.SubmitOrder))
	mux.HandleFunc("/order/status/{token}", orderHandler.ViewOrderStatus)
	mux.HandleFunc("POST /order/confirm", orderHandler.ConfirmOrder)
	mux.HandleFunc("POST /order/cancel", orderHandler.CancelOrder)
	mux.HandleFunc("/status-request", orderHandler.RequestStatusLink)
	mux.HandleFunc("POST /status-request", rateLimiter.Middleware(orderHandler.SendStatusLink))

	mux.HandleFunc("/login", adminHandler.LoginGet)
	mux.HandleFunc("POST /login", adminHandler.LoginPost)
	mux.HandleFunc("/logout", adminHandler.Logout)

	// Protected Routes
	mux.HandleFunc("/admin", adminHandler.AuthMiddleware(adminHandler.Dashboard))
	mux.HandleFunc("/admin/orders", adminHandler.AuthMiddleware(adminHandler.ListOrders))
	mux.HandleFunc("/admin/orders/{reference}", adminHandler.AuthMiddleware(adminHandler.OrderDetail))
	mux.HandleFunc("POST /admin/orders/status", adminHandler.AuthMiddleware(adminHandler.UpdateOrderStatus))
	mux.HandleFunc("POST /admin/orders/payment", adminHandler.AuthMiddleware(adminHandler.RecordPayment))
	mux.HandleFunc("POST /admin/orders/retrieved", adminHandler.AuthMiddleware(adminHandler.MarkRetrieved))
	mux.HandleFunc("POST /admin/orders/customer", adminHandler.AuthMiddleware(adminHandler.CorrectCustomer))
	mux.HandleFunc("POST /admin/orders/token", adminHandler.AuthMiddleware(adminHandler.RegenerateToken))
	mux.HandleFunc("POST /admin/orders/archive", adminHandler.AuthMiddleware(adminHandler.ArchiveOld))
	mux.HandleFunc("/admin/preparation", adminHandler.AuthMiddleware(adminHandler.PreparationList))
	mux.HandleFunc("POST /admin/preparation/export", adminHandler.AuthMiddleware(adminHandler.ExportPreparation))
	mux.HandleFunc("/admin/inconsistencies", adminHandler.AuthMiddleware(adminHandler.Inconsistencies))
	mux.HandleFunc("/admin/galleries", adminHandler.AuthMiddleware(adminGallery.ListGalleries))

	// 7. Middleware Setup
	CSRF := csrf.Protect(
		cfg.CSRFKey,
		csrf.Secure(cfg.CookieSecure),
		csrf.TrustedOrigins([]string{"localhost:" + cfg.Port, "127.0.0.1:" + cfg.Port, "localhost", "127.0.0.1"}),
	)

	// Chain: Logger -> Security Headers -> CSRF -> Mux
	handler := handlers.LoggingMiddleware(
		handlers.SecurityHeadersMiddleware(
			CSRF(mux),
		),
	)

	// 8. Start Server with Graceful Shutdown
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to listen and serve", "error", err)
			os.Exit(1)
		}
	}()

	<-stop

	slog.Info("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited gracefully.")
}
