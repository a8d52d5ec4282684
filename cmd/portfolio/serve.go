package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"portfolio-site/internal/assets"
	"portfolio-site/internal/auth"
	"portfolio-site/internal/config"
	"portfolio-site/internal/handlers"
	"portfolio-site/internal/middleware"
	"portfolio-site/internal/notify"
	"portfolio-site/internal/projects"
	"portfolio-site/internal/web"
	"portfolio-site/internal/ws"
)

const shutdownTimeout = 15 * time.Second

func serveCmd(logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(*logLevel)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	site, err := config.LoadSiteContent(cfg.ContentPath)
	if err != nil {
		return err
	}

	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	sessionStore, closeSessions, err := openSessionStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSessions()

	gateway := assets.NewGateway(assetBackend(cfg, logger), assets.Options{
		Folder:   cfg.Upload.Folder,
		MaxBytes: cfg.Upload.MaxBytes,
		MaxWidth: cfg.Upload.MaxWidth,
		Timeout:  cfg.Upload.Timeout,
	}, logger)

	recipient := cfg.ContactRecipient
	if recipient == "" {
		recipient = cfg.Mail.DefaultSender
		logger.Warn("CONTACT_RECIPIENT not set, sending contact mail to MAIL_DEFAULT_SENDER")
	}
	mailer := notify.NewMailer(mailSender(cfg), cfg.Mail.DefaultSender, recipient, site.Name, logger)

	hubCtx, stopHub := context.WithCancel(context.Background())
	hub := ws.NewHub(logger)
	go hub.Run(hubCtx)

	sessions := auth.NewManager(sessionStore, auth.ManagerOptions{
		Secret:       cfg.Session.Secret,
		TTL:          cfg.Session.TTL,
		CookieSecure: cfg.Session.CookieSecure,
	})
	renderer, err := web.NewRenderer(site, sessions.Current, logger)
	if err != nil {
		stopHub()
		return err
	}

	router := handlers.NewRouter(handlers.Deps{
		Projects:       projects.NewService(st, gateway, hub, logger),
		Verifier:       auth.NewAuthenticator(st, logger),
		Sessions:       sessions,
		Contact:        mailer,
		Renderer:       renderer,
		Hub:            hub,
		Logger:         logger,
		BaseURL:        cfg.BaseURL,
		StaticDir:      cfg.StaticDir,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		MaxUploadBytes: cfg.Upload.MaxBytes,
		FormLimiter:    middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.ServerAddr, "version", Version)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		stopHub()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// hub first so websocket connections are closed before the server waits on them
	stopHub()
	<-hub.Done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func openSessionStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (auth.SessionStore, func(), error) {
	if cfg.Redis.Addr == "" {
		logger.Warn("REDIS_ADDR not set, sessions are kept in memory and lost on restart")
		return auth.NewMemoryStore(), func() {}, nil
	}
	client, err := auth.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	logger.Info("using redis session store", "addr", cfg.Redis.Addr)
	return auth.NewRedisStore(client), func() { _ = client.Close() }, nil
}

func assetBackend(cfg *config.Config, logger *slog.Logger) assets.Backend {
	cld, err := assets.NewCloudinary(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	if err != nil {
		logger.Warn("image hosting disabled", "error", err)
		return assets.Unconfigured{}
	}
	return cld
}

func mailSender(cfg *config.Config) notify.Sender {
	if cfg.Mail.Provider == config.MailProviderResend {
		return notify.NewResendSender(cfg.ResendAPIKey)
	}
	return &notify.SMTPSender{
		Host:     cfg.Mail.Server,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		UseTLS:   cfg.Mail.UseTLS,
	}
}
