package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-crowd/crowdgate/internal/auth"
	"github.com/go-crowd/crowdgate/internal/cache"
	"github.com/go-crowd/crowdgate/internal/config"
	"github.com/go-crowd/crowdgate/internal/core"
	"github.com/go-crowd/crowdgate/internal/crowd"
	"github.com/go-crowd/crowdgate/internal/handlers"
	"github.com/go-crowd/crowdgate/internal/metrics"
	"github.com/go-crowd/crowdgate/internal/middleware"
	"github.com/go-crowd/crowdgate/internal/services"
	"github.com/go-crowd/crowdgate/internal/store"
	"github.com/go-crowd/crowdgate/internal/strategy"
	"github.com/go-crowd/crowdgate/internal/util"
	"github.com/go-crowd/crowdgate/internal/version"

	"github.com/appleboy/graceful"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// fallbackSSOCookie is used when Crowd's cookie configuration cannot be
// fetched at startup. The name is Crowd's long-standing default.
var fallbackSSOCookie = crowd.CookieConfig{Name: "crowd.token_key"}

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		version.PrintVersion()
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "server":
		runServer()
	default:
		fmt.Printf("Unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("Usage: %s [OPTIONS] COMMAND\n\n", os.Args[0])
	fmt.Println("Atlassian Crowd authentication gateway")
	fmt.Println("\nCommands:")
	fmt.Println("  server    Start the gateway")
	fmt.Println("\nOptions:")
	fmt.Println("  -v, --version    Show version information")
	fmt.Println("  -h, --help       Show this help message")
}

func runServer() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	crowdClient := createCrowdClient(cfg)

	// Fetch Crowd's SSO cookie settings up front. Failure here is not fatal:
	// the server may come up before Crowd does.
	ssoCookie := fallbackSSOCookie
	{
		ctx, cancel := context.WithTimeout(context.Background(), cfg.CrowdTimeout)
		cookieCfg, err := crowdClient.CookieConfig(ctx)
		cancel()
		if err != nil {
			log.Printf("Warning: could not fetch SSO cookie config from Crowd: %v", err)
			log.Printf("Using fallback SSO cookie name %q", ssoCookie.Name)
		} else {
			ssoCookie = *cookieCfg
			log.Printf("Crowd SSO cookie: name=%s domain=%s secure=%v",
				ssoCookie.Name, ssoCookie.Domain, ssoCookie.Secure)
		}
	}

	db, err := store.New(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	prometheusMetrics := metrics.Init(cfg.MetricsEnabled)
	if cfg.MetricsEnabled {
		log.Println("Prometheus metrics initialized")
	} else {
		log.Println("Metrics disabled (using noop implementation)")
	}

	sessionCache := createSessionCache(cfg)

	auditService := services.NewAuditService(db, prometheusMetrics, cfg.AuditEnabled, cfg.AuditBuffer)

	directory := auth.NewCrowdDirectory(crowdClient, cfg.NestedGroups, prometheusMetrics)
	validator := auth.NewCrowdValidator(crowdClient, sessionCache, cfg.SessionCacheTTL, prometheusMetrics)

	strategyOpts := []strategy.Option{
		strategy.WithUsernameField(cfg.UsernameField),
		strategy.WithPasswordField(cfg.PasswordField),
	}
	if cfg.RetrieveGroups {
		strategyOpts = append(strategyOpts, strategy.WithGroups())
	}
	loginStrategy := strategy.New(directory, strategyOpts...)

	authHandler := handlers.NewAuthHandler(
		loginStrategy,
		crowdClient,
		validator,
		auditService,
		prometheusMetrics,
		cfg.BaseURL,
		ssoCookie,
	)
	profileHandler := handlers.NewProfileHandler(crowdClient, cfg.NestedGroups)
	auditHandler := handlers.NewAuditHandler(auditService)
	healthHandler := handlers.NewHealthHandler(crowdClient, db, sessionCache)

	r := gin.New()
	r.Use(metrics.HTTPMetricsMiddleware(prometheusMetrics))
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(util.IPMiddleware())

	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.CrowdSessionTimeout / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(cfg.SessionName, sessionStore))

	r.GET("/health", healthHandler.Health)

	switch {
	case !cfg.MetricsEnabled:
		log.Printf("Prometheus metrics disabled")
	case cfg.MetricsToken != "":
		log.Printf("Prometheus metrics enabled at /metrics with Bearer token authentication")
		r.GET(
			"/metrics",
			middleware.MetricsAuthMiddleware(cfg.MetricsToken),
			gin.WrapH(promhttp.Handler()),
		)
	default:
		log.Printf("Prometheus metrics enabled at /metrics (no authentication)")
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	loginLimiter := createLoginLimiter(cfg)
	r.POST("/login", loginLimiter, authHandler.Login)
	r.POST("/logout", authHandler.Logout)
	r.GET("/logout", authHandler.Logout)

	api := r.Group("/api")
	api.Use(middleware.RequireAuthJSON(validator, ssoCookie.Name))
	{
		api.GET("/profile", profileHandler.Profile)
		api.GET("/audit-logs", auditHandler.ListAuditLogs)
		api.GET("/audit-logs/export", auditHandler.ExportAuditLogs)
	}

	log.Printf("Crowd server: %s (application: %s)", cfg.CrowdURL, cfg.CrowdApplication)
	log.Printf("CrowdGate starting on %s", cfg.ServerAddr)

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	m := graceful.NewManager()

	m.AddRunningJob(func(ctx context.Context) error {
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()
		<-ctx.Done()
		return nil
	})

	m.AddShutdownJob(func() error {
		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
			return err
		}

		log.Println("Server exited")
		return nil
	})

	m.AddShutdownJob(func() error {
		log.Println("Shutting down audit service...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := auditService.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down audit service: %v", err)
			return err
		}
		return nil
	})

	m.AddShutdownJob(func() error {
		if err := sessionCache.Close(); err != nil {
			log.Printf("Error closing session cache: %v", err)
			return err
		}
		return nil
	})

	// Daily cleanup of expired audit logs.
	if cfg.AuditEnabled && cfg.AuditRetention > 0 {
		m.AddRunningJob(func(ctx context.Context) error {
			ticker := time.NewTicker(24 * time.Hour)
			defer ticker.Stop()

			cleanup := func() {
				if deleted, err := auditService.CleanupOldLogs(cfg.AuditRetention); err != nil {
					log.Printf("Failed to cleanup old audit logs: %v", err)
				} else if deleted > 0 {
					log.Printf("Cleaned up %d old audit logs", deleted)
				}
			}

			cleanup()
			for {
				select {
				case <-ticker.C:
					cleanup()
				case <-ctx.Done():
					return nil
				}
			}
		})
	}

	<-m.Done()
}

// createCrowdClient builds the Crowd API client from the configuration,
// loading the private CA bundle if one is configured.
func createCrowdClient(cfg *config.Config) *crowd.Client {
	var caCert []byte
	if cfg.CrowdCACertFile != "" {
		var err error
		caCert, err = os.ReadFile(cfg.CrowdCACertFile)
		if err != nil {
			log.Fatalf("Failed to read CA certificate file: %v", err)
		}
	}
	if cfg.CrowdInsecureSkipVerify {
		log.Printf("WARNING: Crowd TLS verification is disabled (CROWD_INSECURE_SKIP_VERIFY=true)")
	}

	client, err := crowd.New(crowd.Config{
		BaseURL:            cfg.CrowdURL,
		Application:        cfg.CrowdApplication,
		Password:           cfg.CrowdPassword,
		SessionTimeout:     cfg.CrowdSessionTimeout,
		Timeout:            cfg.CrowdTimeout,
		CACert:             caCert,
		InsecureSkipVerify: cfg.CrowdInsecureSkipVerify,
		MaxRetries:         cfg.CrowdMaxRetries,
		RetryDelay:         cfg.CrowdRetryDelay,
		MaxRetryDelay:      cfg.CrowdMaxRetryDelay,
	})
	if err != nil {
		log.Fatalf("Failed to create Crowd client: %v", err)
	}
	return client
}

// createSessionCache builds the token validation cache backend.
func createSessionCache(cfg *config.Config) core.Cache[core.SessionInfo] {
	switch cfg.CacheBackend {
	case config.CacheBackendRedis:
		c, err := cache.NewRedisCache[core.SessionInfo](
			cfg.RedisAddr,
			cfg.RedisPassword,
			cfg.RedisDB,
			"session:",
		)
		if err != nil {
			log.Fatalf("Failed to initialize Redis session cache: %v", err)
		}
		log.Printf("Session cache: redis (addr=%s, db=%d)", cfg.RedisAddr, cfg.RedisDB)
		return c
	default:
		log.Println("Session cache: memory (single instance only)")
		return cache.NewMemoryCache[core.SessionInfo]()
	}
}

// createLoginLimiter builds the per-IP login rate limiter. Crowd locks
// accounts after repeated failures, so throttling before the directory call
// also protects real users from lockout by a brute-force attempt.
func createLoginLimiter(cfg *config.Config) gin.HandlerFunc {
	if cfg.LoginRateLimit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	var limiter gin.HandlerFunc
	var err error
	if cfg.CacheBackend == config.CacheBackendRedis {
		limiter, err = middleware.NewRedisRateLimiter(
			cfg.LoginRateLimit,
			cfg.RedisAddr,
			cfg.RedisPassword,
			cfg.RedisDB,
		)
	} else {
		limiter, err = middleware.NewMemoryRateLimiter(cfg.LoginRateLimit)
	}
	if err != nil {
		log.Fatalf("Failed to create login rate limiter: %v", err)
	}
	log.Printf("Login rate limiting enabled: %d requests/minute per IP", cfg.LoginRateLimit)
	return limiter
}
