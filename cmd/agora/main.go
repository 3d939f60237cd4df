package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/pribylovaa/agora/internal/cache"
	"github.com/pribylovaa/agora/internal/config"
	"github.com/pribylovaa/agora/internal/discussion"
	"github.com/pribylovaa/agora/internal/github"
	agorahttp "github.com/pribylovaa/agora/internal/http"
	"github.com/pribylovaa/agora/internal/http/handlers"
	"github.com/pribylovaa/agora/internal/oauth"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting agora", "env", cfg.Env)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	upstream := &http.Client{Timeout: cfg.Timeouts.Service}
	gh := github.NewClient(cfg.GitHub.GraphQLURL, upstream)

	var reader handlers.Reader
	if cfg.GitHub.Token != "" {
		reader = discussion.NewDirect(gh, cfg.GitHub.Token)
	} else {
		log.Warn("github_token_missing", "effect", "anonymous reads answer 500")
	}

	if reader != nil && cfg.Redis.URL != "" {
		c, err := cache.NewRedisCache(rootCtx, cfg.Redis.URL, cfg.Redis.Prefix)
		if err != nil {
			log.Error("redis_init_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}

		defer func() {
			if cerr := c.Close(); cerr != nil {
				log.Warn("redis_close_failed", slog.String("err", cerr.Error()))
			}
		}()

		reader = cache.NewReader(reader, c, cfg.Redis.TTL)
		log.Info("read_cache_enabled", slog.Duration("ttl", cfg.Redis.TTL))
	}

	oauthCfg := oauth.Config{
		ClientID:         cfg.OAuth.ClientID,
		ClientSecret:     cfg.OAuth.ClientSecret,
		EncryptionSecret: cfg.OAuth.EncryptionSecret,
		StateTTL:         cfg.OAuth.StateTTL,
		SessionTTL:       cfg.OAuth.SessionTTL,
		SessionParam:     cfg.OAuth.SessionParam,
		Scopes:           cfg.OAuth.Scopes,
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
	}
	if cfg.OAuth.AuthorizeURL != "" && cfg.OAuth.TokenURL != "" {
		oauthCfg.Endpoint = oauth2.Endpoint{AuthURL: cfg.OAuth.AuthorizeURL, TokenURL: cfg.OAuth.TokenURL}
	}

	auth, err := oauth.New(oauthCfg, oauth.WithHTTPClient(upstream))
	if err != nil {
		log.Error("oauth_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	h := handlers.New(reader, auth, cfg.HTTP.PublicURL)
	apiHandler := agorahttp.NewRouter(h, agorahttp.Options{
		Logger:         log,
		Timeout:        cfg.Timeouts.Service,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RateRPS:        cfg.RateLimit.RPS,
		RateBurst:      cfg.RateLimit.Burst,
	})

	var ready atomic.Bool

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if ready.Load() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}

		http.Error(w, "not ready", http.StatusServiceUnavailable)
	})

	mux.Handle("/", apiHandler)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	httpSrv := &http.Server{Addr: cfg.HTTP.Addr(), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	metricsSrv := &http.Server{Addr: cfg.Metrics.Addr(), Handler: metricsMux, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(rootCtx)

	for _, srv := range []*http.Server{httpSrv, metricsSrv} {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			log.Error("http_listen_failed", slog.String("addr", srv.Addr), slog.String("err", err.Error()))
			os.Exit(1)
		}

		log.Info("http_listen_start", slog.String("addr", srv.Addr))

		g.Go(func() error {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	ready.Store(true)
	log.Info("agora_ready")

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown_requested")
		ready.Store(false)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		for _, srv := range []*http.Server{httpSrv, metricsSrv} {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warn("http_shutdown_incomplete", slog.String("addr", srv.Addr), slog.String("err", err.Error()))
			}
		}
		log.Info("http_stopped")
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("http_serve_failed", slog.String("err", err.Error()))
	}

	log.Info("service_stopped")
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
