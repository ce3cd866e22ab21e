package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cinesync/server/internal/controller"
	"github.com/cinesync/server/internal/repository/connection/inmemory"
	partyRedis "github.com/cinesync/server/internal/repository/party/redis"
	"github.com/cinesync/server/internal/resolver"
	"github.com/cinesync/server/internal/service/party"
	"github.com/cinesync/server/pkg/ctxlogger"
	"github.com/cinesync/server/pkg/httpclient"
	"github.com/cinesync/server/pkg/redisclient"
)

type AppConfig struct {
	Secret          string `json:"-"`
	Host            string `json:"host"`
	Port            int    `json:"port"`
	LogLevel        string `json:"log_level"`
	MembersLimit    int    `json:"members_limit"`
	PartyCodeLength int    `json:"party_code_length"`
	PartyExpire     int    `json:"party_expire_minutes"`
	RedisPort       int    `json:"redis_port"`
	RedisHost       string `json:"redis_host"`
	RedisPassword   string `json:"-"`
	UpstreamURL     string `json:"upstream_url"`
	Referer         string `json:"referer"`
	EmbedBaseURL    string `json:"embed_base_url"`
	ScriptURL       string `json:"script_url"`
	FallbackSecret  string `json:"-"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.Secret == "" {
		return fmt.Errorf("secret must be set")
	}
	if cfg.MembersLimit < 1 {
		return fmt.Errorf("members limit must be greater than 0")
	}
	if cfg.PartyCodeLength < 4 {
		return fmt.Errorf("party code length must be at least 4")
	}
	if cfg.PartyExpire < 1 {
		return fmt.Errorf("party expire must be greater than 0")
	}
	if cfg.UpstreamURL == "" {
		return fmt.Errorf("upstream url must be set")
	}
	if cfg.FallbackSecret == "" {
		return fmt.Errorf("fallback secret must be set")
	}
	return nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		log.Fatal(err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	logger := slog.New(&h)

	rc, err := redisclient.NewRedisClient(ctx, &redisclient.Config{
		Port:     cfg.RedisPort,
		Host:     cfg.RedisHost,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer rc.Close()

	partyRepo := partyRedis.NewRepo(rc, time.Duration(cfg.PartyExpire)*time.Minute)
	connectionRepo := inmemory.NewRepo()
	partyService := party.NewService(partyRepo, connectionRepo, logger, &party.Config{
		Secret:          cfg.Secret,
		MembersLimit:    cfg.MembersLimit,
		PartyCodeLength: cfg.PartyCodeLength,
	})

	client := httpclient.New(&httpclient.Config{
		UTLSHosts: upstreamHosts(cfg.UpstreamURL, cfg.ScriptURL),
		Timeout:   15 * time.Second,
	}, logger)
	rslv := resolver.New(client, resolver.Config{
		UpstreamURL:    cfg.UpstreamURL,
		Referer:        cfg.Referer,
		EmbedBaseURL:   cfg.EmbedBaseURL,
		ScriptURL:      cfg.ScriptURL,
		FallbackSecret: cfg.FallbackSecret,
	}, logger)

	ctrl := controller.NewController(partyService, rslv, logger)
	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: ctrl.GetMux()}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}

func upstreamHosts(rawURLs ...string) []string {
	hosts := make([]string, 0, len(rawURLs))
	for _, raw := range rawURLs {
		u, err := url.Parse(raw)
		if err != nil || u.Hostname() == "" {
			continue
		}
		hosts = append(hosts, u.Hostname())
	}

	return hosts
}
