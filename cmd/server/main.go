package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/dkeye/roomcast/internal/adapters/auth"
	router "github.com/dkeye/roomcast/internal/adapters/http"
	"github.com/dkeye/roomcast/internal/adapters/presence"
	"github.com/dkeye/roomcast/internal/adapters/storage/postgres"
	"github.com/dkeye/roomcast/internal/adapters/storage/sqlite"
	"github.com/dkeye/roomcast/internal/app"
	"github.com/dkeye/roomcast/internal/app/orch"
	"github.com/dkeye/roomcast/internal/config"
	"github.com/dkeye/roomcast/internal/core"
	"github.com/dkeye/roomcast/internal/domain"
	"github.com/dkeye/roomcast/internal/telemetry"
)

// roomSeeder is implemented by both stores.
type roomSeeder interface {
	CreateRoom(ctx context.Context, r *domain.Room) error
}

type store interface {
	core.Store
	roomSeeder
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store, error) {
	switch cfg.Driver {
	case "postgres":
		db, err := postgres.Open(ctx, postgres.Options{
			DSN:             cfg.DSN,
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
			PingTimeout:     cfg.PingTimeout,
		})
		if err != nil {
			return nil, err
		}
		if cfg.Migrate {
			if err := postgres.Migrate(ctx, db); err != nil {
				db.Close()
				return nil, err
			}
		}
		return postgres.NewStore(db), nil
	case "sqlite":
		s, err := sqlite.Open(cfg.DSN, cfg.Migrate)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

// splitPair parses "id:name".
func splitPair(s string) (string, string, error) {
	id, name, ok := strings.Cut(s, ":")
	if !ok || id == "" || name == "" {
		return "", "", fmt.Errorf("want id:name, got %q", s)
	}
	return id, name, nil
}

func main() {
	issueToken := flag.String("issue-token", "", "print a token for id:username and exit")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of -issue-token tokens")
	createRoom := flag.String("create-room", "", "create room id:name in the store and exit")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Mode != "debug" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	if lvl, err := zerolog.ParseLevel(cfg.Log.Level); err == nil && cfg.Log.Level != "" {
		zerolog.SetGlobalLevel(lvl)
	}

	authn := auth.NewAuthenticator(cfg.Auth.Secret, cfg.Auth.Issuer)
	if *issueToken != "" {
		id, name, err := splitPair(*issueToken)
		if err != nil {
			log.Fatal().Err(err).Msg("bad -issue-token")
		}
		token, err := authn.Issue(domain.User{ID: domain.UserID(id), Username: name}, *tokenTTL)
		if err != nil {
			log.Fatal().Err(err).Msg("issue token")
		}
		fmt.Println(token)
		return
	}

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("failed to open store")
	}
	defer st.Close()

	if *createRoom != "" {
		id, name, err := splitPair(*createRoom)
		if err != nil {
			log.Fatal().Err(err).Msg("bad -create-room")
		}
		if err := st.CreateRoom(ctx, &domain.Room{ID: domain.RoomID(id), Name: name, Kind: domain.RoomKindChat}); err != nil {
			log.Fatal().Err(err).Msg("create room")
		}
		log.Info().Str("room", id).Msg("room created")
		return
	}

	shutdownTracing, err := telemetry.Init(ctx, cfg.Telemetry.Endpoint, cfg.Telemetry.ServiceName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init telemetry")
	}

	var presenceStore core.PresenceStore = core.NopPresence{}
	if cfg.Redis.URL != "" {
		rdb, err := presence.NewRedisClient(ctx, presence.Options{URL: cfg.Redis.URL})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect redis")
		}
		defer rdb.Close()
		presenceStore = presence.NewRedisPresenceStore(rdb, cfg.Redis.PresenceTTL)
	}

	policy, err := app.PolicyFor(cfg.Policy.SlowConsumer)
	if err != nil {
		log.Fatal().Err(err).Msg("bad policy")
	}

	reg := app.NewRegistry()
	rooms := app.NewRoomManager(st, cfg.HistoryLimit)
	limiter := app.NewRateLimiter(cfg.Chat.RateLimit, cfg.Chat.RateInterval)

	o := &orch.Orchestrator{
		Registry: reg,
		Rooms:    rooms,
		Chat:     app.NewChatRelay(rooms, st, limiter, cfg.Chat.MaxLength),
		Signals:  app.NewSignalRelay(reg),
		Policy:   policy,
		Presence: presenceStore,
	}

	r := router.SetupRouter(ctx, cfg, o, st, authn)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("roomcast server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return errors.Join(srv.Shutdown(shutdownCtx), shutdownTracing(shutdownCtx))
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		return
	}
	log.Info().Msg("Server exited gracefully")
}
