package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/seralyne/cardex"
	"github.com/seralyne/cardex/backend/handlers"
	"github.com/seralyne/cardex/database"
	"github.com/seralyne/cardex/database/repositories"
	"github.com/seralyne/cardex/economy/pack"
	"github.com/seralyne/cardex/economy/trade"
	"github.com/seralyne/cardex/logger"
	"github.com/seralyne/cardex/rooms"
	"github.com/seralyne/cardex/worker"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "cardex",
		Short: "card trading platform API",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.toml", "path to config file")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "run the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "init-db",
		Short: "create database tables and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return initDB(cmd.Context())
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func serve(ctx context.Context) error {
	cfg, err := cardex.LoadConfig(configPath)
	if err != nil {
		return err
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Log.AddSource)

	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		slog.Error("Failed to connect to database", slog.Any("error", err))
		return err
	}
	defer db.Close()

	bunDB := db.BunDB()
	users := repositories.NewUserRepository(bunDB)
	cards := repositories.NewCardRepository(bunDB)
	userCards := repositories.NewUserCardRepository(bunDB)
	collections := repositories.NewCollectionRepository(bunDB)
	trades := repositories.NewTradeRepository(bunDB)
	requests := repositories.NewTradeRequestRepository(bunDB)
	invites := repositories.NewFriendInviteRepository(bunDB)
	packs := repositories.NewPackRepository(bunDB)

	ledger := trade.NewLedger(trades, userCards)
	coordinator := rooms.NewCoordinator()
	ledger.SetNotifier(coordinator)
	ledger.SetRequestTracker(requests)

	bucket := pack.NewBucket(packs, cfg.Pack.Capacity, cfg.Pack.RefillInterval())
	issuer := pack.NewIssuer(bucket, collections, cards, packs)

	app := &handlers.App{
		DB:          db,
		Users:       users,
		Cards:       cards,
		UserCards:   userCards,
		Collections: collections,
		Ledger:      ledger,
		Requests:    trade.NewRequestBroker(requests, cards, userCards, ledger),
		Invites:     trade.NewInviteBroker(invites, users, ledger),
		Bucket:      bucket,
		Issuer:      issuer,
		Rooms:       coordinator,
		AdminCode:   cfg.Server.AdminCode,
		Version:     cfg.Server.Version,
	}

	fiberApp := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	app.SetupRoutes(fiberApp)

	sweeper := worker.NewSweeper(requests, cfg.Sweeper.Interval(), cfg.Sweeper.Retention())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("API server listening", slog.String("addr", cfg.Server.Addr))
		return fiberApp.Listen(cfg.Server.Addr)
	})
	g.Go(func() error {
		return sweeper.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("Shutting down")
		return fiberApp.Shutdown()
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func initDB(ctx context.Context) error {
	cfg, err := cardex.LoadConfig(configPath)
	if err != nil {
		return err
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Log.AddSource)

	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Schema initialization failed", slog.Any("error", err))
		return err
	}
	slog.Info("Schema initialized")
	return nil
}
