// Shieldpool Daemon - embeds one pool's state container and wires it to
// its durable storage and its gossip event bus. The host chain's
// transaction execution itself (parsing and dispatching shield/unshield/
// transfer/swap calls) remains an external collaborator named only by
// interface (spec.md §1); this binary demonstrates the wiring a host would
// embed, logging every gossiped event it observes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/veilpool/shieldpool/internal/config"
	"github.com/veilpool/shieldpool/internal/p2p"
	"github.com/veilpool/shieldpool/internal/pool"
	"github.com/veilpool/shieldpool/internal/poollog"
	"github.com/veilpool/shieldpool/internal/storage"
	"github.com/veilpool/shieldpool/pkg/types"
)

const (
	version = "0.1.0"
	banner  = `
   _____ _     _      _     _                 _
  / ____| |   (_)    | |   | |               | |
 | (___ | |__  _  ___| | __| |_ __   ___   ___| |
  \___ \| '_ \| |/ _ \ |/ _` + "`" + `| | '_ \ / _ \ / _ \ |
  ____) | | | | |  __/ | (_| | |_) | (_) | (_) |
 |_____/|_| |_|_|\___|_|\__,_| .__/ \___/ \___/_|
                              | |
  Shieldpool Daemon v%s       |_|
`
)

func main() {
	cfg := parseFlags()

	if err := poollog.Configure(cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "invalid log configuration: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf(banner, version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		poollog.Logger().Info("shutdown signal received")
		cancel()
	}()

	if err := run(ctx, cfg); err != nil {
		poollog.Logger().WithError(err).Error("daemon exited with error")
		os.Exit(1)
	}
}

func parseFlags() *config.Config {
	cfg := config.Load()

	flag.StringVar(&cfg.DBHost, "db-host", cfg.DBHost, "PostgreSQL host")
	flag.IntVar(&cfg.DBPort, "db-port", cfg.DBPort, "PostgreSQL port")
	flag.StringVar(&cfg.DBUser, "db-user", cfg.DBUser, "PostgreSQL user")
	flag.StringVar(&cfg.DBPassword, "db-password", cfg.DBPassword, "PostgreSQL password")
	flag.StringVar(&cfg.DBName, "db-name", cfg.DBName, "PostgreSQL database name")

	flag.StringVar(&cfg.P2PListenAddr, "listen", cfg.P2PListenAddr, "P2P listen multiaddr")

	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flag.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Log file path (empty for stderr)")

	flag.Parse()
	return cfg
}

func run(ctx context.Context, cfg *config.Config) error {
	poollog.Logger().Info("connecting to database")
	dbCfg := &storage.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Database: cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
		MaxConns: cfg.DBMaxConns,
	}
	db, err := storage.NewPostgresStore(ctx, dbCfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	poollog.Logger().Info("database connected")

	poolID := types.PoolID{0x01}
	poolStore := db.NewPoolStore(poolID)
	p := pool.New(poolID, "SUI", types.Hash{0xAD, 0x41}, nil, nil, nil, poolStore, poolStore)
	poollog.WithPool(poolID.String()).Info("pool state container initialized")

	node, err := p2p.NewNode(ctx, &p2p.Config{ListenAddrs: []string{cfg.P2PListenAddr}})
	if err != nil {
		return fmt.Errorf("start p2p node: %w", err)
	}
	defer node.Close()

	node.SetShieldHandler(func(ctx context.Context, data []byte) error {
		ev, err := p2p.DecodeShieldEvent(data)
		if err != nil {
			return err
		}
		poollog.WithPool(poolID.String()).WithField("position", ev.Position).Info("observed shield event")
		return nil
	})
	node.SetTransferHandler(func(ctx context.Context, data []byte) error {
		_, err := p2p.DecodeTransferEvent(data)
		if err != nil {
			return err
		}
		poollog.WithPool(poolID.String()).Info("observed transfer event")
		return nil
	})
	node.SetUnshieldHandler(func(ctx context.Context, data []byte) error {
		ev, err := p2p.DecodeUnshieldEvent(data)
		if err != nil {
			return err
		}
		poollog.WithPool(poolID.String()).WithField("amount", ev.Amount).Info("observed unshield event")
		return nil
	})
	node.Start()

	poollog.Logger().WithField("peer_id", node.ID()).Info("shieldpool daemon started")

	<-ctx.Done()
	poollog.Logger().WithField("stats", p.Stats()).Info("shieldpool daemon stopped")
	return nil
}
