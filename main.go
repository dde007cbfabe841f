package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"royalletters/internal/ai"
	"royalletters/internal/config"
	"royalletters/internal/engine"
	"royalletters/internal/peer"
	"royalletters/internal/protocol"
	qr "royalletters/internal/qrcode"
	"royalletters/internal/rng"
	"royalletters/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	flag.IntVar(&cfg.Port, "port", cfg.Port, "server port")
	flag.StringVar(&cfg.Ruleset, "ruleset", cfg.Ruleset, "classic, 2019 or house")
	flag.IntVar(&cfg.AISeats, "bots", cfg.AISeats, "AI seats in the first room")
	flag.IntVar(&cfg.AutoStartAt, "auto-start", cfg.AutoStartAt, "start once this many seats are taken")
	flag.StringVar(&cfg.Seed, "seed", cfg.Seed, "game seed, random when empty")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	join := flag.String("join", "", "join URL of a hosted room; plays as a guest instead of hosting")
	name := flag.String("name", "Guest", "display name when joining")
	flag.Parse()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	logger, err := cfg.Logger()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *join != "" {
		err = runGuest(ctx, *join, *name, logger)
	} else {
		err = runHost(ctx, cfg, logger)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("exit", zap.Error(err))
	}
}

func runHost(ctx context.Context, cfg config.Server, logger *zap.Logger) error {
	srv := server.New(ctx, cfg, logger)
	room, err := srv.Handlers().CreateRoom()
	if err != nil {
		return err
	}
	host := cfg.PublicHost
	if host == "" {
		host = fmt.Sprintf("localhost:%d", cfg.Port)
	}
	fmt.Printf("Join:    %s\n", qr.JoinURL(host, room.ID))
	fmt.Printf("QR code: http://%s/api/qr?room=%s\n", host, room.ID)
	fmt.Printf("Start:   curl -X POST 'http://%s/api/start?room=%s'\n", host, room.ID)

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}()
	return srv.Start()
}

// runGuest joins a room and lets the baseline policy play the seat.
func runGuest(ctx context.Context, url, name string, logger *zap.Logger) error {
	id := server.NewPeerID()
	conn, err := server.Dial(ctx, url+"&peer="+id, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	mirror := peer.NewMirror(protocol.PlayerInfo{ID: id, Name: name, Ready: true}, conn, logger)
	var policy *ai.Baseline
	played := -1
	finished := false
	mirror.OnState(func(s *engine.GameState) {
		if s.Phase == engine.PhaseGameEnd {
			logger.Info("game over", zap.Strings("winners", s.WinnerIDs))
			finished = true
			conn.Close()
			return
		}
		if s.Version <= played {
			return
		}
		if a := s.ActivePlayer(); a == nil || a.ID != id {
			return
		}
		legal := mirror.LegalActions()
		if len(legal) == 0 {
			return
		}
		if policy == nil {
			cat, err := engine.LoadCatalog(s.Ruleset)
			if err != nil {
				logger.Error("card catalog", zap.Error(err))
				return
			}
			policy = ai.NewBaseline(cat, rng.NewSeed())
		}
		played = s.Version
		a := policy.Choose(engine.ViewFor(s, id), id, legal)
		logger.Info("playing", zap.String("type", string(a.Type)), zap.String("card", string(a.CardID)), zap.String("target", a.TargetPlayerID))
		if err := mirror.Submit(a); err != nil {
			logger.Warn("submit", zap.Error(err))
		}
	})
	if err := mirror.Join(conn.HostID()); err != nil {
		return err
	}
	err = conn.Run(ctx, mirror)
	if finished {
		return nil
	}
	return err
}
