package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/stormyfocus/gamehub/server"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if lvl, err := zerolog.ParseLevel(os.Getenv("GAMEHUB_LOG")); err == nil && lvl != zerolog.NoLevel {
		zerolog.SetGlobalLevel(lvl)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	bind := flag.String("bind", "0.0.0.0:1235", "web listen address")
	dataDir := flag.String("data", "", "rooms store directory, empty for memory only")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s, err := server.NewServer(server.Config{WebAddr: *bind, DataDir: *dataDir}, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot start")
	}

	if err := s.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}
