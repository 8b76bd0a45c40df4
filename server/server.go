// Package server is the relay: a REST surface for minting rooms and
// player identities, and a websocket surface that joins connections to
// room sessions and fans pushed snapshots out to members. The relay is
// deliberately not a referee; the connected clients own the rules and
// the last writer wins.
package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	// WebAddr is the listen address for both REST and websockets.
	WebAddr string
	// DataDir holds the rooms store; empty means memory-only.
	DataDir string
}

type Server struct {
	cfg      Config
	log      zerolog.Logger
	rooms    *RoomService
	registry *Registry
}

func NewServer(cfg Config, log zerolog.Logger) (*Server, error) {
	rooms, err := NewRoomService(cfg.DataDir, log)
	if err != nil {
		return nil, err
	}

	s := &Server{cfg: cfg, log: log, rooms: rooms}
	s.registry = NewRegistry(log, rooms.MarkInactive)
	return s, nil
}

// Run serves until the context ends, then shuts the gateway down and
// closes the rooms store.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info().Msg("server running")
	defer s.log.Info().Msg("server stopping")

	ln, err := net.Listen("tcp", s.cfg.WebAddr)
	if err != nil {
		return err
	}

	s.log.Info().Msgf("web listening on http://%v", ln.Addr())

	hs := &http.Server{
		Handler:           s.buildRouter(),
		ReadHeaderTimeout: time.Second * 10,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := hs.Serve(ln)
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		_ = hs.Shutdown(sctx)
		return s.rooms.Close()
	})
	return g.Wait()
}
