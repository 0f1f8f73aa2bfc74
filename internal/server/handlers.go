package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/kilnbuild/kilnd/internal"
	"github.com/kilnbuild/kilnd/internal/manifest"
	"github.com/kilnbuild/kilnd/internal/pipeline"
	"github.com/kilnbuild/kilnd/internal/protocol"
)

// Handles a build command.
//
// Loads the plan from the request's build context and executes the pipeline
// against the container runtime.
func (s *Server) handleBuild(ctx context.Context, conn net.Conn, payload json.RawMessage) {
	req, err := protocol.DecodePayload[protocol.BuildRequest](payload)
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	planPath := req.Plan
	if planPath == "" {
		planPath = filepath.Join(req.Context, manifest.DefaultFilename)
	}

	plan, err := manifest.Load(planPath)
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	result, err := pipeline.Run(ctx, s.runtime, s.store, pipeline.Options{
		Plan:     plan,
		Context:  req.Context,
		Output:   req.Output,
		Platform: req.Platform,
	})
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	s.mu.Lock()
	s.builds++
	s.mu.Unlock()

	s.respond(conn, protocol.CmdOK, &protocol.BuildResult{
		Output:    result.Output,
		BuildID:   result.BuildID,
		Key:       result.Key.String(),
		CacheHits: result.CacheHits,
	})
}

// Handles a status command.
func (s *Server) handleStatus(conn net.Conn) {
	s.mu.Lock()
	builds := s.builds
	s.mu.Unlock()

	uptime := time.Since(s.startedAt).Truncate(time.Second)

	s.respond(conn, protocol.CmdOK, &protocol.StatusResult{
		Running: true,
		Version: internal.VersionString(),
		Pid:     os.Getpid(),
		Uptime:  uptime.String(),
		Builds:  builds,
	})
}

// Handles a cache-prune command.
func (s *Server) handleCachePrune(conn net.Conn) {
	entries, bytes, err := s.store.Prune()
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	slog.Info("stage cache pruned", "entries", entries, "bytes", bytes)
	s.respond(conn, protocol.CmdOK, &protocol.PruneResult{Entries: entries, Bytes: bytes})
}

// Handles a shutdown command.
func (s *Server) handleShutdown(conn net.Conn) {
	s.respond(conn, protocol.CmdOK, nil)
	slog.Info("shutdown requested")

	go func() {
		s.Stop()
	}()
}
