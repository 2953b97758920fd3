// Command ffetrack serves the FFE procurement workflow over HTTP or MCP.
//
//	ffetrack serve   [-config file]   HTTP API
//	ffetrack mcp     [-config file]   MCP tools over stdio
//	ffetrack token   [-config file] -sub id -role role [-rooms a,b] [-ttl 24h]
//	ffetrack version
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Aamm5845/residentone-workflow-sub002/internal/config"
	"github.com/Aamm5845/residentone-workflow-sub002/internal/core"
	"github.com/Aamm5845/residentone-workflow-sub002/internal/httpapi"
	"github.com/Aamm5845/residentone-workflow-sub002/internal/mcptools"
	"github.com/Aamm5845/residentone-workflow-sub002/internal/observability"
	"github.com/Aamm5845/residentone-workflow-sub002/pkg/domain"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"
)

var (
	version  = "dev"
	exitFunc = os.Exit
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	exitFunc(code)
}

func cli(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}
	cmd, rest := args[0], args[1:]
	var err error
	switch cmd {
	case "serve":
		err = serveCmd(ctx, rest, stderr)
	case "mcp":
		err = mcpCmd(ctx, rest, stderr)
	case "token":
		err = tokenCmd(rest, stdout, stderr)
	case "version":
		_, err = fmt.Fprintln(stdout, "ffetrack", version)
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		usage(stderr)
		return 2
	}
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		_, _ = fmt.Fprintf(stderr, "ffetrack %s: %v\n", cmd, err)
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: ffetrack <serve|mcp|token|version> [flags]")
}

func loadConfig(name string, args []string, stderr io.Writer, extra func(*flag.FlagSet)) (config.Config, error) {
	fs := flag.NewFlagSet("ffetrack "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("config", "", "path to YAML config file")
	if extra != nil {
		extra(fs)
	}
	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}
	return config.Load(*path)
}

func serveCmd(ctx context.Context, args []string, stderr io.Writer) error {
	cfg, err := loadConfig("serve", args, stderr, nil)
	if err != nil {
		return err
	}
	logger, err := observability.NewLogger(cfg.Env)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()
	a, err := buildApp(ctx, cfg, logger, os.Stdout)
	if err != nil {
		return err
	}
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.close(cctx); err != nil {
			logger.Warn("shutdown", "error", err)
		}
	}()
	handler, err := a.router()
	if err != nil {
		return err
	}
	ln, err := net.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.HTTP.Addr, err)
	}
	logger.Info("serving", "addr", ln.Addr().String(), "storage", cfg.Storage.Driver, "blob", cfg.Blob.Driver)
	return serve(ctx, a, ln, handler)
}

// serve runs the HTTP server until ctx is done, then shuts it down. When
// events are published to Redis it also logs events seen on the channel.
func serve(ctx context.Context, a *app, ln net.Listener, handler http.Handler) error {
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	if a.publisher != nil {
		events := a.logger.With("component", "events")
		err := a.publisher.Forward(gctx, func(e core.RoomEvent) {
			events.Debug("room event", "kind", e.Kind, "room_id", e.RoomID, "item_id", e.ItemID, "percent", e.Progress.Percent)
		}, func(err error) {
			events.Warn("room event dropped", "error", err)
		})
		if err != nil {
			events.Warn("event forwarder not started", "error", err)
		}
	}
	return g.Wait()
}

func mcpCmd(ctx context.Context, args []string, stderr io.Writer) error {
	cfg, err := loadConfig("mcp", args, stderr, nil)
	if err != nil {
		return err
	}
	logger, err := observability.NewLogger(cfg.Env)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()
	// stdout carries the MCP protocol
	a, err := buildApp(ctx, cfg, logger, stderr)
	if err != nil {
		return err
	}
	defer func() { _ = a.close(context.Background()) }()
	actor := domain.Actor{ID: cfg.MCP.ActorID, Role: domain.Role(cfg.MCP.ActorRole)}
	logger.Info("mcp stdio", "actor_id", actor.ID, "role", actor.Role)
	return server.ServeStdio(mcptools.NewServer(a.svc, actor, version))
}

func tokenCmd(args []string, stdout, stderr io.Writer) error {
	var (
		sub, role, rooms string
		ttl              time.Duration
	)
	cfg, err := loadConfig("token", args, stderr, func(fs *flag.FlagSet) {
		fs.StringVar(&sub, "sub", "", "actor id")
		fs.StringVar(&role, "role", string(domain.RoleMember), "admin, designer or member")
		fs.StringVar(&rooms, "rooms", "", "comma separated room ids")
		fs.DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	})
	if err != nil {
		return err
	}
	if sub == "" {
		return errors.New("-sub is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret (FFE_JWT_SECRET) is required")
	}
	actor := domain.Actor{ID: sub, Role: domain.Role(strings.ToLower(role))}
	for _, r := range strings.Split(rooms, ",") {
		if r = strings.TrimSpace(r); r != "" {
			actor.Rooms = append(actor.Rooms, r)
		}
	}
	auth := httpapi.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	tok, err := auth.Issue(actor, ttl)
	if err != nil {
		return err
	}
	if _, err := auth.Parse(tok); err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, tok)
	return err
}
