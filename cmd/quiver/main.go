package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/quivergraph/quiver/internal/engine"
	"github.com/quivergraph/quiver/internal/eventbus"
	"github.com/quivergraph/quiver/internal/fixture"
	"github.com/quivergraph/quiver/internal/graphqlws"
	"github.com/quivergraph/quiver/internal/logging"
	"github.com/quivergraph/quiver/internal/otel"
	"github.com/quivergraph/quiver/internal/server"
)

const rootUsage = `quiver: GraphQL execution engine & server

USAGE:
  quiver <command> [flags]

COMMANDS:
  serve   Run the GraphQL HTTP + WebSocket server from a schema and fixtures
  check   Load and validate a schema and fixture file, then exit
  help    Show help for any command
`

const serveUsage = `serve FLAGS:
  -schema <file>              GraphQL SDL schema file (required)
  -fixtures <file>            JSON fixture file with resolver values
  -graphql.introspection      Enable introspection (default: true)
  -server.addr <addr>         HTTP listen address (default: :8080)
  -server.pretty              Pretty-print JSON responses
  -server.timeout <duration>  Per-request timeout, e.g. 10s (default: 10s)
  -server.max-body <bytes>    Max POST body size (default: 1048576)
  -server.cors-origin <o>     Allowed CORS origin. Repeatable
  -ws.init-timeout <duration> connection_init wait (default: 5s)
  -ws.keepalive <duration>    Legacy protocol ka interval (default: 15s)
  -log.level <level>          debug, info, warn, error (default: info)
  -log.format <format>        text or json (default: text)
  -otel.endpoint <addr>       OTLP collector endpoint
  -otel.service <name>        OpenTelemetry service name (default: quiver)
`

const checkUsage = `check FLAGS:
  -schema <file>    GraphQL SDL schema file (required)
  -fixtures <file>  JSON fixture file with resolver values
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("missing command")
	}
	switch args[0] {
	case "serve":
		return cmdServe(args[1:])
	case "check":
		return cmdCheck(args[1:])
	case "help":
		return cmdHelp(args[1:])
	default:
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func cmdHelp(args []string) error {
	if len(args) == 0 {
		fmt.Print(rootUsage)
		return nil
	}
	switch args[0] {
	case "serve":
		fmt.Print(serveUsage)
	case "check":
		fmt.Print(checkUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

type stringListFlag []string

func (s *stringListFlag) String() string { return "" }

func (s *stringListFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func buildEngine(schemaPath, fixturesPath string, introspection bool) (*engine.Engine, error) {
	sdl, err := os.ReadFile(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	var opts []engine.Option
	if fixturesPath != "" {
		cfg, err := fixture.Load(fixturesPath)
		if err != nil {
			return nil, err
		}
		opts = cfg.Options()
	}
	if !introspection {
		opts = append(opts, engine.WithoutIntrospection())
	}
	eng, err := engine.New(string(sdl), opts...)
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}
	return eng, nil
}

func cmdCheck(args []string) error {
	schemaPath := ""
	fixturesPath := ""

	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&schemaPath, "schema", schemaPath, "GraphQL SDL schema file")
	fs.StringVar(&fixturesPath, "fixtures", fixturesPath, "JSON fixture file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, checkUsage)
		return err
	}
	if schemaPath == "" {
		fmt.Fprint(os.Stderr, checkUsage)
		return fmt.Errorf("-schema is required")
	}

	if _, err := buildEngine(schemaPath, fixturesPath, true); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

func cmdServe(args []string) error {
	schemaPath := ""
	fixturesPath := ""
	introspection := true
	addr := ":8080"
	pretty := false
	timeout := 10 * time.Second
	maxBody := int64(1 << 20)
	initTimeout := 5 * time.Second
	keepAlive := 15 * time.Second
	logLevel := "info"
	logFormat := "text"
	otelEndpoint := ""
	otelService := "quiver"
	var corsOrigins stringListFlag

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&schemaPath, "schema", schemaPath, "GraphQL SDL schema file")
	fs.StringVar(&fixturesPath, "fixtures", fixturesPath, "JSON fixture file")
	fs.BoolVar(&introspection, "graphql.introspection", introspection, "Enable introspection")
	fs.StringVar(&addr, "server.addr", addr, "HTTP listen address")
	fs.BoolVar(&pretty, "server.pretty", pretty, "Pretty-print JSON responses")
	fs.DurationVar(&timeout, "server.timeout", timeout, "Per-request timeout")
	fs.Int64Var(&maxBody, "server.max-body", maxBody, "Max POST body size")
	fs.Var(&corsOrigins, "server.cors-origin", "Allowed CORS origin")
	fs.DurationVar(&initTimeout, "ws.init-timeout", initTimeout, "connection_init wait")
	fs.DurationVar(&keepAlive, "ws.keepalive", keepAlive, "Legacy ka interval")
	fs.StringVar(&logLevel, "log.level", logLevel, "Log level")
	fs.StringVar(&logFormat, "log.format", logFormat, "Log format")
	fs.StringVar(&otelEndpoint, "otel.endpoint", otelEndpoint, "OTLP collector endpoint")
	fs.StringVar(&otelService, "otel.service", otelService, "OpenTelemetry service name")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, serveUsage)
		return err
	}
	if schemaPath == "" {
		fmt.Fprint(os.Stderr, serveUsage)
		return fmt.Errorf("-schema is required")
	}

	logger := logging.New(logging.Config{
		Level:  parseLevel(logLevel),
		Format: logging.Format(logFormat),
	})

	eng, err := buildEngine(schemaPath, fixturesPath, introspection)
	if err != nil {
		return err
	}

	eventbus.Use(eventbus.New())
	shutdown, err := otel.Setup(otelEndpoint, otelService)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	ws := graphqlws.NewHandler(graphqlws.Options{
		Engine:            eng,
		Logger:            logger,
		InitTimeout:       initTimeout,
		KeepAliveInterval: keepAlive,
	})

	sopts := []server.Option{
		server.WithTimeout(timeout),
		server.WithMaxBodyBytes(maxBody),
		server.WithWebSocket(ws),
	}
	if pretty {
		sopts = append(sopts, server.WithPretty())
	}
	if len(corsOrigins) > 0 {
		sopts = append(sopts, server.WithCORS(corsOrigins...))
	}

	logger.Info("listening", "addr", addr)
	return http.ListenAndServe(addr, server.New(eng, sopts...))
}

func parseLevel(s string) logging.Level {
	switch s {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	}
	return logging.LevelInfo
}
