package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	physicsAdapter "gaze-walk/backend/internal/adapter/out/physics"
	"gaze-walk/backend/internal/app"
	"gaze-walk/backend/internal/config"
	"gaze-walk/backend/internal/world"
)

var CLI struct {
	Debug bool `help:"Whether to enable debug logging."`

	Serve struct {
		Configs []string `arg:"" optional:"" name:"configs" help:"Configuration files, applied in order over the defaults." type:"existingfile"`
	} `cmd:"" help:"Start the headset scene server."`

	Physics struct {
		Configs []string `arg:"" optional:"" name:"configs" help:"Configuration files, applied in order over the defaults." type:"existingfile"`
	} `cmd:"" help:"Serve the in-process physics world over gRPC."`

	Config struct {
	} `cmd:"" help:"Write the default configuration to standard output."`
}

func writeError(err error) {
	fmt.Fprintf(os.Stderr, "%s\n", err)
	os.Exit(1)
}

// setupLogging настраивает глобальный логгер по секции log
func setupLogging(cfg config.LogConfig) {
	if cfg.Console {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if CLI.Debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
}

func serveCommand(paths []string) error {
	cfg, err := config.Load(paths...)
	if err != nil {
		return err
	}
	setupLogging(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log.Logger)
	if err != nil {
		return err
	}
	defer a.Close()

	log.Info().
		Str("addr", cfg.Server.Addr).
		Str("physics", cfg.Physics.Backend).
		Int("tps", cfg.Ticker.PhysicsTPS).
		Int("fps", cfg.Ticker.RenderFPS).
		Msg("сцена запущена")

	return a.Run(ctx)
}

func physicsCommand(paths []string) error {
	cfg, err := config.Load(paths...)
	if err != nil {
		return err
	}
	setupLogging(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := world.NewFromConfig(cfg.Physics, log.Logger)
	server := physicsAdapter.NewPhysicsServer(physicsAdapter.NewLocalPhysicsAdapter(w), log.Logger)

	lis, err := net.Listen("tcp", cfg.Physics.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Physics.Listen, err)
	}

	go func() {
		<-ctx.Done()
		server.GracefulStop()
	}()

	log.Info().Str("addr", lis.Addr().String()).Int("planes", len(w.Planes())).Msg("физический движок слушает")
	return server.Serve(lis)
}

func main() {
	setupLogging(config.Default().Log)

	if len(os.Args) == 1 {
		if err := serveCommand(nil); err != nil {
			writeError(err)
		}
		return
	}

	ctx := kong.Parse(&CLI,
		kong.Name("gaze-walk"),
		kong.Description("headset locomotion and gaze interaction server"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))

	if CLI.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Warn().Msg("debug logging enabled")
	}

	var err error
	switch ctx.Command() {
	case "serve", "serve <configs>":
		err = serveCommand(CLI.Serve.Configs)
	case "physics", "physics <configs>":
		err = physicsCommand(CLI.Physics.Configs)
	case "config":
		var data []byte
		if data, err = config.Default().Marshal(); err == nil {
			_, err = os.Stdout.Write(data)
		}
	}
	if err != nil {
		writeError(err)
	}
}
