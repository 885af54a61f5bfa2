package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"timetabledocs/internal/config"
	"timetabledocs/internal/logging"
	"timetabledocs/internal/otel"
	"timetabledocs/internal/portal"
	"timetabledocs/internal/portal/cli"
)

var initTracing = otel.Init

func main() {
	os.Exit(run(os.Args[1:], cli.Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}))
}

// run executes one CLI invocation and returns the exit code. Tracing is flushed before
// it returns, whatever the outcome.
func run(args []string, s cli.Streams) int {
	cfg := config.LoadPortal()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Tracing is opt-in for the CLI; without a collector there is nothing to flush.
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		defer flushTracing(ctx, s.Err, cfg.Timezone)()
	}

	app, err := cli.NewApp(cfg, s)
	if err != nil {
		fmt.Fprintln(s.Err, err)
		return 1
	}
	if err := app.Execute(ctx, args); err != nil {
		fmt.Fprintln(s.Err, portal.Message(err))
		return 1
	}
	return 0
}

func flushTracing(ctx context.Context, w io.Writer, tz string) func() {
	log := logging.New(w, config.Location(tz))
	shutdown, err := initTracing(ctx, log, "portal")
	if err != nil {
		return func() {}
	}
	return func() {
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = shutdown(sctx)
	}
}
