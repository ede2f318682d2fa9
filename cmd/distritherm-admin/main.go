package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/distritherm-admin/apiclient"
	"github.com/jrsteele09/distritherm-admin/internal/config"
	"github.com/jrsteele09/distritherm-admin/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var version = "dev"

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) (code int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(stderr, "Recovered from panic: %v\n", r)
			debug.PrintStack()
			code = exitError
		}
	}()

	global := flag.NewFlagSet("distritherm-admin", flag.ContinueOnError)
	global.SetOutput(stderr)
	format := global.String("o", "table", "output format: table, json or yaml")
	envFile := global.String("env", "", "dotenv file to load")
	logLevel := global.String("log-level", "", "overrides DISTRITHERM_LOG_LEVEL")
	metricsAddr := global.String("metrics-addr", "", "serve Prometheus metrics on this address while running")
	global.Usage = func() { usage(global, stderr) }
	if err := global.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	rest := global.Args()
	if len(rest) == 0 {
		global.Usage()
		return exitUsage
	}

	name := rest[0]
	if name == "version" {
		displayAppname(stdout, config.Default().GetAppName())
		fmt.Fprintf(stdout, "version %s\n", version)
		return exitOK
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", name)
		global.Usage()
		return exitUsage
	}

	out, err := newPrinter(*format, stdout)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	var envFiles []string
	if *envFile != "" {
		envFiles = append(envFiles, *envFile)
	}
	cfg, err := config.New(envFiles...)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	level := cfg.GetLogLevel()
	if *logLevel != "" {
		level = *logLevel
	}
	logging.Setup(level, cfg.GetLogFormat(), stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	if *metricsAddr != "" {
		srv := &http.Server{Addr: *metricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		go listenAndServe(srv)
		defer shutdown(srv)
	}

	a, err := newApp(ctx, cfg, reg, out)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}

	if err := cmd.run(ctx, a, rest[1:]); err != nil {
		var uerr usageError
		if errors.As(err, &uerr) {
			fmt.Fprintf(stderr, "%s\nusage: distritherm-admin %s %s\n", uerr.msg, name, cmd.usage)
			return exitUsage
		}
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, "Error:", apiclient.Message(err))
		log.Debug().Err(err).Str("command", name).Msg("Command failed")
		return exitError
	}
	return exitOK
}

func listenAndServe(server *http.Server) {
	log.Info().Str("addr", server.Addr).Msg("Metrics listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("Metrics server stopped")
	}
}

func shutdown(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("Metrics server shutdown")
	}
}

func displayAppname(w io.Writer, appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	fmt.Fprintln(w, myFigure.String())
}

func usage(fs *flag.FlagSet, w io.Writer) {
	displayAppname(w, config.Default().GetAppName())
	fmt.Fprintln(w, "usage: distritherm-admin [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	for _, name := range commandNames() {
		fmt.Fprintf(w, "  %-12s %s\n", name, commands[name].summary)
	}
	fmt.Fprintf(w, "  %-12s %s\n", "version", "print the version")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "flags:")
	fs.PrintDefaults()
}
