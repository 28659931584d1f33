package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	offlineworker "github.com/offline-worker/offline-worker"
	"github.com/offline-worker/offline-worker/cache"
	recorder "github.com/offline-worker/offline-worker/pkg/response-recorder"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"
)

var (
	// CLI flags
	portFlag           int
	originFlag         string
	hostFlag           string
	dbFilenameFlag     string
	configFilenameFlag string
	verbosityTraceFlag bool
	logFilenameFlag    string

	// this is set by goreleaser
	version string
)

func init() {
	flag.StringVar(&originFlag, "origin", "", "Origin URL to proxy to (overrides config)")
	flag.StringVar(&hostFlag, "host", "", "Hostname of origin")
	flag.IntVar(&portFlag, "port", 8080, "Port to listen on")
	flag.StringVar(&dbFilenameFlag, "db", "worker.db", "Cache DB file name (use 'memory' for an in-memory cache)")
	flag.StringVar(&configFilenameFlag, "config", "", "Path to config file")
	flag.BoolVar(&verbosityTraceFlag, "vv", false, "Verbosity: trace logging")
	flag.StringVar(&logFilenameFlag, "log-file", "", "Log file to use (in addition to stdout, rotated)")

	if version == "" {
		version = "DEV"
	}
}

// fileConfig is the YAML configuration file shape.
type fileConfig struct {
	Origin       string   `yaml:"origin"`
	Port         int      `yaml:"port"`
	CacheVersion string   `yaml:"cacheVersion"`
	AppShell     []string `yaml:"appShell"`
	ShellIndex   string   `yaml:"shellIndex"`
	Denylist     []string `yaml:"denylist"`
}

func getConfig(filename string) (fileConfig, error) {
	var config fileConfig
	configBytes, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	err = yaml.Unmarshal(configBytes, &config)
	return config, err
}

func main() {
	flag.Parse()

	// set log level
	logLevel := zerolog.DebugLevel
	if verbosityTraceFlag {
		logLevel = zerolog.TraceLevel
	}

	// set up log output to stdout
	// also output to a rotated logfile if specified
	logOutputs := make([]io.Writer, 0)
	logOutputs = append(logOutputs, zerolog.ConsoleWriter{Out: os.Stdout})
	if logFilenameFlag != "" {
		logOutputs = append(logOutputs, &lumberjack.Logger{
			Filename:   logFilenameFlag,
			MaxSize:    100, // megabytes
			MaxBackups: 3,
		})
	}
	multiWriter := zerolog.MultiLevelWriter(logOutputs...)
	log.Logger = log.Level(logLevel).Output(multiWriter).
		With().Str("version", version).Logger()

	var config fileConfig
	if configFilenameFlag != "" {
		var err error
		config, err = getConfig(configFilenameFlag)
		if err != nil {
			log.Fatal().Err(err).Msg("Could not read config file")
		}
	}
	if originFlag != "" {
		config.Origin = originFlag
	}
	if config.Port == 0 {
		config.Port = portFlag
	}
	if config.Origin == "" {
		log.Fatal().Msg("Please specify origin")
	}
	originURL, err := url.Parse(config.Origin)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not parse origin url")
	}

	// set up the cache provider
	var provider cache.CacheProvider
	if dbFilenameFlag == "memory" {
		provider = cache.NewMemCache(0)
	} else {
		provider = cache.NewSQLiteCache(dbFilenameFlag)
	}

	worker := offlineworker.CreateWorker(offlineworker.Config{
		Cache:        provider,
		OriginURL:    *originURL,
		OriginHost:   hostFlag,
		CacheVersion: config.CacheVersion,
		AppShell:     config.AppShell,
		ShellIndex:   config.ShellIndex,
		Denylist:     config.Denylist,
		Logger:       &log.Logger,
		Notifier:     offlineworker.LogNotifier{Log: log.Logger},
	})

	ctx := context.Background()
	if err := worker.Dispatch(ctx, offlineworker.Event{Kind: offlineworker.EventInstall}); err != nil {
		log.Fatal().Err(err).Msg("Install failed")
	}
	if err := worker.Dispatch(ctx, offlineworker.Event{Kind: offlineworker.EventActivate}); err != nil {
		log.Fatal().Err(err).Msg("Activate failed")
	}

	r := chi.NewRouter()
	r.Use(requestLogger)
	r.Post("/-/message", eventHandler(worker, messageEvent))
	r.Post("/-/push", eventHandler(worker, pushEvent))
	r.Post("/-/sync", eventHandler(worker, syncEvent))
	r.Handle("/*", worker)

	go waitForShutdown(worker)

	log.Info().Msgf("Proxying port %v to %s (with hostname '%s')", config.Port, originURL.String(), hostFlag)
	err = http.ListenAndServe(fmt.Sprintf(":%d", config.Port), r)
	if err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}

// requestLogger logs every request with its status and size.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorder.New(w)
		next.ServeHTTP(rec, r)
		log.Trace().
			Str("method", r.Method).
			Str("url", r.URL.String()).
			Int("status", rec.StatusCode()).
			Int64("bytes", rec.BytesWritten()).
			Dur("elapsed", time.Since(rec.CreatedAt)).
			Msg("Request handled")
	})
}

// eventHandler converts an HTTP control request into a worker event.
func eventHandler(worker *offlineworker.Worker, build func(*http.Request) (offlineworker.Event, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ev, err := build(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := worker.Dispatch(r.Context(), ev); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func messageEvent(r *http.Request) (offlineworker.Event, error) {
	var body struct {
		Command string `json:"command"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return offlineworker.Event{}, fmt.Errorf("decoding message: %w", err)
	}
	return offlineworker.Event{Kind: offlineworker.EventMessage, Command: body.Command}, nil
}

func pushEvent(r *http.Request) (offlineworker.Event, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return offlineworker.Event{}, fmt.Errorf("reading push payload: %w", err)
	}
	return offlineworker.Event{Kind: offlineworker.EventPush, Data: data}, nil
}

func syncEvent(r *http.Request) (offlineworker.Event, error) {
	tag := r.URL.Query().Get("tag")
	if tag == "" {
		return offlineworker.Event{}, fmt.Errorf("missing sync tag")
	}
	return offlineworker.Event{Kind: offlineworker.EventSync, Tag: tag}, nil
}

func waitForShutdown(worker *offlineworker.Worker) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	// let detached cache writes and refreshes finish
	worker.Wait()
	os.Exit(0)
}
