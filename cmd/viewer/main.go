// Viewer mirrors a remote transcriber's display by consuming its Kafka display
// topic, printing to the terminal and re-broadcasting over WebSocket.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"live-transcriber/internal/display"
	"live-transcriber/internal/events"
	"live-transcriber/internal/observability/logging"
	"live-transcriber/internal/observability/metrics"
)

func main() {
	port := flag.String("port", "8081", "HTTP port for the /ws feed")
	brokers := flag.String("brokers", "localhost:9092", "Kafka brokers (comma-separated)")
	topic := flag.String("topic", "transcript.display", "Display topic")
	lookback := flag.Duration("lookback", time.Hour, "History to replay on start")
	flag.Parse()

	cfg := logging.DefaultConfig()
	cfg.Format = "console"
	cfg.Service = "transcript-viewer"
	logging.Init(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := display.NewHub(metrics.DefaultMetrics)
	go hub.Run(ctx)

	consumer := events.NewConsumer(events.ConsumerConfig{
		Brokers:  strings.Split(*brokers, ","),
		Topic:    *topic,
		Lookback: *lookback,
	}, hub, display.NewConsole(os.Stdout))
	defer consumer.Close()
	go func() {
		if err := consumer.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Consumer stopped")
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	server := &http.Server{Addr: ":" + *port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info().Str("addr", server.Addr).Strs("brokers", strings.Split(*brokers, ",")).Msg("Transcript viewer starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}
