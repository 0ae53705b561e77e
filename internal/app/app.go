package app

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/grpc"

	"live-transcriber/internal/clipboard"
	"live-transcriber/internal/config"
	"live-transcriber/internal/display"
	"live-transcriber/internal/events"
	"live-transcriber/internal/observability"
	"live-transcriber/internal/observability/logging"
	"live-transcriber/internal/observability/metrics"
	"live-transcriber/internal/service/recognition"
	"live-transcriber/internal/service/recognition/google"
	"live-transcriber/internal/service/recognition/mock"
	"live-transcriber/internal/service/session"
)

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Config

	Controller *session.Controller
	Hub        *display.Hub

	engineCloser io.Closer
	publisher    *events.Publisher
}

// New wires the recognition engine, display sinks and clipboard into a
// session controller. A recognition engine that cannot be created leaves the
// controller in the unsupported state rather than failing startup.
func New(ctx context.Context, cfg *config.Config) *Application {
	logging.Init(logging.Config{
		Level:      cfg.Observability.LogLevel,
		Format:     cfg.Observability.LogFormat,
		TimeFormat: time.RFC3339,
		Service:    cfg.Service.Name,
	})

	a := &Application{
		Cfg:    cfg,
		Logger: logging.WithComponent("application"),
	}
	m := metrics.DefaultMetrics

	a.Hub = display.NewHub(m)
	a.publisher = events.New(&events.Config{
		Enabled:   cfg.Kafka.Enabled,
		Brokers:   cfg.Kafka.Brokers,
		Topic:     cfg.Kafka.TopicDisplay,
		Principal: cfg.Kafka.Principal,
	})
	sinks := []display.Sink{a.Hub, a.publisher}
	if cfg.Display.Console {
		sinks = append(sinks, display.NewConsole(os.Stdout))
	}

	engine := a.newEngine(ctx, m)

	var clip clipboard.Clipboard = clipboard.NewSystem()
	if cfg.Transcriber.ClipboardMode == "memory" {
		clip = &clipboard.Memory{}
	}

	a.Controller = session.New(engine, display.NewEmitter(sinks...), clip, session.Options{
		InterimTimeout: cfg.Transcriber.InterimTimeout,
		Metrics:        m,
	})

	a.Logger.Info().
		Str("provider", cfg.STT.Provider).
		Bool("console", cfg.Display.Console).
		Bool("kafka", cfg.Kafka.Enabled).
		Msg("Live transcriber application created")
	return a
}

// newEngine returns nil if the configured provider is unavailable.
func (a *Application) newEngine(ctx context.Context, m *metrics.Metrics) recognition.Engine {
	stt := a.Cfg.STT
	base := recognition.Config{
		Locale:         stt.LanguageCode,
		Continuous:     stt.Continuous,
		InterimResults: stt.InterimResults,
	}

	switch stt.Provider {
	case "google":
		gcfg := google.DefaultConfig()
		gcfg.Config = base
		gcfg.SampleRateHz = stt.SampleRateHz
		gcfg.AudioEncoding = stt.AudioEncoding
		gcfg.AudioSource = stt.AudioSource

		e, err := google.New(ctx, gcfg,
			option.WithGRPCDialOption(grpc.WithChainUnaryInterceptor(observability.UnaryClientInterceptor(m))),
			option.WithGRPCDialOption(grpc.WithChainStreamInterceptor(observability.StreamClientInterceptor(m))),
		)
		if err != nil {
			a.Logger.Error().Err(err).Msg("Google speech client unavailable, recognition disabled")
			return nil
		}
		a.engineCloser = e
		return e

	default:
		mcfg := mock.DefaultConfig()
		mcfg.Interval = stt.MockInterval
		mcfg.UtterancesPerSession = stt.MockUtterancesPerSession
		return mock.New(mcfg)
	}
}

// Start runs the display hub until ctx is done.
func (a *Application) Start(ctx context.Context) error {
	a.StartupTime = time.Now().UTC()
	go a.Hub.Run(ctx)

	a.Logger.Info().
		Time("startupTime", a.StartupTime).
		Msg("Live transcriber starting")
	return nil
}

// Shutdown stops the session and releases the engine and Kafka writer.
func (a *Application) Shutdown() {
	a.Logger.Info().Msg("Live transcriber shutting down")

	a.Controller.Stop()
	if a.engineCloser != nil {
		if err := a.engineCloser.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Engine close failed")
		}
	}
	if err := a.publisher.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Kafka publisher close failed")
	}
}
