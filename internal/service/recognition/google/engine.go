// Package google provides a Google Cloud Speech-to-Text recognition engine.
package google

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"live-transcriber/internal/observability/logging"
	"live-transcriber/internal/service/recognition"
	"live-transcriber/internal/service/transcript"
)

// Config holds Google STT configuration.
type Config struct {
	recognition.Config
	SampleRateHz  int
	AudioEncoding string        // LINEAR16, MULAW, FLAC, ...
	AudioSource   string        // Path to raw PCM or WAV, "-" for stdin
	ChunkDuration time.Duration // Audio sent per request
}

// DefaultConfig returns sensible defaults for live dictation.
func DefaultConfig() Config {
	return Config{
		Config:        recognition.DefaultConfig(),
		SampleRateHz:  16000,
		AudioEncoding: "LINEAR16",
		AudioSource:   "-",
		ChunkDuration: 100 * time.Millisecond,
	}
}

// Engine implements recognition.Engine using Google Cloud Speech-to-Text
// streaming recognition.
type Engine struct {
	client *speech.Client
	cfg    Config
	logger zerolog.Logger

	mu       sync.Mutex
	running  bool
	stopping bool
	cancel   context.CancelFunc
	done     chan struct{}
	src      *source
	srcErr   error
}

// New creates a new Google STT engine.
// Requires GOOGLE_APPLICATION_CREDENTIALS environment variable to be set.
func New(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Engine, error) {
	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}
	if cfg.ChunkDuration <= 0 {
		cfg.ChunkDuration = DefaultConfig().ChunkDuration
	}
	return &Engine{
		client: c,
		cfg:    cfg,
		logger: logging.WithComponent("recognition.google"),
	}, nil
}

// Name implements recognition.Engine.
func (e *Engine) Name() string {
	return "google"
}

// Close releases the underlying client.
func (e *Engine) Close() error {
	e.Stop()
	return e.client.Close()
}

// Start opens a streaming recognition session and sends the initial config.
// Results, errors and the end of the session are delivered from a separate goroutine.
func (e *Engine) Start(ctx context.Context, h recognition.Handler) error {
	e.mu.Lock()
	if e.running && e.stopping {
		done := e.done
		e.mu.Unlock()
		<-done
		e.mu.Lock()
	}
	if e.running {
		e.mu.Unlock()
		return recognition.ErrAlreadyStarted
	}
	e.running = true
	e.stopping = false
	src := e.captureSource()
	e.mu.Unlock()

	sctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	if src == nil || !src.available() {
		e.setSession(cancel, done)
		go e.fail(h, done, recognition.CodeAudioCapture)
		return nil
	}

	stream, err := e.client.StreamingRecognize(sctx)
	if err != nil {
		cancel()
		e.clearSession()
		return fmt.Errorf("open recognition stream: %w", err)
	}

	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: e.streamingConfig(src),
		},
	}); err != nil {
		cancel()
		e.clearSession()
		return fmt.Errorf("send streaming config: %w", err)
	}

	src.drain()
	e.setSession(cancel, done)
	go e.run(sctx, h, stream, src, done)
	return nil
}

// Stop cancels the running stream. The session still ends with OnSessionEnd.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return nil
	}
	e.stopping = true
	if e.cancel != nil {
		e.cancel()
	}
	return nil
}

func (e *Engine) setSession(cancel context.CancelFunc, done chan struct{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancel = cancel
	e.done = done
	if e.stopping {
		cancel()
	}
}

func (e *Engine) clearSession() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = false
	e.stopping = false
	e.cancel = nil
}

// captureSource opens the source on first use. Callers hold e.mu.
func (e *Engine) captureSource() *source {
	if e.src != nil || e.srcErr != nil {
		return e.src
	}
	chunk := e.cfg.SampleRateHz * 2 * int(e.cfg.ChunkDuration/time.Millisecond) / 1000
	e.src, e.srcErr = openSource(e.cfg.AudioSource, chunk)
	if e.srcErr != nil {
		e.logger.Error().Err(e.srcErr).Str("source", e.cfg.AudioSource).Msg("Capture source unavailable")
	}
	return e.src
}

func (e *Engine) streamingConfig(src *source) *speechpb.StreamingRecognitionConfig {
	rate := e.cfg.SampleRateHz
	if src.sampleRate > 0 {
		rate = src.sampleRate
	}
	return &speechpb.StreamingRecognitionConfig{
		Config: &speechpb.RecognitionConfig{
			Encoding:        parseAudioEncoding(e.cfg.AudioEncoding),
			SampleRateHertz: int32(rate),
			LanguageCode:    e.cfg.Locale,
		},
		InterimResults:  e.cfg.InterimResults,
		SingleUtterance: !e.cfg.Continuous,
	}
}

func (e *Engine) finish(h recognition.Handler, done chan struct{}) {
	e.mu.Lock()
	e.running = false
	e.stopping = false
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.mu.Unlock()
	close(done)
	h.OnSessionEnd()
}

func (e *Engine) fail(h recognition.Handler, done chan struct{}, code string) {
	h.OnError(code)
	e.finish(h, done)
}

// run pumps audio and receives results until the stream ends.
func (e *Engine) run(ctx context.Context, h recognition.Handler, stream speechpb.Speech_StreamingRecognizeClient, src *source, done chan struct{}) {
	defer e.finish(h, done)

	h.OnSessionStart()

	captureFailed := make(chan struct{})
	go e.pump(ctx, stream, src, captureFailed)

	finals := 0
	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			return
		}
		if err != nil {
			select {
			case <-captureFailed:
				h.OnError(recognition.CodeAudioCapture)
				return
			default:
			}
			if ctx.Err() != nil {
				return
			}
			if code, ok := errorCode(err); ok {
				e.logger.Warn().Err(err).Str("code", code).Msg("Recognition stream failed")
				h.OnError(code)
			}
			return
		}

		if resp.GetError() != nil && resp.GetError().GetCode() != 0 {
			if code, ok := statusCode(codes.Code(resp.GetError().GetCode())); ok {
				h.OnError(code)
			}
			return
		}

		batch, n := toBatch(resp, finals)
		if len(batch.Segments) == 0 {
			continue
		}
		finals += n
		h.OnBatch(batch)
	}
}

// pump forwards audio chunks until the session or the source ends.
func (e *Engine) pump(ctx context.Context, stream speechpb.Speech_StreamingRecognizeClient, src *source, captureFailed chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-src.chunks:
			if !ok {
				if err := src.Err(); err != nil && !errors.Is(err, ErrSourceExhausted) {
					close(captureFailed)
					e.Stop()
					return
				}
				if err := stream.CloseSend(); err != nil {
					e.logger.Debug().Err(err).Msg("CloseSend failed")
				}
				return
			}
			if err := stream.Send(&speechpb.StreamingRecognizeRequest{
				StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
					AudioContent: chunk,
				},
			}); err != nil {
				// Recv reports the stream error.
				return
			}
		}
	}
}

// toBatch maps a streaming response to a result batch starting at finals.
// Google splits an in-progress utterance into several interim results by
// stability; they are joined into one interim segment. It returns the batch
// and the number of final segments in it.
func toBatch(resp *speechpb.StreamingRecognizeResponse, finals int) (transcript.ResultBatch, int) {
	batch := transcript.ResultBatch{StartIndex: finals}
	var interim strings.Builder
	n := 0

	for _, r := range resp.GetResults() {
		if len(r.GetAlternatives()) == 0 {
			continue
		}
		alt := r.GetAlternatives()[0]
		if r.GetIsFinal() {
			batch.Segments = append(batch.Segments, transcript.Segment{
				Text:       strings.TrimSpace(alt.GetTranscript()),
				IsFinal:    true,
				Confidence: float64(alt.GetConfidence()),
				EndOffset:  r.GetResultEndTime().AsDuration(),
			})
			n++
			continue
		}
		interim.WriteString(alt.GetTranscript())
	}

	if text := strings.TrimSpace(interim.String()); text != "" {
		batch.Segments = append(batch.Segments, transcript.Segment{Text: text})
	}
	return batch, n
}

// errorCode maps a stream error to a recognition error code.
// ok is false when the error is a natural end of session.
func errorCode(err error) (code string, ok bool) {
	st, isStatus := status.FromError(err)
	if !isStatus {
		return strings.ToLower(err.Error()), true
	}
	return statusCode(st.Code())
}

func statusCode(c codes.Code) (string, bool) {
	switch c {
	case codes.OK, codes.Canceled, codes.OutOfRange:
		// OutOfRange is the service's maximum stream duration.
		return "", false
	case codes.PermissionDenied, codes.Unauthenticated:
		return recognition.CodeNotAllowed, true
	case codes.DeadlineExceeded:
		return recognition.CodeNoSpeech, true
	default:
		return strings.ToLower(c.String()), true
	}
}

// parseAudioEncoding converts string encoding name to speechpb enum.
func parseAudioEncoding(encoding string) speechpb.RecognitionConfig_AudioEncoding {
	if v, ok := speechpb.RecognitionConfig_AudioEncoding_value[encoding]; ok && v != 0 {
		return speechpb.RecognitionConfig_AudioEncoding(v)
	}
	return speechpb.RecognitionConfig_LINEAR16
}
