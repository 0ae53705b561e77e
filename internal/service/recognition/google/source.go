package google

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/go-audio/wav"
	"github.com/rs/zerolog/log"
)

// ErrSourceExhausted is returned once the capture source has reached EOF.
var ErrSourceExhausted = errors.New("capture source exhausted")

// source reads PCM audio from a capture device stand-in (stdin, raw PCM or WAV
// file) on a single goroutine and hands out fixed-size chunks. It outlives
// individual recognition sessions.
type source struct {
	name       string
	live       bool
	sampleRate int // 0 when the source does not declare one
	chunks     chan []byte

	mu  sync.Mutex
	err error
}

// openSource opens path ("-" for stdin). WAV files must be 16-bit mono PCM;
// their header sample rate is returned through sampleRate.
func openSource(path string, chunkBytes int) (*source, error) {
	if chunkBytes <= 0 {
		return nil, fmt.Errorf("invalid chunk size %d", chunkBytes)
	}

	src := &source{
		name:   path,
		chunks: make(chan []byte, 50),
	}

	var r io.Reader
	var closer io.Closer
	switch {
	case path == "" || path == "-":
		src.name = "stdin"
		src.live = true
		r = os.Stdin
	case strings.HasSuffix(strings.ToLower(path), ".wav"):
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open capture source: %w", err)
		}
		d := wav.NewDecoder(f)
		if err := d.FwdToPCM(); err != nil {
			f.Close()
			return nil, fmt.Errorf("read wav header: %w", err)
		}
		if d.WavAudioFormat != 1 || d.BitDepth != 16 || d.NumChans != 1 {
			f.Close()
			return nil, fmt.Errorf("unsupported wav format: format=%d bitDepth=%d channels=%d",
				d.WavAudioFormat, d.BitDepth, d.NumChans)
		}
		if d.PCMChunk == nil {
			f.Close()
			return nil, fmt.Errorf("wav file %s has no data chunk", path)
		}
		src.sampleRate = int(d.SampleRate)
		r = d.PCMChunk
		closer = f
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open capture source: %w", err)
		}
		r = f
		closer = f
	}

	go src.read(r, closer, chunkBytes)
	return src, nil
}

func (s *source) read(r io.Reader, closer io.Closer, chunkBytes int) {
	defer close(s.chunks)
	if closer != nil {
		defer closer.Close()
	}

	for {
		buf := make([]byte, chunkBytes)
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			s.chunks <- buf[:n]
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			s.setErr(ErrSourceExhausted)
			log.Info().Str("source", s.name).Msg("Capture source reached end of input")
			return
		}
		if err != nil {
			s.setErr(fmt.Errorf("read capture source: %w", err))
			log.Error().Err(err).Str("source", s.name).Msg("Capture source read failed")
			return
		}
	}
}

func (s *source) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Err returns the terminal read error, if the source has stopped.
func (s *source) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// available reports whether another session can still get audio.
func (s *source) available() bool {
	return s.Err() == nil || len(s.chunks) > 0
}

// drain discards audio buffered while no session was listening. Only live
// sources are drained; files are transcribed in full.
func (s *source) drain() {
	if !s.live {
		return
	}
	for {
		select {
		case _, ok := <-s.chunks:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
