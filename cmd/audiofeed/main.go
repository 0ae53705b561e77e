// Audiofeed writes the PCM samples of a WAV file to stdout at real-time pace,
// for piping into the transcriber's stdin capture source:
//
//	audiofeed -audio sample.wav | STT_PROVIDER=google live-transcriber
package main

import (
	"bufio"
	"flag"
	"io"
	"os"
	"time"

	"github.com/go-audio/wav"
	"github.com/rs/zerolog/log"

	"live-transcriber/internal/observability/logging"
)

const chunkInterval = 100 * time.Millisecond

func main() {
	audioFile := flag.String("audio", "testdata/sample-16khz.wav", "Path to WAV file (16-bit mono PCM)")
	realtime := flag.Bool("realtime", true, "Pace output to the audio duration")
	flag.Parse()

	cfg := logging.DefaultConfig()
	cfg.Format = "console"
	cfg.Service = "audiofeed"
	logging.Init(cfg)

	f, err := os.Open(*audioFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open audio file")
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if err := d.FwdToPCM(); err != nil || d.PCMChunk == nil {
		log.Fatal().Err(err).Msg("Not a valid WAV file")
	}
	if d.WavAudioFormat != 1 || d.BitDepth != 16 || d.NumChans != 1 {
		log.Fatal().
			Uint16("format", d.WavAudioFormat).
			Uint16("bitDepth", d.BitDepth).
			Uint16("channels", d.NumChans).
			Msg("Only 16-bit mono PCM supported")
	}

	// 16-bit mono: 2 bytes per sample.
	chunkSize := int(d.SampleRate) * 2 * int(chunkInterval/time.Millisecond) / 1000
	log.Info().
		Uint32("sampleRate", d.SampleRate).
		Int("chunkBytes", chunkSize).
		Msg("Streaming audio, set STT_SAMPLE_RATE_HZ to match")

	out := bufio.NewWriterSize(os.Stdout, chunkSize)
	buf := make([]byte, chunkSize)
	var total int64
	start := time.Now()

	for {
		n, err := io.ReadFull(d.PCMChunk, buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				log.Fatal().Err(werr).Msg("Failed to write audio")
			}
			if werr := out.Flush(); werr != nil {
				log.Fatal().Err(werr).Msg("Failed to write audio")
			}
			total += int64(n)
			if *realtime {
				time.Sleep(chunkInterval)
			}
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read audio")
		}
	}

	log.Info().Int64("bytes", total).Dur("elapsed", time.Since(start)).Msg("Finished streaming")
}
