// Command bridge-demo drives the adaptive playback engine end to end: a
// source thread (either a synthetic tone generator or an RTP receiver)
// feeding SubmitSourceData, and a sink thread (either a synthetic discard
// sink or a real PortAudio device) pulling PullSinkFrames on its own timer.
// It exists to exercise the source/sink callback contracts the way a real
// integration would, the way cmd/sip-tg-bridge wires bridge.Service — see
// that file for the signal-handling and config-loading idiom this borrows.
package main

import (
	"context"
	"flag"
	"log/slog"
	"math"
	"net"
	"os"
	"os/signal"
	"time"

	"github.com/loopwire/adaptiveplayback/engine"
	"github.com/loopwire/adaptiveplayback/engine/backend"
	"github.com/loopwire/adaptiveplayback/transport/rtp"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to a YAML config file (defaults applied otherwise)")
		listenAddr  = flag.String("listen", "", "UDP address to receive RTP from instead of the built-in tone generator, e.g. :5004")
		payloadType = flag.Int("payload-type", int(rtp.PayloadPCMU), "RTP payload type when -listen is set (0=PCMU, 8=PCMA, 9=G722)")
		usePortAudio = flag.Bool("portaudio", false, "play out through a real local PortAudio device instead of discarding frames")
		toneHz      = flag.Float64("tone-hz", 440, "frequency of the synthetic tone generator when -listen is not set")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg := engine.DefaultConfig()
	if *configPath != "" {
		loaded, err := engine.LoadConfig(*configPath)
		if err != nil {
			log.Error("config error", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	var dev backend.Device
	if *usePortAudio {
		dev = backend.NewPortAudioDevice()
	} else {
		dev = backend.NewDiscardDevice(cfg.SampleRate / 50)
	}

	stream, err := engine.NewStream(ctx, cfg, dev, log)
	if err != nil {
		log.Error("engine setup failed", "error", err)
		os.Exit(1)
	}

	go runSinkPump(ctx, stream, dev, cfg, log)

	if *listenAddr != "" {
		if err := runRTPSource(ctx, stream, cfg, *listenAddr, rtp.PayloadType(*payloadType), log); err != nil && ctx.Err() == nil {
			log.Error("rtp source stopped with error", "error", err)
			os.Exit(1)
		}
	} else {
		runToneSource(ctx, stream, cfg, *toneHz, log)
	}

	stream.Stop()
	log.Info("shutdown complete")
}

// runSinkPump fills a period from the stream's coupling buffer and hands it
// to the device once per sink period, the role the real device callback
// would play; the Stream owns Setup/Start/Stop/volume but the periodic
// pull/push is driven from here, same split as the teacher's own sink loop.
func runSinkPump(ctx context.Context, stream *engine.Stream, dev backend.Device, cfg engine.Config, log *slog.Logger) {
	periodFrames := cfg.SampleRate / 50 // 20ms sink period
	buf := make([]float32, periodFrames*cfg.Channels)
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := stream.PullSinkFrames(buf); err != nil {
				log.Warn("sink pull failed", "error", err)
				continue
			}
			if err := dev.PullFrames(buf); err != nil {
				log.Warn("device write failed", "error", err)
			}
		}
	}
}

// runToneSource feeds a synthetic sine wave as the source thread, standing
// in for a real capture device when -listen isn't given.
func runToneSource(ctx context.Context, stream *engine.Stream, cfg engine.Config, hz float64, log *slog.Logger) {
	periodFrames := cfg.SampleRate / 100 // 10ms source period, deliberately off from the sink's 20ms
	buf := make([]float32, periodFrames*cfg.Channels)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	var phase float64
	step := 2 * math.Pi * hz / float64(cfg.SampleRate)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for i := 0; i < periodFrames; i++ {
				sample := float32(math.Sin(phase)) * 0.25
				phase += step
				for c := 0; c < cfg.Channels; c++ {
					buf[i*cfg.Channels+c] = sample
				}
			}
			if err := stream.SubmitSourceData(buf, periodFrames); err != nil {
				log.Warn("source submit failed", "error", err)
			}
		}
	}
}

func runRTPSource(ctx context.Context, stream *engine.Stream, cfg engine.Config, addr string, pt rtp.PayloadType, log *slog.Logger) error {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	receiver, err := rtp.NewReceiver(rtp.Config{
		Conn:          conn,
		PayloadType:   pt,
		InputChannels: 1,
		OutputFormat: rtp.OutputFormat{
			SampleRate:      cfg.SampleRate,
			Channels:        cfg.Channels,
			FramesPerPeriod: cfg.SampleRate / 100,
		},
		AppLog: log,
	}, stream)
	if err != nil {
		return err
	}

	log.Info("listening for RTP", "addr", addr, "payloadType", pt)
	return receiver.Run(ctx)
}
