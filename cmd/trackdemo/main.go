// Command trackdemo exercises the AudioEngine façade end to end: load a
// track, adjust its mix parameters, play it, and optionally extract it
// to a new file, reporting progress on stdout.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shaban/trackengine"
	"github.com/shaban/trackengine/devices"
	"github.com/shaban/trackengine/encode"
	"github.com/shaban/trackengine/extraction"
	"github.com/shaban/trackengine/internal/config"
	"github.com/spf13/pflag"
)

func main() {
	var (
		path        = pflag.StringP("file", "f", "", "audio file to load (wav or mp3)")
		configPath  = pflag.String("config", "", "YAML config file overriding engine defaults")
		sampleRate  = pflag.Int("sample-rate", 48000, "engine sample rate")
		maxTracks   = pflag.Int("max-tracks", 8, "maximum concurrently loaded tracks")
		volume      = pflag.Float32("volume", 1.0, "track volume")
		pan         = pflag.Float32("pan", 0.0, "track pan, -1 (left) to 1 (right)")
		extractTo   = pflag.String("extract-to", "", "if set, extract the loaded track to this path instead of playing it")
		listDevices = pflag.Bool("list-devices", false, "list audio devices and exit")
	)
	pflag.Parse()

	if *listDevices {
		printDevices()
		return
	}

	if *path == "" {
		fmt.Fprintln(os.Stderr, "trackdemo: -f/--file is required")
		pflag.Usage()
		os.Exit(2)
	}

	engine := trackengine.New()
	if err := initializeEngine(engine, *configPath, *sampleRate, *maxTracks); err != nil {
		fmt.Fprintf(os.Stderr, "initialize: %v\n", err)
		os.Exit(1)
	}
	defer engine.Release()

	engine.SetErrorCallback(func(err *trackengine.Error) {
		fmt.Fprintf(os.Stderr, "engine error [%s]: %s\n", err.Kind, err.Error())
	})

	const trackID = "demo"
	if err := engine.LoadTrack(trackID, *path, 0); err != nil {
		fmt.Fprintf(os.Stderr, "load track: %v\n", err)
		os.Exit(1)
	}
	engine.SetTrackVolume(trackID, *volume)
	engine.SetTrackPan(trackID, *pan)

	fmt.Printf("loaded %s (%.1fs)\n", *path, engine.GetDuration()/1000)

	if *extractTo != "" {
		runExtraction(engine, trackID, *extractTo)
		return
	}

	runPlayback(engine)
}

func initializeEngine(engine *trackengine.AudioEngine, configPath string, sampleRate, maxTracks int) error {
	if configPath == "" {
		return engine.Initialize(sampleRate, maxTracks)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	return engine.InitializeFromConfig(cfg)
}

func runPlayback(engine *trackengine.AudioEngine) {
	if err := engine.Play(); err != nil {
		fmt.Fprintf(os.Stderr, "play: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("playing, ctrl-c to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-sigCh:
			engine.Stop()
			fmt.Println("\nstopped")
			return
		case <-ticker.C:
			fmt.Printf("\rposition: %7.1f ms", engine.GetCurrentPosition())
		}
	}
}

func runExtraction(engine *trackengine.AudioEngine, trackID, dest string) {
	format := encode.FormatWav
	done := make(chan extraction.Result, 1)
	_, err := engine.StartExtractTrack(trackID, dest, format,
		func(frame, total int64) {
			fmt.Printf("\rextracting: %d/%d frames", frame, total)
		},
		func(res extraction.Result) { done <- res },
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "start extraction: %v\n", err)
		os.Exit(1)
	}

	res := <-done
	fmt.Println()
	if !res.Success {
		fmt.Fprintf(os.Stderr, "extraction failed: %s\n", res.ErrorMessage)
		os.Exit(1)
	}
	fmt.Printf("wrote %s (%.1fs, %d bytes)\n", res.URI, res.DurationMs/1000, res.FileSize)
}

func printDevices() {
	devs, err := devices.Get()
	if err != nil {
		fmt.Fprintf(os.Stderr, "list devices: %v\n", err)
		os.Exit(1)
	}
	for _, d := range devs {
		fmt.Printf("[%d] %-30s in=%d out=%d default_rate=%.0f\n", d.Index, d.Name, d.InputChannelCount, d.OutputChannelCount, d.DefaultSampleRate)
	}
}
