// listen opens a recording window, transcribes the microphone in
// five-second windows and prints the final transcript to stdout when
// the window closes. Built for piping: `listen | improve`.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"listen/audio"
	"listen/beep"
	"listen/doctor"
	"listen/gui"
	"listen/log"
	"listen/transcriber"
	"listen/tui"
)

var version = "0.1.0"

var modelSizes = []string{"tiny", "base", "small", "medium", "large-v3"}

type options struct {
	modelSize        string
	silenceThreshold int
	cuda             bool
	useTUI           bool
	deviceName       string
	setup            bool
	wavFile          string
	logPath          string
	runDoctor        bool
}

func main() {
	godotenv.Load()

	var opts options
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Record microphone audio and print the transcript to stdout",
		Long: `Records audio from your microphone and transcribes it in near-real-time.
The transcription is displayed live and printed to stdout when recording
stops, so it composes with other tools: listen | improve`,
		Version:      version,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.modelSize, "model-size", "m", "base",
		"whisper model size ("+strings.Join(modelSizes, ", ")+")")
	cmd.Flags().IntVarP(&opts.silenceThreshold, "silence-threshold", "s", 15,
		"seconds of silence before auto-stop")
	cmd.Flags().BoolVar(&opts.cuda, "cuda", false, "request CUDA on the transcription server")
	cmd.Flags().BoolVar(&opts.useTUI, "tui", false, "terminal UI instead of the window")
	cmd.Flags().StringVar(&opts.deviceName, "device", "", "capture device name (default: system default)")
	cmd.Flags().BoolVar(&opts.setup, "setup", false, "pick the capture device interactively")
	cmd.Flags().StringVar(&opts.wavFile, "wav", "", "replay a WAV file instead of the microphone")
	cmd.Flags().StringVar(&opts.logPath, "logpath", "", "log directory (default: OS-specific location)")
	cmd.Flags().BoolVar(&opts.runDoctor, "doctor", false, "run environment diagnostics and exit")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(opts options) error {
	if !slices.Contains(modelSizes, opts.modelSize) {
		return fmt.Errorf("invalid model size %q (choose from %s)",
			opts.modelSize, strings.Join(modelSizes, ", "))
	}

	logDir, err := log.ResolveDir(opts.logPath)
	if err != nil {
		return fmt.Errorf("resolving log directory: %w", err)
	}
	log.SetDir(logDir)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}
	defer log.Close()

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	if crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644); err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n",
			time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	engineCfg := transcriber.Config{ModelSize: opts.modelSize, CUDA: opts.cuda}
	if opts.runDoctor {
		os.Exit(doctor.Run(engineCfg))
	}

	logger := log.New("main")
	logger.Info().Str("version", version).Str("model", opts.modelSize).
		Bool("cuda", opts.cuda).Bool("tui", opts.useTUI).Msg("starting")

	ctx, err := openAudio(opts.wavFile)
	if err != nil {
		return err
	}
	defer ctx.Close()

	device, err := pickDevice(ctx, opts)
	if err != nil {
		return err
	}

	go beep.Init()

	newEngine := func() (transcriber.Transcriber, error) {
		return transcriber.New(engineCfg)
	}
	silenceTimeout := time.Duration(opts.silenceThreshold) * time.Second

	var final string
	if opts.useTUI {
		final, err = tui.Run(tui.Config{
			Audio:          ctx,
			Device:         device,
			NewEngine:      newEngine,
			SilenceTimeout: silenceTimeout,
		})
	} else {
		app := gui.NewApp(gui.Config{
			Audio:          ctx,
			Device:         device,
			NewEngine:      newEngine,
			SilenceTimeout: silenceTimeout,
		})
		stop := watchSignals(app)
		defer stop()
		final, err = gui.Run(app)
	}
	if err != nil {
		return err
	}

	// The single stdout emission; everything else goes to stderr or logs.
	fmt.Println(final)
	return nil
}

func openAudio(wavFile string) (audio.Context, error) {
	if wavFile != "" {
		ctx, err := audio.NewFakeContextFromWAV(wavFile, true)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", wavFile, err)
		}
		return ctx, nil
	}
	ctx, err := audio.NewContext()
	if err != nil {
		return nil, fmt.Errorf("initializing audio: %w", err)
	}
	return ctx, nil
}

func pickDevice(ctx audio.Context, opts options) (*audio.DeviceInfo, error) {
	if opts.wavFile != "" {
		return nil, nil
	}
	if opts.deviceName != "" {
		devices, err := ctx.Devices()
		if err != nil {
			return nil, fmt.Errorf("listing devices: %w", err)
		}
		for i := range devices {
			if devices[i].Name == opts.deviceName {
				return &devices[i], nil
			}
		}
		return nil, fmt.Errorf("capture device %q not found", opts.deviceName)
	}
	if opts.setup {
		device, err := audio.SelectDevice(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: device selection failed: %v\n", err)
			fmt.Fprintln(os.Stderr, "Falling back to default device")
			return nil, nil
		}
		return device, nil
	}
	return nil, nil
}

// watchSignals closes the window on SIGINT/SIGTERM so the transcript
// still reaches stdout. The returned func stops the watcher.
func watchSignals(app *gui.App) func() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		if _, ok := <-sig; ok {
			app.Close()
		}
	}()
	return func() {
		signal.Stop(sig)
		close(sig)
	}
}
