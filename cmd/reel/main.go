package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/reelworks/reel/internal/audio"
	"github.com/reelworks/reel/internal/capture"
	"github.com/reelworks/reel/internal/config"
	"github.com/reelworks/reel/internal/health"
	"github.com/reelworks/reel/internal/logging"
	"github.com/reelworks/reel/internal/session"
	"github.com/reelworks/reel/internal/statusserver"
	"github.com/reelworks/reel/internal/sysmon"
)

var (
	version = "0.1.0"
	cfgFile string

	flagFPS        int
	flagResolution string
	flagQuality    string
	flagCountdown  int
	flagOutput     string
	flagNoSystem   bool
	flagNoMic      bool
	flagSynthetic  bool
	flagDuration   time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "reel",
	Short: "Reel screen recorder",
	Long:  `Reel - screen recorder with system and microphone audio, constant frame rate output`,
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Start a recording",
	RunE: func(cmd *cobra.Command, args []string) error {
		return record(cmd)
	},
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Probe capture devices",
	Run: func(cmd *cobra.Command, args []string) {
		probeDevices()
	},
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List resolution and quality presets",
	Run: func(cmd *cobra.Command, args []string) {
		listPresets()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Reel v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.config/reel/reel.yaml)")

	recordCmd.Flags().IntVar(&flagFPS, "fps", 0, "target frame rate (24, 30, or 60)")
	recordCmd.Flags().StringVar(&flagResolution, "resolution", "", "resolution preset")
	recordCmd.Flags().StringVar(&flagQuality, "quality", "", "quality preset")
	recordCmd.Flags().IntVar(&flagCountdown, "countdown", -1, "countdown seconds before recording (0-10)")
	recordCmd.Flags().StringVar(&flagOutput, "output", "", "output file path")
	recordCmd.Flags().BoolVar(&flagNoSystem, "no-system-audio", false, "disable system audio capture")
	recordCmd.Flags().BoolVar(&flagNoMic, "no-mic", false, "disable microphone capture")
	recordCmd.Flags().BoolVar(&flagSynthetic, "synthetic", false, "use synthetic sources (diagnostics)")
	recordCmd.Flags().DurationVar(&flagDuration, "duration", 0, "stop automatically after this long")

	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(presetsCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func record(cmd *cobra.Command) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlags(cmd, cfg)

	var logWriter = os.Stderr
	if cfg.Log.File != "" {
		fw, err := logging.NewFileWriter(cfg.Log.File, cfg.Log.MaxSizeMB, cfg.Log.Keep)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer fw.Close()
		logging.Init(cfg.Log.Format, cfg.Log.Level, fw)
	} else {
		logging.Init(cfg.Log.Format, cfg.Log.Level, logWriter)
	}

	output := flagOutput
	if output == "" {
		if err := os.MkdirAll(cfg.Output.Directory, 0755); err != nil {
			return fmt.Errorf("output directory: %w", err)
		}
		output = filepath.Join(cfg.Output.Directory,
			"reel-"+time.Now().Format("2006-01-02-150405")+".mp4")
	}

	hm := health.NewMonitor()

	opts := session.Options{
		Config: cfg,
		Output: output,
		Health: hm,
		OnCountdown: func(remaining int) {
			fmt.Printf("Recording in %d...\n", remaining)
		},
	}
	if flagSynthetic {
		res, _ := config.Resolution(cfg.Recording.Resolution)
		opts.Capturer = capture.NewSyntheticCapturer(res.Width, res.Height, cfg.Recording.FPS)
		opts.SystemAudio = audio.NewSyntheticCapturer(440, audio.TargetSampleRate, audio.TargetChannels)
		opts.MicAudio = audio.NewSyntheticCapturer(220, audio.TargetSampleRate, audio.TargetChannels)
	}

	sess, err := session.New(opts)
	if err != nil {
		return err
	}
	if err := sess.Start(); err != nil {
		return err
	}

	sysMon := sysmon.New(5*time.Second, cfg.Output.Directory, hm)
	sysMon.Start()
	defer sysMon.Stop()

	var statusSrv *statusserver.Server
	if cfg.Status.Enabled {
		statusSrv = statusserver.New(sess, hm)
		if _, err := statusSrv.Start(cfg.Status.Listen); err != nil {
			fmt.Fprintf(os.Stderr, "status server unavailable: %v\n", err)
		} else {
			defer statusSrv.Stop()
		}
	}

	fmt.Printf("Recording to %s (Ctrl+C to stop)\n", output)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var timeout <-chan time.Time
	if flagDuration > 0 {
		timeout = time.After(flagDuration)
	}

	select {
	case <-sigChan:
		fmt.Println("\nStopping...")
	case <-timeout:
		fmt.Println("Duration reached, stopping...")
	case <-sess.Done():
	}
	sess.Stop()

	if err := sess.Wait(); err != nil {
		st := sess.Status()
		if st.Partial {
			fmt.Fprintf(os.Stderr, "Recording failed, partial output kept at %s\n", output)
		}
		return err
	}

	st := sess.Status()
	fmt.Printf("Done: %s (%v, %d frames, %d duplicated, %d dropped, %d audio gaps)\n",
		output, st.Elapsed.Round(time.Millisecond), st.FramesDelivered,
		st.FramesDuplicated, st.FramesDropped, st.AudioGaps)
	return nil
}

// applyFlags overlays explicit command-line flags on the loaded config.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("fps") {
		cfg.Recording.FPS = flagFPS
	}
	if cmd.Flags().Changed("resolution") {
		cfg.Recording.Resolution = flagResolution
	}
	if cmd.Flags().Changed("quality") {
		cfg.Recording.Quality = flagQuality
	}
	if cmd.Flags().Changed("countdown") {
		cfg.Recording.CountdownSeconds = flagCountdown
	}
	if flagNoSystem {
		cfg.Audio.System = false
	}
	if flagNoMic {
		cfg.Audio.Mic = false
	}
}

func probeDevices() {
	if capturer, err := capture.NewScreenCapturer(capture.Config{}); err != nil {
		fmt.Printf("screen:       unavailable (%v)\n", err)
	} else {
		w, h, berr := capturer.Bounds()
		capturer.Close()
		if berr != nil {
			fmt.Printf("screen:       available, bounds unknown (%v)\n", berr)
		} else {
			fmt.Printf("screen:       %dx%d\n", w, h)
		}
	}

	if c, err := audio.NewLoopbackCapturer(); err != nil {
		fmt.Printf("system audio: unavailable (%v)\n", err)
	} else {
		c.Stop()
		fmt.Println("system audio: available")
	}

	if c, err := audio.NewMicrophoneCapturer(); err != nil {
		fmt.Printf("microphone:   unavailable (%v)\n", err)
	} else {
		c.Stop()
		fmt.Println("microphone:   available")
	}
}

func listPresets() {
	res := config.ResolutionNames()
	sort.Strings(res)
	fmt.Println("Resolutions:")
	for _, name := range res {
		p, _ := config.Resolution(name)
		fmt.Printf("  %-6s %dx%d\n", name, p.Width, p.Height)
	}

	qual := config.QualityNames()
	sort.Strings(qual)
	fmt.Println("Qualities:")
	for _, name := range qual {
		q, _ := config.Quality(name)
		fmt.Printf("  %-6s crf %d\n", name, q.CRF)
	}
	fmt.Println("Frame rates: 24, 30, 60")
}
