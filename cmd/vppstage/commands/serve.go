package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bryanchriswhite/vppstage/internal/api"
	"github.com/bryanchriswhite/vppstage/internal/config"
	"github.com/bryanchriswhite/vppstage/internal/engine"
	"github.com/bryanchriswhite/vppstage/internal/format"
	"github.com/bryanchriswhite/vppstage/internal/logger"
	"github.com/bryanchriswhite/vppstage/internal/postproc"
	"github.com/bryanchriswhite/vppstage/internal/preview"
	"github.com/bryanchriswhite/vppstage/internal/source"
	"github.com/bryanchriswhite/vppstage/internal/surface"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the post-processing stage with a test source",
	Long: `Run the stage against a synthetic test pattern source and expose it
over HTTP: filter parameters and color balance via the REST API, plus a
live MJPEG preview of the processed output.`,
	Example: `  # Start on the default port (8080)
  vppstage serve

  # Start on a custom port with debug logging
  vppstage serve --port 9090 --log-level debug

  # Start with a specific config file
  vppstage serve --config /path/to/config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to initialize config manager: %w", err)
	}

	if viper.IsSet("server_port") && viper.GetInt("server_port") > 0 {
		if err := configMgr.Update(func(c *config.Config) {
			c.ServerPort = viper.GetInt("server_port")
		}); err != nil {
			return err
		}
	}
	if viper.IsSet("log_level") && viper.GetString("log_level") != "" {
		if err := configMgr.Update(func(c *config.Config) {
			c.LogLevel = viper.GetString("log_level")
		}); err != nil {
			return err
		}
	}

	cfg := configMgr.Get()
	logger.Init(cfg.LogLevel, cfg.LogPretty)
	log := logger.WithComponent("serve")

	eng := engine.NewSoftware()
	alloc := engine.SoftwareAllocator{}
	previewSink := preview.NewSink()

	push := func(buf *surface.Buffer) error {
		err := previewSink.WriteBuffer(buf)
		buf.Release()
		return err
	}

	stage := postproc.NewStage(eng, alloc, push,
		postproc.WithPoolCapacity(cfg.PoolCapacity))
	if err := applyFilters(stage, cfg.Filters); err != nil {
		return err
	}

	sink, err := cfg.InputDescriptor()
	if err != nil {
		return fmt.Errorf("invalid input config: %w", err)
	}
	if cfg.Output.Width > 0 || cfg.Output.Height > 0 {
		stage.SetForcedSize(cfg.Output.Width, cfg.Output.Height)
	}
	if cfg.Output.Format != "" {
		f, ok := config.ParseFormat(cfg.Output.Format)
		if !ok {
			return fmt.Errorf("unknown output format %q", cfg.Output.Format)
		}
		stage.SetForcedFormat(f)
	}

	// Negotiate against a permissive downstream: anything the stage can
	// produce is acceptable.
	peer := format.Caps{Structures: []format.Structure{
		{Memory: format.MemSurface},
		{Memory: format.MemRaw, InterlaceModes: []format.InterlaceMode{
			format.Progressive, format.Interleaved, format.Mixed,
		}},
	}}
	src, err := stage.FixateSource(sink, peer)
	if err != nil {
		return fmt.Errorf("negotiation failed: %w", err)
	}
	if err := stage.SetCaps(sink, src); err != nil {
		return err
	}

	if err := previewSink.Start(); err != nil {
		return err
	}
	defer previewSink.Stop()

	gen := source.NewGenerator(alloc, sink)
	gen.Start(func(buf *surface.Buffer) error {
		return stage.Process(buf)
	})
	defer gen.Stop()

	server := api.NewServer(stage, configMgr, previewSink)
	go func() {
		if err := server.Start(cfg.ServerPort); err != nil {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	log.Info().
		Str("sink", sink.String()).
		Str("src", src.String()).
		Int("port", cfg.ServerPort).
		Msg("stage running")
	log.Info().Msgf("preview: http://localhost:%d/preview", cfg.ServerPort)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutting down")
	return nil
}

// applyFilters pushes the configured filter parameters onto the stage.
func applyFilters(stage *postproc.Stage, f config.FilterConfig) error {
	if f.DeinterlaceMode != "" {
		mode, ok := engine.ParseDeintMode(f.DeinterlaceMode)
		if !ok {
			return fmt.Errorf("unknown deinterlace mode %q", f.DeinterlaceMode)
		}
		stage.SetDeinterlaceMode(mode)
	}
	if f.DeinterlaceMethod != "" {
		method, ok := engine.ParseDeintMethod(f.DeinterlaceMethod)
		if !ok {
			return fmt.Errorf("unknown deinterlace method %q", f.DeinterlaceMethod)
		}
		stage.SetDeinterlaceMethod(method)
	}
	if f.Denoise != 0 {
		stage.SetDenoise(f.Denoise)
	}
	if f.Sharpen != 0 {
		stage.SetSharpen(f.Sharpen)
	}
	if f.Hue != 0 {
		stage.SetHue(f.Hue)
	}
	if f.Saturation != 0 {
		stage.SetSaturation(f.Saturation)
	}
	if f.Brightness != 0 {
		stage.SetBrightness(f.Brightness)
	}
	if f.Contrast != 0 {
		stage.SetContrast(f.Contrast)
	}
	if f.ScaleMethod != "" {
		method, ok := engine.ParseScaleMethod(f.ScaleMethod)
		if !ok {
			return fmt.Errorf("unknown scale method %q", f.ScaleMethod)
		}
		stage.SetScaleMethod(method)
	}
	if f.VideoDirection != "" {
		dir, ok := format.ParseOrientation(f.VideoDirection)
		if !ok {
			return fmt.Errorf("unknown video direction %q", f.VideoDirection)
		}
		stage.SetVideoDirection(dir)
	}
	if !f.Crop.IsZero() {
		stage.SetCropMargins(f.Crop)
	}
	if f.HDRToneMap != "" {
		mode, ok := engine.ParseHDRToneMapMode(f.HDRToneMap)
		if !ok {
			return fmt.Errorf("unknown HDR tone map mode %q", f.HDRToneMap)
		}
		stage.SetHDRToneMap(mode)
	}
	if f.SkinToneLevel > 0 {
		stage.SetSkinToneLevel(f.SkinToneLevel)
	}
	stage.SetKeepAspect(f.KeepAspect)
	return nil
}
