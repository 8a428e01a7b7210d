package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hwalther/lightson/internal/api"
	"github.com/hwalther/lightson/internal/auth"
	"github.com/hwalther/lightson/internal/camera"
	"github.com/hwalther/lightson/internal/config"
	"github.com/hwalther/lightson/internal/lights"
	"github.com/hwalther/lightson/internal/lights/hue"
	"github.com/hwalther/lightson/internal/logger"
	"github.com/hwalther/lightson/internal/simon"
	"github.com/hwalther/lightson/internal/tasks"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the lightson server",
	Long: `Start the HTTP server with the capture loop and the Simon game.

Subsystems without configuration are disabled: without HUE_BRIDGE_IP the
lights are logged instead of driven, without VIDEO_SOURCE the camera
endpoints return 503, without SERVICE_AUDIENCE /set-color skips caller
verification.`,
	Example: `  # local development, webcam 0, no bridge
  VIDEO_SOURCE=0 lightson serve

  # full deployment
  HUE_BRIDGE_IP=192.168.1.42 HUE_USERNAME=... HUE_LIGHT_IDS=1,2,3 \
  VIDEO_SOURCE=rtsp://cam.local/stream SERVICE_AUDIENCE=https://... \
  ALLOWED_CALLERS=tasks@project.iam.gserviceaccount.com lightson serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.Init(cfg.LogLevel, cfg.LogPretty)
	log := logger.WithComponent("serve")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var ctrl lights.Controller = lights.Nop{}
	if cfg.HueEnabled() {
		ctrl = hue.New(hue.Config{
			BridgeAddr: cfg.Hue.BridgeAddr,
			Username:   cfg.Hue.Username,
			LightIDs:   cfg.Hue.LightIDs,
		})
		log.Info().Str("bridge", cfg.Hue.BridgeAddr).Strs("lights", cfg.Hue.LightIDs).Msg("Hue bridge configured")
	} else {
		log.Warn().Msg("No Hue bridge configured, colors will only be logged")
	}

	var frames *camera.FrameBuffer
	if cfg.VideoEnabled() {
		frames = camera.NewFrameBuffer()
		source := camera.NewVideoSource(cfg.Video.Source)
		sessionCfg := camera.DefaultSessionConfig(source.Kind())
		if cfg.Video.MaxSessionAge > 0 {
			sessionCfg.MaxHandleAge = cfg.Video.MaxSessionAge
		}
		go camera.NewSession(source, frames, sessionCfg).Run(ctx)
	} else {
		log.Warn().Msg("No video source configured, camera endpoints disabled")
	}

	hub := simon.NewHub()
	game := simon.New(ctrl, simon.Options{Hub: hub})

	var verifier auth.Verifier
	if cfg.AuthEnabled() {
		verifier = auth.NewGoogleVerifier(cfg.Auth.Audience, cfg.Auth.AllowedCallers)
	} else {
		log.Warn().Msg("No service audience configured, caller verification disabled")
	}

	var enqueuer tasks.Enqueuer
	if cfg.TasksEnabled() {
		cloudTasks, err := tasks.NewCloudTasks(ctx, tasks.Config{
			Project:        cfg.Tasks.Project,
			Location:       cfg.Tasks.Location,
			Queue:          cfg.Tasks.Queue,
			WorkerURL:      cfg.Tasks.WorkerURL,
			ServiceAccount: cfg.Tasks.ServiceAccount,
		})
		if err != nil {
			return fmt.Errorf("failed to create Cloud Tasks enqueuer: %w", err)
		}
		defer cloudTasks.Close()
		enqueuer = cloudTasks
	}

	server := api.NewServer(frames, ctrl, game, hub, verifier, enqueuer, api.Options{
		SnapshotMaxWidth: 1280,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.ServerPort)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	log.Info().Int("port", cfg.ServerPort).Msg("lightson is running")

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-sigChan:
		log.Info().Msg("Shutting down")
		return nil
	}
}
