package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ldisse/airtrack/internal/config"
	"github.com/ldisse/airtrack/internal/logger"
	"github.com/ldisse/airtrack/remote"
	"github.com/ldisse/airtrack/simdev"
	"github.com/ldisse/airtrack/tracking"
)

var (
	watchSimulate bool
	watchImages   bool

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Stream tracking events to the terminal",
		Long: `Watch connects to the tracking daemon and prints every event as it
arrives: connectivity changes, frames, images and focus. With --simulate it
runs against an in-process simulated device instead of a daemon.`,
		RunE: runWatch,
	}
)

func init() {
	watchCmd.Flags().BoolVar(&watchSimulate, "simulate", false, "run against a simulated device")
	watchCmd.Flags().BoolVar(&watchImages, "images", false, "request raw camera images")
}

// watchListener logs every hook invocation. It runs on the session's
// delivery goroutine, so it only logs and queries; no blocking work.
type watchListener struct {
	tracking.ListenerAdapter
}

func (watchListener) OnInit(s tracking.Session) {
	logger.Info("listener registered")
}

func (watchListener) OnServiceConnect(s tracking.Session) {
	logger.Info("service connected")
}

func (watchListener) OnServiceDisconnect(s tracking.Session) {
	logger.Warn("service disconnected")
}

func (watchListener) OnConnect(s tracking.Session) {
	logger.Info("device connected")
}

func (watchListener) OnDisconnect(s tracking.Session) {
	logger.Warn("device disconnected")
}

func (watchListener) OnDeviceChange(s tracking.Session) {
	logger.Info("device configuration changed")
}

func (watchListener) OnFocusGained(s tracking.Session) {
	logger.Info("focus gained")
}

func (watchListener) OnFocusLost(s tracking.Session) {
	logger.Info("focus lost")
}

func (watchListener) OnFrame(s tracking.Session) {
	frame := s.FrameAt(0)
	if frame.Valid() {
		logger.Infof("frame id=%d ts=%dµs fps=%.1f", frame.ID(), frame.Timestamp().Micros(), frame.FramesPerSecond())
	}
}

func (watchListener) OnImages(s tracking.Session) {
	images := s.Images()
	for _, im := range images {
		logger.Infof("image camera=%s seq=%d %dx%d", im.Camera(), im.SequenceID(), im.Width(), im.Height())
	}
}

func (watchListener) OnExit(s tracking.Session) {
	logger.Info("listener removed")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	var session tracking.Session
	var sim *simdev.Session
	if watchSimulate {
		sim = simdev.NewSession()
		session = sim
	} else {
		session = remote.New(cfg.Daemon.URL)
	}

	controller, err := tracking.NewManagedController(session)
	if err != nil {
		return fmt.Errorf("failed to create controller: %w", err)
	}
	defer func() {
		if err := controller.Close(); err != nil {
			logger.Errorf("close: %v", err)
		}
	}()

	if _, err := controller.AddListener(watchListener{}); err != nil {
		return fmt.Errorf("failed to add listener: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if sim != nil {
		sim.ServiceUp()
		sim.ConnectDevice()
		sim.GainFocus()
		go sim.Feed(ctx, 100*time.Millisecond)
		if watchImages {
			go func() {
				ticker := time.NewTicker(time.Second)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						sim.EmitImages(640, 240)
					}
				}
			}()
		}
	} else {
		rs := session.(*remote.Session)
		controller.WaitUntilServiceConnected()
		rs.SetFocused(true)
		applyStartupConfig(controller, cfg)
		if watchImages {
			controller.SetPolicy(tracking.PolicyImages)
		}
	}

	logger.Info("watching; press ctrl-c to stop")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")
	return nil
}

// applyStartupConfig requests the configured policies and gestures.
func applyStartupConfig(controller *tracking.ManagedController, cfg *config.Config) {
	for _, name := range cfg.Daemon.Policies {
		policy, err := parsePolicy(name)
		if err != nil {
			logger.Warnf("skipping configured policy: %v", err)
			continue
		}
		controller.SetPolicy(policy)
	}
	for _, name := range cfg.Daemon.Gestures {
		gesture, err := parseGesture(name)
		if err != nil {
			logger.Warnf("skipping configured gesture: %v", err)
			continue
		}
		controller.EnableGesture(gesture)
	}
}
