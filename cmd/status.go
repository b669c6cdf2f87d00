package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ldisse/airtrack/internal/config"
	"github.com/ldisse/airtrack/remote"
	"github.com/ldisse/airtrack/tracking"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query the tracking daemon's current state",
	Long:  `Status connects to the tracking daemon, waits briefly for the handshake, and prints connectivity, frame and policy state.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()

		controller, err := tracking.NewManagedController(remote.New(cfg.Daemon.URL))
		if err != nil {
			return fmt.Errorf("failed to create controller: %w", err)
		}
		defer controller.Close()

		// The wait helpers have no timeout of their own; bound them here by
		// racing the wait against a timer.
		connected := make(chan struct{})
		go func() {
			controller.WaitUntilServiceConnected()
			close(connected)
		}()
		select {
		case <-connected:
		case <-time.After(3 * time.Second):
			fmt.Println("tracking daemon is not reachable")
			return nil
		}

		fmt.Println("service:  connected")
		if controller.IsConnected() {
			fmt.Println("device:   connected")
		} else {
			fmt.Println("device:   not connected")
		}

		frame := controller.Frame()
		if frame.Valid() {
			fmt.Printf("frame:    id=%d fps=%.1f\n", frame.ID(), frame.FramesPerSecond())
		} else {
			fmt.Println("frame:    no tracking data yet")
		}

		for _, p := range []tracking.Policy{
			tracking.PolicyBackgroundFrames,
			tracking.PolicyImages,
			tracking.PolicyOptimizeHMD,
		} {
			state := "clear"
			if controller.IsPolicySet(p) {
				state = "set"
			}
			fmt.Printf("policy:   %-18s %s\n", p, state)
		}

		return nil
	},
}
