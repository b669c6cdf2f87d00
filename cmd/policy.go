package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ldisse/airtrack/internal/config"
	"github.com/ldisse/airtrack/remote"
	"github.com/ldisse/airtrack/tracking"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Manage daemon policies",
}

var gestureCmd = &cobra.Command{
	Use:   "gesture",
	Short: "Manage gesture detection",
}

func init() {
	policyCmd.AddCommand(
		&cobra.Command{
			Use:       "set <policy>",
			Short:     "Request a policy (background-frames, images, optimize-hmd)",
			Args:      cobra.ExactArgs(1),
			ValidArgs: []string{"background-frames", "images", "optimize-hmd"},
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDaemon(func(c *tracking.ManagedController) error {
					policy, err := parsePolicy(args[0])
					if err != nil {
						return err
					}
					c.SetPolicy(policy)
					fmt.Printf("requested policy %s\n", policy)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:       "clear <policy>",
			Short:     "Withdraw a policy request",
			Args:      cobra.ExactArgs(1),
			ValidArgs: []string{"background-frames", "images", "optimize-hmd"},
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDaemon(func(c *tracking.ManagedController) error {
					policy, err := parsePolicy(args[0])
					if err != nil {
						return err
					}
					c.ClearPolicy(policy)
					fmt.Printf("cleared policy %s\n", policy)
					return nil
				})
			},
		},
	)

	gestureCmd.AddCommand(
		&cobra.Command{
			Use:       "enable <gesture>",
			Short:     "Enable a gesture kind (swipe, circle, screen-tap, key-tap)",
			Args:      cobra.ExactArgs(1),
			ValidArgs: []string{"swipe", "circle", "screen-tap", "key-tap"},
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDaemon(func(c *tracking.ManagedController) error {
					gesture, err := parseGesture(args[0])
					if err != nil {
						return err
					}
					c.EnableGesture(gesture)
					fmt.Printf("enabled gesture %s\n", gesture)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:       "disable <gesture>",
			Short:     "Disable a gesture kind",
			Args:      cobra.ExactArgs(1),
			ValidArgs: []string{"swipe", "circle", "screen-tap", "key-tap"},
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDaemon(func(c *tracking.ManagedController) error {
					gesture, err := parseGesture(args[0])
					if err != nil {
						return err
					}
					c.DisableGesture(gesture)
					fmt.Printf("disabled gesture %s\n", gesture)
					return nil
				})
			},
		},
	)
}

// withDaemon runs fn against a connected daemon session, bounding the
// handshake wait.
func withDaemon(fn func(*tracking.ManagedController) error) error {
	controller, err := tracking.NewManagedController(remote.New(config.Get().Daemon.URL))
	if err != nil {
		return fmt.Errorf("failed to create controller: %w", err)
	}
	defer controller.Close()

	connected := make(chan struct{})
	go func() {
		controller.WaitUntilServiceConnected()
		close(connected)
	}()
	select {
	case <-connected:
	case <-time.After(3 * time.Second):
		return fmt.Errorf("tracking daemon is not reachable")
	}

	return fn(controller)
}

func parsePolicy(name string) (tracking.Policy, error) {
	switch name {
	case "background-frames":
		return tracking.PolicyBackgroundFrames, nil
	case "images":
		return tracking.PolicyImages, nil
	case "optimize-hmd":
		return tracking.PolicyOptimizeHMD, nil
	default:
		return 0, fmt.Errorf("unknown policy %q", name)
	}
}

func parseGesture(name string) (tracking.GestureType, error) {
	switch name {
	case "swipe":
		return tracking.GestureSwipe, nil
	case "circle":
		return tracking.GestureCircle, nil
	case "screen-tap":
		return tracking.GestureScreenTap, nil
	case "key-tap":
		return tracking.GestureKeyTap, nil
	default:
		return 0, fmt.Errorf("unknown gesture %q", name)
	}
}
