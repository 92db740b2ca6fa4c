package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	natsadapter "github.com/samirrijal/pinmap/internal/adapters/nats"
	"github.com/samirrijal/pinmap/internal/core/domain"
	"github.com/samirrijal/pinmap/internal/core/usecases"
	"github.com/samirrijal/pinmap/internal/pkg/config"
	"github.com/samirrijal/pinmap/internal/pkg/logging"
)

type rootOptions struct {
	baseURL string
	compact bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "client",
		Short:        "Drive the PinMap screen from the command line",
		Long:         "Mounts a map screen (location lookup plus mark fetch), runs one action and prints the resulting screen state as JSON.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.baseURL, "base-url", "", "mark service address (overrides remote.base_url)")
	root.PersistentFlags().BoolVar(&opts.compact, "compact", false, "print single-line JSON")

	root.AddCommand(
		newMarksCmd(opts),
		newAddCmd(opts),
		newRecenterCmd(opts),
		newZoomCmd(opts),
		newWatchCmd(opts),
	)
	return root
}

func newMarksCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "marks",
		Short: "Fetch and show the marks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withScreen(cmd, opts, func(ctx context.Context, s *session) error {
				if s.fetched {
					return s.mountErr
				}
				// Location failed before the mount could fetch
				return s.screen.FetchMarks(ctx)
			})
		},
	}
}

func newAddCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <latitude> <longitude> <message...>",
		Short: "Drop a mark and submit it",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, err := parseCoordinate(args[0], args[1])
			if err != nil {
				return err
			}
			message := strings.Join(args[2:], " ")

			return withScreen(cmd, opts, func(ctx context.Context, s *session) error {
				s.screen.OpenDialog(coord)
				s.screen.SetPendingMessage(message)
				return s.screen.SubmitPending(ctx)
			})
		},
	}
}

func newRecenterCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recenter",
		Short: "Move the map to the device location again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withScreen(cmd, opts, func(ctx context.Context, s *session) error {
				return ignoreLocationErr(s.screen.Recenter(ctx))
			})
		},
	}
}

func newZoomCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "zoom <in|out> [times]",
		Short:     "Zoom the map in or out",
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{"in", "out"},
		RunE: func(cmd *cobra.Command, args []string) error {
			times := 1
			if len(args) == 2 {
				n, err := strconv.Atoi(args[1])
				if err != nil || n < 1 {
					return fmt.Errorf("times must be a positive integer, got %q", args[1])
				}
				times = n
			}

			if args[0] != "in" && args[0] != "out" {
				return fmt.Errorf("zoom direction must be in or out, got %q", args[0])
			}

			return withScreen(cmd, opts, func(ctx context.Context, s *session) error {
				zoom := s.screen.ZoomIn
				if args[0] == "out" {
					zoom = s.screen.ZoomOut
				}
				applied := 0
				for i := 0; i < times; i++ {
					if zoom() {
						applied++
					}
				}
				if applied < times {
					slog.Info("zoom clamped", "requested", times, "applied", applied)
				}
				return nil
			})
		},
	}
}

func newWatchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Refetch and print the screen whenever a mark is created",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withScreen(cmd, opts, func(ctx context.Context, s *session) error {
				sub, err := natsadapter.NewSubscriber(s.cfg.NATS.URL)
				if err != nil {
					return err
				}
				defer sub.Close()

				out := cmd.OutOrStdout()
				if err := printState(out, s.screen.State(), true); err != nil {
					return err
				}
				err = sub.SubscribeMarkCreated(ctx, func(ctx context.Context, m *domain.Mark) error {
					slog.Debug("mark created", "key", m.Key)
					if err := s.screen.FetchMarks(ctx); err != nil {
						// Keep the event; the next one refetches anyway
						return nil
					}
					return printState(out, s.screen.State(), true)
				})
				if err != nil {
					return err
				}

				<-ctx.Done()
				return nil
			})
		},
	}
}

// session is one mounted screen plus the config it was built from.
// fetched reports whether the mount got as far as fetching marks.
type session struct {
	cfg      *config.Config
	screen   *usecases.ScreenService
	fetched  bool
	mountErr error
}

// withScreen loads config, mounts a screen, runs fn and prints the final state.
// The state is printed even when fn fails.
func withScreen(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, s *session) error) error {
	cfg, err := config.Load("pinmap-client")
	if err != nil {
		return err
	}
	if opts.baseURL != "" {
		cfg.Remote.BaseURL = opts.baseURL
	}
	slog.SetDefault(logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	screen, cleanup, err := buildScreen(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	s := &session{cfg: cfg, screen: screen}
	err = screen.Mount(ctx)
	switch {
	case err == nil:
		s.fetched = true
	case errors.Is(err, domain.ErrTransport) || errors.Is(err, domain.ErrDecode):
		s.fetched = true
		s.mountErr = err
	case isLocationErr(err):
		// Shown on screen as the error message
		slog.Info("location unavailable", "reason", err)
	default:
		slog.Warn("mount", "error", err)
		s.mountErr = err
	}

	runErr := fn(ctx, s)
	if err := printState(cmd.OutOrStdout(), screen.State(), opts.compact); err != nil {
		return err
	}
	return runErr
}

func isLocationErr(err error) bool {
	return errors.Is(err, domain.ErrPermissionDenied) ||
		errors.Is(err, domain.ErrPlatformUnsupported) ||
		errors.Is(err, domain.ErrLocationUnavailable)
}

// ignoreLocationErr drops the location outcomes the screen already shows.
func ignoreLocationErr(err error) error {
	if isLocationErr(err) {
		return nil
	}
	return err
}

// stateView is the printed form of a screen.
type stateView struct {
	domain.ScreenState
	Visible []domain.Mark `json:"visible_marks"`
}

func printState(w io.Writer, st domain.ScreenState, compact bool) error {
	view := stateView{ScreenState: st, Visible: st.VisibleMarks()}
	if view.Marks == nil {
		view.Marks = []domain.Mark{}
	}
	if view.Visible == nil {
		view.Visible = []domain.Mark{}
	}
	enc := json.NewEncoder(w)
	if !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(view)
}

func parseCoordinate(lat, lon string) (domain.Coordinate, error) {
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("invalid latitude %q", lat)
	}
	lo, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("invalid longitude %q", lon)
	}
	return domain.Coordinate{Latitude: la, Longitude: lo}, nil
}
