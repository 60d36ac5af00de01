package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/listenupapp/markertrack/internal/logger"
	"github.com/listenupapp/markertrack/internal/render"
	"github.com/listenupapp/markertrack/internal/session"
	"github.com/listenupapp/markertrack/internal/source"
	"github.com/listenupapp/markertrack/internal/sse"
)

const clearScreen = "\033[H\033[2J"

type params struct {
	duration    float64
	rate        float64
	start       float64
	width       int
	tick        time.Duration
	overlayTime float64
	noTips      bool
	watch       bool
	once        bool
	export      bool
	logLevel    string
}

func newRootCmd() *cobra.Command {
	p := &params{}

	cmd := &cobra.Command{
		Use:   "markerplay <marker-file>",
		Short: "Play a marker timeline in the terminal",
		Long: `markerplay loads markers from a JSON, WebVTT, SRT or audio file, plays a
simulated player over them and redraws the scrub bar as playback moves.

With --watch the file is reloaded whenever it changes on disk. With --export the
markers are written to stdout as JSON instead of being played.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if p.export {
				return export(ctx, args[0], p.duration, cmd.OutOrStdout())
			}
			return run(ctx, args[0], p, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.Float64VarP(&p.duration, "duration", "d", 0, "Media duration in seconds (default: taken from the file)")
	f.Float64VarP(&p.rate, "rate", "r", 1, "Playback rate")
	f.Float64VarP(&p.start, "start", "s", 0, "Start position in seconds")
	f.IntVarP(&p.width, "width", "w", 72, "Bar width in cells")
	f.DurationVar(&p.tick, "tick", 250*time.Millisecond, "Time update interval")
	f.Float64Var(&p.overlayTime, "overlay-time", 3, "Seconds the overlay stays visible")
	f.BoolVar(&p.noTips, "no-tips", false, "Hide the marker list")
	f.BoolVar(&p.watch, "watch", false, "Reload the file when it changes")
	f.BoolVar(&p.once, "once", false, "Draw a single frame at the start position and exit")
	f.BoolVar(&p.export, "export", false, "Write the markers as JSON and exit")
	f.StringVar(&p.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	return cmd
}

// redrawEmitter turns session events into redraw requests. Emit runs under the
// session lock, so it must not call back into the session.
type redrawEmitter chan struct{}

func (r redrawEmitter) Emit(sse.Event) {
	select {
	case r <- struct{}{}:
	default:
	}
}

// export converts any supported marker file into the JSON marker form.
// A non-zero duration overrides the one read from the file.
func export(ctx context.Context, path string, duration float64, stdout io.Writer) error {
	set, err := source.Load(ctx, path)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	if duration == 0 {
		duration = set.Duration
	}
	return source.EncodeJSON(stdout, duration, set.Markers)
}

func run(ctx context.Context, path string, p *params, stdout, stderr io.Writer) error {
	log := logger.New(logger.Config{
		Writer:      stderr,
		Environment: "development",
		Level:       logger.ParseLevel(p.logLevel),
	})

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	redraw := make(redrawEmitter, 1)
	manager, err := session.NewManager(session.Config{
		TickInterval:       p.tick,
		OverlayDisplay:     true,
		OverlayDisplayTime: p.overlayTime,
		MaxSessions:        1,
		SourceDir:          filepath.Dir(abs),
	}, redraw, log.Component("session").Logger)
	if err != nil {
		return err
	}
	defer func() { _ = manager.Shutdown(context.Background()) }()

	req := session.CreateRequest{
		Duration:    p.duration,
		Source:      filepath.Base(abs),
		Watch:       p.watch && !p.once,
		DisableTips: p.noTips,
		Rate:        p.rate,
		Autoplay:    !p.once,
	}
	if p.start > 0 {
		req.Start = &p.start
	}

	sess, err := manager.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("start %s: %w", path, err)
	}

	term := render.NewTerminal(p.width)
	frame := func() (string, bool, error) {
		v, err := sess.View()
		if err != nil {
			return "", false, err
		}
		st, err := sess.PlayerStatus()
		if err != nil {
			return "", false, err
		}
		return term.Render(v, st.Position), st.Ended, nil
	}

	if p.once {
		if err := sess.Sync(); err != nil {
			return err
		}
		out, _, err := frame()
		if err != nil {
			return err
		}
		_, err = io.WriteString(stdout, out)
		return err
	}

	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-redraw:
		case <-ticker.C:
		}

		out, ended, err := frame()
		if err != nil {
			return err
		}
		if _, err := io.WriteString(stdout, clearScreen+out); err != nil {
			return err
		}
		// Keep watching after the end so edits to the file still show up.
		if ended && !p.watch {
			return nil
		}
	}
}
