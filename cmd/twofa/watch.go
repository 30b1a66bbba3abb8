package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/shandysiswandi/twofa/internal/client"
	"github.com/shandysiswandi/twofa/internal/pkg/countdown"
	"github.com/shandysiswandi/twofa/internal/pkg/otp"
	"github.com/urfave/cli"
)

const clearScreen = "\033[H\033[2J"

func watchCommand(e *env) cli.Command {
	return cli.Command{
		Name:      "watch",
		Usage:     "show live codes with a countdown until Ctrl-C",
		ArgsUsage: "[ID...]",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "tag", Usage: "only accounts with this tag"},
			cli.BoolFlag{Name: "plain", Usage: "append frames instead of redrawing the screen"},
		},
		Action: func(c *cli.Context) error {
			if err := e.requireLogin(); err != nil {
				return err
			}

			src := &watchSource{api: e.api, ids: c.Args(), tag: c.String("tag")}
			e.session.OnTeardown(src.reset)

			return watch(e.ctx, e.out, src.targets, !c.Bool("plain"))
		},
	}
}

// watch owns one countdown driver for the lifetime of the view; it returns
// when ctx is cancelled.
func watch(ctx context.Context, w io.Writer, src countdown.Source, redraw bool) error {
	driver := countdown.New(otp.NewEngine(otp.DefaultPeriod, 0))

	return driver.Run(ctx, src, func(t countdown.Tick) error {
		var b strings.Builder
		if redraw {
			b.WriteString(clearScreen)
		}
		render(&b, t)

		_, err := io.WriteString(w, b.String())
		return err
	})
}

func render(b *strings.Builder, t countdown.Tick) {
	fmt.Fprintf(b, "%s  next code in %2ds %s\n\n", t.At.Format("15:04:05"), t.Remaining, bar(t.Remaining, otp.DefaultPeriod))

	if t.Err != nil {
		fmt.Fprintf(b, "  %s: %v\n", otp.ErrorMarker, t.Err)
		return
	}
	if len(t.Frames) == 0 {
		b.WriteString("  no accounts\n")
		return
	}

	width := 0
	for _, f := range t.Frames {
		width = max(width, len([]rune(f.Label)))
	}

	for _, f := range t.Frames {
		fmt.Fprintf(b, "  %-*s  %s\n", width, f.Label, group(f.Code))
	}
}

// group splits a code as "123 456" for reading; markers are left alone.
func group(code string) string {
	if code == otp.ErrorMarker || len(code) < 6 {
		return code
	}

	half := len(code) / 2
	return code[:half] + " " + code[half:]
}

func bar(remaining int, period uint) string {
	p := int(period)
	remaining = min(max(remaining, 0), p)
	return "[" + strings.Repeat("#", remaining) + strings.Repeat(".", p-remaining) + "]"
}

// watchSource resolves the accounts once and reuses their secrets on every
// tick. The client caches secrets per session, so a logout elsewhere in the
// process empties both.
type watchSource struct {
	api *client.Client
	ids []string
	tag string

	mu     sync.Mutex
	loaded []countdown.Target
}

func (s *watchSource) targets(ctx context.Context) ([]countdown.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded != nil {
		return s.loaded, nil
	}

	ids := s.ids
	if len(ids) == 0 {
		out, err := s.api.List(ctx, client.ListParams{Take: 100, Tag: s.tag})
		if err != nil {
			return nil, err
		}
		for _, a := range out.Items {
			ids = append(ids, a.ID)
		}
	}

	targets := make([]countdown.Target, 0, len(ids))
	for _, id := range ids {
		a, err := s.api.Detail(ctx, id)
		if err != nil {
			return nil, err
		}
		targets = append(targets, countdown.Target{Key: a.ID, Label: a.Name, Secret: a.Secret})
	}

	s.loaded = targets
	return targets, nil
}

func (s *watchSource) reset(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = nil
	return nil
}
