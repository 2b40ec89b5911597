package dot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/k1LoW/errors"
	"github.com/mattn/go-colorable"
)

var (
	yellow = color.New(color.FgYellow, color.Bold).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
)

var _ slog.Handler = (*dotHandler)(nil)

// dotHandler prints one glyph per pipeline event: a dot per rendered
// creative, "!" for a failed slot or render, "-" for a market with nothing
// accepted, and a spinner while a feed downloads.
type dotHandler struct {
	handler slog.Handler
	spinner *spinner.Spinner
	stdout  io.Writer
	prefix  []byte
}

func New(h slog.Handler) (_ *dotHandler, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()

	stdout := colorable.NewColorableStdout()
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(stdout))
	if err := s.Color("yellow"); err != nil {
		return nil, err
	}
	s.Start()
	s.Disable()
	return &dotHandler{
		handler: h,
		spinner: s,
		stdout:  stdout,
	}, nil
}

func (h *dotHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *dotHandler) Handle(ctx context.Context, r slog.Record) (err error) {
	defer func() {
		err = errors.WithStack(err)
	}()

	if r.Message == "fetching feed" || strings.HasPrefix(r.Message, "retrying") {
		if !h.spinner.Enabled() {
			h.spinner.Enable()
		}
		return nil
	}
	if h.spinner.Enabled() {
		h.spinner.Disable()
		_, _ = h.stdout.Write(h.prefix)
	}
	if r.Message == "rendered creative" {
		return h.write([]byte(yellow(".")))
	}
	if r.Message == "slot failed" {
		return h.write([]byte(red("!")))
	}
	if r.Message == "no products accepted" {
		return h.write([]byte(gray("-")))
	}
	if strings.HasPrefix(r.Message, "failed to") {
		return h.write([]byte(red("!")))
	}
	if r.Message == "market completed" {
		var market string
		var accepted, rendered int64
		r.Attrs(func(attr slog.Attr) bool {
			switch attr.Key {
			case "market":
				market = attr.Value.String()
			case "accepted":
				accepted = attr.Value.Int64()
			case "rendered":
				rendered = attr.Value.Int64()
			}
			return true
		})
		_, _ = h.stdout.Write([]byte(fmt.Sprintf(" %s %s (%d/%d)\n", green("✓"), market, rendered, accepted)))
		h.prefix = nil
		return nil
	}
	return nil
}

func (h *dotHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &dotHandler{handler: h.handler.WithAttrs(attrs), spinner: h.spinner, stdout: h.stdout}
}

func (h *dotHandler) WithGroup(name string) slog.Handler {
	return &dotHandler{handler: h.handler.WithGroup(name), spinner: h.spinner, stdout: h.stdout}
}

func (h *dotHandler) write(s []byte) (err error) {
	defer func() {
		err = errors.WithStack(err)
	}()

	_, err = h.stdout.Write(s)
	if err != nil {
		return err
	}
	h.prefix = append(h.prefix, s...)
	return nil
}
