// Package view renders a single learned pattern record for a terminal.
package view

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"sessionlearn/internal/model"
	"sessionlearn/internal/store"
)

// Options defines the configurable parameters for rendering a record.
type Options struct {
	Path         string
	Format       string // text or raw
	Wrap         int
	ForceColor   bool
	ForceNoColor bool
	NoPager      bool
	Out          io.Writer
	OutFile      *os.File
}

// Run renders the record at opts.Path.
func Run(opts Options) error {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	data, err := os.ReadFile(opts.Path)
	if err != nil {
		return err
	}

	switch strings.ToLower(opts.Format) {
	case "", "text":
		rec, err := store.ParseRecord(string(data))
		if err != nil {
			return fmt.Errorf("parse %s: %w", opts.Path, err)
		}
		rec.Path = opts.Path

		useColor := opts.useColor()
		text := strings.Join(RenderRecord(rec, opts.width(), useColor), "\n") + "\n"
		if opts.paged() {
			return page(pagerCommand(os.Getenv("PAGER"), useColor), text, opts.OutFile)
		}
		_, err = io.WriteString(opts.Out, text)
		return err

	case "raw":
		_, err = opts.Out.Write(data)
		return err

	default:
		return fmt.Errorf("unsupported format: %s", opts.Format)
	}
}

// RenderRecord lays a record out as a header followed by one block per
// section. Prose is wrapped to width; code is left as is.
func RenderRecord(rec model.Record, width int, useColor bool) []string {
	if width <= 0 {
		width = 80
	}

	category := rec.Category
	if category == "" {
		category = "pattern"
	}
	headerPlain := fmt.Sprintf("[%s] %s", category, rec.Title)
	header := fmt.Sprintf("[%s] %s",
		colorize(useColor, categoryColor(rec.Category), category),
		colorize(useColor, ansiBoldWhite, rec.Title))

	meta := fmt.Sprintf("%s | uses %d | last used %s", dash(rec.ID), rec.UsageCount, formatStamp(rec))
	lines := []string{
		header,
		colorize(useColor, ansiTimestamp, meta),
		strings.Repeat("-", min(runewidth.StringWidth(headerPlain), width)),
	}

	bodyWidth := width - 2
	sections := []struct {
		title string
		body  string
		code  bool
	}{
		{"Problem", rec.Problem, false},
		{"Solution", rec.Solution, false},
		{"Code Example", rec.CodeExample, true},
		{"Trigger Keywords", strings.Join(rec.Keywords, ", "), false},
	}

	prefix, emptyPrefix := "| ", "|"
	if useColor {
		sep := colorize(true, ansiSeparator, "|")
		prefix, emptyPrefix = sep+" ", sep
	}

	for _, s := range sections {
		if strings.TrimSpace(s.body) == "" {
			continue
		}
		lines = append(lines, "", colorize(useColor, ansiHeading, s.title))
		for _, raw := range strings.Split(s.body, "\n") {
			var chunks []string
			if s.code {
				chunks = []string{raw}
			} else {
				chunks = wrapText(raw, bodyWidth)
			}
			for _, chunk := range chunks {
				if chunk == "" {
					lines = append(lines, emptyPrefix)
					continue
				}
				lines = append(lines, prefix+chunk)
			}
		}
	}
	return lines
}

func formatStamp(rec model.Record) string {
	if rec.LastUsed.IsZero() {
		return "-"
	}
	return rec.LastUsed.UTC().Format("2006-01-02T15:04:05Z")
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// width is the wrap column: the --wrap flag, then the terminal, then
// $COLUMNS, then 80.
func (o Options) width() int {
	if o.Wrap > 0 {
		return o.Wrap
	}
	if o.OutFile != nil {
		if w, _, err := term.GetSize(int(o.OutFile.Fd())); err == nil && w > 0 {
			return w
		}
	}
	if v, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && v > 0 {
		return v
	}
	return 80
}

// useColor honours --color and --no-color, then NO_COLOR, then whether the
// output is a terminal.
func (o Options) useColor() bool {
	switch {
	case o.ForceColor:
		return true
	case o.ForceNoColor, os.Getenv("NO_COLOR") != "":
		return false
	}
	return o.isTerminal()
}

func (o Options) paged() bool {
	return !o.NoPager && o.isTerminal()
}

func (o Options) isTerminal() bool {
	if o.OutFile == nil {
		return false
	}
	fd := o.OutFile.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// pagerCommand runs $PAGER through the shell, or less when it is unset.
// less needs -R to pass colors through.
func pagerCommand(pager string, color bool) *exec.Cmd {
	if pager != "" {
		return exec.Command("sh", "-c", pager) // #nosec G204
	}
	if color {
		return exec.Command("less", "-R")
	}
	return exec.Command("less")
}

func page(cmd *exec.Cmd, text string, out *os.File) error {
	cmd.Stdin = strings.NewReader(text)
	cmd.Stdout = out
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run pager: %w", err)
	}
	return nil
}
