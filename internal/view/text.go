package view

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"sessionlearn/internal/detect"
)

const (
	ansiReset     = "\x1b[0m"
	ansiBoldWhite = "\x1b[1;97m"
	ansiHeading   = "\x1b[1;38;5;44m"
	ansiTimestamp = "\x1b[38;5;245m"
	ansiSeparator = "\x1b[38;5;240m"
	ansiError     = "\x1b[38;5;203m"
	ansiEdit      = "\x1b[38;5;220m"
	ansiTool      = "\x1b[38;5;207m"
)

func colorize(enabled bool, code string, text string) string {
	if !enabled {
		return text
	}
	return code + text + ansiReset
}

func categoryColor(category string) string {
	switch category {
	case detect.CategoryErrorResolution:
		return ansiError
	case detect.CategoryUserCorrections:
		return ansiEdit
	case detect.CategoryWorkarounds, detect.CategoryDebuggingTechniques:
		return ansiTool
	default:
		return ansiSeparator
	}
}

// wrapText fills lines of at most width display cells, breaking between
// words. Words wider than a line are split; leading indentation stays with
// the first word.
func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}
	words[0] = text[:strings.Index(text, words[0])] + words[0]

	var out []string
	var line strings.Builder
	lineWidth := 0
	flush := func() {
		out = append(out, line.String())
		line.Reset()
		lineWidth = 0
	}

	for _, word := range words {
		ww := runewidth.StringWidth(word)
		if lineWidth > 0 && lineWidth+1+ww <= width {
			line.WriteByte(' ')
			line.WriteString(word)
			lineWidth += 1 + ww
			continue
		}
		if lineWidth > 0 {
			flush()
		}
		for _, r := range word {
			rw := runewidth.RuneWidth(r)
			if lineWidth > 0 && lineWidth+rw > width {
				flush()
			}
			line.WriteRune(r)
			lineWidth += rw
		}
	}
	flush()
	return out
}
