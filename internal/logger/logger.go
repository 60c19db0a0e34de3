package logger

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiBlue   = "\033[34m"
	ansiPurple = "\033[35m"
	ansiCyan   = "\033[36m"
	ansiGray   = "\033[37m"
	ansiBold   = "\033[1m"
)

var (
	statusCodeRegex = regexp.MustCompile(`^[2-5]\d{2}$`)

	levelColors = map[string]string{
		"DEBUG": ansiGray,
		"INFO":  ansiBlue,
		"WARN":  ansiYellow,
		"ERROR": ansiRed,
		"FATAL": ansiRed,
	}

	// Messages that mark the edges of a request or a reaper pass
	messageStyles = map[string]string{
		"request started":    ansiBold,
		"request completed":  ansiGray,
		"expired temp files": ansiGreen,
		"storage sync":       ansiGreen,
		"sweep completed":    ansiGreen,
	}
)

// Options controls where and how log lines are written
type Options struct {
	Env   string
	Level string // Overrides the level derived from Env when set
	Out   io.Writer
	Color *bool // Nil means detect from the terminal
}

// Init installs the global logger for the given environment.
// Production writes JSON lines, everything else the console writer.
func Init(env string) {
	Setup(Options{Env: env})
}

// Setup installs the global logger
func Setup(opts Options) {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	if opts.Env != "production" {
		out = consoleWriter(out, useColor(out, opts.Color))
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano

	log.Logger = zerolog.New(out).
		With().
		Timestamp().
		Str("env", opts.Env).
		Logger()

	zerolog.SetGlobalLevel(levelFor(opts.Env, opts.Level))
}

func levelFor(env, override string) zerolog.Level {
	if override != "" {
		if lvl, err := zerolog.ParseLevel(strings.ToLower(override)); err == nil && lvl != zerolog.NoLevel {
			return lvl
		}
	}
	switch env {
	case "development":
		return zerolog.DebugLevel
	case "test":
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

func useColor(out io.Writer, forced *bool) bool {
	if forced != nil {
		return *forced
	}
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func paint(color bool, code, s string) string {
	if !color || code == "" {
		return s
	}
	return code + s + ansiReset
}

func consoleWriter(out io.Writer, color bool) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "02.01.2006 15:04:05",
		NoColor:    !color,
		FormatLevel: func(i interface{}) string {
			level := strings.ToUpper(fmt.Sprintf("%s", i))
			code, ok := levelColors[level]
			if !ok {
				return level
			}
			if !color {
				return fmt.Sprintf("%-5s", level)
			}
			return paint(color, code, "●")
		},
		FormatMessage: func(i interface{}) string {
			msg := fmt.Sprintf("%-35s", i)
			for prefix, code := range messageStyles {
				if strings.HasPrefix(strings.TrimSpace(msg), prefix) {
					return paint(color, code, msg)
				}
			}
			return msg
		},
		FormatFieldName: func(i interface{}) string {
			return paint(color, ansiCyan, fmt.Sprintf("%s", i)) + "="
		},
		FormatFieldValue: func(i interface{}) string {
			return formatValue(color, fmt.Sprintf("%s", i))
		},
	}
}

func formatValue(color bool, val string) string {
	switch val {
	case "GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS":
		return paint(color, ansiPurple, val)
	case "share", "quick_link":
		return paint(color, ansiBlue, val)
	}

	if statusCodeRegex.MatchString(val) {
		switch val[0] {
		case '2':
			return paint(color, ansiGreen, val)
		case '3':
			return paint(color, ansiYellow, val)
		default:
			return paint(color, ansiRed, val)
		}
	}

	return val
}
