package debug

import (
	"fmt"
	"io"
	"reflect"
	"runtime"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

type LoggerOptions struct {
	// Format is FormatConsole or FormatJSON.
	Format string
	Debug  bool
	// Color enables colored callers in console output.
	Color bool
}

// NewLogger builds the root logger for the binaries: console or JSON output,
// caller and millisecond time fields from the hooks below.
func NewLogger(w io.Writer, opts LoggerOptions) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if opts.Debug {
		level = zerolog.DebugLevel
	}

	var out io.Writer
	switch opts.Format {
	case FormatConsole, "":
		out = zerolog.ConsoleWriter{
			Out:        w,
			NoColor:    !opts.Color,
			PartsOrder: []string{zerolog.LevelFieldName, "caller", zerolog.MessageFieldName},
			FieldsExclude: []string{
				"caller",
			},
		}
	case FormatJSON:
		out = w
	default:
		return zerolog.Nop(), errors.Errorf("unknown log format %q, want %q or %q", opts.Format, FormatConsole, FormatJSON)
	}

	logger := zerolog.New(out).Level(level).
		Hook(CustomTimeHook{WithColor: opts.Color}).
		Hook(CustomCallerHook{WithColor: opts.Color && opts.Format != FormatJSON})

	return logger, nil
}

func hackGetCallerSkipFrameCount(e *zerolog.Event) int {
	v := reflect.ValueOf(e).Elem()
	field := v.FieldByName("skipFrame")

	if field.IsValid() && field.CanAddr() {
		return int(field.Int())
	}

	return 0
}

type CustomTimeHook struct {
	WithColor bool
	Format    string
}

func (t CustomTimeHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	if t.Format == "" {
		// millisecond precision, no timezone
		e.Str("time", time.Now().Format("2006-01-02T15:04:05.0000Z"))
	} else {
		e.Str("time", time.Now().Format(t.Format))
	}
}

type CustomCallerHook struct {
	WithColor bool
}

func (c CustomCallerHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	pc, file, line, ok := runtime.Caller(hackGetCallerSkipFrameCount(e) + 3)
	if !ok {
		return
	}

	funcd := runtime.FuncForPC(pc)
	if funcd == nil {
		return
	}

	pkg, _ := GetPackageAndFuncFromFuncName(funcd.Name())

	e.Str("caller", FormatCaller(pkg, file, line, c.WithColor))
}

func GetPackageAndFuncFromFuncName(pc string) (pkg, function string) {
	funcName := pc
	lastSlash := strings.LastIndexByte(funcName, '/')
	if lastSlash < 0 {
		lastSlash = 0
	}

	firstDot := strings.IndexByte(funcName[lastSlash:], '.') + lastSlash
	if firstDot < lastSlash {
		return funcName, ""
	}

	pkg = funcName[:firstDot]
	fname := funcName[firstDot+1:]

	if strings.Contains(pkg, ".(") {
		splt := strings.Split(pkg, ".(")
		pkg = splt[0]
		fname = "(" + splt[1] + "." + fname
	}

	pkg = strings.TrimPrefix(pkg, "github.com/walteh/logtmpl/")

	return pkg, fname
}

func FormatCaller(pkg, path string, number int, colorize bool) string {
	p := FileNameOfPath(path)
	if colorize {
		p = color.New(color.Bold).Sprint(p)
		num := color.New(color.FgHiRed, color.Bold).Sprintf("%d", number)
		sep := color.New(color.Faint).Sprint(":")

		return fmt.Sprintf("%s%s%s%s%s", pkg, sep, p, sep, num)
	}

	return fmt.Sprintf("%s:%s:%d", pkg, p, number)
}

func FileNameOfPath(path string) string {
	tot := strings.Split(path, "/")
	if len(tot) > 1 {
		return tot[len(tot)-1]
	}

	return path
}
