// Package evmlog is a small structured logger in the shape of
// go-ethereum's log package: leveled, colorized on a terminal, plain on a
// pipe, with call-site attribution for warnings and errors.
package evmlog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Level is a log severity, ordered the way go-ethereum orders them.
type Level int

const (
	LvlError Level = iota
	LvlWarn
	LvlInfo
	LvlDebug
	LvlTrace
)

func (l Level) String() string {
	switch l {
	case LvlError:
		return "ERROR"
	case LvlWarn:
		return "WARN"
	case LvlInfo:
		return "INFO"
	case LvlDebug:
		return "DEBUG"
	default:
		return "TRACE"
	}
}

const (
	colorRed    = 31
	colorYellow = 33
	colorBlue   = 36
	colorGray   = 90
)

func (l Level) color() int {
	switch l {
	case LvlError:
		return colorRed
	case LvlWarn:
		return colorYellow
	case LvlInfo:
		return colorBlue
	default:
		return colorGray
	}
}

// Logger writes leveled, contextual log lines, matching go-ethereum's
// "msg key1=val1 key2=val2" wire format.
type Logger struct {
	mu       sync.Mutex
	out      io.Writer
	colorize bool
	level    Level
	ctx      []interface{}
}

// New builds a Logger writing to os.Stderr, colorized only when stderr is a
// real terminal (mirroring go-ethereum's StreamHandler(os.Stderr, TerminalFormat(...))
// wiring, minus the vmodule/glog-style dynamic filtering this interpreter
// has no use for).
func New(level Level, ctx ...interface{}) *Logger {
	var out io.Writer = os.Stderr
	colorize := false
	if isatty.IsTerminal(os.Stderr.Fd()) {
		out = colorable.NewColorable(os.Stderr)
		colorize = true
	}
	return &Logger{out: out, colorize: colorize, level: level, ctx: ctx}
}

// With returns a child logger carrying additional key/value context.
func (l *Logger) With(ctx ...interface{}) *Logger {
	merged := make([]interface{}, 0, len(l.ctx)+len(ctx))
	merged = append(merged, l.ctx...)
	merged = append(merged, ctx...)
	return &Logger{out: l.out, colorize: l.colorize, level: l.level, ctx: merged}
}

func (l *Logger) log(lvl Level, msg string, kv []interface{}) {
	if lvl > l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := time.Now().Format("15:04:05.000")
	var line string
	if l.colorize {
		line = fmt.Sprintf("\x1b[90m%s\x1b[0m \x1b[%dm%-5s\x1b[0m %s", ts, lvl.color(), lvl, msg)
	} else {
		line = fmt.Sprintf("%s %-5s %s", ts, lvl, msg)
	}

	all := append(append([]interface{}{}, l.ctx...), kv...)
	for i := 0; i+1 < len(all); i += 2 {
		line += fmt.Sprintf(" %v=%v", all[i], all[i+1])
	}
	if lvl <= LvlWarn {
		line += " caller=" + callerFrame()
	}
	fmt.Fprintln(l.out, line)
}

// callerFrame identifies the first call-site outside this package, the way
// go-ethereum's log.Root() attributes warnings/errors to their origin.
func callerFrame() string {
	const pkgPath = "github.com/garyschulte/metaru/internal/evmlog"
	trace := stack.Trace().TrimRuntime()
	for _, c := range trace {
		if fmt.Sprintf("%+k", c) == pkgPath {
			continue
		}
		s := fmt.Sprintf("%+v", c)
		if len(s) > 0 {
			return s
		}
	}
	return "unknown"
}

func (l *Logger) Error(msg string, kv ...interface{}) { l.log(LvlError, msg, kv) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.log(LvlWarn, msg, kv) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.log(LvlInfo, msg, kv) }
func (l *Logger) Debug(msg string, kv ...interface{}) { l.log(LvlDebug, msg, kv) }
func (l *Logger) Trace(msg string, kv ...interface{}) { l.log(LvlTrace, msg, kv) }
