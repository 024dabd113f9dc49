// Package logger splits two audiences: a plain, undecorated "user"
// stream meant for a human watching the CLI, and a leveled, zap-backed
// "internal" stream for operational logs. The internal stream also
// exposes cycle/effect helpers (CycleStarted, CycleEnded, Effect) that
// attach workflow name, cycle ID, and effect type as structured zap
// fields instead of formatting them into the message, so the daemon's
// per-workflow, per-cycle logs stay queryable by field.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	userLogger      *log.Logger
	userWriter      io.Writer = os.Stdout
	internalLogger  *zap.SugaredLogger
	loggerMode      = "production"
	loggerModeMutex sync.RWMutex
)

func init() {
	userLogger = log.New(userWriter, "", 0)
	initLoggers()
}

func initLoggers() {
	internalCfg := zap.NewProductionConfig()
	internalCfg.OutputPaths = []string{"stderr"}
	internalCfg.Encoding = "console"
	internalCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if os.Getenv("REMIND_DEBUG") != "" || getMode() == "debug" {
		internalCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		internalCfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	if l, err := internalCfg.Build(); err == nil {
		internalLogger = l.Sugar()
	}
}

func User(format string, v ...any) {
	if userLogger != nil {
		userLogger.Printf(format, v...)
	}
}

func Info(format string, v ...any) {
	if internalLogger != nil {
		internalLogger.Infof(format, v...)
	}
}

func Warn(format string, v ...any) {
	if internalLogger != nil {
		internalLogger.Warnf(format, v...)
	}
}

func Error(format string, v ...any) {
	if internalLogger != nil {
		internalLogger.Errorf(format, v...)
	}
}

func Debug(format string, v ...any) {
	if internalLogger != nil {
		internalLogger.Debugf(format, v...)
	}
}

func SetUserOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	userWriter = w
	userLogger = log.New(userWriter, "", 0)
}

func SetInternalOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(w),
		zapcore.DebugLevel, // always allow debug for test capture
	)
	internalLogger = zap.New(core).Sugar()
}

func SetMode(mode string) {
	loggerModeMutex.Lock()
	defer loggerModeMutex.Unlock()
	loggerMode = mode
	initLoggers()
}

func getMode() string {
	loggerModeMutex.RLock()
	defer loggerModeMutex.RUnlock()
	return loggerMode
}

// Errorf logs the error message and returns it as an error value.
func Errorf(format string, v ...any) error {
	err := fmt.Errorf(format, v...)
	if internalLogger != nil {
		internalLogger.Errorf("%s", err)
	}
	return err
}

// CycleStarted logs the start of a workflow cycle as structured
// fields, so a log aggregator can group and query cycles by workflow
// without parsing a formatted message.
func CycleStarted(workflow string, cycleID int64) {
	if internalLogger != nil {
		internalLogger.Infow("cycle started", "workflow", workflow, "cycle_id", cycleID)
	}
}

// CycleEnded logs the outcome of a workflow cycle as structured
// fields. A nil err logs at info level; any other error logs at error
// level with the error attached as a field.
func CycleEnded(workflow string, cycleID int64, err error) {
	if internalLogger == nil {
		return
	}
	if err != nil {
		internalLogger.Errorw("cycle failed", "workflow", workflow, "cycle_id", cycleID, "error", err)
		return
	}
	internalLogger.Infow("cycle completed", "workflow", workflow, "cycle_id", cycleID)
}

// Effect logs a single effect dispatch as structured fields, keyed by
// the workflow driving it and the Go type of the effect performed.
func Effect(workflow, effectType string) {
	if internalLogger != nil {
		internalLogger.Debugw("effect performed", "workflow", workflow, "effect", effectType)
	}
}

// Writer adapts one of the level functions above into an io.Writer,
// splitting on newlines so each logged line gets its own call.
type Writer struct {
	Fn     func(string, ...any)
	Prefix string
}

func (w *Writer) Write(p []byte) (int, error) {
	for _, line := range strings.Split(string(p), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if w.Prefix != "" {
			w.Fn("%s%s", w.Prefix, line)
		} else {
			w.Fn("%s", line)
		}
	}
	return len(p), nil
}
