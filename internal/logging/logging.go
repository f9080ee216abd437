// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the logger level and destination.
type Options struct {
	// Level is debug, info, warn or error. Empty means warn.
	Level string
	// Debug forces debug level.
	Debug bool
	// Color enables colored level names.
	Color bool
	// Output defaults to stderr so reports on stdout stay clean.
	Output io.Writer
}

// ParseLevel maps a level name to a zap level.
func ParseLevel(s string) (zapcore.Level, error) {
	if strings.TrimSpace(s) == "" {
		return zapcore.WarnLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(s)))); err != nil {
		return zapcore.WarnLevel, fmt.Errorf("invalid log level %q (use debug, info, warn or error)", s)
	}
	return lvl, nil
}

// New returns a console logger.
func New(opt Options) (*zap.Logger, error) {
	lvl, err := ParseLevel(opt.Level)
	if err != nil {
		return nil, err
	}
	if opt.Debug {
		lvl = zapcore.DebugLevel
	}
	out := opt.Output
	if out == nil {
		out = os.Stderr
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = timeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	if opt.Color {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(zapcore.AddSync(out)), lvl)

	var zopts []zap.Option
	if lvl == zapcore.DebugLevel {
		zopts = append(zopts, zap.AddCaller())
	}
	return zap.New(core, zopts...), nil
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("15:04:05.000"))
}
