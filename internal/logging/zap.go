// Package logging builds the zap logger shared by the command line tool and
// the C host binding.
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the logger's level and encoding.
type Options struct {
	// Level is one of debug, info, warn or error. Empty means info.
	Level string
	// JSON switches from the colored console encoding to one JSON object per line.
	JSON bool
	// Output receives log lines; nil means stderr so stdout stays free for
	// transcripts.
	Output io.Writer
}

// New returns a logger for opts. At debug level entries also carry the caller
// and error entries a stack trace.
func New(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, fmt.Errorf("logging: level %q: %w", opts.Level, err)
		}
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	core := zapcore.NewCore(newEncoder(opts.JSON), zapcore.Lock(zapcore.AddSync(out)), level)

	var zopts []zap.Option
	if level == zapcore.DebugLevel {
		zopts = append(zopts, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	}
	return zap.New(core, zopts...), nil
}

func newEncoder(json bool) zapcore.Encoder {
	if json {
		enc := zap.NewProductionEncoderConfig()
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewJSONEncoder(enc)
	}

	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = ""
	enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(enc)
}
