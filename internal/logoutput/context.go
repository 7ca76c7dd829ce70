// Package logoutput carries a per-request zerolog logger and its
// destination through a context.Context, the way the CLI bootstrap and the
// query server's connection handler both need to log without threading a
// *zerolog.Logger through every function signature.
package logoutput

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

const StampMilliTZ = "Jan _2 15:04:05.000 MST"

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
}

type logoutputKey string

var _logoutputKey logoutputKey = "gn.log.output"

type OutputTo struct {
	Writer     io.Writer
	WithColors bool
	OutputType OutputType
}

type OutputType string

const OutputText OutputType = "gn.log.output.text"
const OutputJSON OutputType = "gn.log.output.json"

func (o OutputTo) MakeWriter() io.Writer {
	if o.OutputType == OutputJSON {
		return o.Writer
	}

	return zerolog.ConsoleWriter{Out: o.Writer, TimeFormat: StampMilliTZ, NoColor: !o.WithColors}
}

func (o OutputTo) ZeroLogger() *zerolog.Logger {
	l := withZerologWriter(o.MakeWriter())
	return &l
}

// WithOutput attaches o to ctx and installs a zerolog logger over it,
// retrievable with zerolog.Ctx(ctx).
func WithOutput(ctx context.Context, o OutputTo) context.Context {
	ctx = context.WithValue(ctx, _logoutputKey, o)
	l := o.ZeroLogger()
	return l.WithContext(ctx)
}

func OutputFrom(ctx context.Context) OutputTo {
	if outputTo, ok := ctx.Value(_logoutputKey).(OutputTo); ok {
		return outputTo
	}

	return OutputTo{Writer: os.Stderr, OutputType: OutputText, WithColors: term.IsTerminal(int(os.Stderr.Fd()))}
}

// withZerologWriter reads the "log_level" viper flag set by the CLI
// bootstrap, falling back to info when unset or unparseable.
func withZerologWriter(w io.Writer) zerolog.Logger {
	defLevel := zerolog.InfoLevel
	if lvl := viper.GetString("log_level"); lvl != "" {
		if l, err := zerolog.ParseLevel(lvl); err == nil {
			defLevel = l
		}
	}

	return zerolog.New(w).With().Timestamp().Logger().Level(defLevel)
}
