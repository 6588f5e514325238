package simlabel

import (
	"io"
	"os"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Fields is a set of structured log fields.
type Fields = logrus.Fields

var logger logrus.FieldLogger = NewLogger(logrus.InfoLevel, os.Stderr)

// SetLogger replaces the logger used by the package. A nil logger discards all output.
func SetLogger(l logrus.FieldLogger) {
	if l == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		l = discard
	}
	logger = l
}

// NewLogger returns a logger writing human readable lines to out.
func NewLogger(level logrus.Level, out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetLevel(level)
	l.SetOutput(out)
	l.SetFormatter(&formatter.Formatter{
		NoColors:        true,
		TimestampFormat: "2006-01-02 15:04:05.000",
		HideKeys:        false,
		FieldsOrder:     []string{"frame_id", "actor_id", "path"},
	})
	return l
}

// NewFileLogger returns a logger that writes to stderr and to a size-rotated file at path.
func NewFileLogger(levelName, path string) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", levelName)
	}

	var out io.Writer = os.Stderr
	if path != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   path,
			LocalTime:  true,
			Compress:   true,
			MaxSize:    100,
			MaxAge:     7,
			MaxBackups: 3,
		})
	}
	return NewLogger(level, out), nil
}
