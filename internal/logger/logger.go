package logger

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Init builds the process logger. Output is JSON with a fixed service field.
func Init(serviceName, level string) *logrus.Entry {
	return New(os.Stdout, serviceName, level)
}

// New builds a logger writing to w. Unknown levels fall back to info.
func New(w io.Writer, serviceName, level string) *logrus.Entry {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "ts",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	return l.WithField("service", serviceName)
}

// Discard returns a logger that drops everything, for tests.
func Discard() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// WithRequestID scopes log to a request.
func WithRequestID(log *logrus.Entry, requestID string) *logrus.Entry {
	if requestID == "" {
		return log
	}
	return log.WithField("request_id", requestID)
}
