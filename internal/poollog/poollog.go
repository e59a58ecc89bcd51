// Package poollog wraps a package-level *logrus.Logger so every package in
// this module logs through one configured sink, field-keyed the way
// internal/pool.Pool.Stats() reports pool state
// (blockchain/shielded_pool.go's Stats() in Alex110709-obsidian-core, the
// pack's logrus user — m1zr-ccoin itself carries no logging dependency).
package poollog

import (
	"os"

	"github.com/sirupsen/logrus"
)

var std = newDefault()

func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Configure sets the package logger's level and, if file is non-empty,
// sends its output to the named file instead of stderr.
func Configure(level string, file string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	std.SetLevel(lvl)

	if file != "" {
		f, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		std.SetOutput(f)
	}
	return nil
}

// Logger returns the package-level logger.
func Logger() *logrus.Logger {
	return std
}

// WithPool returns an entry tagged with a pool id, mirroring the
// "pool_id" key used throughout Pool.Stats().
func WithPool(poolID string) *logrus.Entry {
	return std.WithField("pool_id", poolID)
}

// WithFields returns an entry tagged with the given fields.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return std.WithFields(fields)
}
