// Package console is the narration sink: structured log lines via logrus,
// plus a single live-updating terminal line for long-running progress, in
// the style of the teacher's pkg/console.go (logAction/logSection). Nothing
// in this package ever returns data to a caller; it only narrates.
package console

import (
	"io"
	"os"
	"time"

	"github.com/apoorvam/goterminal"
	"github.com/sirupsen/logrus"
	"github.com/xeonx/timeago"
)

// Log is the process-wide structured logger. Verbosity is adjusted once at
// startup by SetLevel, driven by the --verbose/--debug/--quiet global flags
// (spec.md §6); those flags themselves are parsed by cmd/empack, never here.
var Log = logrus.New()

var progress = goterminal.New(os.Stdout)

func init() {
	Log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   false,
		DisableColors:   false,
		TimestampFormat: "15:04:05",
	})
}

// SetLevel maps the CLI's three-way verbosity knob onto logrus levels.
func SetLevel(verbose, debug, quiet bool) {
	switch {
	case quiet:
		Log.SetLevel(logrus.ErrorLevel)
	case debug:
		Log.SetLevel(logrus.DebugLevel)
	case verbose:
		Log.SetLevel(logrus.InfoLevel)
	default:
		Log.SetLevel(logrus.WarnLevel)
	}
}

// SetOutput redirects the structured logger, used by tests that want to
// capture output. The progress line always writes to stdout.
func SetOutput(w io.Writer) {
	Log.SetOutput(w)
}

// Progress overwrites the current terminal line with a new progress message.
// Used for long-running steps (the mrpack export) where a running narration
// would be noisy; mirrors the teacher's logAction.
func Progress(format string, args ...interface{}) {
	progress.Clear()
	progress.Printf(format, args...)
	_ = progress.Print()
}

// Section clears the progress line and prints a permanent section marker,
// mirroring the teacher's logSection.
func Section(format string, args ...interface{}) {
	progress.Clear()
	Log.Infof(format, args...)
}

// WithNamespace returns a logger tagged with the owning State Store
// namespace, so every log line can be filtered/grepped by subsystem.
func WithNamespace(ns string) *logrus.Entry {
	return Log.WithField("ns", ns)
}

// Since renders a namespace's last-updated timestamp as a friendly relative
// string (e.g. "3 minutes ago"), for the `info` command's State Store
// dump. Mirrors the teacher's cmdUpdateDatabase, which reports a
// cache's freshness the same way.
func Since(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return timeago.English.Format(t)
}
