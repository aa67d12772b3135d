// Package logging builds the zap logger shared by every pipeline stage,
// following the teacher's convention of passing a *zap.SugaredLogger into
// stage constructors (internal/align.NewDriver, internal/search.New) rather
// than using a package-level global.
package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures the run's log output.
type Options struct {
	// Dir is the output directory the run writes artifacts to; the log file
	// is created at <Dir>/<Basename>.log, per spec.md §6 ("a log file...
	// recording every invocation").
	Dir      string
	Basename string
	Verbose  bool
}

// New builds a logger that writes structured entries to both stderr (human
// console encoding) and the run's log file (JSON encoding, one object per
// line, for later machine inspection), closing over opts.Verbose to gate
// debug-level output on the console core only.
func New(opts Options) (*zap.Logger, func() error, error) {
	consoleLevel := zapcore.InfoLevel
	if opts.Verbose {
		consoleLevel = zapcore.DebugLevel
	}

	consoleEncoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	consoleCore := zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stderr), consoleLevel)

	cores := []zapcore.Core{consoleCore}
	closeFile := func() error { return nil }

	if opts.Dir != "" {
		path := filepath.Join(opts.Dir, opts.Basename+".log")
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, err
		}
		fileEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		fileCore := zapcore.NewCore(fileEncoder, zapcore.AddSync(f), zapcore.DebugLevel)
		cores = append(cores, fileCore)
		closeFile = f.Close
	}

	log := zap.New(zapcore.NewTee(cores...))
	return log, closeFile, nil
}
