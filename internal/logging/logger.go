// Package logging builds the process-wide zap logger.
package logging

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Options struct {
	Environment  string
	Level        string
	LogstashAddr string
	// Output defaults to stderr.
	Output zapcore.WriteSyncer
}

// New returns a logger writing console output in development and JSON
// otherwise. When LogstashAddr is set every entry is also teed, as JSON, to
// Logstash. The returned closer releases the Logstash connection.
func New(opts Options) (*zap.Logger, io.Closer, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(opts.Level)))
	if err != nil || opts.Level == "" {
		level = zapcore.InfoLevel
	}

	out := opts.Output
	if out == nil {
		out = zapcore.Lock(os.Stderr)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var local zapcore.Encoder
	if isDevelopment(opts.Environment) {
		devCfg := encoderCfg
		devCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		local = zapcore.NewConsoleEncoder(devCfg)
	} else {
		local = zapcore.NewJSONEncoder(encoderCfg)
	}

	cores := []zapcore.Core{zapcore.NewCore(local, out, level)}
	var closer io.Closer = nopCloser{}
	if strings.TrimSpace(opts.LogstashAddr) != "" {
		sink, err := NewLogstashSink(opts.LogstashAddr)
		if err != nil {
			return nil, nil, err
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), sink, level))
		closer = sink
	}

	logger := zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	).With(zap.String("service", "orgauth"), zap.String("env", envName(opts.Environment)))
	return logger, closer, nil
}

func isDevelopment(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "", "dev", "development", "local":
		return true
	}
	return false
}

func envName(env string) string {
	if strings.TrimSpace(env) == "" {
		return "development"
	}
	return env
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
