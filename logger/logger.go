package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/isdmx/podrun/config"
)

// Logging modes
const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

// Option adjusts a logger built by New
type Option func(*options)

type options struct {
	output zapcore.WriteSyncer
	fields []zap.Field
}

// WithOutput writes entries to ws instead of stderr
func WithOutput(ws zapcore.WriteSyncer) Option {
	return func(o *options) {
		o.output = ws
	}
}

// WithFields attaches fields to every entry
func WithFields(fields ...zap.Field) Option {
	return func(o *options) {
		o.fields = append(o.fields, fields...)
	}
}

// NewFromConfig creates a logger from the logging section of cfg, tagged
// with the configured transport.
func NewFromConfig(cfg *config.Config) (*zap.Logger, error) {
	return New(cfg.Logging.Mode, cfg.Logging.Level,
		WithFields(zap.String("transport", cfg.Server.Transport)))
}

// New creates a new logger instance based on configuration.
// Logs go to stderr unless WithOutput is given: stdout belongs to the stdio
// transport and to the CLI's captured output.
func New(mode, level string, opts ...Option) (*zap.Logger, error) {
	var cfg zap.Config

	switch mode {
	case ModeDevelopment:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	case ModeProduction:
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		return nil, fmt.Errorf("invalid logging mode: %s, must be 'production' or 'development'", mode)
	}

	logLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid logging level: %s, must be one of 'debug', 'info', 'warn', 'error', 'dpanic', 'panic', 'fatal'", level)
	}
	cfg.Level = zap.NewAtomicLevelAt(logLevel)

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	fields := zap.Fields(append([]zap.Field{zap.String("service", "podrun")}, o.fields...)...)

	if o.output == nil {
		cfg.OutputPaths = []string{"stderr"}
		cfg.ErrorOutputPaths = []string{"stderr"}
		return cfg.Build(fields)
	}

	encoder := zapcore.NewConsoleEncoder(cfg.EncoderConfig)
	if cfg.Encoding == "json" {
		encoder = zapcore.NewJSONEncoder(cfg.EncoderConfig)
	}
	zapOpts := []zap.Option{fields, zap.AddCaller(), zap.ErrorOutput(o.output)}
	if cfg.Development {
		zapOpts = append(zapOpts, zap.Development(), zap.AddStacktrace(zapcore.WarnLevel))
	} else {
		zapOpts = append(zapOpts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	return zap.New(zapcore.NewCore(encoder, o.output, cfg.Level), zapOpts...), nil
}
