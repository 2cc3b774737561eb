package audit

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var _ Logger = (*ConsoleLogger)(nil)

type ConsoleOptions struct {
	// Stream is "stderr" (default) or "stdout"
	Stream string `json:"stream,omitempty"`
	// Pretty renders human readable lines instead of JSON
	Pretty bool `json:"pretty,omitempty"`
	// Recent bounds how many events Query can return
	Recent int `json:"recent,omitempty"`
}

// ConsoleLogger writes events to stderr or stdout through zerolog and keeps the
// most recent ones in memory for Query.
type ConsoleLogger struct {
	log    zerolog.Logger
	config *Config
	mu     sync.Mutex
	recent []Event
	limit  int
}

// NewConsoleLogger creates a console logger from config.
func NewConsoleLogger(config *Config) (*ConsoleLogger, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	var opts ConsoleOptions
	if err := parseOptions(config.Options, &opts); err != nil {
		return nil, fmt.Errorf("invalid console logger options: %w", err)
	}

	var w io.Writer
	switch opts.Stream {
	case "", "stderr":
		w = os.Stderr
	case "stdout":
		w = os.Stdout
	default:
		return nil, fmt.Errorf("unknown console stream: %s", opts.Stream)
	}
	return newConsoleLogger(w, opts, config)
}

func newConsoleLogger(w io.Writer, opts ConsoleOptions, config *Config) (*ConsoleLogger, error) {
	level := zerolog.InfoLevel
	if config.LogLevel != "" {
		parsed, err := zerolog.ParseLevel(config.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", config.LogLevel, err)
		}
		level = parsed
	}
	if opts.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	if opts.Recent <= 0 {
		opts.Recent = 64
	}
	return &ConsoleLogger{
		log:    zerolog.New(w).Level(level).With().Timestamp().Logger(),
		config: config,
		limit:  opts.Recent,
	}, nil
}

func (c *ConsoleLogger) Log(action string, success bool, metadata map[string]interface{}) error {
	event := newEvent(c.config.Source, action, success, metadata)

	var e *zerolog.Event
	switch {
	case !success:
		e = c.log.Warn()
	case action == ActionUnchanged:
		e = c.log.Debug()
	default:
		e = c.log.Info()
	}
	e.Str("id", event.ID).
		Str("action", event.Action).
		Bool("success", event.Success).
		Int("pid", event.PID)
	if event.Source != "" {
		e.Str("source", event.Source)
	}
	if event.Slot != "" {
		e.Str("slot", event.Slot)
	}
	if event.EnvName != "" {
		e.Str("env_name", event.EnvName)
	}
	if event.Error != "" {
		e.Str("error", event.Error)
	}
	if len(event.Metadata) > 0 {
		e.Fields(event.Metadata)
	}
	e.Msg("audit")

	c.mu.Lock()
	c.recent = append(c.recent, event)
	if len(c.recent) > c.limit {
		c.recent = c.recent[len(c.recent)-c.limit:]
	}
	c.mu.Unlock()
	return nil
}

func (c *ConsoleLogger) Query(options QueryOptions) (QueryResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return paginate(filterEvents(c.recent, options), len(c.recent), options), nil
}

func (c *ConsoleLogger) Close() error {
	return nil
}
