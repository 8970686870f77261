// Package fixture builds engine options from a JSON fixture file, mapping
// resolver coordinates to static values and subscription coordinates to
// timed event sequences. It backs the serve command so a schema can be
// stood up without writing Go resolvers.
package fixture

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/quivergraph/quiver/internal/engine"
	"github.com/quivergraph/quiver/internal/executor"
)

// Config is the on-disk fixture shape.
type Config struct {
	// Values maps "TypeName.fieldName" coordinates to the value the
	// resolver returns. Nested objects resolve through the default
	// resolver by field name.
	Values map[string]any `json:"values"`

	// Subscriptions maps subscription root field coordinates to event
	// sequences.
	Subscriptions map[string]Subscription `json:"subscriptions"`
}

// Subscription is a scripted event stream.
type Subscription struct {
	Events []Event `json:"events"`
	// Repeat restarts the sequence after it completes.
	Repeat bool `json:"repeat,omitempty"`
	// Interval is the pause between repetitions, e.g. "1s".
	Interval string `json:"interval,omitempty"`

	interval time.Duration
}

// Event is one scripted emission.
type Event struct {
	Data any `json:"data"`
	// Delay before emitting, e.g. "100ms".
	Delay string `json:"delay,omitempty"`

	delay time.Duration
}

// Load reads and validates a fixture file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	if err := cfg.compile(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) compile() error {
	for coordinate := range c.Values {
		if !validCoordinate(coordinate) {
			return fmt.Errorf("invalid resolver coordinate %q", coordinate)
		}
	}
	for coordinate, sub := range c.Subscriptions {
		if !validCoordinate(coordinate) {
			return fmt.Errorf("invalid subscription coordinate %q", coordinate)
		}
		if len(sub.Events) == 0 {
			return fmt.Errorf("subscription %s declares no events", coordinate)
		}
		if sub.Interval != "" {
			d, err := time.ParseDuration(sub.Interval)
			if err != nil {
				return fmt.Errorf("subscription %s: invalid interval: %w", coordinate, err)
			}
			sub.interval = d
		}
		for i, ev := range sub.Events {
			if ev.Delay != "" {
				d, err := time.ParseDuration(ev.Delay)
				if err != nil {
					return fmt.Errorf("subscription %s event %d: invalid delay: %w", coordinate, i, err)
				}
				sub.Events[i].delay = d
			}
		}
		c.Subscriptions[coordinate] = sub
	}
	return nil
}

func validCoordinate(coordinate string) bool {
	typeName, fieldName, ok := strings.Cut(coordinate, ".")
	return ok && typeName != "" && fieldName != "" && !strings.Contains(fieldName, ".")
}

// Options converts the fixtures into engine options, including a default
// resolver that reads map sources by field name.
func (c *Config) Options() []engine.Option {
	opts := []engine.Option{engine.WithDefaultResolver(mapFieldResolver)}
	for coordinate, value := range c.Values {
		opts = append(opts, engine.WithResolver(coordinate, staticResolver(value)))
	}
	for coordinate, sub := range c.Subscriptions {
		opts = append(opts, engine.WithResolver(coordinate, sub.resolver()))
	}
	return opts
}

func staticResolver(value any) executor.ResolveFunc {
	return func(ctx context.Context, info *executor.ResolveInfo) (any, error) {
		return value, nil
	}
}

func mapFieldResolver(ctx context.Context, info *executor.ResolveInfo) (any, error) {
	m, ok := info.Source.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("no fixture value for %s.%s", info.ParentType, info.Field.Name)
	}
	return m[info.Field.Name], nil
}

func (s Subscription) resolver() executor.ResolveFunc {
	return func(ctx context.Context, info *executor.ResolveInfo) (any, error) {
		src := make(chan any)
		go func() {
			defer close(src)
			for {
				for _, ev := range s.Events {
					if ev.delay > 0 {
						select {
						case <-time.After(ev.delay):
						case <-ctx.Done():
							return
						}
					}
					select {
					case src <- ev.Data:
					case <-ctx.Done():
						return
					}
				}
				if !s.Repeat {
					return
				}
				if s.interval > 0 {
					select {
					case <-time.After(s.interval):
					case <-ctx.Done():
						return
					}
				}
			}
		}()
		return src, nil
	}
}
