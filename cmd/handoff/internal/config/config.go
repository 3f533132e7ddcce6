// Package config holds the handoff CLI configuration: the data directory
// and YAML session profiles.
//
// The data directory is os.UserConfigDir()/handoff unless HANDOFF_CONFIG_DIR
// is set:
//
//	handoff/
//	├── profile.yaml     # optional default profile
//	└── history/         # badger database of session reports
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/haivivi/handoff/pkg/buffer"
	"github.com/haivivi/handoff/pkg/stream"
)

const (
	// appDir is the directory name under os.UserConfigDir().
	appDir = "handoff"

	// EnvDir overrides the data directory.
	EnvDir = "HANDOFF_CONFIG_DIR"

	profileFile = "profile.yaml"
	historyDir  = "history"
)

// Config holds the resolved directories.
type Config struct {
	// Dir is the root data directory.
	Dir string
}

// Load resolves the data directory from HANDOFF_CONFIG_DIR or the OS
// config directory.
func Load() (*Config, error) {
	if dir := os.Getenv(EnvDir); dir != "" {
		return &Config{Dir: dir}, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("cannot determine config directory: %w", err)
	}
	return &Config{Dir: filepath.Join(base, appDir)}, nil
}

// HistoryDir returns the badger directory for session reports.
func (c *Config) HistoryDir() string {
	return filepath.Join(c.Dir, historyDir)
}

// DefaultProfile loads profile.yaml from the data directory. A missing
// file yields an empty profile.
func (c *Config) DefaultProfile() (*Profile, error) {
	p, err := LoadProfile(filepath.Join(c.Dir, profileFile))
	if errors.Is(err, os.ErrNotExist) {
		return &Profile{}, nil
	}
	return p, err
}

// Profile describes one hand-off session. Zero fields take their defaults
// when the profile is resolved.
type Profile struct {
	Items         []string `json:"items,omitempty" yaml:"items,omitempty" jsonschema:"items handed from producers to consumers"`
	Count         int      `json:"count,omitempty" yaml:"count,omitempty" jsonschema:"generate the items 1..count when items is empty"`
	Capacity      int      `json:"capacity,omitempty" yaml:"capacity,omitempty" jsonschema:"buffer capacity, at least 1 (default 10)"`
	Producers     int      `json:"producers,omitempty" yaml:"producers,omitempty" jsonschema:"number of producers, items are split round-robin (default 1)"`
	Consumers     int      `json:"consumers,omitempty" yaml:"consumers,omitempty" jsonschema:"number of consumers (default 1)"`
	ProducerDelay string   `json:"producer_delay,omitempty" yaml:"producer_delay,omitempty" jsonschema:"simulated work per produced item, e.g. 100ms"`
	ConsumerDelay string   `json:"consumer_delay,omitempty" yaml:"consumer_delay,omitempty" jsonschema:"simulated work per consumed item, e.g. 200ms"`
	Jitter        string   `json:"jitter,omitempty" yaml:"jitter,omitempty" jsonschema:"random extra delay added to each item"`
	Sentinel      *string  `json:"sentinel,omitempty" yaml:"sentinel,omitempty" jsonschema:"end-of-stream value, enables the single-pair sentinel protocol"`
	Timeout       string   `json:"timeout,omitempty" yaml:"timeout,omitempty" jsonschema:"abort the session after this duration"`
	NoHistory     bool     `json:"no_history,omitempty" yaml:"no_history,omitempty" jsonschema:"do not persist the session report"`
}

// LoadProfile reads a YAML profile. Use "-" for stdin.
func LoadProfile(path string) (*Profile, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}
	return &p, nil
}

// Merge overlays the non-zero fields of o onto p.
func (p *Profile) Merge(o *Profile) {
	if len(o.Items) > 0 {
		p.Items = o.Items
	}
	if o.Count != 0 {
		p.Count = o.Count
	}
	if o.Capacity != 0 {
		p.Capacity = o.Capacity
	}
	if o.Producers != 0 {
		p.Producers = o.Producers
	}
	if o.Consumers != 0 {
		p.Consumers = o.Consumers
	}
	if o.ProducerDelay != "" {
		p.ProducerDelay = o.ProducerDelay
	}
	if o.ConsumerDelay != "" {
		p.ConsumerDelay = o.ConsumerDelay
	}
	if o.Jitter != "" {
		p.Jitter = o.Jitter
	}
	if o.Sentinel != nil {
		p.Sentinel = o.Sentinel
	}
	if o.Timeout != "" {
		p.Timeout = o.Timeout
	}
	if o.NoHistory {
		p.NoHistory = true
	}
}

// Resolved is a profile with defaults applied and durations parsed.
type Resolved struct {
	Items          []string
	Capacity       int
	Producers      int
	Consumers      int
	ProducerPacing stream.Pacing
	ConsumerPacing stream.Pacing
	Sentinel       *string
	Timeout        time.Duration
	NoHistory      bool
}

// Resolve applies defaults and validates p. Capacity is not validated here;
// a capacity below 1 is reported by the session itself.
func (p *Profile) Resolve() (*Resolved, error) {
	r := &Resolved{
		Items:     p.Items,
		Capacity:  p.Capacity,
		Producers: max(p.Producers, 1),
		Consumers: max(p.Consumers, 1),
		Sentinel:  p.Sentinel,
		NoHistory: p.NoHistory,
	}
	if r.Capacity == 0 {
		r.Capacity = buffer.DefaultCapacity
	}
	if len(r.Items) == 0 && p.Count > 0 {
		r.Items = make([]string, p.Count)
		for i := range r.Items {
			r.Items[i] = strconv.Itoa(i + 1)
		}
	}

	var err error
	if r.ProducerPacing.Delay, err = parseDuration("producer_delay", p.ProducerDelay); err != nil {
		return nil, err
	}
	if r.ConsumerPacing.Delay, err = parseDuration("consumer_delay", p.ConsumerDelay); err != nil {
		return nil, err
	}
	jitter, err := parseDuration("jitter", p.Jitter)
	if err != nil {
		return nil, err
	}
	r.ProducerPacing.Jitter = jitter
	r.ConsumerPacing.Jitter = jitter
	if r.Timeout, err = parseDuration("timeout", p.Timeout); err != nil {
		return nil, err
	}

	if r.Sentinel != nil && (r.Producers != 1 || r.Consumers != 1) {
		return nil, errors.New("sentinel mode supports exactly one producer and one consumer")
	}
	return r, nil
}

func parseDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: negative duration %s", field, s)
	}
	return d, nil
}
