// Package configuration implements deck's YAML store configuration:
// where the store lives, which platforms it builds for, and which
// repository and binary-cache endpoints it lists, optionally overridden by
// DECK_-prefixed environment variables (spec.md §4.5, §6).
//
// Note that yaml field names should never include _ characters, since
// that is the separator used in environment variable names.
package configuration

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/ebkalderon/deck/id"
)

// Configuration is a versioned deck store configuration, provided as a
// YAML file and optionally overridden by environment variables.
type Configuration struct {
	// Version defines the format of the rest of the configuration.
	Version Version `yaml:"version"`

	// Store configures where the content-addressed store lives on disk.
	Store Store `yaml:"store"`

	// Log configures the logging subsystem.
	Log Log `yaml:"log,omitempty"`

	// Platforms lists the target triples this store builds for, e.g.
	// "x86_64-unknown-linux".
	Platforms []string `yaml:"platforms"`

	// Scheduler configures the build scheduler's resource limits.
	Scheduler Scheduler `yaml:"scheduler,omitempty"`

	// Repositories lists manifest repository endpoints. They are parsed
	// only: deck.OpenFromConfig does not register them with the store.
	Repositories []Endpoint `yaml:"repositories,omitempty"`

	// BinaryCaches lists binary cache endpoints. They are parsed only:
	// deck.OpenFromConfig does not register them with the store.
	BinaryCaches []Endpoint `yaml:"binarycaches,omitempty"`
}

// Store configures the on-disk layout of the content-addressed store.
type Store struct {
	// RootDirectory is the filesystem path the store is rooted at. Its var/
	// subdirectory is created when deck.OpenFromConfig opens the store;
	// manifests/, outputs/, sources/, and tmp/ are created on first write.
	RootDirectory string `yaml:"rootdirectory"`
}

// Log configures the logging subsystem.
type Log struct {
	// Level is the granularity at which store and scheduler operations
	// are logged.
	Level Loglevel `yaml:"level,omitempty"`

	// Formatter overrides the default formatter. Options include "text"
	// and "json".
	Formatter string `yaml:"formatter,omitempty"`

	// Fields allows static fields to be attached to every log entry.
	Fields map[string]interface{} `yaml:"fields,omitempty"`
}

// Loglevel is the level at which operations are logged: error, warn,
// info, or debug.
type Loglevel string

// UnmarshalYAML implements yaml.Unmarshaler, lowercasing and validating
// the string represents a recognized level.
func (level *Loglevel) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}

	s = strings.ToLower(s)
	switch s {
	case "error", "warn", "info", "debug":
	default:
		return fmt.Errorf("invalid log level %q: must be one of [error, warn, info, debug]", s)
	}

	*level = Loglevel(s)
	return nil
}

// Scheduler configures the build scheduler.
type Scheduler struct {
	// MaxConcurrentBuilds is parsed but not applied: neither
	// deck.OpenFromConfig nor the scheduler reads it, and build nodes run
	// with no concurrency bound.
	MaxConcurrentBuilds int `yaml:"maxconcurrentbuilds,omitempty"`
}

// ParsedPlatforms parses c.Platforms into id.Platform values.
func (c *Configuration) ParsedPlatforms() ([]id.Platform, error) {
	platforms := make([]id.Platform, 0, len(c.Platforms))
	for _, s := range c.Platforms {
		p, err := id.ParsePlatform(s)
		if err != nil {
			return nil, err
		}
		platforms = append(platforms, p)
	}
	return platforms, nil
}

// Endpoint describes a network-addressable repository or binary cache.
type Endpoint struct {
	// Name identifies the endpoint for logging purposes.
	Name string `yaml:"name"`

	// URL is the endpoint's base address.
	URL string `yaml:"url"`
}

// v0_1Configuration is the version 0.1 Configuration struct, currently
// aliased to Configuration as it is the only version.
type v0_1Configuration Configuration

// Parse parses an input configuration YAML document into a Configuration.
//
// Environment variables may override configuration parameters other than
// version, following the scheme: Configuration.Abc is replaced by the
// value of DECK_ABC, Configuration.Abc.Xyz by DECK_ABC_XYZ, and so on.
func Parse(rd io.Reader) (*Configuration, error) {
	in, err := io.ReadAll(rd)
	if err != nil {
		return nil, err
	}

	p := NewParser("deck", []VersionedParseInfo{
		{
			Version: MajorMinorVersion(0, 1),
			ParseAs: reflect.TypeOf(v0_1Configuration{}),
			ConversionFunc: func(c interface{}) (interface{}, error) {
				v0_1, ok := c.(*v0_1Configuration)
				if !ok {
					return nil, fmt.Errorf("expected *v0_1Configuration, got %#v", c)
				}

				if v0_1.Log.Level == "" {
					v0_1.Log.Level = "info"
				}
				if v0_1.Store.RootDirectory == "" {
					return nil, errors.New("no store root directory configured")
				}
				if len(v0_1.Platforms) == 0 {
					return nil, errors.New("no platforms configured")
				}

				return (*Configuration)(v0_1), nil
			},
		},
	})

	config := new(Configuration)
	if err := p.Parse(in, config); err != nil {
		return nil, err
	}
	return config, nil
}
