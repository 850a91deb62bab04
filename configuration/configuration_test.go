package configuration

import (
	"strings"
	"testing"
)

const minimalYAML = `
version: 0.1
store:
  rootdirectory: /var/lib/deck
platforms:
  - x86_64-unknown-linux
`

func TestParseMinimal(t *testing.T) {
	cfg, err := Parse(strings.NewReader(minimalYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.Store.RootDirectory != "/var/lib/deck" {
		t.Fatalf("RootDirectory = %q, want /var/lib/deck", cfg.Store.RootDirectory)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("Log.Level = %q, want default \"info\"", cfg.Log.Level)
	}
	if len(cfg.Platforms) != 1 || cfg.Platforms[0] != "x86_64-unknown-linux" {
		t.Fatalf("Platforms = %v, want [x86_64-unknown-linux]", cfg.Platforms)
	}
}

func TestParseMissingRootDirectoryFails(t *testing.T) {
	yaml := `
version: 0.1
store: {}
platforms:
  - x86_64-unknown-linux
`
	if _, err := Parse(strings.NewReader(yaml)); err == nil {
		t.Fatal("Parse with no store root directory returned no error")
	}
}

func TestParseMissingPlatformsFails(t *testing.T) {
	yaml := `
version: 0.1
store:
  rootdirectory: /var/lib/deck
`
	if _, err := Parse(strings.NewReader(yaml)); err == nil {
		t.Fatal("Parse with no platforms returned no error")
	}
}

func TestParseUnsupportedVersionFails(t *testing.T) {
	yaml := `
version: 9.9
store:
  rootdirectory: /var/lib/deck
platforms:
  - x86_64-unknown-linux
`
	if _, err := Parse(strings.NewReader(yaml)); err == nil {
		t.Fatal("Parse with an unsupported version returned no error")
	}
}

func TestParseEnvironmentOverride(t *testing.T) {
	t.Setenv("DECK_STORE_ROOTDIRECTORY", "/tmp/override")

	cfg, err := Parse(strings.NewReader(minimalYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Store.RootDirectory != "/tmp/override" {
		t.Fatalf("RootDirectory = %q, want /tmp/override (from env override)", cfg.Store.RootDirectory)
	}
}

func TestParsedPlatforms(t *testing.T) {
	cfg, err := Parse(strings.NewReader(minimalYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	platforms, err := cfg.ParsedPlatforms()
	if err != nil {
		t.Fatalf("ParsedPlatforms: %v", err)
	}
	if len(platforms) != 1 || platforms[0].String() != "x86_64-unknown-linux" {
		t.Fatalf("ParsedPlatforms = %v, want [x86_64-unknown-linux]", platforms)
	}
}

func TestParsedPlatformsRejectsUnknownTriple(t *testing.T) {
	cfg := &Configuration{Platforms: []string{"not-a-real-triple"}}
	if _, err := cfg.ParsedPlatforms(); err == nil {
		t.Fatal("ParsedPlatforms with an invalid triple returned no error")
	}
}
