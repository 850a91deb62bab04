package manifest_test

import (
	"strings"
	"testing"

	"github.com/ebkalderon/deck/hash"
	"github.com/ebkalderon/deck/manifest"
)

func TestBuilderFinishProducesExactlyOneDefaultOutput(t *testing.T) {
	m, err := manifest.NewBuilder("hello", "1.0.0", hash.Random()).
		Output("doc", hash.Random(), nil).
		Output("man", hash.Random(), nil).
		Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}

	defaults := 0
	for _, out := range m.Outputs() {
		if out.IsDefault() {
			defaults++
		}
	}
	if defaults != 1 {
		t.Fatalf("expected exactly one default output, got %d", defaults)
	}
}

func TestParseRejectsMultipleDefaultOutputs(t *testing.T) {
	text := `
[package]
name = "foo"
version = "1.0.0"
dependencies = []
build-dependencies = []
dev-dependencies = []

[[output]]
precomputed-hash = "fc3j3vub6kodu4jtfoakfs5xhumqi62m"

[[output]]
precomputed-hash = "xpyrto6ighxc4gfhxrexzcrlcdaipars"
`
	if _, err := manifest.Parse(text); err == nil {
		t.Fatal("Parse succeeded with two default outputs, want error")
	}
}

func TestParseRejectsMissingDefaultOutput(t *testing.T) {
	text := `
[package]
name = "foo"
version = "1.0.0"
dependencies = []
build-dependencies = []
dev-dependencies = []

[[output]]
name = "doc"
precomputed-hash = "fc3j3vub6kodu4jtfoakfs5xhumqi62m"
`
	if _, err := manifest.Parse(text); err == nil {
		t.Fatal("Parse succeeded with no default output, want error")
	}
}

func TestComputeIDIsPureAndDeterministic(t *testing.T) {
	m, err := manifest.NewBuilder("hello", "1.0.0", hash.Random()).Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}

	a, err := m.ID()
	if err != nil {
		t.Fatalf("ID: %v", err)
	}
	b, err := m.ID()
	if err != nil {
		t.Fatalf("ID: %v", err)
	}
	if a != b {
		t.Fatalf("ID() is not deterministic: %v != %v", a, b)
	}

	text, err := m.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	reparsed, err := manifest.Parse(string(text))
	if err != nil {
		t.Fatalf("Parse round trip: %v", err)
	}
	reparsedID, err := reparsed.ID()
	if err != nil {
		t.Fatalf("ID: %v", err)
	}
	if reparsedID != a {
		t.Fatalf("ID() changed across a TOML round trip: %v != %v", a, reparsedID)
	}
}

func TestBuilderAcceptsOrdinaryDependency(t *testing.T) {
	dep, err := manifest.NewBuilder("base", "1.0.0", hash.Random()).Finish()
	if err != nil {
		t.Fatalf("Finish(base): %v", err)
	}
	depID, err := dep.ID()
	if err != nil {
		t.Fatalf("ID(base): %v", err)
	}

	if _, err := manifest.NewBuilder("hello", "1.0.0", hash.Random()).
		Dependency(depID).
		Finish(); err != nil {
		t.Fatalf("Finish(hello): %v", err)
	}
}

func TestParseRejectsBadOutputReference(t *testing.T) {
	text := `
[package]
name = "foo"
version = "1.0.0"
dependencies = []
build-dependencies = []
dev-dependencies = []

[[output]]
precomputed-hash = "fc3j3vub6kodu4jtfoakfs5xhumqi62m"
references = ["bar@1.0.0-xpyrto6ighxc4gfhxrexzcrlcdaipars"]
`
	_, err := manifest.Parse(text)
	if err == nil {
		t.Fatal("Parse succeeded with a reference to an undeclared dependency, want error")
	}
}

func TestParseAcceptsValidOutputReference(t *testing.T) {
	text := `
[package]
name = "foo"
version = "1.0.0"
dependencies = ["bar@1.0.0-xpyrto6ighxc4gfhxrexzcrlcdaipars"]
build-dependencies = []
dev-dependencies = []

[[output]]
precomputed-hash = "fc3j3vub6kodu4jtfoakfs5xhumqi62m"
references = ["bar@1.0.0-xpyrto6ighxc4gfhxrexzcrlcdaipars"]
`
	m, err := manifest.Parse(text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m.Name().String() != "foo" {
		t.Fatalf("Name() = %q, want foo", m.Name())
	}
}

func TestEncodeOmitsEmptyEnvAndSources(t *testing.T) {
	m, err := manifest.NewBuilder("hello", "1.0.0", hash.Random()).Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	text, err := m.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if strings.Contains(string(text), "[env]") {
		t.Errorf("encoded manifest unexpectedly contains [env]: %s", text)
	}
	if strings.Contains(string(text), "[[source]]") {
		t.Errorf("encoded manifest unexpectedly contains [[source]]: %s", text)
	}
}
