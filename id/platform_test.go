package id_test

import (
	"testing"

	"github.com/ebkalderon/deck/id"
)

func TestParsePlatformCommonTriples(t *testing.T) {
	cases := map[string]id.Platform{
		"x86_64-unknown-linux": {Arch: id.ArchX8664, OS: id.OSLinux},
		"x86_64-pc-windows":    {Arch: id.ArchX8664, OS: id.OSWindows},
		"x86_64-apple-darwin":  {Arch: id.ArchX8664, OS: id.OSDarwin},
	}

	for s, want := range cases {
		got, err := id.ParsePlatform(s)
		if err != nil {
			t.Errorf("ParsePlatform(%q) failed: %v", s, err)
			continue
		}
		if got != want {
			t.Errorf("ParsePlatform(%q) = %+v, want %+v", s, got, want)
		}
	}
}

func TestParsePlatformRejectsInvalid(t *testing.T) {
	invalid := []string{"i686- unknown-freebsd", "i686 -unknown-freebsd", "pc-windows-x86_64"}
	for _, s := range invalid {
		if _, err := id.ParsePlatform(s); err == nil {
			t.Errorf("ParsePlatform(%q) succeeded, want error", s)
		}
	}
}

func TestParsePlatformTrimsWhitespace(t *testing.T) {
	want := id.Platform{Arch: id.ArchX8664, OS: id.OSLinux}
	cases := []string{
		"x86_64-unknown-linux   ",
		"   x86_64-unknown-linux",
		"   x86_64-unknown-linux   ",
	}
	for _, s := range cases {
		got, err := id.ParsePlatform(s)
		if err != nil {
			t.Errorf("ParsePlatform(%q) failed: %v", s, err)
			continue
		}
		if got != want {
			t.Errorf("ParsePlatform(%q) = %+v, want %+v", s, got, want)
		}
	}
}
