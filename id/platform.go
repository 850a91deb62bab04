package id

import (
	"fmt"
	"strings"

	"github.com/ebkalderon/deck/deckerr"
)

// Arch is a recognized CPU architecture token.
type Arch string

// Recognized Arch values.
const (
	ArchI686   Arch = "i686"
	ArchX8664  Arch = "x86_64"
)

func parseArch(s string) (Arch, error) {
	switch s {
	case string(ArchI686):
		return ArchI686, nil
	case string(ArchX8664):
		return ArchX8664, nil
	default:
		return "", fmt.Errorf("unknown CPU architecture %q", s)
	}
}

// OS is a recognized two-segment vendor-OS token.
type OS string

// Recognized OS values.
const (
	OSDarwin  OS = "apple-darwin"
	OSFreeBSD OS = "unknown-freebsd"
	OSLinux   OS = "unknown-linux"
	OSNetBSD  OS = "unknown-netbsd"
	OSWindows OS = "pc-windows"
)

func parseOS(s string) (OS, error) {
	switch s {
	case string(OSDarwin), string(OSFreeBSD), string(OSLinux), string(OSNetBSD), string(OSWindows):
		return OS(s), nil
	default:
		return "", fmt.Errorf("unknown operating system %q", s)
	}
}

// Platform is a target triple: an architecture paired with a two-segment
// vendor-OS token, e.g. "x86_64-unknown-linux".
type Platform struct {
	Arch Arch
	OS   OS
}

// String renders the triple as "<arch>-<os>".
func (p Platform) String() string {
	return fmt.Sprintf("%s-%s", p.Arch, p.OS)
}

// ParsePlatform parses a target triple. Leading and trailing whitespace is
// tolerated; the interior must split into exactly an arch and a two-segment
// OS token on the first '-'.
func ParsePlatform(s string) (Platform, error) {
	trimmed := strings.TrimSpace(s)

	archPart, rest, ok := strings.Cut(trimmed, "-")
	if !ok {
		return Platform{}, &deckerr.InvalidPlatform{Value: s, Reason: "missing OS and vendor"}
	}

	arch, err := parseArch(archPart)
	if err != nil {
		return Platform{}, &deckerr.InvalidPlatform{Value: s, Reason: err.Error()}
	}

	os, err := parseOS(rest)
	if err != nil {
		return Platform{}, &deckerr.InvalidPlatform{Value: s, Reason: err.Error()}
	}

	return Platform{Arch: arch, OS: os}, nil
}
