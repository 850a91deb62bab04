package configuration

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"
)

// Version is a major/minor version pair of the form Major.Minor. Major
// version upgrades indicate structure or type changes; minor upgrades
// should be strictly additive.
type Version string

// MajorMinorVersion constructs a Version from its Major and Minor components.
func MajorMinorVersion(major, minor uint) Version {
	return Version(fmt.Sprintf("%d.%d", major, minor))
}

func (version Version) major() (uint, error) {
	majorPart := strings.Split(string(version), ".")[0]
	major, err := strconv.ParseUint(majorPart, 10, 0)
	return uint(major), err
}

// Major returns the major version portion of a Version.
func (version Version) Major() uint {
	major, _ := version.major()
	return major
}

func (version Version) minor() (uint, error) {
	minorPart := strings.Split(string(version), ".")[1]
	minor, err := strconv.ParseUint(minorPart, 10, 0)
	return uint(minor), err
}

// Minor returns the minor version portion of a Version.
func (version Version) Minor() uint {
	minor, _ := version.minor()
	return minor
}

// UnmarshalYAML implements yaml.Unmarshaler, validating that the string
// splits into a major and minor component.
func (version *Version) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}

	v := Version(s)
	if _, err := v.major(); err != nil {
		return err
	}
	if _, err := v.minor(); err != nil {
		return err
	}

	*version = v
	return nil
}

// CurrentVersion is the most recent Version this parser understands.
var CurrentVersion = MajorMinorVersion(0, 1)

// VersionedParseInfo defines how a specific version of a configuration file
// should be parsed into the current version.
type VersionedParseInfo struct {
	Version        Version
	ParseAs        reflect.Type
	ConversionFunc func(interface{}) (interface{}, error)
}

// Parser parses a configuration file and environment of a defined version
// into a unified output structure.
type Parser struct {
	prefix  string
	mapping map[Version]VersionedParseInfo
	env     map[string]string
}

// NewParser returns a Parser with the given environment variable prefix,
// handling versioned configurations matching the given parseInfos.
func NewParser(prefix string, parseInfos []VersionedParseInfo) *Parser {
	p := Parser{prefix: prefix, mapping: make(map[Version]VersionedParseInfo), env: make(map[string]string)}

	for _, info := range parseInfos {
		p.mapping[info.Version] = info
	}

	for _, env := range os.Environ() {
		if k, v, ok := strings.Cut(env, "="); ok {
			p.env[k] = v
		}
	}

	return &p
}

// Parse reads in, unmarshals it according to its declared version, applies
// any environment variable overrides, and writes the result into v.
//
// Field Abc is overridden by PREFIX_ABC; a nested field Abc.Xyz by
// PREFIX_ABC_XYZ, and so on.
func (p *Parser) Parse(in []byte, v interface{}) error {
	var versioned struct {
		Version Version
	}
	if err := yaml.Unmarshal(in, &versioned); err != nil {
		return err
	}

	info, ok := p.mapping[versioned.Version]
	if !ok {
		return fmt.Errorf("unsupported configuration version: %q", versioned.Version)
	}

	parsed := reflect.New(info.ParseAs)
	if err := yaml.Unmarshal(in, parsed.Interface()); err != nil {
		return err
	}

	if err := p.overwriteFields(parsed, p.prefix); err != nil {
		return err
	}

	converted, err := info.ConversionFunc(parsed.Interface())
	if err != nil {
		return err
	}
	reflect.ValueOf(v).Elem().Set(reflect.Indirect(reflect.ValueOf(converted)))
	return nil
}

func (p *Parser) overwriteFields(v reflect.Value, prefix string) error {
	for v.Kind() == reflect.Ptr {
		v = reflect.Indirect(v)
	}
	if v.Kind() != reflect.Struct {
		return nil
	}

	for i := 0; i < v.NumField(); i++ {
		sf := v.Type().Field(i)
		fieldPrefix := strings.ToUpper(prefix + "_" + sf.Name)

		if e, ok := p.env[fieldPrefix]; ok {
			fieldVal := reflect.New(sf.Type)
			if err := yaml.Unmarshal([]byte(e), fieldVal.Interface()); err != nil {
				return err
			}
			v.Field(i).Set(reflect.Indirect(fieldVal))
		}

		if err := p.overwriteFields(v.Field(i), fieldPrefix); err != nil {
			return err
		}
	}
	return nil
}
