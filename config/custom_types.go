/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"gopkg.in/yaml.v3"
)

// ByteSize is a number of bytes written as an integer or with a unit: "512K", "10M", "1Gi".
type ByteSize uint64

// TimeDuration is a duration written as integer nanoseconds or in time.ParseDuration form: "1m30s".
type TimeDuration time.Duration

// textValue is shared by the custom types for JSON and YAML decoding.
type textValue interface {
	UnmarshalText(text []byte) error
}

func unmarshalJSONText(v textValue, data []byte) error {
	return v.UnmarshalText([]byte(strings.Trim(string(data), `"`)))
}

func unmarshalYAMLText(v textValue, node *yaml.Node, what string) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("invalid %s format: %w", what, err)
	}
	return v.UnmarshalText([]byte(s))
}

// parseNonNegativeInt reports ok=false if s is not an integer at all.
func parseNonNegativeInt(s string) (n int64, ok bool, err error) {
	n, convErr := strconv.ParseInt(s, 10, 64)
	if convErr != nil {
		return 0, false, nil
	}
	if n < 0 {
		return 0, true, fmt.Errorf("negative value is not allowed: %d", n)
	}
	return n, true, nil
}

func parseByteSize(s string) (ByteSize, error) {
	v := strings.TrimSpace(s)
	if n, ok, err := parseNonNegativeInt(v); ok {
		return ByteSize(n), err
	}
	// bytefmt treats "K" as 1024 already, so "Ki" only needs the "i" dropped.
	if n := len(v); n > 2 && v[n-1] == 'i' && strings.IndexByte("KMGTPE", v[n-2]) >= 0 {
		v = v[:n-1]
	}
	n, err := bytefmt.ToBytes(v)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size format (%s): %w", s, err)
	}
	return ByteSize(n), nil
}

func parseTimeDuration(s string) (TimeDuration, error) {
	v := strings.TrimSpace(s)
	if n, ok, err := parseNonNegativeInt(v); ok {
		return TimeDuration(n), err
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid time duration format (%s): %w", v, err)
	}
	return TimeDuration(d), nil
}

func (b *ByteSize) UnmarshalText(text []byte) error {
	v, err := parseByteSize(string(text))
	if err == nil {
		*b = v
	}
	return err
}

func (b *ByteSize) UnmarshalJSON(data []byte) error {
	return unmarshalJSONText(b, data)
}

func (b *ByteSize) UnmarshalYAML(node *yaml.Node) error {
	return unmarshalYAMLText(b, node, "byte size")
}

func (b ByteSize) String() string {
	return bytefmt.ByteSize(uint64(b))
}

func (b ByteSize) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

func (b ByteSize) MarshalYAML() (interface{}, error) {
	return b.String(), nil
}

func (d *TimeDuration) UnmarshalText(text []byte) error {
	v, err := parseTimeDuration(string(text))
	if err == nil {
		*d = v
	}
	return err
}

func (d *TimeDuration) UnmarshalJSON(data []byte) error {
	return unmarshalJSONText(d, data)
}

func (d *TimeDuration) UnmarshalYAML(node *yaml.Node) error {
	return unmarshalYAMLText(d, node, "time duration")
}

func (d TimeDuration) String() string {
	return time.Duration(d).String()
}

func (d TimeDuration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d TimeDuration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}
