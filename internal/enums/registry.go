// Package enums holds the closed code sets used across device configuration.
//
// Every set has stable numeric codes. Families that share a dimension (serial vs
// Ethernet port types, Mitsubishi vs Siemens registers, ...) use disjoint code
// ranges and are exposed as sealed sum types, so callers switch on the concrete
// family instead of testing numeric ranges.
package enums

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownCode is returned when a code is not a member of the requested set.
var ErrUnknownCode = errors.New("unknown enum code")

// Option is a selectable {label, value} pair.
type Option struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// Set is an ordered, immutable collection of options.
type Set struct {
	name    string
	options []Option
	labels  map[int]string
	codes   map[string]int
}

func newSet(name string, options ...Option) *Set {
	s := &Set{
		name:    name,
		options: options,
		labels:  make(map[int]string, len(options)),
		codes:   make(map[string]int, len(options)),
	}
	for _, o := range options {
		if _, dup := s.labels[o.Value]; dup {
			panic(fmt.Sprintf("enums: duplicate code %d in set %s", o.Value, name))
		}
		s.labels[o.Value] = o.Label
		if _, seen := s.codes[o.Label]; !seen {
			s.codes[o.Label] = o.Value
		}
	}
	return s
}

// unionSet joins family sets into one selectable set. Family code ranges are
// disjoint, so a collision is a programming error.
func unionSet(name string, sets ...*Set) *Set {
	var options []Option
	for _, s := range sets {
		options = append(options, s.options...)
	}
	return newSet(name, options...)
}

// Name returns the registry name of the set.
func (s *Set) Name() string { return s.name }

// Options returns a copy of the options in declaration order.
func (s *Set) Options() []Option {
	out := make([]Option, len(s.options))
	copy(out, s.options)
	return out
}

// Contains reports whether code is a member of the set.
func (s *Set) Contains(code int) bool {
	_, ok := s.labels[code]
	return ok
}

// Label returns the display label for code, or "" if code is not a member.
func (s *Set) Label(code int) string {
	return s.labels[code]
}

// Code resolves a label to its code. For union sets the first family wins.
func (s *Set) Code(label string) (int, bool) {
	code, ok := s.codes[label]
	return code, ok
}

func (s *Set) labelOr(code int) string {
	if l, ok := s.labels[code]; ok {
		return l
	}
	return fmt.Sprintf("%s(%d)", s.name, code)
}

func parseCode[T ~int](s *Set, code int) (T, error) {
	if !s.Contains(code) {
		return 0, fmt.Errorf("%w: %s %d", ErrUnknownCode, s.name, code)
	}
	return T(code), nil
}

var registry map[string]*Set

func init() {
	all := []*Set{
		BaudRates, DataBitsSet, StopBitsSet, Parities, FlowControls,
		SerialPortTypes, EthernetPortTypes, PortTypes,
		SerialProtocols, EthernetProtocols, ProtocolTypes,
		MitsubishiModels, SiemensModels, PlcModels,
		MitsubishiRegisters, SiemensRegisters, PlcRegisters,
		Conversions,
	}
	registry = make(map[string]*Set, len(all))
	for _, s := range all {
		if _, dup := registry[s.name]; dup {
			panic("enums: duplicate set " + s.name)
		}
		registry[s.name] = s
	}
}

// Lookup returns the named set.
func Lookup(name string) (*Set, bool) {
	s, ok := registry[name]
	return s, ok
}

// Names lists all registered set names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
