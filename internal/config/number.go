package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// Number is a float that remembers the text it was entered as, so "1.0e-3"
// is stored back as "1.0e-3" rather than "0.001".
type Number struct {
	text  string
	value float64
}

func NewNumber(v float64) Number {
	return Number{text: strconv.FormatFloat(v, 'g', -1, 64), value: v}
}

// ParseNumber accepts anything spf13/cast reads as a float64.
func ParseNumber(s string) (Number, error) {
	s = strings.TrimSpace(s)
	v, err := cast.ToFloat64E(s)
	if err != nil {
		return Number{}, fmt.Errorf("invalid number %q", s)
	}
	return Number{text: s, value: v}, nil
}

func (n Number) Float() float64 { return n.value }

func (n Number) String() string {
	if n.text == "" {
		return strconv.FormatFloat(n.value, 'g', -1, 64)
	}
	return n.text
}

// MarshalYAML writes the text as a plain scalar.
func (n Number) MarshalYAML() (interface{}, error) {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: n.String()}, nil
}

func (n *Number) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number", node.Line)
	}
	parsed, err := ParseNumber(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*n = parsed
	return nil
}
