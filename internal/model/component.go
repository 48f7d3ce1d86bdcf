// internal/model/component.go
package model

import (
	"bytes"
	"encoding/json"
)

// Field capacities of a component, in bytes.
const (
	ComponentFieldSize    = 20
	ComponentValueSize    = 10
	ComponentIDSuffixSize = 6
)

// Direction codes seen in descriptors. Any other byte is stored as-is.
const (
	DirectionInput  byte = 'i'
	DirectionOutput byte = 'o'
)

// descriptorField is the scanner state of SetInfo: the field currently being
// accumulated.
type descriptorField int

const (
	fieldDirection descriptorField = iota
	fieldType
	fieldModel
	fieldUnits
	fieldIgnored
)

// ComponentInfo is the machine-readable record of a component's descriptor.
// Key names and their order are part of the published record format.
type ComponentInfo struct {
	Dir   string `json:"dir"`
	Type  string `json:"type"`
	Model string `json:"model"`
	Units string `json:"units"`
}

// Component holds the descriptor and last reading of one measurement channel.
//
// All text is kept in fixed-capacity buffers. Overlong input is truncated and
// fields that a descriptor does not mention keep their previous content. The
// zero value is an empty component.
type Component struct {
	direction byte
	typ       text
	model     text
	units     text
	value     text
	idSuffix  text
}

// SetInfo parses a descriptor of the form "<dir>,<type>,<model>,<units>".
//
// The first byte becomes the direction. Each comma starts the next field; a
// field is rewritten only if its comma is present, so a short descriptor
// leaves the trailing fields stale. Fields are cut at ComponentFieldSize bytes
// and a fourth comma ends the scan of useful data. SetInfo never fails.
func (c *Component) SetInfo(descriptor string) {
	c.direction = 0
	if len(descriptor) > 0 {
		c.direction = descriptor[0]
	}

	field := fieldDirection
	for i := 0; i < len(descriptor); i++ {
		ch := descriptor[i]
		if ch == ',' {
			if field < fieldUnits {
				field++
				c.field(field).reset()
			} else {
				field = fieldIgnored
			}
			continue
		}
		if dst := c.field(field); dst != nil {
			dst.appendByte(ch, ComponentFieldSize)
		}
	}

	// Six bytes, although the suffix was once described as the first five.
	c.idSuffix.set(c.typ.String(), ComponentIDSuffixSize)
}

func (c *Component) field(f descriptorField) *text {
	switch f {
	case fieldType:
		return &c.typ
	case fieldModel:
		return &c.model
	case fieldUnits:
		return &c.units
	default:
		return nil
	}
}

// SetValue stores the latest reading as text, truncated to ComponentValueSize.
func (c *Component) SetValue(value string) {
	c.value.set(value, ComponentValueSize)
}

// Direction returns the raw direction byte, zero if never set.
func (c *Component) Direction() byte { return c.direction }

// Type returns the measurement kind, e.g. "CO2".
func (c *Component) Type() string { return c.typ.String() }

// Model returns the sensing hardware model, e.g. "K-30".
func (c *Component) Model() string { return c.model.String() }

// Units returns the measurement unit, e.g. "PPM".
func (c *Component) Units() string { return c.units.String() }

// Value returns the last reading as received.
func (c *Component) Value() string { return c.value.String() }

// IDSuffix returns the type-derived part of the component's external id.
func (c *Component) IDSuffix() string { return c.idSuffix.String() }

// IsInput reports whether the component produces readings.
func (c *Component) IsInput() bool { return c.direction == DirectionInput }

// IsOutput reports whether the component accepts actuator values.
func (c *Component) IsOutput() bool { return c.direction == DirectionOutput }

// Info returns the descriptor record. The direction is rendered as a one
// character string, or "" when unset.
func (c *Component) Info() ComponentInfo {
	info := ComponentInfo{
		Type:  c.typ.String(),
		Model: c.model.String(),
		Units: c.units.String(),
	}
	if c.direction != 0 {
		info.Dir = string([]byte{c.direction})
	}
	return info
}

// InfoJSON returns Info as compact JSON. HTML characters are written as is.
// Fields are byte-bounded, so a multi-byte character cut at the bound is
// encoded as U+FFFD.
func (c *Component) InfoJSON() []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// string-only struct, Encode cannot fail
	_ = enc.Encode(c.Info())
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
}
