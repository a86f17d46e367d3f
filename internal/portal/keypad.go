package portal

import (
	"strconv"
	"strings"
)

// KeypadEncoder turns password digits into the payload the portal's virtual
// keypad submits. The portal's keypad protocol has varied across revisions,
// so encoders are swappable behind this interface.
type KeypadEncoder interface {
	Encode(digits []int) string
	Name() string
}

// DigitEncoder encodes each digit as its integer value: 1,2,3.
type DigitEncoder struct{}

// Name returns the encoder name.
func (DigitEncoder) Name() string { return "digit" }

// Encode joins the digit values with commas.
func (DigitEncoder) Encode(digits []int) string {
	parts := make([]string, len(digits))
	for i, d := range digits {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}

// OrdinalEncoder encodes each digit as its character ordinal: "1" -> 49.
// Legacy portal variants expect this form.
type OrdinalEncoder struct{}

// Name returns the encoder name.
func (OrdinalEncoder) Name() string { return "ordinal" }

// Encode joins the character ordinals with commas.
func (OrdinalEncoder) Encode(digits []int) string {
	parts := make([]string, len(digits))
	for i, d := range digits {
		parts[i] = strconv.Itoa('0' + d)
	}
	return strings.Join(parts, ",")
}

// EncoderRegistry holds named keypad encoders.
type EncoderRegistry struct {
	encoders map[string]KeypadEncoder
}

// NewEncoderRegistry creates an empty registry.
func NewEncoderRegistry() *EncoderRegistry {
	return &EncoderRegistry{encoders: make(map[string]KeypadEncoder)}
}

// Register adds an encoder. Panics on duplicate name.
func (r *EncoderRegistry) Register(e KeypadEncoder) {
	key := strings.ToLower(e.Name())
	if _, ok := r.encoders[key]; ok {
		panic("duplicate keypad encoder: " + key)
	}
	r.encoders[key] = e
}

// Get returns the encoder for name, or nil. The empty name returns the
// default digit encoder.
func (r *EncoderRegistry) Get(name string) KeypadEncoder {
	if name == "" {
		name = DigitEncoder{}.Name()
	}
	return r.encoders[strings.ToLower(name)]
}

// DefaultEncoders returns a registry with all built-in encoders.
func DefaultEncoders() *EncoderRegistry {
	r := NewEncoderRegistry()
	r.Register(DigitEncoder{})
	r.Register(OrdinalEncoder{})
	return r
}
