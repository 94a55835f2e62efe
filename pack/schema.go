// Package pack stores program settings in a single 64-bit word described by
// an ordered list of named bit fields.
package pack

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
)

// MaxWidth is the total number of bits available to one program
const MaxWidth = 64

var (
	ErrTooWide   = errors.New("schema wider than 64 bits")
	ErrDuplicate = errors.New("duplicate field name")
	ErrNoField   = errors.New("unknown field")
)

// Field is a named bit field
type Field struct {
	Name  string
	Width uint
}

// Location is where a field lives in the packed word
type Location struct {
	Offset uint
	Width  uint
}

func (l Location) mask() uint64 {
	if l.Width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << l.Width) - 1
}

// Pack stores value at loc, replacing whatever was there
func Pack(data uint64, loc Location, value uint64) uint64 {
	m := loc.mask()
	data &^= m << loc.Offset
	return data | (value&m)<<loc.Offset
}

// Unpack reads the field at loc
func Unpack(data uint64, loc Location) uint64 {
	return (data >> loc.Offset) & loc.mask()
}

// PackSigned stores a two's complement value in width bits
func PackSigned(v int64, width uint) uint64 {
	return uint64(v) & Location{Width: width}.mask()
}

// UnpackSigned sign-extends a width bit field
func UnpackSigned(u uint64, width uint) int64 {
	if width == 0 || width >= 64 {
		return int64(u)
	}
	shift := 64 - width
	return int64(u<<shift) >> shift
}

// Schema is a versioned, ordered field layout. Offsets follow field order
// starting at bit 0.
type Schema struct {
	Version uint8
	Fields  []Field

	locs  map[string]Location
	width uint
}

// NewSchema builds a schema and checks it fits in 64 bits
func NewSchema(version uint8, fields ...Field) (*Schema, error) {
	s := &Schema{
		Version: version,
		Fields:  fields,
		locs:    make(map[string]Location, len(fields)),
	}
	for _, f := range fields {
		if _, ok := s.locs[f.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicate, f.Name)
		}
		s.locs[f.Name] = Location{Offset: s.width, Width: f.Width}
		s.width += f.Width
	}
	if s.width > MaxWidth {
		return nil, fmt.Errorf("%w: %d bits", ErrTooWide, s.width)
	}
	return s, nil
}

// MustSchema is NewSchema for layouts fixed at compile time
func MustSchema(version uint8, fields ...Field) *Schema {
	s, err := NewSchema(version, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Width returns the total number of bits used
func (s *Schema) Width() uint {
	return s.width
}

// Location returns where the named field lives
func (s *Schema) Location(name string) (Location, bool) {
	l, ok := s.locs[name]
	return l, ok
}

// Get reads a named field, zero when unknown
func (s *Schema) Get(data uint64, name string) uint64 {
	l, ok := s.locs[name]
	if !ok {
		return 0
	}
	return Unpack(data, l)
}

// GetSigned reads a named two's complement field
func (s *Schema) GetSigned(data uint64, name string) int64 {
	l, ok := s.locs[name]
	if !ok {
		return 0
	}
	return UnpackSigned(Unpack(data, l), l.Width)
}

// Set writes a named field
func (s *Schema) Set(data uint64, name string, value uint64) (uint64, error) {
	l, ok := s.locs[name]
	if !ok {
		return data, fmt.Errorf("%w: %q", ErrNoField, name)
	}
	return Pack(data, l, value), nil
}

// SetSigned writes a named two's complement field
func (s *Schema) SetSigned(data uint64, name string, value int64) (uint64, error) {
	l, ok := s.locs[name]
	if !ok {
		return data, fmt.Errorf("%w: %q", ErrNoField, name)
	}
	return Pack(data, l, PackSigned(value, l.Width)), nil
}

// Encode packs the given values; missing fields are zero
func (s *Schema) Encode(values map[string]uint64) (uint64, error) {
	var data uint64
	for name, v := range values {
		l, ok := s.locs[name]
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrNoField, name)
		}
		data = Pack(data, l, v)
	}
	return data, nil
}

// Decode unpacks every field
func (s *Schema) Decode(data uint64) map[string]uint64 {
	out := make(map[string]uint64, len(s.Fields))
	for _, f := range s.Fields {
		out[f.Name] = Unpack(data, s.locs[f.Name])
	}
	return out
}

// Fingerprint hashes the version and layout so a changed layout is detected
// on load
func (s *Schema) Fingerprint() uint32 {
	h := fnv.New32a()
	h.Write([]byte{s.Version})
	var w [2]byte
	for _, f := range s.Fields {
		h.Write([]byte(f.Name))
		binary.LittleEndian.PutUint16(w[:], uint16(f.Width))
		h.Write(w[:])
	}
	return h.Sum32()
}
