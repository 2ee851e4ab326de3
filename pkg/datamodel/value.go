package datamodel

import "fmt"

// ValueType tags the payload carried by a Value.
type ValueType uint8

const (
	TypeInvalid ValueType = iota
	TypeBoolean
	TypeInt8
	TypeInt16
	TypeInt32
	TypeInt64
	TypeUint8
	TypeUint16
	TypeUint32
	TypeUint64
	TypeEnum8
	TypeEnum16
	TypeBitmap8
	TypeBitmap16
	TypeBitmap32
	TypeFloat
	TypeCharString
	TypeOctetString
)

var valueTypeNames = map[ValueType]string{
	TypeInvalid:     "Invalid",
	TypeBoolean:     "Boolean",
	TypeInt8:        "Int8",
	TypeInt16:       "Int16",
	TypeInt32:       "Int32",
	TypeInt64:       "Int64",
	TypeUint8:       "Uint8",
	TypeUint16:      "Uint16",
	TypeUint32:      "Uint32",
	TypeUint64:      "Uint64",
	TypeEnum8:       "Enum8",
	TypeEnum16:      "Enum16",
	TypeBitmap8:     "Bitmap8",
	TypeBitmap16:    "Bitmap16",
	TypeBitmap32:    "Bitmap32",
	TypeFloat:       "Float",
	TypeCharString:  "CharString",
	TypeOctetString: "OctetString",
}

// String returns the name of the value type.
func (t ValueType) String() string {
	if name, ok := valueTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ValueType(%d)", uint8(t))
}

// Value is a tagged attribute value: a type tag plus the payload for that tag.
//
// Integer-like types (enums and bitmaps included) share the Int/Uint fields.
// Construct values with the typed constructors (Bool, Uint8, Enum8, ...) and
// read them back with the matching As* accessor, which fails with
// ErrTypeMismatch when the tag differs.
type Value struct {
	Type     ValueType `cbor:"1,keyasint"`
	Nullable bool      `cbor:"2,keyasint,omitempty"`
	Null     bool      `cbor:"3,keyasint,omitempty"`
	Bool     bool      `cbor:"4,keyasint,omitempty"`
	Int      int64     `cbor:"5,keyasint,omitempty"`
	Uint     uint64    `cbor:"6,keyasint,omitempty"`
	Float    float32   `cbor:"7,keyasint,omitempty"`
	String   string    `cbor:"8,keyasint,omitempty"`
	Bytes    []byte    `cbor:"9,keyasint,omitempty"`
}

// Bool returns a boolean value.
func Bool(v bool) Value { return Value{Type: TypeBoolean, Bool: v} }

// Int8 returns a signed 8-bit value.
func Int8(v int8) Value { return Value{Type: TypeInt8, Int: int64(v)} }

// Int16 returns a signed 16-bit value.
func Int16(v int16) Value { return Value{Type: TypeInt16, Int: int64(v)} }

// Int32 returns a signed 32-bit value.
func Int32(v int32) Value { return Value{Type: TypeInt32, Int: int64(v)} }

// Int64 returns a signed 64-bit value.
func Int64(v int64) Value { return Value{Type: TypeInt64, Int: v} }

// Uint8 returns an unsigned 8-bit value.
func Uint8(v uint8) Value { return Value{Type: TypeUint8, Uint: uint64(v)} }

// Uint16 returns an unsigned 16-bit value.
func Uint16(v uint16) Value { return Value{Type: TypeUint16, Uint: uint64(v)} }

// Uint32 returns an unsigned 32-bit value.
func Uint32(v uint32) Value { return Value{Type: TypeUint32, Uint: uint64(v)} }

// Uint64 returns an unsigned 64-bit value.
func Uint64(v uint64) Value { return Value{Type: TypeUint64, Uint: v} }

// Enum8 returns an 8-bit enumeration value.
func Enum8(v uint8) Value { return Value{Type: TypeEnum8, Uint: uint64(v)} }

// Enum16 returns a 16-bit enumeration value.
func Enum16(v uint16) Value { return Value{Type: TypeEnum16, Uint: uint64(v)} }

// Bitmap8 returns an 8-bit bitmap value.
func Bitmap8(v uint8) Value { return Value{Type: TypeBitmap8, Uint: uint64(v)} }

// Bitmap16 returns a 16-bit bitmap value.
func Bitmap16(v uint16) Value { return Value{Type: TypeBitmap16, Uint: uint64(v)} }

// Bitmap32 returns a 32-bit bitmap value.
func Bitmap32(v uint32) Value { return Value{Type: TypeBitmap32, Uint: uint64(v)} }

// Float returns a single precision float value.
func Float(v float32) Value { return Value{Type: TypeFloat, Float: v} }

// CharString returns a UTF-8 string value.
func CharString(v string) Value { return Value{Type: TypeCharString, String: v} }

// OctetString returns a byte string value. The slice is copied.
func OctetString(v []byte) Value {
	return Value{Type: TypeOctetString, Bytes: append([]byte(nil), v...)}
}

// Null returns a null value of the given nullable type.
func Null(t ValueType) Value {
	return Value{Type: t, Nullable: true, Null: true}
}

// AsNullable marks v as belonging to a nullable attribute.
func (v Value) AsNullable() Value {
	v.Nullable = true
	return v
}

// NullableUint64 returns a nullable uint64 value; nil yields null.
func NullableUint64(v *uint64) Value {
	if v == nil {
		return Null(TypeUint64)
	}
	return Uint64(*v).AsNullable()
}

// NullableUint8 returns a nullable uint8 value; nil yields null.
func NullableUint8(v *uint8) Value {
	if v == nil {
		return Null(TypeUint8)
	}
	return Uint8(*v).AsNullable()
}

// NullableEnum8 returns a nullable enum8 value; nil yields null.
func NullableEnum8(v *uint8) Value {
	if v == nil {
		return Null(TypeEnum8)
	}
	return Enum8(*v).AsNullable()
}

// NullableInt32 returns a nullable int32 value; nil yields null.
func NullableInt32(v *int32) Value {
	if v == nil {
		return Null(TypeInt32)
	}
	return Int32(*v).AsNullable()
}

// IsNull reports whether v is a null nullable value.
func (v Value) IsNull() bool {
	return v.Nullable && v.Null
}

// IsValid reports whether v carries a known type tag.
func (v Value) IsValid() bool {
	return v.Type != TypeInvalid && v.Type <= TypeOctetString
}

// Equal reports whether two values have the same type, nullability and payload.
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type || v.IsNull() != o.IsNull() {
		return false
	}
	if v.IsNull() {
		return true
	}
	return v.Bool == o.Bool && v.Int == o.Int && v.Uint == o.Uint &&
		v.Float == o.Float && v.String == o.String && string(v.Bytes) == string(o.Bytes)
}

func (v Value) expect(t ValueType) error {
	if v.Type != t {
		return fmt.Errorf("%w: have %s, want %s", ErrTypeMismatch, v.Type, t)
	}
	if v.IsNull() {
		return ErrNullValue
	}
	return nil
}

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, error) {
	if err := v.expect(TypeBoolean); err != nil {
		return false, err
	}
	return v.Bool, nil
}

// AsInt32 returns the signed 32-bit payload.
func (v Value) AsInt32() (int32, error) {
	if err := v.expect(TypeInt32); err != nil {
		return 0, err
	}
	return int32(v.Int), nil
}

// AsInt64 returns the signed 64-bit payload.
func (v Value) AsInt64() (int64, error) {
	if err := v.expect(TypeInt64); err != nil {
		return 0, err
	}
	return v.Int, nil
}

// AsUint8 returns the unsigned 8-bit payload.
func (v Value) AsUint8() (uint8, error) {
	if err := v.expect(TypeUint8); err != nil {
		return 0, err
	}
	return uint8(v.Uint), nil
}

// AsUint16 returns the unsigned 16-bit payload.
func (v Value) AsUint16() (uint16, error) {
	if err := v.expect(TypeUint16); err != nil {
		return 0, err
	}
	return uint16(v.Uint), nil
}

// AsUint32 returns the unsigned 32-bit payload.
func (v Value) AsUint32() (uint32, error) {
	if err := v.expect(TypeUint32); err != nil {
		return 0, err
	}
	return uint32(v.Uint), nil
}

// AsUint64 returns the unsigned 64-bit payload.
func (v Value) AsUint64() (uint64, error) {
	if err := v.expect(TypeUint64); err != nil {
		return 0, err
	}
	return v.Uint, nil
}

// AsEnum8 returns the 8-bit enumeration payload.
func (v Value) AsEnum8() (uint8, error) {
	if err := v.expect(TypeEnum8); err != nil {
		return 0, err
	}
	return uint8(v.Uint), nil
}

// AsBitmap8 returns the 8-bit bitmap payload.
func (v Value) AsBitmap8() (uint8, error) {
	if err := v.expect(TypeBitmap8); err != nil {
		return 0, err
	}
	return uint8(v.Uint), nil
}

// AsBitmap16 returns the 16-bit bitmap payload.
func (v Value) AsBitmap16() (uint16, error) {
	if err := v.expect(TypeBitmap16); err != nil {
		return 0, err
	}
	return uint16(v.Uint), nil
}

// AsBitmap32 returns the 32-bit bitmap payload.
func (v Value) AsBitmap32() (uint32, error) {
	if err := v.expect(TypeBitmap32); err != nil {
		return 0, err
	}
	return uint32(v.Uint), nil
}

// AsCharString returns the string payload.
func (v Value) AsCharString() (string, error) {
	if err := v.expect(TypeCharString); err != nil {
		return "", err
	}
	return v.String, nil
}

// AsOctetString returns a copy of the byte string payload.
func (v Value) AsOctetString() ([]byte, error) {
	if err := v.expect(TypeOctetString); err != nil {
		return nil, err
	}
	return append([]byte(nil), v.Bytes...), nil
}

// Format renders the payload for logs and CLI output.
func (v Value) Format() string {
	if v.IsNull() {
		return "null"
	}
	switch v.Type {
	case TypeBoolean:
		return fmt.Sprintf("%t", v.Bool)
	case TypeInt8, TypeInt16, TypeInt32, TypeInt64:
		return fmt.Sprintf("%d", v.Int)
	case TypeBitmap8, TypeBitmap16, TypeBitmap32:
		return fmt.Sprintf("0x%X", v.Uint)
	case TypeUint8, TypeUint16, TypeUint32, TypeUint64, TypeEnum8, TypeEnum16:
		return fmt.Sprintf("%d", v.Uint)
	case TypeFloat:
		return fmt.Sprintf("%g", v.Float)
	case TypeCharString:
		return fmt.Sprintf("%q", v.String)
	case TypeOctetString:
		return fmt.Sprintf("%X", v.Bytes)
	default:
		return "invalid"
	}
}
