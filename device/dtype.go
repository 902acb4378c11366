package device

import "fmt"

// DType identifies the element type of a device array. The set is closed:
// operations that dispatch on it match every member explicitly and fail fast
// on anything they do not implement.
type DType uint8

const (
	Int32 DType = iota + 1
	Int64
	Float32
	Float64
)

// Size returns the element width in bytes.
func (d DType) Size() int {
	switch d {
	case Int32, Float32:
		return 4
	case Int64, Float64:
		return 8
	}
	return 0
}

func (d DType) String() string {
	switch d {
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	}
	return fmt.Sprintf("dtype(%d)", uint8(d))
}

// ParseDType maps a name to a DType, for CLI flag handling.
func ParseDType(s string) (DType, error) {
	switch s {
	case "int32":
		return Int32, nil
	case "int64":
		return Int64, nil
	case "float32":
		return Float32, nil
	case "float64":
		return Float64, nil
	}
	return 0, fmt.Errorf("unknown dtype %q", s)
}
