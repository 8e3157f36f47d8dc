package enums

// Conversion is the decode rule applied to raw register words of an IO.
type Conversion int

const (
	ConversionBool    Conversion = 1
	ConversionInt16   Conversion = 2
	ConversionUint16  Conversion = 3
	ConversionInt32   Conversion = 4
	ConversionUint32  Conversion = 5
	ConversionFloat32 Conversion = 6
	ConversionFloat64 Conversion = 7
	ConversionString  Conversion = 8
)

var Conversions = newSet("conversion",
	Option{"BOOL", 1},
	Option{"INT16", 2},
	Option{"UINT16", 3},
	Option{"INT32", 4},
	Option{"UINT32", 5},
	Option{"FLOAT32", 6},
	Option{"FLOAT64", 7},
	Option{"STRING", 8},
)

func (c Conversion) String() string { return Conversions.labelOr(int(c)) }

// Words returns the number of 16-bit words one value occupies, or 0 for
// variable-width conversions.
func (c Conversion) Words() int {
	switch c {
	case ConversionBool, ConversionInt16, ConversionUint16:
		return 1
	case ConversionInt32, ConversionUint32, ConversionFloat32:
		return 2
	case ConversionFloat64:
		return 4
	}
	return 0
}

func ParseConversion(code int) (Conversion, error) { return parseCode[Conversion](Conversions, code) }
