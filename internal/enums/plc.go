package enums

import "fmt"

type Vendor uint8

const (
	VendorMitsubishi Vendor = iota + 1
	VendorSiemens
)

func (v Vendor) String() string {
	switch v {
	case VendorMitsubishi:
		return "Mitsubishi"
	case VendorSiemens:
		return "Siemens"
	default:
		return "unknown"
	}
}

func (v Vendor) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// PlcModel is a PLC model tagged by vendor.
type PlcModel interface {
	Code() int
	Vendor() Vendor
	String() string
	isPlcModel()
}

type MitsubishiModel int

const (
	Fx3  MitsubishiModel = 1
	Fx5  MitsubishiModel = 2
	QCPU MitsubishiModel = 3
)

type SiemensModel int

const (
	S7200Smart SiemensModel = 11
	S7200      SiemensModel = 12
	S7300      SiemensModel = 13
	S7400      SiemensModel = 14
	S71200     SiemensModel = 15
	S71500     SiemensModel = 16
)

// PlcRegister is a PLC address space tagged by vendor. Mitsubishi and Siemens
// register sets are disjoint even where the letters match (M, V).
type PlcRegister interface {
	Code() int
	Vendor() Vendor
	String() string
	isPlcRegister()
}

type MitsubishiRegister int

const (
	MitsubishiX  MitsubishiRegister = 1
	MitsubishiY  MitsubishiRegister = 2
	MitsubishiM  MitsubishiRegister = 3
	MitsubishiD  MitsubishiRegister = 4
	MitsubishiW  MitsubishiRegister = 5
	MitsubishiL  MitsubishiRegister = 6
	MitsubishiR  MitsubishiRegister = 7
	MitsubishiF  MitsubishiRegister = 8
	MitsubishiV  MitsubishiRegister = 9
	MitsubishiB  MitsubishiRegister = 10
	MitsubishiZ  MitsubishiRegister = 11
	MitsubishiZR MitsubishiRegister = 12
)

type SiemensRegister int

const (
	SiemensI  SiemensRegister = 21
	SiemensQ  SiemensRegister = 22
	SiemensM  SiemensRegister = 23
	SiemensDB SiemensRegister = 24
	SiemensT  SiemensRegister = 25
	SiemensC  SiemensRegister = 26
	SiemensV  SiemensRegister = 27
)

var (
	MitsubishiModels = newSet("mitsubishiPlcModel",
		Option{"Fx3", 1},
		Option{"Fx5", 2},
		Option{"Q_CPU", 3},
	)
	SiemensModels = newSet("siemensPlcModel",
		Option{"S7_200Smart", 11},
		Option{"S7_200", 12},
		Option{"S7_300", 13},
		Option{"S7_400", 14},
		Option{"S7_1200", 15},
		Option{"S7_1500", 16},
	)
	PlcModels = unionSet("plcModel", MitsubishiModels, SiemensModels)

	MitsubishiRegisters = newSet("mitsubishiRegister",
		Option{"X", 1},
		Option{"Y", 2},
		Option{"M", 3},
		Option{"D", 4},
		Option{"W", 5},
		Option{"L", 6},
		Option{"R", 7},
		Option{"F", 8},
		Option{"V", 9},
		Option{"B", 10},
		Option{"Z", 11},
		Option{"ZR", 12},
	)
	SiemensRegisters = newSet("siemensRegister",
		Option{"I", 21},
		Option{"Q", 22},
		Option{"M", 23},
		Option{"DB", 24},
		Option{"T", 25},
		Option{"C", 26},
		Option{"V", 27},
	)
	PlcRegisters = unionSet("plcRegister", MitsubishiRegisters, SiemensRegisters)
)

func (m MitsubishiModel) Code() int      { return int(m) }
func (MitsubishiModel) Vendor() Vendor   { return VendorMitsubishi }
func (m MitsubishiModel) String() string { return MitsubishiModels.labelOr(int(m)) }
func (MitsubishiModel) isPlcModel()      {}

func (m SiemensModel) Code() int      { return int(m) }
func (SiemensModel) Vendor() Vendor   { return VendorSiemens }
func (m SiemensModel) String() string { return SiemensModels.labelOr(int(m)) }
func (SiemensModel) isPlcModel()      {}

func (r MitsubishiRegister) Code() int      { return int(r) }
func (MitsubishiRegister) Vendor() Vendor   { return VendorMitsubishi }
func (r MitsubishiRegister) String() string { return MitsubishiRegisters.labelOr(int(r)) }
func (MitsubishiRegister) isPlcRegister()   {}

func (r SiemensRegister) Code() int      { return int(r) }
func (SiemensRegister) Vendor() Vendor   { return VendorSiemens }
func (r SiemensRegister) String() string { return SiemensRegisters.labelOr(int(r)) }
func (SiemensRegister) isPlcRegister()   {}

func ParsePlcModel(code int) (PlcModel, error) {
	switch {
	case MitsubishiModels.Contains(code):
		return MitsubishiModel(code), nil
	case SiemensModels.Contains(code):
		return SiemensModel(code), nil
	}
	return nil, fmt.Errorf("%w: plcModel %d", ErrUnknownCode, code)
}

func ParsePlcRegister(code int) (PlcRegister, error) {
	switch {
	case MitsubishiRegisters.Contains(code):
		return MitsubishiRegister(code), nil
	case SiemensRegisters.Contains(code):
		return SiemensRegister(code), nil
	}
	return nil, fmt.Errorf("%w: plcRegister %d", ErrUnknownCode, code)
}

// RegistersFor returns the register set addressable on PLCs of vendor v.
func RegistersFor(v Vendor) *Set {
	switch v {
	case VendorMitsubishi:
		return MitsubishiRegisters
	case VendorSiemens:
		return SiemensRegisters
	}
	return nil
}

// ModelsFor returns the model set of vendor v.
func ModelsFor(v Vendor) *Set {
	switch v {
	case VendorMitsubishi:
		return MitsubishiModels
	case VendorSiemens:
		return SiemensModels
	}
	return nil
}
