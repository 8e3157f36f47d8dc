package enums

// BaudRate codes are the rate itself.
type BaudRate int

const (
	Baud9600   BaudRate = 9600
	Baud19200  BaudRate = 19200
	Baud38400  BaudRate = 38400
	Baud57600  BaudRate = 57600
	Baud115200 BaudRate = 115200
)

type DataBits int

const (
	DataBits5 DataBits = 5
	DataBits6 DataBits = 6
	DataBits7 DataBits = 7
	DataBits8 DataBits = 8
)

type StopBits int

const (
	StopBits1 StopBits = 1
	StopBits2 StopBits = 2
)

type Parity int

const (
	ParityNone  Parity = 1
	ParityEven  Parity = 2
	ParityOdd   Parity = 3
	ParityMark  Parity = 4
	ParitySpace Parity = 5
)

type FlowControl int

const (
	FlowControlNone     FlowControl = 1
	FlowControlHardware FlowControl = 2
	FlowControlSoftware FlowControl = 3
)

var (
	BaudRates = newSet("baudRate",
		Option{"9600", 9600},
		Option{"19200", 19200},
		Option{"38400", 38400},
		Option{"57600", 57600},
		Option{"115200", 115200},
	)
	DataBitsSet = newSet("dataBits",
		Option{"5", 5},
		Option{"6", 6},
		Option{"7", 7},
		Option{"8", 8},
	)
	StopBitsSet = newSet("stopBits",
		Option{"1", 1},
		Option{"2", 2},
	)
	Parities = newSet("parity",
		Option{"None", 1},
		Option{"Even", 2},
		Option{"Odd", 3},
		Option{"Mark", 4},
		Option{"Space", 5},
	)
	FlowControls = newSet("flowControl",
		Option{"None", 1},
		Option{"Hardware", 2},
		Option{"Software", 3},
	)
)

func (b BaudRate) String() string    { return BaudRates.labelOr(int(b)) }
func (d DataBits) String() string    { return DataBitsSet.labelOr(int(d)) }
func (s StopBits) String() string    { return StopBitsSet.labelOr(int(s)) }
func (p Parity) String() string      { return Parities.labelOr(int(p)) }
func (f FlowControl) String() string { return FlowControls.labelOr(int(f)) }

func ParseBaudRate(code int) (BaudRate, error)       { return parseCode[BaudRate](BaudRates, code) }
func ParseDataBits(code int) (DataBits, error)       { return parseCode[DataBits](DataBitsSet, code) }
func ParseStopBits(code int) (StopBits, error)       { return parseCode[StopBits](StopBitsSet, code) }
func ParseParity(code int) (Parity, error)           { return parseCode[Parity](Parities, code) }
func ParseFlowControl(code int) (FlowControl, error) { return parseCode[FlowControl](FlowControls, code) }
