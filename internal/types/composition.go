package types

// DeviceTypeDefinition is the on-disk template format for a device type.
type DeviceTypeDefinition struct {
	DeviceType DeviceTypeInfo       `json:"device_type" yaml:"device_type"`
	Ports      []PortTemplateConfig `json:"ports" yaml:"ports"`
}

type DeviceTypeInfo struct {
	Name        string `json:"name" yaml:"name"`
	Model       string `json:"model" yaml:"model"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

type PortTemplateConfig struct {
	PortName string `json:"port_name" yaml:"port_name"`
	// PortType is a port type label, e.g. "RS485" or "Monitor".
	PortType    string `json:"port_type" yaml:"port_type"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}
