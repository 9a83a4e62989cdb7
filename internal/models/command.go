package models

// PayloadStyle selects the argument shape for commands where device
// implementations disagree (notably TV remote key-presses).
type PayloadStyle string

const (
	// PayloadStyleKeyCode sends [{"keyCode": "<key>"}] (default).
	PayloadStyleKeyCode PayloadStyle = "keyCodeObject"
	// PayloadStyleString sends ["<key>"].
	PayloadStyleString PayloadStyle = "string"
	// PayloadStyleCustom sends caller-supplied arguments verbatim.
	PayloadStyleCustom PayloadStyle = "custom"
)

// Valid reports whether the style is one of the known variants.
// The empty string is valid and means "use the default".
func (p PayloadStyle) Valid() bool {
	switch p {
	case "", PayloadStyleKeyCode, PayloadStyleString, PayloadStyleCustom:
		return true
	}
	return false
}

// DeviceCommand is a single SmartThings capability invocation, as accepted
// by POST /devices/{id}/commands on the vendor API.
type DeviceCommand struct {
	Component  string        `json:"component"`
	Capability string        `json:"capability"`
	Command    string        `json:"command"`
	Arguments  []interface{} `json:"arguments,omitempty"`
}
