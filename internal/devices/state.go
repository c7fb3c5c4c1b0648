package devices

// DeviceType is the canonical classification a provider category maps onto
type DeviceType string

const (
	TypeLight   DeviceType = "light"
	TypeSwitch  DeviceType = "switch"
	TypeOutlet  DeviceType = "outlet"
	TypeFan     DeviceType = "fan"
	TypeCover   DeviceType = "cover"
	TypeClimate DeviceType = "climate"
	TypeSensor  DeviceType = "sensor"
	TypeGarage  DeviceType = "garage"
)

// Canonical numeric ranges. Every translated value is clamped into these at
// the boundary; out-of-range inputs are clamped with a warning rather than
// propagated.
const (
	BrightnessMin = 0
	BrightnessMax = 100
	HueMin        = 0
	HueMax        = 360
	PercentMin    = 0
	PercentMax    = 100
	MiredMin      = 140
	MiredMax      = 500
)

// HSV is a canonical colour: hue 0-360, saturation and value 0-100
type HSV struct {
	Hue        int `json:"hue"`
	Saturation int `json:"saturation"`
	Value      int `json:"value"`
}

// DeviceState is the normalized, scale-independent representation of a
// device's properties used by every consumer above this core
type DeviceState struct {
	On             bool   `json:"on"`
	Brightness     int    `json:"brightness"`       // 0-100
	Color          *HSV   `json:"color,omitempty"`
	ColorTempMired int    `json:"color_temp_mired"` // 140-500
	FanSpeed       int    `json:"fan_speed"`        // 0-100
	Mode           string `json:"mode,omitempty"`
	Position       int    `json:"position"`         // 0-100
	Online         bool   `json:"online"`
}

// Intent is a partial canonical state change. Nil fields are left untouched;
// the translator converts set fields into provider commands.
type Intent struct {
	On             *bool   `json:"on,omitempty"`
	Brightness     *int    `json:"brightness,omitempty"`
	Color          *HSV    `json:"color,omitempty"`
	ColorTempMired *int    `json:"color_temp_mired,omitempty"`
	FanSpeed       *int    `json:"fan_speed,omitempty"`
	Mode           *string `json:"mode,omitempty"`
	Position       *int    `json:"position,omitempty"`
}

// Summary describes one discovered device for consumers that only need
// identity and classification
type Summary struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Category string     `json:"category"`
	Type     DeviceType `json:"type"`
	Online   bool       `json:"online"`
}
