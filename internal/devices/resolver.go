package devices

import (
	"sort"
	"strings"
)

// Provider status codes with versioned variants. v2 codes use extended
// numeric ranges and are always preferred when both generations are present.
const (
	CodeSwitchLED = "switch_led"
	CodeSwitch1   = "switch_1"
	CodeSwitch    = "switch"

	CodeBrightnessV2 = "bright_value_v2"
	CodeBrightnessV1 = "bright_value"

	CodeColourV2 = "colour_data_v2"
	CodeColourV1 = "colour_data"

	CodeTempValueV2 = "temp_value_v2"
	CodeTempValueV1 = "temp_value"

	CodeWorkMode = "work_mode"

	CodeFanSpeedPercent = "fan_speed_percent"
	CodeFanSpeedLegacy  = "fan_speed"

	CodePercentControl = "percent_control"
	CodeControl        = "control"
)

// CodeMapping records, per device, which versioned status codes apply to each
// capability. It is computed once at discovery and treated as immutable
// configuration data afterwards.
type CodeMapping struct {
	Category string     `json:"category"`
	Type     DeviceType `json:"device_type"`

	SwitchCode     string `json:"switch_code,omitempty"`
	BrightnessCode string `json:"brightness_code,omitempty"`
	ColourCode     string `json:"colour_code,omitempty"`
	TempValueCode  string `json:"temp_value_code,omitempty"`
	WorkModeCode   string `json:"work_mode_code,omitempty"`
	FanSpeedCode   string `json:"fan_speed_code,omitempty"`
	ControlCode    string `json:"control_code,omitempty"`

	// Signature is the sorted status-code set the mapping was resolved from.
	// A rediscovery with a different signature invalidates the mapping
	// (firmware/version change).
	Signature string `json:"signature"`
}

// Resolve builds the code mapping for one device from its category and the
// status codes it reported. Each capability is evaluated independently with
// deterministic priority rules.
func Resolve(category string, statusCodes []string) *CodeMapping {
	present := make(map[string]bool, len(statusCodes))
	for _, code := range statusCodes {
		present[code] = true
	}

	pick := func(candidates ...string) string {
		for _, c := range candidates {
			if present[c] {
				return c
			}
		}
		return ""
	}

	return &CodeMapping{
		Category:       category,
		Type:           TypeForCategory(category),
		SwitchCode:     pick(CodeSwitchLED, CodeSwitch1, CodeSwitch),
		BrightnessCode: pick(CodeBrightnessV2, CodeBrightnessV1),
		ColourCode:     pick(CodeColourV2, CodeColourV1),
		TempValueCode:  pick(CodeTempValueV2, CodeTempValueV1),
		WorkModeCode:   pick(CodeWorkMode),
		FanSpeedCode:   pick(CodeFanSpeedPercent, CodeFanSpeedLegacy),
		ControlCode:    pick(CodePercentControl, CodeControl),
		Signature:      Signature(statusCodes),
	}
}

// Signature canonicalizes a status-code set for change detection
func Signature(statusCodes []string) string {
	codes := append([]string(nil), statusCodes...)
	sort.Strings(codes)
	return strings.Join(codes, ",")
}
