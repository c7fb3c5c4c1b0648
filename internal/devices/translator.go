package devices

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"tuyabridge/internal/scale"
	"tuyabridge/internal/tuya"
)

// Default configurable Kelvin window for colour-temperature capable lights
const (
	DefaultMinKelvin = 2700
	DefaultMaxKelvin = 6500
)

// Provider scale limits
const (
	brightnessV2Min = 10
	brightnessV2Max = 1000
	brightnessV1Max = 255
	// Values below 25 on the v1 scale leave most lamps visibly off, so
	// outbound commands never go under it
	brightnessV1Floor = 25
	satValV2Max       = 1000
	satValV1Max       = 255
	tempV2Max         = 1000
	tempV1Max         = 255
	fanLegacyMax      = 4
)

// TranslatorConfig carries the configurable device limits
type TranslatorConfig struct {
	MinKelvin float64
	MaxKelvin float64
}

// Translator converts between raw provider status arrays and canonical
// device state, and between canonical intents and provider commands. It is a
// pure function of (status, mapping, config) and never touches the network.
type Translator struct {
	logger *slog.Logger

	brightV2  *scale.Mapper
	brightV1  *scale.Mapper
	satValV2  *scale.Mapper
	satValV1  *scale.Mapper
	tempV2    *scale.Mapper // provider 0-1000 (0 = warmest) -> Kelvin
	tempV1    *scale.Mapper // provider 0-255 -> Kelvin
	fanLegacy *scale.Mapper // legacy speed levels 1-4 -> percent
}

// NewTranslator creates a translator for the given Kelvin window
func NewTranslator(config TranslatorConfig, logger *slog.Logger) (*Translator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if config.MinKelvin == 0 {
		config.MinKelvin = DefaultMinKelvin
	}
	if config.MaxKelvin == 0 {
		config.MaxKelvin = DefaultMaxKelvin
	}
	if config.MinKelvin >= config.MaxKelvin {
		return nil, fmt.Errorf("%w: Kelvin range [%v, %v] is not ascending",
			tuya.ErrConfiguration, config.MinKelvin, config.MaxKelvin)
	}

	t := &Translator{logger: logger}

	type mapperSpec struct {
		dst  **scale.Mapper
		args [4]float64
	}
	specs := []mapperSpec{
		{&t.brightV2, [4]float64{brightnessV2Min, brightnessV2Max, BrightnessMin, BrightnessMax}},
		{&t.brightV1, [4]float64{0, brightnessV1Max, BrightnessMin, BrightnessMax}},
		{&t.satValV2, [4]float64{0, satValV2Max, PercentMin, PercentMax}},
		{&t.satValV1, [4]float64{0, satValV1Max, PercentMin, PercentMax}},
		{&t.tempV2, [4]float64{0, tempV2Max, config.MinKelvin, config.MaxKelvin}},
		{&t.tempV1, [4]float64{0, tempV1Max, config.MinKelvin, config.MaxKelvin}},
		{&t.fanLegacy, [4]float64{1, fanLegacyMax, PercentMin, PercentMax}},
	}
	for _, s := range specs {
		m, err := scale.New(s.args[0], s.args[1], s.args[2], s.args[3])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", tuya.ErrConfiguration, err)
		}
		*s.dst = m
	}
	return t, nil
}

// colourPayload is the provider's JSON-encoded HSV status value
type colourPayload struct {
	H float64 `json:"h"`
	S float64 `json:"s"`
	V float64 `json:"v"`
}

// ToCanonical folds a raw status array into canonical device state using the
// device's code mapping. Unknown codes are ignored; out-of-range numerics are
// clamped with a warning.
func (t *Translator) ToCanonical(mapping *CodeMapping, status []tuya.Status, online bool) DeviceState {
	state := DeviceState{Online: online}

	for _, entry := range status {
		switch {
		case mapping.SwitchCode != "" && entry.Code == mapping.SwitchCode:
			if on, ok := asBool(entry.Value); ok {
				state.On = on
			}

		case mapping.BrightnessCode != "" && entry.Code == mapping.BrightnessCode:
			raw, ok := asFloat(entry.Value)
			if !ok {
				continue
			}
			mapper := t.brightV1
			if mapping.BrightnessCode == CodeBrightnessV2 {
				mapper = t.brightV2
			}
			state.Brightness = t.clamp(mapper.ToTargetRounded(raw), BrightnessMin, BrightnessMax, "brightness")

		case mapping.ColourCode != "" && entry.Code == mapping.ColourCode:
			text, ok := asString(entry.Value)
			if !ok {
				continue
			}
			var payload colourPayload
			if err := json.Unmarshal([]byte(text), &payload); err != nil {
				t.logger.Warn("Unparseable colour status value",
					"component", "translator",
					"code", entry.Code,
					"value", text,
				)
				continue
			}
			mapper := t.satValV1
			if mapping.ColourCode == CodeColourV2 {
				mapper = t.satValV2
			}
			state.Color = &HSV{
				Hue:        t.clamp(int(math.Round(payload.H)), HueMin, HueMax, "hue"),
				Saturation: t.clamp(mapper.ToTargetRounded(payload.S), PercentMin, PercentMax, "saturation"),
				Value:      t.clamp(mapper.ToTargetRounded(payload.V), PercentMin, PercentMax, "color_value"),
			}

		case mapping.TempValueCode != "" && entry.Code == mapping.TempValueCode:
			raw, ok := asFloat(entry.Value)
			if !ok {
				continue
			}
			mapper := t.tempV1
			if mapping.TempValueCode == CodeTempValueV2 {
				mapper = t.tempV2
			}
			kelvin := mapper.ToTarget(raw)
			if kelvin <= 0 {
				t.logger.Warn("Non-positive Kelvin from colour temperature status",
					"component", "translator",
					"raw", raw,
				)
				continue
			}
			mired := int(math.Round(1_000_000 / kelvin))
			state.ColorTempMired = t.clamp(mired, MiredMin, MiredMax, "color_temp_mired")

		case mapping.WorkModeCode != "" && entry.Code == mapping.WorkModeCode:
			if mode, ok := asString(entry.Value); ok {
				state.Mode = mode
			}

		case mapping.FanSpeedCode != "" && entry.Code == mapping.FanSpeedCode:
			raw, ok := asFloat(entry.Value)
			if !ok {
				continue
			}
			if mapping.FanSpeedCode == CodeFanSpeedPercent {
				state.FanSpeed = t.clamp(int(math.Round(raw)), PercentMin, PercentMax, "fan_speed")
			} else {
				state.FanSpeed = t.clamp(t.fanLegacy.ToTargetRounded(raw), PercentMin, PercentMax, "fan_speed")
			}

		case mapping.ControlCode == CodePercentControl && entry.Code == CodePercentControl:
			if raw, ok := asFloat(entry.Value); ok {
				state.Position = t.clamp(int(math.Round(raw)), PercentMin, PercentMax, "position")
			}
		}
	}
	return state
}

// ToCommands converts a canonical intent into provider commands for the
// mapped device. Colour and colour-temperature changes emit a work-mode
// prerequisite command first: the provider cannot set the two independently.
func (t *Translator) ToCommands(mapping *CodeMapping, intent Intent) ([]tuya.Command, error) {
	var commands []tuya.Command

	if intent.On != nil {
		if mapping.SwitchCode == "" {
			return nil, fmt.Errorf("%w: device has no switch code", tuya.ErrUnsupportedOperation)
		}
		commands = append(commands, tuya.Command{Code: mapping.SwitchCode, Value: *intent.On})
	}

	if intent.Mode != nil {
		if mapping.WorkModeCode == "" {
			return nil, fmt.Errorf("%w: device has no work mode code", tuya.ErrUnsupportedOperation)
		}
		commands = append(commands, tuya.Command{Code: mapping.WorkModeCode, Value: *intent.Mode})
	}

	if intent.Brightness != nil {
		if mapping.BrightnessCode == "" {
			return nil, fmt.Errorf("%w: device has no brightness code", tuya.ErrUnsupportedOperation)
		}
		level := t.clamp(*intent.Brightness, BrightnessMin, BrightnessMax, "brightness")
		var raw int
		if mapping.BrightnessCode == CodeBrightnessV2 {
			raw = bound(t.brightV2.ToSourceRounded(float64(level)), brightnessV2Min, brightnessV2Max)
		} else {
			raw = bound(t.brightV1.ToSourceRounded(float64(level)), 0, brightnessV1Max)
			if level > 0 && raw < brightnessV1Floor {
				raw = brightnessV1Floor
			}
		}
		commands = append(commands, tuya.Command{Code: mapping.BrightnessCode, Value: raw})
	}

	if intent.ColorTempMired != nil {
		if mapping.TempValueCode == "" {
			return nil, fmt.Errorf("%w: device has no colour temperature code", tuya.ErrUnsupportedOperation)
		}
		if mapping.WorkModeCode != "" {
			commands = append(commands, tuya.Command{Code: mapping.WorkModeCode, Value: "white"})
		}
		mired := t.clamp(*intent.ColorTempMired, MiredMin, MiredMax, "color_temp_mired")
		kelvin := 1_000_000 / float64(mired)
		mapper, max := t.tempV1, tempV1Max
		if mapping.TempValueCode == CodeTempValueV2 {
			mapper, max = t.tempV2, tempV2Max
		}
		raw := bound(mapper.ToSourceRounded(kelvin), 0, max)
		commands = append(commands, tuya.Command{Code: mapping.TempValueCode, Value: raw})
	}

	if intent.Color != nil {
		if mapping.ColourCode == "" {
			return nil, fmt.Errorf("%w: device has no colour code", tuya.ErrUnsupportedOperation)
		}
		if mapping.WorkModeCode != "" {
			commands = append(commands, tuya.Command{Code: mapping.WorkModeCode, Value: "colour"})
		}
		mapper, max := t.satValV1, satValV1Max
		if mapping.ColourCode == CodeColourV2 {
			mapper, max = t.satValV2, satValV2Max
		}
		payload := colourPayload{
			H: float64(t.clamp(intent.Color.Hue, HueMin, HueMax, "hue")),
			S: float64(bound(mapper.ToSourceRounded(float64(t.clamp(intent.Color.Saturation, PercentMin, PercentMax, "saturation"))), 0, max)),
			V: float64(bound(mapper.ToSourceRounded(float64(t.clamp(intent.Color.Value, PercentMin, PercentMax, "color_value"))), 0, max)),
		}
		encoded, err := json.Marshal(map[string]int{
			"h": int(payload.H),
			"s": int(payload.S),
			"v": int(payload.V),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to encode colour payload: %w", err)
		}
		commands = append(commands, tuya.Command{Code: mapping.ColourCode, Value: string(encoded)})
	}

	if intent.FanSpeed != nil {
		if mapping.FanSpeedCode == "" {
			return nil, fmt.Errorf("%w: device has no fan speed code", tuya.ErrUnsupportedOperation)
		}
		pct := t.clamp(*intent.FanSpeed, PercentMin, PercentMax, "fan_speed")
		if mapping.FanSpeedCode == CodeFanSpeedPercent {
			commands = append(commands, tuya.Command{Code: mapping.FanSpeedCode, Value: pct})
		} else {
			level := bound(t.fanLegacy.ToSourceRounded(float64(pct)), 1, fanLegacyMax)
			// Legacy firmwares expect the speed level as a string enum
			commands = append(commands, tuya.Command{Code: mapping.FanSpeedCode, Value: strconv.Itoa(level)})
		}
	}

	if intent.Position != nil {
		if mapping.ControlCode == "" {
			return nil, fmt.Errorf("%w: device has no control code", tuya.ErrUnsupportedOperation)
		}
		pos := t.clamp(*intent.Position, PercentMin, PercentMax, "position")
		if mapping.ControlCode == CodePercentControl {
			commands = append(commands, tuya.Command{Code: mapping.ControlCode, Value: pos})
		} else {
			// Discrete-only covers understand open/close
			value := "close"
			if pos >= 50 {
				value = "open"
			}
			commands = append(commands, tuya.Command{Code: mapping.ControlCode, Value: value})
		}
	}

	if len(commands) == 0 {
		return nil, fmt.Errorf("%w: intent carries no supported fields", tuya.ErrUnsupportedOperation)
	}
	return commands, nil
}

// clamp bounds a canonical value and records a warning when clamping changed it
func (t *Translator) clamp(value, min, max int, field string) int {
	clamped := bound(value, min, max)
	if clamped != value {
		t.logger.Warn("Value outside canonical range, clamping",
			"component", "translator",
			"field", field,
			"value", value,
			"min", min,
			"max", max,
		)
	}
	return clamped
}

func bound(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func asBool(v interface{}) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		if b == "true" {
			return true, true
		}
		if b == "false" {
			return false, true
		}
	}
	return false, false
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func asString(v interface{}) (string, bool) {
	s, ok := v.(string)
	return s, ok
}
