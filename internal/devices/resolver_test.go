package devices

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve_PrefersVersionedCodes(t *testing.T) {
	mapping := Resolve("dj", []string{"switch_1", "bright_value_v2", "bright_value"})

	assert.Equal(t, "switch_1", mapping.SwitchCode)
	assert.Equal(t, "bright_value_v2", mapping.BrightnessCode)
	assert.Equal(t, TypeLight, mapping.Type)
}

func TestResolve_CapabilityPriorities(t *testing.T) {
	tests := []struct {
		name  string
		codes []string
		check func(t *testing.T, m *CodeMapping)
	}{
		{
			name:  "switch_led beats switch_1 and switch",
			codes: []string{"switch", "switch_1", "switch_led"},
			check: func(t *testing.T, m *CodeMapping) {
				assert.Equal(t, "switch_led", m.SwitchCode)
			},
		},
		{
			name:  "bare switch as last resort",
			codes: []string{"switch"},
			check: func(t *testing.T, m *CodeMapping) {
				assert.Equal(t, "switch", m.SwitchCode)
			},
		},
		{
			name:  "colour_data_v2 over colour_data",
			codes: []string{"colour_data", "colour_data_v2"},
			check: func(t *testing.T, m *CodeMapping) {
				assert.Equal(t, "colour_data_v2", m.ColourCode)
			},
		},
		{
			name:  "temp_value_v2 over temp_value",
			codes: []string{"temp_value", "temp_value_v2"},
			check: func(t *testing.T, m *CodeMapping) {
				assert.Equal(t, "temp_value_v2", m.TempValueCode)
			},
		},
		{
			name:  "fan_speed_percent over fan_speed",
			codes: []string{"fan_speed", "fan_speed_percent"},
			check: func(t *testing.T, m *CodeMapping) {
				assert.Equal(t, "fan_speed_percent", m.FanSpeedCode)
			},
		},
		{
			name:  "percent_control over control",
			codes: []string{"control", "percent_control"},
			check: func(t *testing.T, m *CodeMapping) {
				assert.Equal(t, "percent_control", m.ControlCode)
			},
		},
		{
			name:  "absent capabilities stay empty",
			codes: []string{"switch_led"},
			check: func(t *testing.T, m *CodeMapping) {
				assert.Empty(t, m.BrightnessCode)
				assert.Empty(t, m.ColourCode)
				assert.Empty(t, m.TempValueCode)
				assert.Empty(t, m.FanSpeedCode)
				assert.Empty(t, m.ControlCode)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, Resolve("dj", tt.codes))
		})
	}
}

func TestSignature_OrderIndependent(t *testing.T) {
	a := Signature([]string{"switch_led", "bright_value_v2", "work_mode"})
	b := Signature([]string{"work_mode", "switch_led", "bright_value_v2"})
	assert.Equal(t, a, b)
}

func TestSignature_DetectsChange(t *testing.T) {
	a := Signature([]string{"switch_led", "bright_value"})
	b := Signature([]string{"switch_led", "bright_value_v2"})
	assert.NotEqual(t, a, b)
}

func TestTypeForCategory(t *testing.T) {
	tests := []struct {
		category string
		want     DeviceType
	}{
		{"dj", TypeLight},
		{"dd", TypeLight},
		{"kg", TypeSwitch},
		{"cz", TypeOutlet},
		{"fs", TypeFan},
		{"cl", TypeCover},
		{"wk", TypeClimate},
		{"pir", TypeSensor},
		{"ckmkzq", TypeGarage},
		{"zzz-unknown", TypeSwitch},
		{"", TypeSwitch},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TypeForCategory(tt.category), "category %q", tt.category)
	}
}
