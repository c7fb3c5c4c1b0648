package devices

// categoryTypes maps provider category codes onto canonical device types.
// Static vendor data; unknown categories default to switch.
var categoryTypes = map[string]DeviceType{
	// Lighting
	"dj":  TypeLight, // bulb
	"dd":  TypeLight, // strip
	"fwd": TypeLight, // ambiance light
	"xdd": TypeLight, // ceiling light
	"dc":  TypeLight, // string light
	"tgq": TypeLight, // dimmer
	"gyd": TypeLight, // motion-sensor light

	// Switches and outlets
	"kg":  TypeSwitch,
	"tdq": TypeSwitch,
	"cz":  TypeOutlet,
	"pc":  TypeOutlet, // power strip

	// Fans
	"fs":   TypeFan,
	"fskg": TypeFan,

	// Covers
	"cl":      TypeCover,
	"clkg":    TypeCover,
	"jdcljqr": TypeCover, // curtain robot

	// Climate
	"wk":  TypeClimate, // thermostat
	"wkf": TypeClimate,
	"qn":  TypeClimate, // heater
	"kt":  TypeClimate, // air conditioner

	// Sensors
	"wsdcg": TypeSensor, // temperature/humidity
	"mcs":   TypeSensor, // contact
	"pir":   TypeSensor, // motion
	"sj":    TypeSensor, // water leak
	"ywbj":  TypeSensor, // smoke

	// Garage
	"ckmkzq": TypeGarage,
}

// TypeForCategory resolves a provider category code to a canonical device type
func TypeForCategory(category string) DeviceType {
	if t, ok := categoryTypes[category]; ok {
		return t
	}
	return TypeSwitch
}
