// Package translate maps semantic device commands onto SmartThings
// capability invocations. The mapping is a declarative table keyed by
// (device family, command); unknown pairs fail rather than guessing a
// payload.
package translate

import (
	"sort"

	"github.com/tomfelder/hearth/internal/models"
)

// DefaultComponent is the SmartThings component targeted when the caller
// does not name one.
const DefaultComponent = "main"

// Device families understood by the translator.
const (
	FamilyTV     = "tv"
	FamilyAircon = "aircon"
)

// Args carries the caller-supplied arguments for a semantic command,
// decoded straight from the request body.
type Args map[string]interface{}

// rule describes how one semantic command becomes a vendor invocation.
// commandFn may pick the vendor command from the arguments (on/off,
// up/down); argsFn shapes the argument array, honoring the payload style
// where the command supports one.
type rule struct {
	capability string
	commandFn  func(a Args) (string, error)
	argsFn     func(a Args, style models.PayloadStyle) ([]interface{}, error)
}

// fixed returns a commandFn that always emits the same vendor command.
func fixed(command string) func(Args) (string, error) {
	return func(Args) (string, error) { return command, nil }
}

// onOff picks between two vendor commands from a boolean argument.
func onOff(key, whenTrue, whenFalse string) func(Args) (string, error) {
	return func(a Args) (string, error) {
		v, err := argBool(a, key)
		if err != nil {
			return "", err
		}
		if v {
			return whenTrue, nil
		}
		return whenFalse, nil
	}
}

// upDown picks between two vendor commands from a direction argument.
func upDown(whenUp, whenDown string) func(Args) (string, error) {
	return func(a Args) (string, error) {
		dir, err := argString(a, "direction")
		if err != nil {
			return "", err
		}
		switch dir {
		case "up":
			return whenUp, nil
		case "down":
			return whenDown, nil
		default:
			return "", models.NewError(models.KindValidation, "direction must be 'up' or 'down', got %q", dir)
		}
	}
}

// noArgs is an argsFn for commands that take no arguments.
func noArgs(Args, models.PayloadStyle) ([]interface{}, error) {
	return nil, nil
}

// scalarArg passes a single string-or-number argument through.
func scalarArg(key string) func(Args, models.PayloadStyle) ([]interface{}, error) {
	return func(a Args, _ models.PayloadStyle) ([]interface{}, error) {
		v, err := argScalar(a, key)
		if err != nil {
			return nil, err
		}
		return []interface{}{v}, nil
	}
}

// stringArg passes a single string argument through.
func stringArg(key string) func(Args, models.PayloadStyle) ([]interface{}, error) {
	return func(a Args, _ models.PayloadStyle) ([]interface{}, error) {
		v, err := argString(a, key)
		if err != nil {
			return nil, err
		}
		return []interface{}{v}, nil
	}
}

// table is the full semantic command surface, keyed by family then
// command. Capability and command names follow the SmartThings capability
// reference.
var table = map[string]map[string]rule{
	FamilyTV: {
		"power": {
			capability: "switch",
			commandFn:  onOff("on", "on", "off"),
			argsFn:     noArgs,
		},
		"volume": {
			capability: "audioVolume",
			commandFn:  fixed("setVolume"),
			argsFn: func(a Args, _ models.PayloadStyle) ([]interface{}, error) {
				level, err := argInt(a, "level")
				if err != nil {
					return nil, err
				}
				if level < 0 || level > 100 {
					return nil, models.NewError(models.KindValidation, "level must be between 0 and 100, got %d", level)
				}
				return []interface{}{level}, nil
			},
		},
		"volume-step": {
			capability: "audioVolume",
			commandFn:  upDown("volumeUp", "volumeDown"),
			argsFn:     noArgs,
		},
		"mute": {
			capability: "audioMute",
			commandFn:  onOff("mute", "mute", "unmute"),
			argsFn:     noArgs,
		},
		"channel": {
			capability: "tvChannel",
			commandFn:  fixed("setChannel"),
			// Devices vary: some accept an int, some a string like "7-1".
			argsFn: scalarArg("channel"),
		},
		"channel-step": {
			capability: "tvChannel",
			commandFn:  upDown("channelUp", "channelDown"),
			argsFn:     noArgs,
		},
		"input-source": {
			capability: "mediaInputSource",
			commandFn:  fixed("setInputSource"),
			argsFn:     stringArg("source"),
		},
		"key": {
			capability: "remoteControl",
			commandFn:  fixed("send"),
			argsFn:     keyArgs,
		},
	},
	FamilyAircon: {
		"power": {
			capability: "switch",
			commandFn:  onOff("on", "on", "off"),
			argsFn:     noArgs,
		},
		"mode": {
			capability: "airConditionerMode",
			commandFn:  fixed("setAirConditionerMode"),
			argsFn:     stringArg("mode"),
		},
		"temperature": {
			capability: "thermostatCoolingSetpoint",
			commandFn:  fixed("setCoolingSetpoint"),
			argsFn: func(a Args, _ models.PayloadStyle) ([]interface{}, error) {
				celsius, err := argFloat(a, "celsius")
				if err != nil {
					return nil, err
				}
				if celsius < 10 || celsius > 35 {
					return nil, models.NewError(models.KindValidation, "celsius must be between 10 and 35, got %v", celsius)
				}
				return []interface{}{celsius}, nil
			},
		},
		"fan-speed": {
			capability: "fanSpeed",
			commandFn:  fixed("setFanSpeed"),
			argsFn:     scalarArg("speed"),
		},
	},
}

// keyArgs shapes the remote key-press arguments. Device implementations
// disagree on the shape, so the caller may pick a payload style; the
// keyed-object shape is the default.
func keyArgs(a Args, style models.PayloadStyle) ([]interface{}, error) {
	if style == models.PayloadStyleCustom {
		custom, ok := a["arguments"].([]interface{})
		if !ok {
			return nil, models.NewError(models.KindValidation, "payload_style 'custom' requires an 'arguments' array")
		}
		return custom, nil
	}

	key, err := argString(a, "key")
	if err != nil {
		return nil, err
	}
	if style == models.PayloadStyleString {
		return []interface{}{key}, nil
	}
	return []interface{}{map[string]interface{}{"keyCode": key}}, nil
}

// Translate maps a semantic command to a vendor command payload. Unknown
// families or commands fail with UnsupportedCommand; malformed arguments
// fail with ValidationError.
func Translate(family, command string, args Args, style models.PayloadStyle) (*models.DeviceCommand, error) {
	if !style.Valid() {
		return nil, models.NewError(models.KindValidation, "unknown payload_style %q", style)
	}

	commands, ok := table[family]
	if !ok {
		return nil, models.NewError(models.KindUnsupported, "unknown device family %q", family)
	}
	r, ok := commands[command]
	if !ok {
		return nil, models.NewError(models.KindUnsupported, "unsupported command %q for family %q", command, family)
	}

	vendorCommand, err := r.commandFn(args)
	if err != nil {
		return nil, err
	}
	arguments, err := r.argsFn(args, style)
	if err != nil {
		return nil, err
	}

	component := DefaultComponent
	if c, ok := args["component"].(string); ok && c != "" {
		component = c
	}

	return &models.DeviceCommand{
		Component:  component,
		Capability: r.capability,
		Command:    vendorCommand,
		Arguments:  arguments,
	}, nil
}

// Commands returns the semantic commands known for a family, or nil for
// an unknown family.
func Commands(family string) []string {
	commands, ok := table[family]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(commands))
	for name := range commands {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// --- argument extraction helpers ---

func argBool(a Args, key string) (bool, error) {
	v, ok := a[key]
	if !ok {
		return false, models.NewError(models.KindValidation, "missing argument %q", key)
	}
	b, ok := v.(bool)
	if !ok {
		return false, models.NewError(models.KindValidation, "argument %q must be a boolean", key)
	}
	return b, nil
}

func argString(a Args, key string) (string, error) {
	v, ok := a[key]
	if !ok {
		return "", models.NewError(models.KindValidation, "missing argument %q", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", models.NewError(models.KindValidation, "argument %q must be a non-empty string", key)
	}
	return s, nil
}

// argInt accepts JSON numbers (float64 after decoding) and native ints.
func argInt(a Args, key string) (int, error) {
	v, ok := a[key]
	if !ok {
		return 0, models.NewError(models.KindValidation, "missing argument %q", key)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case float64:
		if n != float64(int(n)) {
			return 0, models.NewError(models.KindValidation, "argument %q must be an integer", key)
		}
		return int(n), nil
	default:
		return 0, models.NewError(models.KindValidation, "argument %q must be an integer", key)
	}
}

func argFloat(a Args, key string) (float64, error) {
	v, ok := a[key]
	if !ok {
		return 0, models.NewError(models.KindValidation, "missing argument %q", key)
	}
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, models.NewError(models.KindValidation, "argument %q must be a number", key)
	}
}

// argScalar accepts a string or a number, for arguments where device
// implementations disagree on the type.
func argScalar(a Args, key string) (interface{}, error) {
	v, ok := a[key]
	if !ok {
		return nil, models.NewError(models.KindValidation, "missing argument %q", key)
	}
	switch v.(type) {
	case string, int, float64:
		return v, nil
	default:
		return nil, models.NewError(models.KindValidation, "argument %q must be a string or number, got %T", key, v)
	}
}
