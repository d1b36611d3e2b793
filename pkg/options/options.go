// Package options owns the options bag: the process-wide settings loaded once
// at startup and shared by reference with every component that reads them.
// All mutation goes through Service.Set.
package options

import (
	"fmt"
	"math"
	"sort"
)

// Option keys as they appear on the wire and in the settings file.
const (
	KeyContextMenu   = "contextMenu"
	KeyMode          = "mode"
	KeyIndentation   = "indentation"
	KeyShortcutKey   = "shortcutKey"
	KeyShortcutMeta  = "shortcutMeta"
	KeyShortcutCtrl  = "shortcutCtrl"
	KeyShortcutShift = "shortcutShift"
	KeyShortcutAlt   = "shortcutAlt"
)

// Editor modes.
const (
	ModeBasic    = "basic"
	ModeAdvanced = "advanced"
)

// Options is the options bag.
type Options struct {
	ContextMenu   bool   `json:"contextMenu"`
	Mode          string `json:"mode"`
	Indentation   int    `json:"indentation"`
	ShortcutKey   int    `json:"shortcutKey"`
	ShortcutMeta  bool   `json:"shortcutMeta"`
	ShortcutCtrl  bool   `json:"shortcutCtrl"`
	ShortcutShift bool   `json:"shortcutShift"`
	ShortcutAlt   bool   `json:"shortcutAlt"`
}

// Defaults returns the options used for keys the settings file does not set.
func Defaults() Options {
	return Options{
		ContextMenu: true,
		Mode:        ModeBasic,
		Indentation: 4,
		ShortcutKey: 77, // m
		ShortcutAlt: true,
	}
}

type field struct {
	get func(*Options) interface{}
	set func(*Options, interface{}) error
}

var fields = map[string]field{
	KeyContextMenu: {
		get: func(o *Options) interface{} { return o.ContextMenu },
		set: boolSetter(KeyContextMenu, func(o *Options, v bool) { o.ContextMenu = v }),
	},
	KeyMode: {
		get: func(o *Options) interface{} { return o.Mode },
		set: func(o *Options, value interface{}) error {
			mode, ok := value.(string)
			if !ok {
				return fmt.Errorf("invalid value type for %s: expected string, got %T", KeyMode, value)
			}
			if mode != ModeBasic && mode != ModeAdvanced {
				return fmt.Errorf("invalid value for %s: %q (must be %q or %q)", KeyMode, mode, ModeBasic, ModeAdvanced)
			}
			o.Mode = mode
			return nil
		},
	},
	KeyIndentation: {
		get: func(o *Options) interface{} { return o.Indentation },
		set: intSetter(KeyIndentation, 0, 8, func(o *Options, v int) { o.Indentation = v }),
	},
	KeyShortcutKey: {
		get: func(o *Options) interface{} { return o.ShortcutKey },
		set: intSetter(KeyShortcutKey, 0, 255, func(o *Options, v int) { o.ShortcutKey = v }),
	},
	KeyShortcutMeta: {
		get: func(o *Options) interface{} { return o.ShortcutMeta },
		set: boolSetter(KeyShortcutMeta, func(o *Options, v bool) { o.ShortcutMeta = v }),
	},
	KeyShortcutCtrl: {
		get: func(o *Options) interface{} { return o.ShortcutCtrl },
		set: boolSetter(KeyShortcutCtrl, func(o *Options, v bool) { o.ShortcutCtrl = v }),
	},
	KeyShortcutShift: {
		get: func(o *Options) interface{} { return o.ShortcutShift },
		set: boolSetter(KeyShortcutShift, func(o *Options, v bool) { o.ShortcutShift = v }),
	},
	KeyShortcutAlt: {
		get: func(o *Options) interface{} { return o.ShortcutAlt },
		set: boolSetter(KeyShortcutAlt, func(o *Options, v bool) { o.ShortcutAlt = v }),
	},
}

// Keys returns every option key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Map returns the options as a key/value map.
func (o Options) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(fields))
	for k, f := range fields {
		m[k] = f.get(&o)
	}
	return m
}

// apply sets every known key in data. Unknown keys are ignored for forward
// compatibility with files written by newer versions.
func (o *Options) apply(data map[string]interface{}) error {
	for key, value := range data {
		f, ok := fields[key]
		if !ok {
			continue
		}
		if err := f.set(o, value); err != nil {
			return err
		}
	}
	return nil
}

func boolSetter(key string, assign func(*Options, bool)) func(*Options, interface{}) error {
	return func(o *Options, value interface{}) error {
		v, ok := value.(bool)
		if !ok {
			return fmt.Errorf("invalid value type for %s: expected bool, got %T", key, value)
		}
		assign(o, v)
		return nil
	}
}

func intSetter(key string, lo, hi int, assign func(*Options, int)) func(*Options, interface{}) error {
	return func(o *Options, value interface{}) error {
		var v int
		switch n := value.(type) {
		case int:
			v = n
		case int64:
			v = int(n)
		case float64:
			// JSON numbers come as float64
			if n != math.Trunc(n) {
				return fmt.Errorf("invalid value for %s: %v is not an integer", key, n)
			}
			v = int(n)
		default:
			return fmt.Errorf("invalid value type for %s: expected number, got %T", key, value)
		}
		if v < lo || v > hi {
			return fmt.Errorf("%s must be between %d and %d, got %d", key, lo, hi, v)
		}
		assign(o, v)
		return nil
	}
}
