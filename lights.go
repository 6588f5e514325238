package simlabel

// LightState is the bit set of vehicle lights that are switched on.
type LightState uint32

// Light flags, with the simulator's bit values.
const (
	LightPosition LightState = 1 << iota
	LightLowBeam
	LightHighBeam
	LightBrake
	LightRightBlinker
	LightLeftBlinker
	LightReverse
	LightFog
	LightInterior
	LightSpecial1
	LightSpecial2
)

// lightNames is in the order the flags are reported in label files.
var lightNames = []struct {
	name string
	flag LightState
}{
	{"position", LightPosition},
	{"low_beam", LightLowBeam},
	{"high_beam", LightHighBeam},
	{"brake", LightBrake},
	{"reverse", LightReverse},
	{"left_blinker", LightLeftBlinker},
	{"right_blinker", LightRightBlinker},
	{"fog", LightFog},
	{"interior", LightInterior},
	{"special1", LightSpecial1},
	{"special2", LightSpecial2},
}

// Has reports whether all lights in f are on.
func (s LightState) Has(f LightState) bool {
	return s&f == f
}

// Flags expands s into one boolean per light.
func (s LightState) Flags() map[string]bool {
	flags := make(map[string]bool, len(lightNames))
	for _, l := range lightNames {
		flags[l.name] = s.Has(l.flag)
	}
	return flags
}

// LightStateFromFlags is the inverse of Flags. Unknown names are ignored.
func LightStateFromFlags(flags map[string]bool) LightState {
	var s LightState
	for _, l := range lightNames {
		if flags[l.name] {
			s |= l.flag
		}
	}
	return s
}

// MarshalJSON encodes s as an object of booleans.
func (s LightState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Flags())
}

// UnmarshalJSON accepts either the object form or the raw bit mask.
func (s *LightState) UnmarshalJSON(data []byte) error {
	var mask uint32
	if err := json.Unmarshal(data, &mask); err == nil {
		*s = LightState(mask)
		return nil
	}

	var flags map[string]bool
	if err := json.Unmarshal(data, &flags); err != nil {
		return err
	}
	*s = LightStateFromFlags(flags)
	return nil
}
