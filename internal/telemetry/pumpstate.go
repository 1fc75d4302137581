package telemetry

// PumpState is the PS record payload: seven flags and enums plus two
// current peaks packed into one integer by the controller.
//
//	bit 0       pumps on
//	bit 1       high-temperature shutdown
//	bits 2-3    pump selection (see Selection*)
//	bit 4       shutdown override
//	bit 5, 6    pump 1 / pump 2 over-current
//	bits 7-14   pump 1 max current, tenths of an amp
//	bits 15-22  pump 2 max current, tenths of an amp
type PumpState struct {
	On            int
	HighTemp      int
	Selection     int
	Shutdown      int
	P1CurrentHigh int
	P2CurrentHigh int
	MaxIp1        int
	MaxIp2        int
}

// Pump selection values.
const (
	SelectionNone = iota
	SelectionPump1
	SelectionPump2
	SelectionBoth
)

// pumpStateBits is the number of meaningful bits in a packed pump state.
const pumpStateBits = 23

// DecodePumpState unpacks a PS payload. Bits above 22 are spare and ignored.
func DecodePumpState(v uint32) PumpState {
	return PumpState{
		On:            int(v & 0x1),
		HighTemp:      int(v >> 1 & 0x1),
		Selection:     int(v >> 2 & 0x3),
		Shutdown:      int(v >> 4 & 0x1),
		P1CurrentHigh: int(v >> 5 & 0x1),
		P2CurrentHigh: int(v >> 6 & 0x1),
		MaxIp1:        int(v >> 7 & 0xFF),
		MaxIp2:        int(v >> 15 & 0xFF),
	}
}

// Encode packs the state back into the controller's layout.
func (p PumpState) Encode() uint32 {
	return uint32(p.On&0x1) |
		uint32(p.HighTemp&0x1)<<1 |
		uint32(p.Selection&0x3)<<2 |
		uint32(p.Shutdown&0x1)<<4 |
		uint32(p.P1CurrentHigh&0x1)<<5 |
		uint32(p.P2CurrentHigh&0x1)<<6 |
		uint32(p.MaxIp1&0xFF)<<7 |
		uint32(p.MaxIp2&0xFF)<<15
}
