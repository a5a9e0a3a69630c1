package firecracker

// Command is a single on/off instruction for one X10 module.
// House and Module are zero-based table indices.
type Command struct {
	House  int
	Module int
	On     bool
}

// Encode builds the 40-bit frame for the command.
func (c Command) Encode() (Bits, error) {
	return Encode(c.House, c.Module, c.On)
}

// String returns the address and action, e.g. "A1 on".
func (c Command) String() string {
	if c.On {
		return Address(c.House, c.Module) + " on"
	}
	return Address(c.House, c.Module) + " off"
}

// Encode builds the frame header ++ house ++ module ++ footer.
//
// For an "off" command bit 10 of the module segment is forced to 1; for
// "on" the module pattern is used as tabulated. Validation errors from the
// code tables are returned unchanged.
func Encode(house, module int, on bool) (Bits, error) {
	houseCode, err := HouseCode(house)
	if err != nil {
		return nil, err
	}
	moduleCode, err := ModuleCode(module)
	if err != nil {
		return nil, err
	}
	if !on {
		moduleCode[offBit] = 1
	}

	frame := make(Bits, 0, FrameLength)
	frame = append(frame, frameHeader[:]...)
	frame = append(frame, houseCode...)
	frame = append(frame, moduleCode...)
	frame = append(frame, frameFooter[:]...)
	return frame, nil
}
