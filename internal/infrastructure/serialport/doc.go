// Package serialport adapts go.bug.st/serial to the firecracker transport
// interfaces.
//
// The transmitter is clocked through the RTS and DTR modem control lines,
// so the adapter only ever opens, toggles those two lines and closes. No
// data is read or written.
//
//	s := firecracker.NewSession(firecracker.SessionOptions{
//	    Opener: serialport.Opener{},
//	})
//	err := s.Open(ctx, "/dev/ttyUSB0")
package serialport
