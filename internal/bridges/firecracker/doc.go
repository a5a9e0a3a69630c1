// Package firecracker implements the X10 "firecracker" bridge for Gray Logic.
//
// The firecracker (CM17A) is a one-way RF transmitter that plugs into a
// serial port and is driven entirely by the RTS and DTR control lines. No
// bytes are ever written to the port.
//
// # Architecture
//
//	┌─────────────────┐          ┌─────────────────┐  RTS/DTR
//	│   Gray Logic    │   MQTT   │ Firecracker     │◄────────► Transmitter
//	│      Core       │◄────────►│ Bridge          │
//	└─────────────────┘          └─────────────────┘
//
// # Frames
//
// Every command is a 40-bit frame: a fixed 16-bit header, the 5-bit house
// code, the 11-bit module code and a fixed 8-bit footer. An "off" command
// sets bit 10 of the module code.
//
//	bits, err := firecracker.Encode(0, 0, true) // A1 on
//
// # Line timing
//
// Each bit is held for one bit interval (RTS=1,DTR=0 for 1 and RTS=0,DTR=1
// for 0) followed by one interval with both lines high. The transmitter is
// powered from the lines and needs a warm-up after the port opens.
//
// # Exclusive access
//
// A Session owns one port. Open, Close and SendCommand share a transmit
// token, so frames never interleave and no frame starts during warm-up.
// Callers waiting for the token give up through their context; a frame
// that has started always runs to completion or to the first line failure.
//
// # MQTT topics
//
//	graylogic/command/firecracker/{device_id}  commands from Core
//	graylogic/ack/firecracker/{device_id}      acknowledgements
//	graylogic/state/firecracker/{device_id}    last commanded state (retained)
//	graylogic/health/firecracker               bridge health (retained)
package firecracker
