package main

// Radio wire-protocol opcodes (SPEC_FULL.md §6). The response tag for a
// given request opcode is not a clean bitmask in the original protocol, so
// it is tabulated explicitly rather than derived.
const (
	opSetChannel   byte = 0x03
	opWarmReset    byte = 0x1D
	opProgram      byte = 0x1E
	opSetMod       byte = 0x2B
	opSetTxFreq    byte = 0x37
	opGetTxFreq    byte = 0x38
	opSetRxFreq    byte = 0x39
	opGetRxFreq    byte = 0x3A
	opDealerMode   byte = 0x44
	opAddChannel   byte = 0x70

	soh byte = 0x01
	nul byte = 0x00
)

var responseTagFor = map[byte]byte{
	opSetChannel: 0x83,
	opWarmReset:  0x9D,
	opProgram:    0x9E,
	opSetMod:     0xAB,
	opSetTxFreq:  0xB7,
	opGetTxFreq:  0xB8,
	opSetRxFreq:  0xB9,
	opGetRxFreq:  0xBA,
	opDealerMode: 0xC4,
	opAddChannel: 0xF0,
}

// checksum is the ones-complement of the low byte of the sum of the given
// bytes (SPEC_FULL.md §4.2, original radio_control.py checksum formula).
func checksum(b []byte) byte {
	var sum int
	for _, c := range b {
		sum += int(c)
	}
	return ^byte(sum&0xFF) & 0xFF
}

// Build constructs a full RadioFrame: SOH | opcode | args | checksum | NUL.
func Build(opcode byte, args Bytes) Bytes {
	body := make([]byte, 0, len(args)+1)
	body = append(body, opcode)
	body = append(body, args...)
	cs := checksum(body)

	frame := make([]byte, 0, len(body)+3)
	frame = append(frame, soh)
	frame = append(frame, body...)
	frame = append(frame, cs, nul)
	return Bytes(frame)
}

// ParseResponse locates the first SOH in buf, verifies the next byte equals
// expectedOpcode (conventionally the response tag, not the request opcode),
// verifies responseArgLen+1 bytes follow, and checks the trailing checksum.
// Returns ok=false on any mismatch.
func ParseResponse(buf Bytes, expectedOpcode byte, responseArgLen int) (bool, Bytes) {
	idx := -1
	for i, b := range buf {
		if b == soh {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false, nil
	}
	need := idx + 1 + 1 + responseArgLen + 1 // SOH, opcode, args, checksum
	if len(buf) < need {
		return false, nil
	}
	opcode := buf[idx+1]
	if opcode != expectedOpcode {
		return false, nil
	}
	args := buf[idx+2 : idx+2+responseArgLen]
	gotChecksum := buf[idx+2+responseArgLen]

	body := make([]byte, 0, 1+responseArgLen)
	body = append(body, opcode)
	body = append(body, args...)
	if checksum(body) != gotChecksum {
		return false, nil
	}
	return true, Bytes(append([]byte(nil), args...))
}
