package main

// PacketFramer scans an append-only hex receive buffer for fixed-length
// frames prefixed by the known callsign tag. Grounded on the original
// source's extract_packets/trim_buffer (groundstation.py).
type PacketFramer struct{}

func NewPacketFramer() *PacketFramer { return &PacketFramer{} }

// Extract returns all non-overlapping matches of callsignHex followed by
// exactly (packetLenHex - len(callsignHex)) further hex characters, in
// increasing offset order. hexBuf is lowercased defensively (SPEC_FULL.md
// §9.4) before scanning.
func (f *PacketFramer) Extract(hexBuf HexText) []RawPacket {
	buf := string(normalizeHex(string(hexBuf)))
	var out []RawPacket

	i := 0
	for {
		idx := indexOf(buf, callsignHex, i)
		if idx == -1 {
			break
		}
		if idx+packetLenHex > len(buf) {
			break
		}
		frame := buf[idx : idx+packetLenHex]
		out = append(out, RawPacket{Offset: idx, Hex: HexText(frame)})
		i = idx + packetLenHex
	}
	return out
}

func indexOf(haystack, needle string, from int) int {
	if from > len(haystack) {
		return -1
	}
	rel := indexString(haystack[from:], needle)
	if rel == -1 {
		return -1
	}
	return from + rel
}

func indexString(haystack, needle string) int {
	n := len(needle)
	if n == 0 || n > len(haystack) {
		return -1
	}
	for i := 0; i+n <= len(haystack); i++ {
		if haystack[i:i+n] == needle {
			return i
		}
	}
	return -1
}

// TrimAfterLast returns the suffix of hexBuf after the last consumed frame,
// i.e. everything from (lastOffset + packetLenHex) onward.
func (f *PacketFramer) TrimAfterLast(hexBuf HexText, lastOffset int) HexText {
	end := lastOffset + packetLenHex
	if end >= len(hexBuf) {
		return ""
	}
	return hexBuf[end:]
}

// Cap drops the prefix of hexBuf, if necessary, so that exactly keepTail
// characters remain (or the whole buffer, if it is already shorter).
// Returns the new buffer and the dropped prefix (for dumping to disk).
func (f *PacketFramer) Cap(hexBuf HexText, max, keepTail int) (HexText, HexText) {
	if len(hexBuf) <= max {
		return hexBuf, ""
	}
	keep := keepTail
	if keep > len(hexBuf) {
		keep = len(hexBuf)
	}
	dropped := hexBuf[:len(hexBuf)-keep]
	kept := hexBuf[len(hexBuf)-keep:]
	return kept, dropped
}
