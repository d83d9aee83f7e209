package main

import (
	"errors"
	"fmt"
)

// ErrTooCorrupt is returned when a Reed-Solomon codeword has more errors
// than the code can correct.
var ErrTooCorrupt = errors.New("reed-solomon: too corrupt to correct")

// Reed-Solomon GF(256) codec over 243-byte codewords (211 data + 32 parity),
// per the frame-layout reconciliation documented in DESIGN.md. The original
// groundstation delegated this to an external rsencode/rsdecode executable
// (original_source/groundstation/reedsolomon/rscode.py); no compatible
// reference implementation exists anywhere in the retrieval pack, so the
// GF(256) parameters are this repo's own committed decision (SPEC_FULL.md
// §9.3): primitive polynomial 0x11D, primitive element 2, first consecutive
// root 1 (the simplest valid choice, which keeps the Forney error-magnitude
// step free of an extra X^(1-fcr) correction factor).
const (
	gfPrimPoly  = 0x11D
	gfGenerator = 2
	rsFirstRoot = 1
)

var (
	gfExpTable [510]byte
	gfLogTable [256]byte
)

func init() {
	x := 1
	for i := 0; i < 255; i++ {
		gfExpTable[i] = byte(x)
		gfLogTable[x] = byte(i)
		x <<= 1
		if x&0x100 != 0 {
			x ^= gfPrimPoly
		}
	}
	for i := 255; i < 510; i++ {
		gfExpTable[i] = gfExpTable[i-255]
	}
	rsGenerator = generatorPoly(rsParityBytes)
}

func gfMul(a, b byte) byte {
	if a == 0 || b == 0 {
		return 0
	}
	return gfExpTable[int(gfLogTable[a])+int(gfLogTable[b])]
}

func gfDiv(a, b byte) byte {
	if a == 0 {
		return 0
	}
	logA := int(gfLogTable[a])
	logB := int(gfLogTable[b])
	idx := logA - logB
	if idx < 0 {
		idx += 255
	}
	return gfExpTable[idx]
}

func gfPow(a byte, n int) byte {
	if n == 0 {
		return 1
	}
	if a == 0 {
		return 0
	}
	logA := int(gfLogTable[a])
	idx := (logA * n) % 255
	if idx < 0 {
		idx += 255
	}
	return gfExpTable[idx]
}

// generatorPoly builds the degree-(rsParityBytes) generator polynomial
// g(x) = product_{i=0}^{parity-1} (x - gfGenerator^(rsFirstRoot+i)),
// coefficients high-degree first.
func generatorPoly(parity int) []byte {
	g := make([]byte, 1, parity+1)
	g[0] = 1
	for i := 0; i < parity; i++ {
		root := gfPow(gfGenerator, rsFirstRoot+i)
		next := make([]byte, len(g)+1)
		for j, c := range g {
			next[j] ^= c
			next[j+1] ^= gfMul(c, root)
		}
		g = next
	}
	return g
}

// rsGenerator is filled in by init once the GF tables exist.
var rsGenerator []byte

// EncodeRS243 encodes an rsDataBytes-length message into a rsCodewordLen
// systematic RS codeword (data followed by parity).
func EncodeRS243(msg Bytes) (Bytes, error) {
	if len(msg) != rsDataBytes {
		return nil, fmt.Errorf("reed-solomon encode: message must be %d bytes, got %d", rsDataBytes, len(msg))
	}
	remainder := make([]byte, rsParityBytes)
	for _, b := range msg {
		feedback := remainder[0] ^ b
		copy(remainder, remainder[1:])
		remainder[rsParityBytes-1] = 0
		if feedback != 0 {
			for i := 0; i < rsParityBytes; i++ {
				if i+1 < len(rsGenerator) {
					remainder[i] ^= gfMul(rsGenerator[i+1], feedback)
				}
			}
		}
	}
	out := make([]byte, 0, rsCodewordLen)
	out = append(out, msg...)
	out = append(out, remainder...)
	return Bytes(out), nil
}

// DecodeRS243 corrects a rsCodewordLen-length codeword and returns the
// rsDataBytes-length corrected message, or ErrTooCorrupt if the codeword has
// more errors than rsParityBytes/2 can correct.
func DecodeRS243(codeword Bytes) (Bytes, error) {
	if len(codeword) != rsCodewordLen {
		return nil, fmt.Errorf("reed-solomon decode: codeword must be %d bytes, got %d", rsCodewordLen, len(codeword))
	}

	synd := syndromes(codeword)
	allZero := true
	for _, s := range synd {
		if s != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return Bytes(append([]byte(nil), codeword[:rsDataBytes]...)), nil
	}

	errLoc := berlekampMassey(synd)
	if (len(errLoc)-1) > rsParityBytes/2 {
		return nil, ErrTooCorrupt
	}

	errPos, ok := findErrorPositions(errLoc, len(codeword))
	if !ok || len(errPos) != len(errLoc)-1 {
		return nil, ErrTooCorrupt
	}

	corrected := append([]byte(nil), codeword...)
	if len(errPos) > 0 {
		magnitudes, ok := forneyMagnitudes(synd, errLoc, errPos, len(codeword))
		if !ok {
			return nil, ErrTooCorrupt
		}
		for i, pos := range errPos {
			corrected[pos] ^= magnitudes[i]
		}
	}

	synd2 := syndromes(Bytes(corrected))
	for _, s := range synd2 {
		if s != 0 {
			return nil, ErrTooCorrupt
		}
	}

	return Bytes(corrected[:rsDataBytes]), nil
}

func syndromes(codeword Bytes) []byte {
	synd := make([]byte, rsParityBytes)
	for i := 0; i < rsParityBytes; i++ {
		root := gfPow(gfGenerator, rsFirstRoot+i)
		var acc byte
		for _, c := range codeword {
			acc = gfMul(acc, root) ^ c
		}
		synd[i] = acc
	}
	return synd
}

// berlekampMassey computes the error-locator polynomial from the syndromes.
func berlekampMassey(synd []byte) []byte {
	c := make([]byte, len(synd)+1)
	b := make([]byte, len(synd)+1)
	c[0] = 1
	b[0] = 1

	l := 0
	m := 1
	bCoef := byte(1)

	for n := 0; n < len(synd); n++ {
		var delta byte
		delta = synd[n]
		for i := 1; i <= l; i++ {
			delta ^= gfMul(c[i], synd[n-i])
		}
		if delta == 0 {
			m++
		} else if 2*l <= n {
			t := append([]byte(nil), c...)
			coef := gfDiv(delta, bCoef)
			for i := 0; i < len(b)-m; i++ {
				c[i+m] ^= gfMul(coef, b[i])
			}
			l = n + 1 - l
			b = t
			bCoef = delta
			m = 1
		} else {
			coef := gfDiv(delta, bCoef)
			for i := 0; i < len(b)-m; i++ {
				c[i+m] ^= gfMul(coef, b[i])
			}
			m++
		}
	}
	return c[:l+1]
}

// findErrorPositions is a Chien search: for each candidate codeword index
// pos (array index, first byte = highest-degree coefficient), the
// corresponding error-locator value is X = alpha^(codewordLen-1-pos), and a
// root of errLoc at X^-1 marks an error at pos.
func findErrorPositions(errLoc []byte, codewordLen int) ([]int, bool) {
	var positions []int
	for pos := 0; pos < codewordLen; pos++ {
		exp := codewordLen - 1 - pos
		xInv := gfPow(gfGenerator, -exp)
		var acc byte
		power := byte(1)
		for _, coef := range errLoc {
			acc ^= gfMul(coef, power)
			power = gfMul(power, xInv)
		}
		if acc == 0 {
			positions = append(positions, pos)
		}
	}
	return positions, true
}

// forneyMagnitudes computes error magnitudes at the given byte positions.
// With rsFirstRoot == 1, the general Forney formula's X^(1-fcr) correction
// factor is 1, so e = omega(X^-1) / sigma'(X^-1) (and, in GF(2^k), the
// leading minus sign in the textbook formula is a no-op under XOR).
func forneyMagnitudes(synd, errLoc []byte, errPos []int, codewordLen int) ([]byte, bool) {
	omega := errataEvaluator(synd, errLoc)
	mags := make([]byte, len(errPos))
	for i, pos := range errPos {
		exp := codewordLen - 1 - pos
		xInv := gfPow(gfGenerator, -exp)

		var omegaVal byte
		power := byte(1)
		for _, c := range omega {
			omegaVal ^= gfMul(c, power)
			power = gfMul(power, xInv)
		}

		var derivVal byte
		power = byte(1)
		xInvSq := gfMul(xInv, xInv)
		for j := 1; j < len(errLoc); j += 2 {
			derivVal ^= gfMul(errLoc[j], power)
			power = gfMul(power, xInvSq)
		}
		if derivVal == 0 {
			return nil, false
		}
		mags[i] = gfDiv(omegaVal, derivVal)
	}
	return mags, true
}

// errataEvaluator computes omega(x) = S(x)*errLoc(x) mod x^rsParityBytes,
// both polynomials given in ascending-degree coefficient order (synd[0] and
// errLoc[0] are the constant terms).
func errataEvaluator(synd, errLoc []byte) []byte {
	omega := make([]byte, rsParityBytes)
	for k := 0; k < rsParityBytes; k++ {
		var acc byte
		for j := 0; j <= k; j++ {
			if j < len(synd) && (k-j) < len(errLoc) {
				acc ^= gfMul(synd[j], errLoc[k-j])
			}
		}
		omega[k] = acc
	}
	return omega
}
