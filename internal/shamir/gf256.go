package shamir

// Arithmetic in GF(2^8) with the AES reduction polynomial x^8+x^4+x^3+x+1
// and generator 3.

const reducer = 0x11b

//nolint:gochecknoglobals // precomputed tables
var (
	expTable [510]byte
	logTable [256]byte
)

//nolint:gochecknoinits // tables are fixed
func init() {
	x := 1
	for i := 0; i < 255; i++ {
		expTable[i] = byte(x)
		expTable[i+255] = byte(x)
		logTable[x] = byte(i)
		x ^= x << 1
		if x > 0xff {
			x ^= reducer
		}
	}
}

func gfMul(a, b byte) byte {
	if a == 0 || b == 0 {
		return 0
	}
	return expTable[int(logTable[a])+int(logTable[b])]
}

// gfDiv panics on b == 0; callers never pass equal x-coordinates.
func gfDiv(a, b byte) byte {
	if b == 0 {
		panic("shamir: division by zero")
	}
	if a == 0 {
		return 0
	}
	return expTable[int(logTable[a])+255-int(logTable[b])]
}

// evalAt evaluates the polynomial with the given coefficients (constant
// term first) at x using Horner's rule.
func evalAt(coeffs []byte, x byte) byte {
	var y byte
	for i := len(coeffs) - 1; i >= 0; i-- {
		y = gfMul(y, x) ^ coeffs[i]
	}
	return y
}
