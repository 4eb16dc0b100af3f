package reducer

import "math"

// fdlibm 5.3 cosine (k_cos.c, k_sin.c and the medium range of e_rem_pio2.c), the one the
// JVM's StrictMath uses. Products are converted with float64() so they are never fused
// into an FMA. Arguments past 2^19*pi/2 fall back to math.Cos.

var (
	cosC1 = math.Float64frombits(0x3FA555555555554C)
	cosC2 = math.Float64frombits(0xBF56C16C16C15177)
	cosC3 = math.Float64frombits(0x3EFA01A019CB1590)
	cosC4 = math.Float64frombits(0xBE927E4F809C52AD)
	cosC5 = math.Float64frombits(0x3E21EE9EBDB4B1C4)
	cosC6 = math.Float64frombits(0xBDA8FAE9BE8838D4)

	sinS1 = math.Float64frombits(0xBFC5555555555549)
	sinS2 = math.Float64frombits(0x3F8111111110F8A6)
	sinS3 = math.Float64frombits(0xBF2A01A019C161D5)
	sinS4 = math.Float64frombits(0x3EC71DE357B1FE7D)
	sinS5 = math.Float64frombits(0xBE5AE5E68A2B9CEB)
	sinS6 = math.Float64frombits(0x3DE5D93A5ACFD57C)

	invPio2 = math.Float64frombits(0x3FE45F306DC9C883)
	pio2n1  = math.Float64frombits(0x3FF921FB54400000)
	pio2n1t = math.Float64frombits(0x3DD0B4611A626331)
	pio2n2  = math.Float64frombits(0x3DD0B4611A600000)
	pio2n2t = math.Float64frombits(0x3BA3198A2E037073)
	pio2n3  = math.Float64frombits(0x3BA3198A2E000000)
	pio2n3t = math.Float64frombits(0x397B839A252049C1)
)

func highWord(x float64) uint32 {
	return uint32(math.Float64bits(x) >> 32)
}

func strictCos(x float64) float64 {
	ix := highWord(x) & 0x7fffffff

	switch {
	case ix <= 0x3fe921fb:
		return kernelCos(x, 0)
	case ix >= 0x7ff00000:
		return x - x
	case ix > 0x413921fb:
		return math.Cos(x)
	}

	n, y0, y1 := remPio2(x)

	switch n & 3 {
	case 0:
		return kernelCos(y0, y1)
	case 1:
		return -kernelSin(y0, y1, true)
	case 2:
		return -kernelCos(y0, y1)
	default:
		return kernelSin(y0, y1, true)
	}
}

// kernelCos is cos(x+y) for |x| <= pi/4, y the tail of x.
func kernelCos(x, y float64) float64 {
	ix := highWord(x) & 0x7fffffff
	if ix < 0x3e400000 && int(x) == 0 {
		return 1
	}

	z := float64(x * x)

	r := cosC5 + float64(z*cosC6)
	r = cosC4 + float64(z*r)
	r = cosC3 + float64(z*r)
	r = cosC2 + float64(z*r)
	r = cosC1 + float64(z*r)
	r = float64(z * r)

	hz := float64(0.5 * z)
	zr := float64(z*r) - float64(x*y)

	if ix < 0x3fd33333 {
		return 1 - (hz - zr)
	}

	qx := 0.28125
	if ix <= 0x3fe90000 {
		qx = math.Float64frombits(uint64(ix-0x00200000) << 32)
	}

	return (1 - qx) - ((hz - qx) - zr)
}

// kernelSin is sin(x+y) for |x| <= pi/4; hasTail false ignores y.
func kernelSin(x, y float64, hasTail bool) float64 {
	ix := highWord(x) & 0x7fffffff
	if ix < 0x3e400000 && int(x) == 0 {
		return x
	}

	z := float64(x * x)
	v := float64(z * x)

	r := sinS5 + float64(z*sinS6)
	r = sinS4 + float64(z*r)
	r = sinS3 + float64(z*r)
	r = sinS2 + float64(z*r)

	if !hasTail {
		return x + float64(v*(sinS1+float64(z*r)))
	}

	return x - ((float64(z*(float64(0.5*y)-float64(v*r))) - y) - float64(v*sinS1))
}

// remPio2 returns n and y0+y1 = x - n*pi/2 for pi/4 < |x| <= 2^19*pi/2.
func remPio2(x float64) (n int, y0, y1 float64) {
	hx := int32(highWord(x))
	ix := uint32(hx) & 0x7fffffff

	if ix < 0x4002d97c {
		if hx > 0 {
			z := x - pio2n1
			if ix != 0x3ff921fb {
				y0 = z - pio2n1t
				y1 = (z - y0) - pio2n1t
			} else {
				z -= pio2n2
				y0 = z - pio2n2t
				y1 = (z - y0) - pio2n2t
			}

			return 1, y0, y1
		}

		z := x + pio2n1
		if ix != 0x3ff921fb {
			y0 = z + pio2n1t
			y1 = (z - y0) + pio2n1t
		} else {
			z += pio2n2
			y0 = z + pio2n2t
			y1 = (z - y0) + pio2n2t
		}

		return -1, y0, y1
	}

	t := math.Abs(x)
	n = int(float64(t*invPio2) + 0.5)
	fn := float64(n)

	r := t - float64(fn*pio2n1)
	w := float64(fn * pio2n1t)

	j := int(ix >> 20)
	y0 = r - w

	if j-int((highWord(y0)>>20)&0x7ff) > 16 {
		t = r
		w = float64(fn * pio2n2)
		r = t - w
		w = float64(fn*pio2n2t) - ((t - r) - w)
		y0 = r - w

		if j-int((highWord(y0)>>20)&0x7ff) > 49 {
			t = r
			w = float64(fn * pio2n3)
			r = t - w
			w = float64(fn*pio2n3t) - ((t - r) - w)
			y0 = r - w
		}
	}

	y1 = (r - y0) - w

	if hx < 0 {
		return -n, -y0, -y1
	}

	return
}
