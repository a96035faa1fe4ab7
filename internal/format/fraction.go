package format

import (
	"fmt"
	"time"
)

// Fraction is an exact rational value. Frame rates, timestamps and
// durations are carried as fractions of a second so that repeated field
// splitting stays drift-free; conversion to time.Duration happens only
// at reporting edges.
type Fraction struct {
	Num int64 `json:"num"`
	Den int64 `json:"den"`
}

// NewFraction returns num/den reduced to lowest terms.
func NewFraction(num, den int64) Fraction {
	return Fraction{num, den}.reduce()
}

func gcd(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func (f Fraction) reduce() Fraction {
	if f.Den == 0 {
		return f
	}
	if f.Den < 0 {
		f.Num, f.Den = -f.Num, -f.Den
	}
	if g := gcd(f.Num, f.Den); g > 1 {
		f.Num /= g
		f.Den /= g
	}
	return f
}

// IsZero reports whether the fraction has no value (unset or 0/x).
func (f Fraction) IsZero() bool {
	return f.Num == 0 || f.Den == 0
}

// Add returns f+o as a reduced fraction.
func (f Fraction) Add(o Fraction) Fraction {
	if f.Den == 0 {
		return o.reduce()
	}
	if o.Den == 0 {
		return f.reduce()
	}
	return Fraction{f.Num*o.Den + o.Num*f.Den, f.Den * o.Den}.reduce()
}

// Mul returns f*o as a reduced fraction.
func (f Fraction) Mul(o Fraction) Fraction {
	return Fraction{f.Num * o.Num, f.Den * o.Den}.reduce()
}

// Invert returns den/num.
func (f Fraction) Invert() Fraction {
	return Fraction{f.Den, f.Num}.reduce()
}

// Cmp returns -1, 0 or 1 comparing f against o.
func (f Fraction) Cmp(o Fraction) int {
	l := f.Num * o.Den
	r := o.Num * f.Den
	switch {
	case l < r:
		return -1
	case l > r:
		return 1
	default:
		return 0
	}
}

// Duration converts a fraction of seconds to a time.Duration, rounding
// toward zero.
func (f Fraction) Duration() time.Duration {
	if f.Den == 0 {
		return 0
	}
	return time.Duration(f.Num * int64(time.Second) / f.Den)
}

func (f Fraction) String() string {
	return fmt.Sprintf("%d/%d", f.Num, f.Den)
}
