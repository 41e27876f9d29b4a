package crypto

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/big"
	"math/bits"
)

var (
	ErrFactorization = errors.New("pq factorization failed")
)

// FactorizePQ splits pq into its two prime factors p < q.
// It runs Pollard's rho with Brent's cycle detection rather than Lehman's
// method, reseeding each round, with at least 3 rounds and at least 1000
// inner iterations in total.
func FactorizePQ(pq uint64, random io.Reader) (p, q uint64, err error) {
	if pq < 4 {
		return 0, 0, fmt.Errorf("%w: pq %d is too small", ErrFactorization, pq)
	}
	if pq%2 == 0 {
		return orderFactors(2, pq/2)
	}

	var g uint64
	for i, iter := 0, 0; i < 3 || iter < 1000; i++ {
		r1, err := randUint64(random)
		if err != nil {
			return 0, 0, err
		}
		r2, err := randUint64(random)
		if err != nil {
			return 0, 0, err
		}

		c := (17 + r1%32) % (pq - 1)
		x := r2%(pq-1) + 1
		y := x
		lim := 1 << (min(5, i) + 18)

		for j := 1; j < lim; j++ {
			iter++
			x = mulAddMod(c, x, x, pq)
			z := x - y
			if x < y {
				z = y - x
			}
			g = gcd(z, pq)
			if g != 1 {
				break
			}
			if j&(j-1) == 0 {
				y = x
			}
		}

		if g > 1 && g < pq {
			break
		}
	}

	if g <= 1 || g >= pq {
		return 0, 0, fmt.Errorf("%w: no divisor of %d found", ErrFactorization, pq)
	}
	return orderFactors(g, pq/g)
}

func orderFactors(a, b uint64) (uint64, uint64, error) {
	if a > b {
		a, b = b, a
	}
	return a, b, nil
}

// mulAddMod returns (c + a*b) mod m without overflow
func mulAddMod(c, a, b, m uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	_, rem := bits.Div64(hi%m, lo, m)
	sum, carry := bits.Add64(rem, c%m, 0)
	if carry != 0 || sum >= m {
		sum -= m
	}
	return sum
}

func gcd(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func randUint64(random io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(random, buf[:]); err != nil {
		return 0, fmt.Errorf("failed to read random: %w", err)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// IsPQ reports whether p*q == pq using arbitrary precision
func IsPQ(pq, p, q uint64) bool {
	prod := new(big.Int).Mul(new(big.Int).SetUint64(p), new(big.Int).SetUint64(q))
	return prod.Cmp(new(big.Int).SetUint64(pq)) == 0
}
