package prime

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/sync/singleflight"
)

// Rounds is the Miller-Rabin round count used for DH primes
const Rounds = 64

// PrimeBits is the required size of a DH prime
const PrimeBits = 2048

var (
	ErrNotSafePrime     = errors.New("dh prime is not a safe prime")
	ErrPrimeSize        = errors.New("dh prime must be 2048 bits")
	ErrInvalidGenerator = errors.New("invalid dh generator")
	ErrOutOfRange       = errors.New("dh value out of safe range")
)

var (
	one = big.NewInt(1)

	// 2^(2048-64)
	safetyMargin = new(big.Int).Lsh(one, PrimeBits-64)
)

var group singleflight.Group

// IsSafePrime tests p and (p-1)/2 for primality
func IsSafePrime(p *big.Int) bool {
	if !p.ProbablyPrime(Rounds) {
		return false
	}
	half := new(big.Int).Rsh(new(big.Int).Sub(p, one), 1)
	return half.ProbablyPrime(Rounds)
}

// Validate checks that p is a 2048-bit safe prime, consulting and updating checker.
// Concurrent validations of the same unknown prime share one primality test.
func Validate(ctx context.Context, checker Checker, p *big.Int) error {
	if p.BitLen() != PrimeBits {
		return fmt.Errorf("%w: got %d bits", ErrPrimeSize, p.BitLen())
	}

	switch checker.Lookup(p) {
	case Good:
		return nil
	case Bad:
		return ErrNotSafePrime
	}

	ch := group.DoChan(key(p), func() (interface{}, error) {
		return IsSafePrime(p), nil
	})

	// only observed verdicts are cached
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if !res.Val.(bool) {
			checker.MarkBad(p)
			return ErrNotSafePrime
		}
		checker.MarkGood(p)
		return nil
	}
}

// CheckGenerator verifies g is in 2..7 and that p meets the matching
// quadratic residue condition so g generates the (p-1)/2 subgroup.
func CheckGenerator(g int, p *big.Int) error {
	mod := func(m int64) int64 {
		return new(big.Int).Mod(p, big.NewInt(m)).Int64()
	}

	var ok bool
	switch g {
	case 2:
		ok = mod(8) == 7
	case 3:
		ok = mod(3) == 2
	case 4:
		ok = true
	case 5:
		r := mod(5)
		ok = r == 1 || r == 4
	case 6:
		r := mod(24)
		ok = r == 19 || r == 23
	case 7:
		r := mod(7)
		ok = r == 3 || r == 5 || r == 6
	default:
		return fmt.Errorf("%w: g=%d", ErrInvalidGenerator, g)
	}

	if !ok {
		return fmt.Errorf("%w: g=%d does not match p", ErrInvalidGenerator, g)
	}
	return nil
}

// CheckRange verifies 1 < x < p-1
func CheckRange(x, p *big.Int) error {
	pm1 := new(big.Int).Sub(p, one)
	if x.Cmp(one) <= 0 || x.Cmp(pm1) >= 0 {
		return fmt.Errorf("%w: value not in (1, p-1)", ErrOutOfRange)
	}
	return nil
}

// CheckPublicValue verifies 1 < x < p-1 and 2^(2048-64) < x <= p - 2^(2048-64)
func CheckPublicValue(x, p *big.Int) error {
	if err := CheckRange(x, p); err != nil {
		return err
	}
	upper := new(big.Int).Sub(p, safetyMargin)
	if x.Cmp(safetyMargin) <= 0 || x.Cmp(upper) > 0 {
		return fmt.Errorf("%w: value too close to 0 or p", ErrOutOfRange)
	}
	return nil
}
