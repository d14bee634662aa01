// https://github.com/rest-for-physics/minos-core
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cmdi

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rest-for-physics/minos-core/errs"
)

// parseSelector expands one ASIC- or channel-selector token into the list of indices it names: a single index ("3"), an
// inclusive range ("2:5"), or the wildcard "*" meaning every index
// 0..count-1.
func parseSelector(tok string, count int) ([]int, error) {
	if tok == "*" {
		out := make([]int, count)
		for i := range out {
			out[i] = i
		}
		return out, nil
	}

	if lo, hi, ok := strings.Cut(tok, ":"); ok {
		a, err := parseInt(lo)
		if err != nil {
			return nil, err
		}
		b, err := parseInt(hi)
		if err != nil {
			return nil, err
		}
		if a > b {
			a, b = b, a
		}
		if a < 0 || b >= count {
			return nil, fmt.Errorf("%w: range %s out of [0,%d)", errs.ErrIllegalParameter, tok, count)
		}
		out := make([]int, 0, b-a+1)
		for i := a; i <= b; i++ {
			out = append(out, i)
		}
		return out, nil
	}

	i, err := parseInt(tok)
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= count {
		return nil, fmt.Errorf("%w: index %d out of [0,%d)", errs.ErrIllegalParameter, i, count)
	}
	return []int{i}, nil
}

// parseInt accepts decimal, "0x"-prefixed hex, and "0"-prefixed octal
// literals (strconv's base-0 rules), the numeric grammar the original
// interpreter's sscanf("%i", ...) calls accepted.
func parseInt(tok string) (int, error) {
	v, err := strconv.ParseInt(tok, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", errs.ErrSyntax, tok)
	}
	return int(v), nil
}

// parseFloat parses a probability or scale-factor argument.
func parseFloat(tok string) (float64, error) {
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", errs.ErrSyntax, tok)
	}
	return v, nil
}

// parseDelta recognizes the "++"/"--" increment-decrement grammar
// used by threshold/pedestal nudge commands, alongside
// plain absolute literals. ok is false when tok is an absolute value
// rather than a relative adjustment.
func parseDelta(tok string) (delta int, ok bool, err error) {
	switch {
	case tok == "++":
		return 1, true, nil
	case tok == "--":
		return -1, true, nil
	case strings.HasPrefix(tok, "++"):
		v, err := parseInt(tok[2:])
		return v, true, err
	case strings.HasPrefix(tok, "--"):
		v, err := parseInt(tok[2:])
		return -v, true, err
	}
	return 0, false, nil
}
