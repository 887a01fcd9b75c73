package value

import (
	"fmt"
	"math"
)

// maxExactFloatInt is the largest magnitude below which every integer is
// exactly representable as float64 (2^53).
const maxExactFloatInt = 1 << 53

// Convert returns v converted to kind k.
//
// Converting to the kind v already holds returns v unchanged. Only the
// numeric pairs Int<->Float and IntSeq<->FloatSeq are supported; every
// other pair fails with ErrTypeMismatch. A conversion that cannot be
// represented exactly fails with ErrRangeOrPrecisionLoss.
func Convert(v Value, k Kind) (Value, error) {
	if v.kind == k {
		return v, nil
	}

	switch {
	case v.kind == KindInt && k == KindFloat:
		f, err := intToFloat(v.data.(int64))
		if err != nil {
			return Value{}, err
		}
		return Float(f), nil

	case v.kind == KindFloat && k == KindInt:
		i, err := floatToInt(v.data.(float64))
		if err != nil {
			return Value{}, err
		}
		return Int(i), nil

	case v.kind == KindIntSeq && k == KindFloatSeq:
		in := v.data.([]int64)
		out := make([]float64, len(in))
		for idx, i := range in {
			f, err := intToFloat(i)
			if err != nil {
				return Value{}, fmt.Errorf("element %d: %w", idx, err)
			}
			out[idx] = f
		}
		return Value{kind: KindFloatSeq, data: out}, nil

	case v.kind == KindFloatSeq && k == KindIntSeq:
		in := v.data.([]float64)
		out := make([]int64, len(in))
		for idx, f := range in {
			i, err := floatToInt(f)
			if err != nil {
				return Value{}, fmt.Errorf("element %d: %w", idx, err)
			}
			out[idx] = i
		}
		return Value{kind: KindIntSeq, data: out}, nil
	}

	return Value{}, fmt.Errorf("%w: cannot convert %s to %s", ErrTypeMismatch, v.kind, k)
}

func intToFloat(i int64) (float64, error) {
	if i > maxExactFloatInt || i < -maxExactFloatInt {
		f := float64(i)
		// Large values survive only if they happen to be exactly representable.
		if f >= math.MaxInt64 || int64(f) != i {
			return 0, fmt.Errorf("%w: %d as float", ErrRangeOrPrecisionLoss, i)
		}
		return f, nil
	}
	return float64(i), nil
}

func floatToInt(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v as int", ErrRangeOrPrecisionLoss, f)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %v has a fractional part", ErrRangeOrPrecisionLoss, f)
	}
	// float64(math.MaxInt64) rounds up to 2^63, which is out of range.
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("%w: %v overflows int", ErrRangeOrPrecisionLoss, f)
	}
	return int64(f), nil
}

// IsFinite reports whether every float held by v, including those inside
// sequences and tuples, is neither NaN nor infinite. Only finite values
// can be stored in the tree and encoded as JSON.
func (v Value) IsFinite() bool {
	switch d := v.data.(type) {
	case float64:
		return isFinite(d)
	case []float64:
		for _, f := range d {
			if !isFinite(f) {
				return false
			}
		}
	case []Value:
		for _, e := range d {
			if !e.IsFinite() {
				return false
			}
		}
	}
	return true
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
