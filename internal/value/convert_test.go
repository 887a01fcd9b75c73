package value

import (
	"errors"
	"math"
	"testing"
)

func TestConvert(t *testing.T) {
	tests := []struct {
		name    string
		in      Value
		to      Kind
		want    Value
		wantErr error
	}{
		{"same kind", String("a"), KindString, String("a"), nil},
		{"int to float", Int(3), KindFloat, Float(3), nil},
		{"float to int", Float(-4), KindInt, Int(-4), nil},
		{"fractional float", Float(1.5), KindInt, Value{}, ErrRangeOrPrecisionLoss},
		{"NaN", Float(math.NaN()), KindInt, Value{}, ErrRangeOrPrecisionLoss},
		{"float overflow", Float(1e19), KindInt, Value{}, ErrRangeOrPrecisionLoss},
		{"inexact int", Int(1<<53 + 1), KindFloat, Value{}, ErrRangeOrPrecisionLoss},
		{"large exact int", Int(1 << 60), KindFloat, Float(1 << 60), nil},
		{"max int", Int(math.MaxInt64), KindFloat, Value{}, ErrRangeOrPrecisionLoss},
		{"min int", Int(math.MinInt64), KindFloat, Float(math.MinInt64), nil},
		{"int seq", Ints(1, 2), KindFloatSeq, Floats(1, 2), nil},
		{"float seq lossy", Floats(1, 2.5), KindIntSeq, Value{}, ErrRangeOrPrecisionLoss},
		{"unsupported", Bool(true), KindInt, Value{}, ErrTypeMismatch},
		{"string to int", String("1"), KindInt, Value{}, ErrTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Convert(tt.in, tt.to)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Convert() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Convert() unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Convert() = %v, want %v", got, tt.want)
			}
		})
	}
}
