package cid

import "testing"

func TestIsSmi(t *testing.T) {
	cases := []struct {
		raw  int64
		want bool
	}{
		{0, true},
		{2, true},
		{-2, true},
		{1, false},
		{-1, false},
		{7, false},
	}
	for _, c := range cases {
		if got := IsSmi(c.raw); got != c.want {
			t.Errorf("IsSmi(%d) = %v, want %v", c.raw, got, c.want)
		}
	}
}

func TestUntagSmi(t *testing.T) {
	cases := []struct {
		raw  int64
		want int64
	}{
		{0, 0},
		{2, 1},
		{-2, -1},
		{246, 123},
	}
	for _, c := range cases {
		if got := UntagSmi(c.raw); got != c.want {
			t.Errorf("UntagSmi(%d) = %d, want %d", c.raw, got, c.want)
		}
	}
}

func TestSyntheticKindsDontCollideWithPredefined(t *testing.T) {
	synthetic := []TypeID{Expression, TaggedCid, NativeInt, NativeDouble, Parameter, ArgsDesc, CurrNumNameParam}
	for _, s := range synthetic {
		if s >= Null {
			t.Errorf("synthetic kind %d collides with the predefined non-negative id space", s)
		}
	}
	if Illegal >= Null {
		t.Errorf("Illegal (%d) must stay outside the predefined id space", Illegal)
	}
}
