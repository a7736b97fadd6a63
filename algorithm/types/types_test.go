package types

import "testing"

func TestParseOptionType(t *testing.T) {
	cases := map[string]OptionType{"call": OptionTypeCall, " PUT ": OptionTypePut, "Call": OptionTypeCall}
	for in, want := range cases {
		got, ok := ParseOptionType(in)
		if !ok || got != want {
			t.Errorf("ParseOptionType(%q) = %q, %v", in, got, ok)
		}
	}
	if _, ok := ParseOptionType("straddle"); ok {
		t.Errorf("expected straddle to be rejected")
	}
	if OptionTypePut.Sign() != -1 || OptionTypeCall.Sign() != 1 {
		t.Errorf("unexpected signs")
	}
	if OptionType("").Valid() {
		t.Errorf("empty option type must be invalid")
	}
}
