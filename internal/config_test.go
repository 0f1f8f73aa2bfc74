package internal

import "testing"

func TestParseRawFlag(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{raw: "true", want: true},
		{raw: "1", want: true},
		{raw: "false"},
		{raw: "0"},
		{raw: ""},
		{raw: "banana"},
	}

	for _, tt := range tests {
		if got := parseRawFlag(tt.raw); got != tt.want {
			t.Errorf("parseRawFlag(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestSetModes(t *testing.T) {
	defer SetModes(false, false, false)

	SetModes(true, true, true)
	if !IsQuiet() || !IsDebug() || !IsVerbose() {
		t.Fatal("modes not enabled after SetModes(true, true, true)")
	}

	SetModes(false, false, false)
	if IsQuiet() || IsDebug() || IsVerbose() {
		t.Fatal("modes still enabled after SetModes(false, false, false)")
	}
}
