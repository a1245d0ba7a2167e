package cmd

import "testing"

func TestParseAddr(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
	}{
		{"0x401000", 0x401000},
		{"4198400", 0x401000},
		{"0X7FF000001000", 0x7ff000001000},
	}
	for _, test := range tests {
		got, err := ParseAddr(test.in)
		if err != nil || uint64(got) != test.want {
			t.Errorf("ParseAddr(%q) = %s, %v", test.in, got, err)
		}
	}
	if _, err := ParseAddr("kernel32.dll"); err == nil {
		t.Error("accepted a non-address")
	}
}

func TestParseRef(t *testing.T) {
	ref, err := ParseRef("kernel32.dll!SetUnhandledExceptionFilter")
	if err != nil || ref.Module != "kernel32.dll" || ref.Name != "SetUnhandledExceptionFilter" {
		t.Fatalf("bad ref %+v, %v", ref, err)
	}
	ref, err = ParseRef("ws2_32.dll!#23")
	if err != nil || ref.Ordinal != 23 || ref.Name != "" {
		t.Fatalf("bad ordinal ref %+v, %v", ref, err)
	}
	for _, bad := range []string{"kernel32.dll", "kernel32.dll!", "a!#x"} {
		if _, err := ParseRef(bad); err == nil {
			t.Errorf("accepted %q", bad)
		}
	}
}
