package models

import "testing"

var testMods = []Module{
	{Name: "game.exe", Base: 0x400000, Size: 0x10000},
	{Name: "d3d9.dll", Base: 0x10000000, Size: 0x2000},
}

func TestResolveKnown(t *testing.T) {
	r := Resolve(testMods, 0x401234)
	if !r.Known() {
		t.Fatal("expected resolution")
	}
	if r.Module.Name != "game.exe" || r.Offset != 0x1234 {
		t.Fatalf("bad resolution: %+v", r)
	}
	if s := r.Format(32); s != "0x00401234 (game.exe+0x1234)" {
		t.Fatalf("bad format: %q", s)
	}
}

func TestResolveUnknown(t *testing.T) {
	for _, addr := range []Addr{0, 0x3fffff, 0x410000, 0x10002000} {
		r := Resolve(testMods, addr)
		if r.Known() {
			t.Errorf("%s: resolved to %s", addr, r.Module.Name)
		}
	}
	if s := Resolve(testMods, 0x1000).Format(64); s != "0x0000000000001000" {
		t.Fatalf("bad format: %q", s)
	}
}

func TestModuleByName(t *testing.T) {
	if m := FindModuleByName(testMods, "D3D9.DLL"); m == nil || m.Base != 0x10000000 {
		t.Fatal("case-insensitive lookup failed")
	}
	if m := FindModuleByName(testMods, ""); m == nil || m.Name != "game.exe" {
		t.Fatal("empty name should select main module")
	}
	if FindModuleByName(testMods, "kernel32.dll") != nil {
		t.Fatal("found missing module")
	}
	// results are copies
	m := FindModule(testMods, 0x400000)
	m.Name = "changed"
	if testMods[0].Name != "game.exe" {
		t.Fatal("FindModule returned a reference into the slice")
	}
}

func TestSegmentOverlap(t *testing.T) {
	a := SegmentOf(0x1000, 5)
	tests := []struct {
		b    Segment
		want bool
	}{
		{SegmentOf(0x1004, 5), true},
		{SegmentOf(0x1005, 5), false},
		{SegmentOf(0xffc, 4), false},
		{SegmentOf(0xffc, 5), true},
		{SegmentOf(0x1001, 1), true},
	}
	for _, test := range tests {
		if got := a.Overlaps(test.b); got != test.want {
			t.Errorf("%v overlaps %v = %v, want %v", a, test.b, got, test.want)
		}
	}
}
