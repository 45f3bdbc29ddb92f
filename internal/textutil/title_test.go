package textutil

import "testing"

func TestDisplayTitle(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/models/benchy_boat.stl", "Benchy Boat"},
		{"/models/low-poly fox.stl", "Low Poly Fox"},
		{"gear.v2.final.stl", "Gear V2 Final"},
		{"WIDGET.STL", "Widget"},
		{"___.stl", "Unknown Model"},
		{"", "Unknown Model"},
	}
	for _, tc := range cases {
		if got := DisplayTitle(tc.path); got != tc.want {
			t.Errorf("DisplayTitle(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}
