package kernel_test

import (
	"testing"

	"github.com/brickingsoft/uring/pkg/kernel"
)

func TestGet(t *testing.T) {
	v, err := kernel.Get()
	if err != nil {
		t.Skip(err)
	}
	t.Log(v)
}

func TestParse(t *testing.T) {
	cases := map[string]kernel.Version{
		"6.8.0-45-generic":    {Kernel: 6, Major: 8, Minor: 0, Flavor: "-45-generic"},
		"5.15.153.1-microsoft": {Kernel: 5, Major: 15, Minor: 153, Flavor: ".1-microsoft"},
		"5.1":                  {Kernel: 5, Major: 1},
		"6.1-rc2":              {Kernel: 6, Major: 1, Flavor: "-rc2"},
	}
	for release, want := range cases {
		got, err := kernel.Parse(release)
		if err != nil {
			t.Fatal(release, err)
		}
		if got != want {
			t.Errorf("%s: got %+v want %+v", release, got, want)
		}
	}
	if _, err := kernel.Parse("linux"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestCompare(t *testing.T) {
	v := kernel.Version{Kernel: 5, Major: 19, Minor: 2}
	if !v.AtLeast(5, 6, 0) || v.AtLeast(6, 0, 0) || !v.AtLeast(5, 19, 2) {
		t.Fatal("unexpected compare result")
	}
	if v.String() != "5.19.2" {
		t.Fatal(v.String())
	}
}
