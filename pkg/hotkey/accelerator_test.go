package hotkey

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseAccelerator(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Accelerator
		wantErr bool
	}{
		{"bare key", "Insert", Accelerator{Key: "Insert"}, false},
		{"bare key lowercase", "insert", Accelerator{Key: "Insert"}, false},
		{"single modifier", "CTRL+P", Accelerator{Mods: []Modifier{ModCtrl}, Key: "P"}, false},
		{"two modifiers", "CTRL+SUPER+P", Accelerator{Mods: []Modifier{ModCtrl, ModSuper}, Key: "P"}, false},
		{"mixed case", "ctrl+Super+p", Accelerator{Mods: []Modifier{ModCtrl, ModSuper}, Key: "P"}, false},
		{"modifier aliases", "control+win+p", Accelerator{Mods: []Modifier{ModCtrl, ModSuper}, Key: "P"}, false},
		{"duplicate modifier collapsed", "ctrl+ctrl+p", Accelerator{Mods: []Modifier{ModCtrl}, Key: "P"}, false},
		{"function key", "shift+F5", Accelerator{Mods: []Modifier{ModShift}, Key: "F5"}, false},
		{"surrounding spaces", " ctrl + p ", Accelerator{Mods: []Modifier{ModCtrl}, Key: "P"}, false},
		{"empty", "", Accelerator{}, true},
		{"trailing plus", "ctrl+", Accelerator{}, true},
		{"unknown key", "ctrl+kp_enter", Accelerator{}, true},
		{"unknown modifier", "hyper+p", Accelerator{}, true},
		{"modifier as key", "ctrl+shift", Accelerator{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAccelerator(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrBadAccelerator) {
					t.Fatalf("ParseAccelerator(%q) err = %v, want ErrBadAccelerator", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAccelerator(%q) unexpected error: %v", tt.input, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseAccelerator(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestAcceleratorString(t *testing.T) {
	tests := []struct {
		name  string
		accel Accelerator
		want  string
	}{
		{"bare key", Accelerator{Key: "Insert"}, "Insert"},
		{"with modifiers", Accelerator{Mods: []Modifier{ModCtrl, ModSuper}, Key: "P"}, "CTRL+SUPER+P"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.accel.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStringRoundTrips(t *testing.T) {
	for _, s := range []string{"Insert", "CTRL+SUPER+P", "SHIFT+F12", "ALT+Space"} {
		parsed, err := ParseAccelerator(s)
		if err != nil {
			t.Fatalf("ParseAccelerator(%q): %v", s, err)
		}
		if got := parsed.String(); got != s {
			t.Errorf("round trip %q = %q", s, got)
		}
	}
}

func TestDefaultAccelerators(t *testing.T) {
	// A fresh start with no stored config must yield these exact keys.
	if got := DefaultAccelerator(RoleTrigger).String(); got != "Insert" {
		t.Errorf("trigger default = %q, want %q", got, "Insert")
	}
	if got := DefaultAccelerator(RoleToggleActive).String(); got != "CTRL+SUPER+P" {
		t.Errorf("toggle default = %q, want %q", got, "CTRL+SUPER+P")
	}
}

func TestPortalTrigger(t *testing.T) {
	accel := Accelerator{Mods: []Modifier{ModCtrl, ModSuper}, Key: "P"}
	if got := accel.portalTrigger(); got != "CTRL+LOGO+p" {
		t.Errorf("portalTrigger() = %q, want %q", got, "CTRL+LOGO+p")
	}
}
