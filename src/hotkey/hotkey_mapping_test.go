package hotkey

import (
	"testing"
)

func TestKeyNameToRawcodes(t *testing.T) {
	tests := []struct {
		keyName  string
		expected []uint16
	}{
		// Modifier keys
		{"ctrl", []uint16{162, 163}},
		{"alt", []uint16{164, 165}},
		{"shift", []uint16{160, 161}},
		{"win", []uint16{91, 92}},
		{"cmd", []uint16{91, 92}},

		// Letter keys
		{"s", []uint16{83}},
		{"a", []uint16{65}},
		{"z", []uint16{90}},

		// Number keys
		{"0", []uint16{48}},
		{"9", []uint16{57}},

		// Function keys
		{"f1", []uint16{112}},
		{"f12", []uint16{123}},
		{"f24", []uint16{135}},

		// Special keys
		{"space", []uint16{32}},
		{"enter", []uint16{13}},
		{"esc", []uint16{27}},

		// Unknown keys
		{"unknown", nil},
		{"f25", nil},
		{"ç", nil},
	}

	for _, tt := range tests {
		t.Run(tt.keyName, func(t *testing.T) {
			result := keyNameToRawcodes(tt.keyName)
			if len(result) != len(tt.expected) {
				t.Errorf("keyNameToRawcodes(%q) returned %d rawcodes, expected %d",
					tt.keyName, len(result), len(tt.expected))
				return
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("keyNameToRawcodes(%q)[%d] = %d, expected %d",
						tt.keyName, i, result[i], tt.expected[i])
				}
			}
		})
	}
}

func TestParseHotkey(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"Ctrl+Alt+S", []string{"ctrl", "alt", "s"}},
		{"Control+Shift+F9", []string{"ctrl", "shift", "f9"}},
		{"Win+Shift+S", []string{"cmd", "shift", "s"}},
		{"Ctrl + Alt + s", []string{"ctrl", "alt", "s"}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := parseHotkey(tt.input)
			if len(result) != len(tt.expected) {
				t.Errorf("parseHotkey(%q) returned %d keys, expected %d",
					tt.input, len(result), len(tt.expected))
				return
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("parseHotkey(%q)[%d] = %q, expected %q",
						tt.input, i, result[i], tt.expected[i])
				}
			}
		})
	}
}

func TestComboFiresOncePerChord(t *testing.T) {
	c, err := ParseCombo("Ctrl+Alt+S")
	if err != nil {
		t.Fatalf("ParseCombo failed: %v", err)
	}

	const lctrl, ralt, s = 162, 165, 83
	if c.KeyDown(lctrl) || c.KeyDown(ralt) {
		t.Fatal("chord fired before all keys were held")
	}
	if !c.KeyDown(s) {
		t.Fatal("Expected chord to fire")
	}
	// still held: auto-repeat of S alone must not fire again
	if c.KeyDown(s) {
		t.Error("chord fired again without re-pressing modifiers")
	}

	c.KeyUp(s)
	c.KeyDown(lctrl)
	c.KeyUp(lctrl)
	c.KeyDown(ralt)
	if c.KeyDown(s) {
		t.Error("released ctrl must not count as held")
	}
}

func TestParseComboErrors(t *testing.T) {
	for _, in := range []string{"", "Ctrl+Hyper+S"} {
		if _, err := ParseCombo(in); err == nil {
			t.Errorf("ParseCombo(%q): expected error", in)
		}
	}
}
