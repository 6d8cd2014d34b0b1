package model

import (
	"reflect"
	"testing"
)

func TestPortOrigins(t *testing.T) {
	doc := Document{
		"failed": []any{
			map[string]any{"origin": "devel/a", "phase": "build"},
			map[string]any{"origin": "devel/b"},
			map[string]any{"phase": "no-origin"},
			"not-a-record",
		},
		"built": []any{},
	}

	got := PortOrigins(doc)
	if !reflect.DeepEqual(got[CategoryFailed], []string{"devel/a", "devel/b"}) {
		t.Errorf("unexpected failed origins: %v", got[CategoryFailed])
	}
	for _, c := range []string{CategoryBuilt, CategorySkipped, CategoryIgnored} {
		if got[c] == nil || len(got[c]) != 0 {
			t.Errorf("expected empty non-nil list for %s, got %#v", c, got[c])
		}
	}
}

func TestToInt(t *testing.T) {
	tests := []struct {
		in   any
		want int64
		ok   bool
	}{
		{float64(42), 42, true},
		{"17", 17, true},
		{" 5 ", 5, true},
		{"3.0", 3, true},
		{int64(9), 9, true},
		{7, 7, true},
		{"abc", 0, false},
		{nil, 0, false},
		{true, 0, false},
	}

	for _, tt := range tests {
		got, ok := ToInt(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ToInt(%#v) = (%d, %v), want (%d, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestIsFinalized(t *testing.T) {
	if !IsFinalized("stopped:done:") || !IsFinalized("stopped:crashed:") {
		t.Error("expected stopped statuses to be finalized")
	}
	if IsFinalized("parallel_build:") || IsFinalized("") {
		t.Error("expected running statuses not to be finalized")
	}
}
