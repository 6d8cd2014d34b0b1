package buildid

import (
	"errors"
	"testing"
)

func TestEncode_FieldOrder(t *testing.T) {
	got := Encode("", "default", "120amd64", "2024-01-01_00h00m00s", "pkg1.example.org")
	want := "pkg1:default:default:120amd64:2024-01-01_00h00m00s"
	if got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}

func TestNew_NormalizesSetnameAndHost(t *testing.T) {
	id := New("", "ports", "jail", "b1", "server.freebsd.org")
	if id.Setname != DefaultSetname {
		t.Errorf("expected setname %q, got %q", DefaultSetname, id.Setname)
	}
	if id.Server != "server" {
		t.Errorf("expected server short name, got %q", id.Server)
	}

	id = New("qat", "ports", "jail", "b1", "localhost")
	if id.Setname != "qat" || id.Server != "localhost" {
		t.Errorf("unexpected id %+v", id)
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		id   ID
	}{
		{"plain", ID{"pkg1", "default", "head", "130amd64", "2024-05-01_10h12m01s"}},
		{"named set", ID{"pkg2", "qat", "quarterly", "122i386", "b"}},
		{"delimiter in component", ID{"pkg3", "a:b", "ports", "jail", "build:1"}},
		{"percent in component", ID{"pkg4", "100%", "%3A", "jail", "%"}},
		{"empty components", ID{"", "", "", "", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.id.String())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.id {
				t.Errorf("Decode(String()) = %+v, want %+v", got, tt.id)
			}
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"too few components", "pkg1:default:head:jail"},
		{"too many components", "pkg1:default:head:jail:build:extra"},
		{"empty string", ""},
		{"dangling escape", "pkg1:default:head:jail:build%"},
		{"unknown escape", "pkg1:default:head:%41:build"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.input)
			if !errors.Is(err, ErrMalformedIdentity) {
				t.Errorf("expected ErrMalformedIdentity, got %v", err)
			}
		})
	}
}

func TestGroupName(t *testing.T) {
	tests := []struct {
		id   ID
		want string
	}{
		{ID{Server: "s", Setname: "default", Ptname: "p", Jailname: "130amd64", Buildname: "b1"}, "b1-130amd64"},
		{ID{Server: "s", Setname: "qat", Ptname: "p", Jailname: "130amd64", Buildname: "b1"}, "b1-130amd64-qat"},
	}

	for _, tt := range tests {
		if got := tt.id.GroupName(); got != tt.want {
			t.Errorf("GroupName() = %q, want %q", got, tt.want)
		}
	}
}

func TestServerShort(t *testing.T) {
	if got := ServerShort("a.b.c"); got != "a" {
		t.Errorf("expected a, got %q", got)
	}
	if got := ServerShort("plain"); got != "plain" {
		t.Errorf("expected plain, got %q", got)
	}
}
