package protocol

import (
	"errors"
	"testing"
)

func TestParseMemberIDRoundTrip(t *testing.T) {
	cases := []string{
		"nexis:human:alice@example.com",
		"nexis:agent:planner",
		"nexis:bot:ci",
		"nexis:human:team:alice@example.com", // identifier keeps its colons
	}

	for _, input := range cases {
		id, err := ParseMemberID(input)
		if err != nil {
			t.Fatalf("ParseMemberID(%q): %v", input, err)
		}
		if got := id.String(); got != input {
			t.Errorf("round trip mismatch: got %q, want %q", got, input)
		}
	}
}

func TestParseMemberIDTypes(t *testing.T) {
	tests := []struct {
		input string
		want  MemberType
	}{
		{"nexis:human:alice", MemberTypeHuman},
		{"nexis:agent:planner", MemberTypeAgent},
		{"nexis:bot:ci", MemberTypeBot},
	}

	for _, tt := range tests {
		id, err := ParseMemberID(tt.input)
		if err != nil {
			t.Fatalf("ParseMemberID(%q): %v", tt.input, err)
		}
		if id.Type != tt.want {
			t.Errorf("ParseMemberID(%q).Type = %q, want %q", tt.input, id.Type, tt.want)
		}
	}
}

func TestParseMemberIDErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, err error)
	}{
		{
			name:  "wrong prefix",
			input: "other:human:x",
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrInvalidPrefix) {
					t.Errorf("got %v, want ErrInvalidPrefix", err)
				}
			},
		},
		{
			name:  "unknown type",
			input: "nexis:robot:x",
			check: func(t *testing.T, err error) {
				var typeErr *InvalidTypeError
				if !errors.As(err, &typeErr) {
					t.Fatalf("got %v, want *InvalidTypeError", err)
				}
				if typeErr.TypeName != "robot" {
					t.Errorf("TypeName = %q, want %q", typeErr.TypeName, "robot")
				}
			},
		},
		{
			name:  "empty identifier",
			input: "nexis:agent:",
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrInvalidIdentifier) {
					t.Errorf("got %v, want ErrInvalidIdentifier", err)
				}
			},
		},
		{
			name:  "missing identifier segment",
			input: "nexis:human",
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrInvalidIdentifier) {
					t.Errorf("got %v, want ErrInvalidIdentifier", err)
				}
			},
		},
		{
			name:  "empty string",
			input: "",
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrInvalidPrefix) {
					t.Errorf("got %v, want ErrInvalidPrefix", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMemberID(tt.input)
			if err == nil {
				t.Fatalf("ParseMemberID(%q) succeeded, want error", tt.input)
			}
			tt.check(t, err)
		})
	}
}

func TestMemberIDTextMarshaling(t *testing.T) {
	id := MemberID{Type: MemberTypeHuman, Identifier: "alice@example.com"}

	data, err := id.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	if string(data) != "nexis:human:alice@example.com" {
		t.Errorf("MarshalText = %q", data)
	}

	var decoded MemberID
	if err := decoded.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if decoded != id {
		t.Errorf("decoded = %+v, want %+v", decoded, id)
	}

	if err := decoded.UnmarshalText([]byte("nexis:robot:x")); err == nil {
		t.Error("UnmarshalText accepted an invalid type")
	}
}
