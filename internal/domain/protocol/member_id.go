package protocol

import (
	"errors"
	"fmt"
	"strings"
)

// MemberType is the kind of participant behind a member id.
type MemberType string

const (
	MemberTypeHuman MemberType = "human"
	MemberTypeAgent MemberType = "agent"
	MemberTypeBot   MemberType = "bot"
)

// ErrInvalidPrefix is returned when a member id does not start with "nexis:".
var ErrInvalidPrefix = errors.New("member id must start with \"nexis:\"")

// ErrInvalidIdentifier is returned when the identifier segment is empty.
var ErrInvalidIdentifier = errors.New("member id identifier must not be empty")

// InvalidTypeError is returned when the type segment is not a known MemberType.
type InvalidTypeError struct {
	TypeName string
}

func (e *InvalidTypeError) Error() string {
	return fmt.Sprintf("invalid member type %q (expected human, agent, or bot)", e.TypeName)
}

// MemberID identifies a room participant. Wire form is the string
// "nexis:<type>:<identifier>"; the identifier may itself contain colons.
type MemberID struct {
	Type       MemberType
	Identifier string
}

// ParseMemberID parses the "nexis:<type>:<identifier>" grammar.
// The string is split on the first two colons only, so identifiers like
// "team:alice@example.com" survive a round trip.
func ParseMemberID(s string) (MemberID, error) {
	rest, ok := strings.CutPrefix(s, "nexis:")
	if !ok {
		return MemberID{}, ErrInvalidPrefix
	}

	typePart, identifier, found := strings.Cut(rest, ":")
	if !found {
		return MemberID{}, ErrInvalidIdentifier
	}

	memberType := MemberType(typePart)
	switch memberType {
	case MemberTypeHuman, MemberTypeAgent, MemberTypeBot:
	default:
		return MemberID{}, &InvalidTypeError{TypeName: typePart}
	}

	if identifier == "" {
		return MemberID{}, ErrInvalidIdentifier
	}

	return MemberID{Type: memberType, Identifier: identifier}, nil
}

// String returns the canonical wire form.
func (m MemberID) String() string {
	return "nexis:" + string(m.Type) + ":" + m.Identifier
}

// IsZero reports whether the id is the zero value.
func (m MemberID) IsZero() bool {
	return m.Type == "" && m.Identifier == ""
}

// MarshalText serializes the id as its string form.
func (m MemberID) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText parses the string form, enforcing the grammar.
func (m *MemberID) UnmarshalText(data []byte) error {
	parsed, err := ParseMemberID(string(data))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
