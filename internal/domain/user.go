// Package domain contains entity without logic, just meta-data
package domain

import (
	"bytes"
	"encoding/json"
	"errors"
)

const (
	MaxIDLen       = 64
	MaxUsernameLen = 80
)

var (
	ErrIDTooLong       = errors.New("id too long")
	ErrIDType          = errors.New("id must be a string or a number")
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
)

// UserID is an opaque user token. Clients may send it as a JSON string or number.
type UserID string

func (id *UserID) UnmarshalJSON(b []byte) error {
	s, err := decodeID(b)
	if err != nil {
		return err
	}
	*id = UserID(s)
	return nil
}

// ChannelID is an opaque channel token, decoded like UserID.
type ChannelID string

func (id *ChannelID) UnmarshalJSON(b []byte) error {
	s, err := decodeID(b)
	if err != nil {
		return err
	}
	*id = ChannelID(s)
	return nil
}

// decodeID accepts "42", 42 and "abc". null decodes to the empty id so that
// required-field checks can reject it.
func decodeID(b []byte) (string, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return "", nil
	}
	var s string
	switch b[0] {
	case '"':
		if err := json.Unmarshal(b, &s); err != nil {
			return "", err
		}
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return "", ErrIDType
		}
		s = n.String()
	}
	if len(s) > MaxIDLen {
		return "", ErrIDTooLong
	}
	return s, nil
}

func ValidateUsername(username string) error {
	if len(username) == 0 {
		return ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	return nil
}
