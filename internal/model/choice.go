package model

import (
	"fmt"
	"math"
	"strings"
)

// Choice is the categorical reaction of a voter to a comment. The stored
// integer values are agree = 1, disagree = -1 and skip = 0.
type Choice int

const (
	Skip     Choice = 0
	Agree    Choice = 1
	Disagree Choice = -1
)

// Valid reports whether c is one of the three known choices.
func (c Choice) Valid() bool {
	return c == Agree || c == Disagree || c == Skip
}

// Value returns the numeric matrix encoding of c. Skip is missing, so it
// returns NaN and false.
func (c Choice) Value() (float64, bool) {
	switch c {
	case Agree:
		return 1, true
	case Disagree:
		return -1, true
	default:
		return math.NaN(), false
	}
}

func (c Choice) String() string {
	switch c {
	case Agree:
		return "agree"
	case Disagree:
		return "disagree"
	case Skip:
		return "skip"
	}
	return fmt.Sprintf("choice(%d)", int(c))
}

// ParseChoice parses "agree", "disagree" or "skip" (or their numeric codes).
func ParseChoice(s string) (Choice, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "agree", "1", "+1":
		return Agree, nil
	case "disagree", "-1":
		return Disagree, nil
	case "skip", "0":
		return Skip, nil
	}
	return Skip, fmt.Errorf("invalid choice %q (valid: agree, disagree, skip)", s)
}

// MarshalText encodes the choice by name.
func (c Choice) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid choice %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (c *Choice) UnmarshalText(b []byte) error {
	parsed, err := ParseChoice(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
