// Package passgen generates random passwords and scores password strength
// for the CLI. It draws from the same CSRNG as the vault primitives.
package passgen

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"unicode"
)

const (
	uppercase = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowercase = "abcdefghijklmnopqrstuvwxyz"
	digits    = "0123456789"
	symbols   = "!@#$%^&*()-_=+[]{};:,.<>?"
)

// Options selects the character classes for Generate.
type Options struct {
	Length    int
	Uppercase bool
	Lowercase bool
	Digits    bool
	Symbols   bool
}

// DefaultOptions is a 20-character password over all classes.
func DefaultOptions() Options {
	return Options{Length: 20, Uppercase: true, Lowercase: true, Digits: true, Symbols: true}
}

// Generate returns a random password drawn uniformly from the selected
// alphabet.
func Generate(opts Options) (string, error) {
	if opts.Length <= 0 {
		return "", errors.New("password length must be positive")
	}

	var alphabet strings.Builder
	if opts.Uppercase {
		alphabet.WriteString(uppercase)
	}
	if opts.Lowercase {
		alphabet.WriteString(lowercase)
	}
	if opts.Digits {
		alphabet.WriteString(digits)
	}
	if opts.Symbols {
		alphabet.WriteString(symbols)
	}
	chars := alphabet.String()
	if chars == "" {
		return "", errors.New("no character classes selected")
	}

	max := big.NewInt(int64(len(chars)))
	out := make([]byte, opts.Length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = chars[n.Int64()]
	}
	return string(out), nil
}

// Strength buckets a password from VeryWeak to VeryStrong.
type Strength int

const (
	VeryWeak Strength = iota
	Weak
	Fair
	Good
	Strong
	VeryStrong
)

func (s Strength) String() string {
	switch s {
	case VeryWeak:
		return "very weak"
	case Weak:
		return "weak"
	case Fair:
		return "fair"
	case Good:
		return "good"
	case Strong:
		return "strong"
	default:
		return "very strong"
	}
}

// Score rates a password by length and character-class coverage.
func Score(password string) Strength {
	if password == "" {
		return VeryWeak
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}

	classes := 0
	for _, ok := range []bool{hasUpper, hasLower, hasDigit, hasSymbol} {
		if ok {
			classes++
		}
	}

	points := classes
	switch {
	case len(password) >= 16:
		points += 2
	case len(password) >= 12:
		points++
	case len(password) < 8:
		points--
	}

	switch {
	case points <= 1:
		return VeryWeak
	case points == 2:
		return Weak
	case points == 3:
		return Fair
	case points == 4:
		return Good
	case points == 5:
		return Strong
	default:
		return VeryStrong
	}
}
