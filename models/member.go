package models

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// MemberType представляет тип участника ассоциации.
type MemberType string

const (
	MemberAdherent MemberType = "adherent"
	MemberCoach    MemberType = "coach"
	MemberReferee  MemberType = "referee"
)

// Valid reports whether t is one of the known member types.
func (t MemberType) Valid() bool {
	switch t {
	case MemberAdherent, MemberCoach, MemberReferee:
		return true
	}
	return false
}

// Label returns the type with its first letter upper-cased ("coach" -> "Coach").
func (t MemberType) Label() string {
	s := string(t)
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

type Member struct {
	ID            string     `json:"id"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	DateOfBirth   Date       `json:"date_of_birth"`
	Type          MemberType `json:"type"`
	Grade         *string    `json:"grade,omitempty"`
	AssociationID string     `json:"association_id"`
	CreatedAt     time.Time  `json:"created_at"`
}

// FullName joins first and last name.
func (m Member) FullName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

// GradeSuffix is " • Grade: <grade>" when the member has a grade, "" otherwise.
func (m Member) GradeSuffix() string {
	if m.Grade == nil || *m.Grade == "" {
		return ""
	}
	return " • Grade: " + *m.Grade
}
