package models

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dmitrijs2005/nidkeeper/internal/common"
)

// NIDLen is the number of digits in a National ID.
const NIDLen = 10

// Field caps in runes, enforced by Validate.
const (
	MaxNameLen       = 100
	MaxAddressLen    = 200
	MaxDOBLen        = 10
	MaxGenderLen     = 10
	MaxBloodGroupLen = 3
)

// Citizen is a civil-registry record.
type Citizen struct {
	NID        string
	Name       string
	DOB        string
	Gender     string
	Address    string
	FatherName string
	MotherName string
	BloodGroup string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Normalize trims surrounding whitespace from every text field.
func (c *Citizen) Normalize() {
	for _, f := range []*string{&c.NID, &c.Name, &c.DOB, &c.Gender, &c.Address, &c.FatherName, &c.MotherName, &c.BloodGroup} {
		*f = strings.TrimSpace(*f)
	}
}

// Validate checks lengths and characters of the text fields. Date and
// blood-group formats are not interpreted.
func (c *Citizen) Validate() error {
	fields := []struct {
		name     string
		value    string
		max      int
		required bool
	}{
		{"name", c.Name, MaxNameLen, true},
		{"date of birth", c.DOB, MaxDOBLen, true},
		{"gender", c.Gender, MaxGenderLen, true},
		{"address", c.Address, MaxAddressLen, true},
		{"father's name", c.FatherName, MaxNameLen, false},
		{"mother's name", c.MotherName, MaxNameLen, false},
		{"blood group", c.BloodGroup, MaxBloodGroupLen, false},
	}
	for _, f := range fields {
		if f.required && f.value == "" {
			return fmt.Errorf("%w: %s is required", common.ErrValidation, f.name)
		}
		if utf8.RuneCountInString(f.value) > f.max {
			return fmt.Errorf("%w: %s longer than %d characters", common.ErrValidation, f.name, f.max)
		}
		if strings.IndexFunc(f.value, unicode.IsControl) >= 0 {
			return fmt.Errorf("%w: %s contains control characters", common.ErrValidation, f.name)
		}
	}
	return nil
}

// ValidNID reports whether s is exactly NIDLen ASCII digits.
func ValidNID(s string) bool {
	if len(s) != NIDLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func (c Citizen) String() string {
	return fmt.Sprintf("NID: %s | Name: %s | DOB: %s | Gender: %s | Address: %s | Father: %s | Mother: %s | Blood Group: %s",
		c.NID, c.Name, c.DOB, c.Gender, c.Address, c.FatherName, c.MotherName, c.BloodGroup)
}
