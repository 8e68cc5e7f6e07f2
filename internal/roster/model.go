package roster

import (
	"errors"
	"fmt"
	"strings"
)

const maxBookingNumberLength = 20

// ErrInvalidBookingNumber indicates a booking number is empty or exceeds
// storage bounds.
var ErrInvalidBookingNumber = errors.New("roster: invalid booking number")

// BookingNumber represents a validated upstream booking identifier. It is
// the stable identity of an inmate across scrapes.
type BookingNumber string

// NewBookingNumber validates raw input and returns a BookingNumber.
func NewBookingNumber(rawInput string) (BookingNumber, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidBookingNumber)
	}
	if len(trimmed) > maxBookingNumberLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidBookingNumber, maxBookingNumberLength)
	}
	return BookingNumber(trimmed), nil
}

// String returns the underlying identifier.
func (b BookingNumber) String() string {
	return string(b)
}

// Inmate is one roster record, upserted by booking number on every scrape
// pass. Age is nullable because the upstream birth field is frequently
// absent or non-numeric.
type Inmate struct {
	ID            uint     `gorm:"column:id;primaryKey"`
	BookingNumber string   `gorm:"column:booking_number;size:20;not null;uniqueIndex"`
	FirstName     string   `gorm:"column:first_name;size:100;not null;default:''"`
	LastName      string   `gorm:"column:last_name;size:100;not null;default:''"`
	Age           *int     `gorm:"column:age"`
	Charges       []Charge `gorm:"foreignKey:InmateID;constraint:OnDelete:CASCADE"`
}

// TableName provides the explicit table binding for GORM.
func (Inmate) TableName() string {
	return "inmates"
}

// Charge belongs to exactly one inmate. The full charge set for an inmate
// is replaced wholesale on every scrape, so rows always reflect the latest
// snapshot.
type Charge struct {
	ID              uint   `gorm:"column:id;primaryKey"`
	InmateID        uint   `gorm:"column:inmate_id;not null;index"`
	Description     string `gorm:"column:description;type:text;not null"`
	BondAmount      string `gorm:"column:bond_amount;size:50;not null;default:''"`
	CourtCaseNumber string `gorm:"column:court_case_number;size:50;not null;default:''"`
	CourtLocation   string `gorm:"column:court_location;size:50;not null;default:''"`
	Note            string `gorm:"column:note;type:text;not null;default:''"`
}

// TableName provides the explicit table binding for GORM.
func (Charge) TableName() string {
	return "charges"
}
