package pricing

import (
	"fmt"

	"github.com/clinicbook/backend/models/shared_models"
	"github.com/clinicbook/backend/utils/apperrors"
)

// All amounts are integer cents. Rounding happens once, when the tax is
// derived, and never while accumulating room costs.
const (
	// Tax is 3.5% of the subtotal, expressed as 35/1000.
	taxNumerator   = 35
	taxDenominator = 1000

	// SecurityDepositCents is the one-time refundable deposit charged until
	// the user's first successful payment activates their membership.
	SecurityDepositCents int64 = 25000
)

// RoomRates carries a room's price tiers in cents.
type RoomRates struct {
	FullDayPrice     int64
	HalfDayPrice     int64
	MonthlyFullPrice int64
	MonthlyHalfPrice int64
}

// Selection is one room's chosen time-slot and dates, paired with the room's
// rates so Quote stays free of I/O.
type Selection struct {
	RoomID   string
	TimeSlot string
	Dates    []string
	Rates    RoomRates
}

// PriceBreakdown is the derived quote. It is never persisted on its own; the
// booking stores a snapshot of Total at confirmation time.
type PriceBreakdown struct {
	Subtotal        int64 `json:"subtotal"`
	Tax             int64 `json:"tax"`
	SecurityDeposit int64 `json:"security_deposit"`
	Total           int64 `json:"total"`
}

// Quote computes the price for a set of room selections. Selections with no
// dates are skipped; if none remain the quote is rejected.
func Quote(selections []Selection, bookingType string, isMember bool) (*PriceBreakdown, error) {
	if !shared_models.IsValidBookingType(bookingType) {
		return nil, apperrors.NewValidation("unknown booking type %q", bookingType)
	}

	var subtotal int64
	var priced int

	for _, sel := range selections {
		if len(sel.Dates) == 0 {
			continue
		}
		if !shared_models.IsValidTimeSlot(sel.TimeSlot) {
			return nil, apperrors.NewValidation("unknown time slot %q for room %s", sel.TimeSlot, sel.RoomID)
		}

		var roomCost int64
		if bookingType == shared_models.BookingTypeDaily {
			unitPrice := sel.Rates.HalfDayPrice
			if sel.TimeSlot == shared_models.TimeSlotFull {
				unitPrice = sel.Rates.FullDayPrice
			}
			roomCost = unitPrice * int64(len(sel.Dates))
		} else {
			// Monthly is one flat charge per room regardless of date count.
			roomCost = sel.Rates.MonthlyHalfPrice
			if sel.TimeSlot == shared_models.TimeSlotFull {
				roomCost = sel.Rates.MonthlyFullPrice
			}
		}

		subtotal += roomCost
		priced++
	}

	if priced == 0 {
		return nil, apperrors.NewValidation("no room selection has any dates")
	}

	tax := roundHalfUp(subtotal*taxNumerator, taxDenominator)

	deposit := SecurityDepositCents
	if isMember {
		deposit = 0
	}

	return &PriceBreakdown{
		Subtotal:        subtotal,
		Tax:             tax,
		SecurityDeposit: deposit,
		Total:           subtotal + tax + deposit,
	}, nil
}

func roundHalfUp(numerator, denominator int64) int64 {
	return (numerator + denominator/2) / denominator
}

// FormatCents renders cents as a two-decimal string for display and email.
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
