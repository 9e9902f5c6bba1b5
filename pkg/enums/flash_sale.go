package enums

import "fmt"

// FlashSaleStatus is the persisted publication flag of a flash sale.
type FlashSaleStatus string

const (
	FlashSaleStatusActive   FlashSaleStatus = "active"
	FlashSaleStatusInactive FlashSaleStatus = "inactive"
)

var validFlashSaleStatuses = []FlashSaleStatus{
	FlashSaleStatusActive,
	FlashSaleStatusInactive,
}

// String implements fmt.Stringer.
func (f FlashSaleStatus) String() string {
	return string(f)
}

// IsValid reports whether the value is a known FlashSaleStatus.
func (f FlashSaleStatus) IsValid() bool {
	for _, candidate := range validFlashSaleStatuses {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseFlashSaleStatus converts raw input into a FlashSaleStatus.
func ParseFlashSaleStatus(value string) (FlashSaleStatus, error) {
	for _, candidate := range validFlashSaleStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid flash sale status %q", value)
}

// FlashSalePhase is derived from the sale window relative to a point in time.
type FlashSalePhase string

const (
	FlashSalePhaseUpcoming FlashSalePhase = "upcoming"
	FlashSalePhaseRunning  FlashSalePhase = "running"
	FlashSalePhaseEnded    FlashSalePhase = "ended"
)

// String implements fmt.Stringer.
func (f FlashSalePhase) String() string {
	return string(f)
}
