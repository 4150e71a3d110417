package models

// Rupees converts a minor-unit amount (paise) to the display float carried
// alongside it on API responses. Minor units stay the source of truth.
func Rupees(paise int64) float64 {
	return float64(paise) / 100
}

// RupeesPtr is Rupees for optional amounts.
func RupeesPtr(paise *int64) *float64 {
	if paise == nil {
		return nil
	}
	v := Rupees(*paise)
	return &v
}
