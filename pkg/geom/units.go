package geom

// MillimetersPerFoot is the number of display millimetres in one internal
// length unit (the decimal foot).
const MillimetersPerFoot = 304.8

// ToInternal converts a length in display millimetres to internal feet.
func ToInternal(mm float64) float64 {
	return mm / MillimetersPerFoot
}

// FromInternal converts a length in internal feet to display millimetres.
func FromInternal(ft float64) float64 {
	return ft * MillimetersPerFoot
}
