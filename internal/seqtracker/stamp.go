package seqtracker

import "strconv"

// PropertySequenceNumber is the well-known message property name the
// producer stamps on every tracked message: the decimal string form of a
// non-negative 64-bit sequence number, starting at 0 with no gaps.
const PropertySequenceNumber = "sequence_number"

// PropertyTargetMax is the well-known, optional message property carrying
// the total expected cycle count minus one. It is advisory: upper layers
// may use it to decide when to stop consuming, but the tracker does not
// apply it automatically (see SPEC_FULL.md O2).
const PropertyTargetMax = "sequence_tgt_max"

// Stamp returns the property set a producer should attach to a message
// carrying sequence number n.
func Stamp(n int64) map[string]string {
	return map[string]string{
		PropertySequenceNumber: strconv.FormatInt(n, 10),
	}
}

// StampWithTargetMax is Stamp plus the advisory sequence_tgt_max property.
func StampWithTargetMax(n, targetMax int64) map[string]string {
	props := Stamp(n)
	props[PropertyTargetMax] = strconv.FormatInt(targetMax, 10)
	return props
}

// ParseSequenceNumber extracts and parses the sequence_number property.
// Absence or a malformed value disables tracking for that message: the
// second return is false and the message should simply not be fed to a
// Tracker (spec: parsing failures are ignored, not errors).
func ParseSequenceNumber(props map[string]string) (int64, bool) {
	return parseNonNegativeInt64(props, PropertySequenceNumber)
}

// ParseTargetMax extracts and parses the optional sequence_tgt_max
// property.
func ParseTargetMax(props map[string]string) (int64, bool) {
	return parseNonNegativeInt64(props, PropertyTargetMax)
}

func parseNonNegativeInt64(props map[string]string, key string) (int64, bool) {
	raw, ok := props[key]
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
