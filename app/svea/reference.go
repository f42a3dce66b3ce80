package svea

import (
	"errors"
	"fmt"
	"strconv"
)

var ErrReferenceNumberTooSmall = errors.New("reference number base must be at least 100")

// referenceWeights cycle 7, 3, 1 starting from the least significant digit.
var referenceWeights = []int{7, 3, 1}

// ReferenceNumber derives the gateway reference number from an internal
// numeric id by appending a check digit such that the weighted digit sum is a
// multiple of ten. The gateway rejects references below three digits, so ids
// under 100 are refused; callers keep ids above the floor with a fixed offset.
func ReferenceNumber(id int64) (string, error) {
	if id < 100 {
		return "", fmt.Errorf("%w: got %d", ErrReferenceNumberTooSmall, id)
	}

	digits := strconv.FormatInt(id, 10)
	sum := 0
	for i := 0; i < len(digits); i++ {
		digit := int(digits[len(digits)-1-i] - '0')
		sum += digit * referenceWeights[i%len(referenceWeights)]
	}
	check := (10 - sum%10) % 10

	return digits + strconv.Itoa(check), nil
}

// VerifyReferenceNumber reports whether ref carries a valid check digit for
// its leading digits.
func VerifyReferenceNumber(ref string) bool {
	if len(ref) < 4 {
		return false
	}
	base, err := strconv.ParseInt(ref[:len(ref)-1], 10, 64)
	if err != nil {
		return false
	}
	expected, err := ReferenceNumber(base)
	if err != nil {
		return false
	}
	return expected == ref
}
