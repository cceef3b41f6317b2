package orders

import (
	"fmt"
	"strings"

	"github.com/ttacon/libphonenumber"
)

const defaultPhoneRegion = "GH"

// normalizePhone parses a customer number in the given region and returns it
// in E.164 so the same recipient is stored the same way on every order.
func normalizePhone(raw, region string) (string, error) {
	num, err := libphonenumber.Parse(strings.TrimSpace(raw), region)
	if err != nil {
		return "", err
	}
	if !libphonenumber.IsPossibleNumber(num) {
		return "", fmt.Errorf("%q is not a dialable number", raw)
	}
	return libphonenumber.Format(num, libphonenumber.E164), nil
}
