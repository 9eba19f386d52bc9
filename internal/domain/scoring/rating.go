package scoring

import (
	"encoding/json"
	"regexp"
	"strconv"
)

var rxRatingNumber = regexp.MustCompile(`\d+(?:\.\d+)?`)

// ParseRating reads a user rating from a decoded JSON value. Numbers are
// clamped into [0,5]; strings contribute their first decimal number; nil,
// NaN, infinities and anything unparsable mean no rating.
func ParseRating(v interface{}) *float64 {
	var f float64
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return nil
		}
		f = n
	case string:
		m := rxRatingNumber.FindString(x)
		if m == "" {
			return nil
		}
		n, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return nil
		}
		f = n
	case *float64:
		if x == nil {
			return nil
		}
		f = *x
	default:
		return nil
	}
	return NormalizeRating(&f)
}
