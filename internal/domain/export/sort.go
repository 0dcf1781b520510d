package export

import (
	"sort"

	"github.com/okian/reviewdesk/internal/domain/model"
)

// SortBy returns a copy of rows ordered by field. Integers compare
// numerically, everything else by text, and absent values sort lowest.
// Equal values keep their input order in both directions.
func SortBy(rows []Row, field string, descending bool) []Row {
	out := make([]Row, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Value(field), out[j].Value(field)
		if descending {
			return compare(b, a) < 0
		}
		return compare(a, b) < 0
	})
	return out
}

func compare(a, b model.Value) int {
	switch {
	case a.IsAbsent() && b.IsAbsent():
		return 0
	case a.IsAbsent():
		return -1
	case b.IsAbsent():
		return 1
	}
	if x, ok := a.Int(); ok {
		if y, ok := b.Int(); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			default:
				return 0
			}
		}
	}
	at, bt := a.Text(), b.Text()
	switch {
	case at < bt:
		return -1
	case at > bt:
		return 1
	default:
		return 0
	}
}
