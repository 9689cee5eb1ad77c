package catalog

// Career types as stored by the backend.
const (
	CareerTypeLower = 1
	CareerTypeUpper = 2
)

// SemesterRange lists the semesters a career of the given type spans:
// type 1 covers 1-6, type 2 covers 7-10, anything else has none.
func SemesterRange(careerType int) []int {
	var from, to int
	switch careerType {
	case CareerTypeLower:
		from, to = 1, 6
	case CareerTypeUpper:
		from, to = 7, 10
	default:
		return []int{}
	}

	out := make([]int, 0, to-from+1)
	for s := from; s <= to; s++ {
		out = append(out, s)
	}
	return out
}
