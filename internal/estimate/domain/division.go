package domain

import "strings"

var divisionNames = map[string]string{
	"01": "General Requirements",
	"02": "Existing Conditions",
	"03": "Concrete",
	"04": "Masonry",
	"05": "Metals",
	"06": "Wood, Plastics, and Composites",
	"07": "Thermal and Moisture Protection",
	"08": "Openings",
	"09": "Finishes",
	"10": "Specialties",
	"11": "Equipment",
	"12": "Furnishings",
	"22": "Plumbing",
	"23": "Heating, Ventilating, and Air Conditioning",
	"26": "Electrical",
	"31": "Earthwork",
	"32": "Exterior Improvements",
}

// DivisionCode derives the two digit CSI division of a line item. The trade's
// division wins; otherwise the leading digits of the CSI code are used.
func DivisionCode(tradeDivision, csiCode string) string {
	if code := normalizeDivision(tradeDivision); code != "" {
		return code
	}
	return normalizeDivision(csiCode)
}

func DivisionName(code string) string {
	if name, ok := divisionNames[code]; ok {
		return name
	}
	return "Division " + code
}

func normalizeDivision(value string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, value)
	switch len(digits) {
	case 0:
		return ""
	case 1:
		return "0" + digits
	default:
		return digits[:2]
	}
}
