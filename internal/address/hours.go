package address

import "strings"

var weekdayKeys = map[string]string{
	"Monday":    "monday",
	"Tuesday":   "tuesday",
	"Wednesday": "wednesday",
	"Thursday":  "thursday",
	"Friday":    "friday",
	"Saturday":  "saturday",
	"Sunday":    "sunday",
}

// ParseHours converts "Monday: 10:00 AM – 9:00 PM" lines into a weekday map.
// Lines that do not start with a known weekday are dropped.
func ParseHours(weekdayText []string) map[string]string {
	hours := make(map[string]string, len(weekdayText))
	for _, line := range weekdayText {
		idx := strings.Index(line, ":")
		if idx <= 0 {
			continue
		}
		key, ok := weekdayKeys[strings.TrimSpace(line[:idx])]
		if !ok {
			continue
		}
		hours[key] = strings.TrimSpace(line[idx+1:])
	}
	return hours
}
