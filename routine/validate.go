package routine

import (
	"fmt"
	"regexp"

	"github.com/meridianhq/steward/notes"
)

// timePattern matches 24-hour HH:MM clock strings.
var timePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

const (
	// minActivities is the smallest schedule worth committing.
	minActivities = 3

	// minDescriptionLen guards against one-word placeholder descriptions.
	minDescriptionLen = 10
)

// validateActivities checks a draft schedule against the structural
// rules. It returns the first violation found as a human-readable
// message suitable for feeding back into the generation prompt.
func validateActivities(activities []notes.Activity) error {
	if len(activities) < minActivities {
		return fmt.Errorf("the routine must contain at least %d activities, got %d", minActivities, len(activities))
	}

	for i, a := range activities {
		if a.Time == "" || a.Activity == "" || a.Description == "" {
			return fmt.Errorf("activity %d is missing a required field (time, activity, description)", i+1)
		}
		if !timePattern.MatchString(a.Time) {
			return fmt.Errorf("activity %d has time %q, expected 24-hour HH:MM", i+1, a.Time)
		}
		if len(a.Description) < minDescriptionLen {
			return fmt.Errorf("activity %d description %q is too short, write at least %d characters", i+1, a.Description, minDescriptionLen)
		}
	}

	for i := 1; i < len(activities); i++ {
		if activities[i].Time < activities[i-1].Time {
			return fmt.Errorf("activities must be in chronological order: %q comes after %q", activities[i].Time, activities[i-1].Time)
		}
	}

	return nil
}
