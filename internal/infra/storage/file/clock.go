package file

import "time"

// nowRFC3339 is the default timestamp source for cursor entries; tests
// substitute a fixed clock.
func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
