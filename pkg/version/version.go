/*
Author: Amjad Yaseen
Email: ayaseen@redhat.com
Date: 2025-04-17

This file provides version information embedded during build time.
*/

package version

import "fmt"

// Version and Commit are set during build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

// String returns the printable version
func String() string {
	return fmt.Sprintf("cluster-probes %s (%s)", Version, Commit)
}
