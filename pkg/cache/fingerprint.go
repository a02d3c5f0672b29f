package cache

import (
	"crypto/md5"
	"fmt"
)

// Fingerprints are pure functions of the logical request fields, never of
// incidental request metadata, so the same query always maps onto the same
// cache entry.

func ListingFingerprint(location string, date string, start string, end string) string {
	return fmt.Sprintf("listing:%s:%s:%s-%s", location, date, start, end)
}

func ServiceFingerprint(servicePath string) string {
	return fmt.Sprintf("service:%s", servicePath)
}

// Filename converts a fingerprint into a stable filesystem-safe name.
func Filename(key string) string {
	return fmt.Sprintf("%x.html", md5.Sum([]byte(key)))
}
