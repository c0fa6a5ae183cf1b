package lineutil

import (
	"time"
)

// knownOffsets backs up zones the bot is deployed in when tzdata is absent.
var knownOffsets = map[string]int{
	"Asia/Dhaka":  6 * 60 * 60,
	"Asia/Taipei": 8 * 60 * 60,
	"UTC":         0,
}

// LoadLocation resolves an IANA zone name. If the zone database is
// unavailable, known zones fall back to a fixed offset and unknown ones to UTC.
func LoadLocation(name string) *time.Location {
	if loc, err := time.LoadLocation(name); err == nil {
		return loc
	}
	if offset, ok := knownOffsets[name]; ok {
		return time.FixedZone(name, offset)
	}
	return time.UTC
}
