package journal

import (
	"fmt"
	"regexp"
)

// MaxInstanceNameLength keeps instance names DNS-label sized.
const MaxInstanceNameLength = 63

var instanceNamePattern = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)

// ValidateInstanceName checks that name is lowercase alphanumeric with
// inner hyphens only. Instance names are embedded in every key.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("instance name cannot be empty")
	}
	if len(name) > MaxInstanceNameLength {
		return fmt.Errorf("instance name too long: %d characters (max: %d)", len(name), MaxInstanceNameLength)
	}
	if !instanceNamePattern.MatchString(name) {
		return fmt.Errorf("invalid instance name '%s': must be lowercase alphanumeric with hyphens (not at start/end)", name)
	}
	return nil
}

// Redis key pattern helpers
//
// Key pattern: vinehill:{instance_name}:{entity}[:{id}]
// Channel pattern: vinehill:{instance_name}:{event_type}_events

// EventKey returns the Redis key for a single event hash.
// Pattern: vinehill:{instance_name}:event:{event_id}
func EventKey(instanceName, eventID string) string {
	return fmt.Sprintf("vinehill:%s:event:%s", instanceName, eventID)
}

// EventIndexKey returns the Redis key of the time-ordered event index ZSET.
// Pattern: vinehill:{instance_name}:events
func EventIndexKey(instanceName string) string {
	return fmt.Sprintf("vinehill:%s:events", instanceName)
}

// DirectoryKey returns the Redis key holding a category's directory message id.
// Pattern: vinehill:{instance_name}:directory:{category}
func DirectoryKey(instanceName, category string) string {
	return fmt.Sprintf("vinehill:%s:directory:%s", instanceName, category)
}

// CatalogEventsChannel returns the Pub/Sub channel name for catalog events.
// Pattern: vinehill:{instance_name}:catalog_events
func CatalogEventsChannel(instanceName string) string {
	return fmt.Sprintf("vinehill:%s:catalog_events", instanceName)
}
