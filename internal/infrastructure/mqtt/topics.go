package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the root of every microdb topic.
//
// Change topics follow microdb/{database}/change/{table}/{op} where op is
// insert, update or delete.
const TopicPrefix = "microdb"

// TopicPrefixSystem is the base for system topics.
const TopicPrefixSystem = TopicPrefix + "/system"

// Topics provides builders for microdb MQTT topics.
// Using these helpers keeps publishers and subscribers in agreement.
//
//	topic := mqtt.Topics{}.Change("shop", "book", "insert")
//	// Returns: "microdb/shop/change/book/insert"
type Topics struct{}

// Change returns the topic a committed change is published on.
//
// Example: microdb/shop/change/book/update
func (Topics) Change(database, table, op string) string {
	return fmt.Sprintf("%s/%s/change/%s/%s", TopicPrefix, database, table, op)
}

// TableChanges returns a pattern matching every change to one table.
//
// Pattern: microdb/shop/change/book/+
func (Topics) TableChanges(database, table string) string {
	return fmt.Sprintf("%s/%s/change/%s/+", TopicPrefix, database, table)
}

// DatabaseChanges returns a pattern matching every change in a database.
//
// Pattern: microdb/shop/change/#
func (Topics) DatabaseChanges(database string) string {
	return fmt.Sprintf("%s/%s/change/#", TopicPrefix, database)
}

// SystemStatus returns the client status topic (online/offline, LWT).
//
// Example: microdb/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// AllTopics returns a pattern matching all microdb topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: microdb/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}

// ParseChange splits a change topic into its database, table and op parts.
// ok is false when topic is not a change topic.
func ParseChange(topic string) (database, table, op string, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 5 || parts[0] != TopicPrefix || parts[2] != "change" {
		return "", "", "", false
	}
	for _, p := range parts {
		if p == "" {
			return "", "", "", false
		}
	}
	return parts[1], parts[3], parts[4], true
}
