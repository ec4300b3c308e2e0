// Package household defines the record domains Ghar tracks: their tags,
// storage keys, field schemas, typed shapes, and normalization rules.
package household

import (
	"strings"
)

// Tag identifies one record domain.
type Tag string

const (
	TagVehicle      Tag = "vehicle"
	TagSubscription Tag = "subscription"
	TagBill         Tag = "bill"
	TagPassword     Tag = "password"
	TagWifi         Tag = "wifi"
	TagInsurance    Tag = "insurance"
	TagSavings      Tag = "savings"
	TagGeneral      Tag = "general"
)

// LegacyWifiKey holds Wi-Fi records written by an older page. Records are read from it
// and removed from it, never added.
const LegacyWifiKey = "wifiPasswords"

// Tags lists every domain in display order.
var Tags = []Tag{
	TagVehicle,
	TagSubscription,
	TagBill,
	TagPassword,
	TagWifi,
	TagInsurance,
	TagSavings,
	TagGeneral,
}

type tagInfo struct {
	key   string
	route string
	title string
}

var tagTable = map[Tag]tagInfo{
	TagVehicle:      {key: "vehicles", route: "vehicles", title: "Vehicle"},
	TagSubscription: {key: "subscriptions", route: "subscriptions", title: "Subscription"},
	TagBill:         {key: "bills", route: "bills", title: "Bill"},
	TagPassword:     {key: "passwords", route: "passwords", title: "Password"},
	TagWifi:         {key: "wifiNetworks", route: "wifi", title: "WiFi Network"},
	TagInsurance:    {key: "insurancePolicies", route: "insurance", title: "Insurance Policy"},
	TagSavings:      {key: "savingsGoals", route: "savings", title: "Savings Goal"},
	TagGeneral:      {key: "generalItems", route: "general", title: "Item"},
}

// routePatterns is evaluated in order; the first pattern contained in the path wins.
var routePatterns = []struct {
	pattern string
	tag     Tag
}{
	{"vehicles", TagVehicle},
	{"subscriptions", TagSubscription},
	{"bills", TagBill},
	{"passwords", TagPassword},
	{"wifi", TagWifi},
	{"insurance", TagInsurance},
	{"savings", TagSavings},
}

// ResolveTag picks the domain for a navigation path. It never fails: paths
// that match no pattern resolve to TagGeneral.
func ResolveTag(path string) Tag {
	for _, p := range routePatterns {
		if strings.Contains(path, p.pattern) {
			return p.tag
		}
	}
	return TagGeneral
}

// ParseTag accepts a tag name, storage key, or route keyword (case-insensitive).
func ParseTag(s string) (Tag, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", false
	}
	for _, t := range Tags {
		info := tagTable[t]
		if s == string(t) || s == strings.ToLower(info.key) || s == info.route {
			return t, true
		}
	}
	if s == strings.ToLower(LegacyWifiKey) {
		return TagWifi, true
	}
	return "", false
}

// StorageKey is the key the domain's collection is persisted under.
func (t Tag) StorageKey() string {
	return tagTable[t].key
}

// Route is the URL path segment for the domain.
func (t Tag) Route() string {
	return tagTable[t].route
}

// Title is the singular display name.
func (t Tag) Title() string {
	return tagTable[t].title
}

// Valid reports whether t is a known tag.
func (t Tag) Valid() bool {
	_, ok := tagTable[t]
	return ok
}

func (t Tag) String() string {
	return string(t)
}

// KnownKeys lists every storage key Ghar reads, including the legacy Wi-Fi key.
func KnownKeys() []string {
	keys := make([]string, 0, len(Tags)+1)
	for _, t := range Tags {
		keys = append(keys, t.StorageKey())
	}
	return append(keys, LegacyWifiKey)
}

// TagForKey maps a storage key back to its domain.
func TagForKey(key string) (Tag, bool) {
	if key == LegacyWifiKey {
		return TagWifi, true
	}
	for _, t := range Tags {
		if t.StorageKey() == key {
			return t, true
		}
	}
	return "", false
}
