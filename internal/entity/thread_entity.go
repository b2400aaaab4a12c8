package entity

import "time"

// Thread is a named conversation session owned by one admin. Ids are
// composite time+random strings generated by the lifecycle service, not
// database-assigned.
type Thread struct {
	ThreadId       string
	AdminId        string
	ChatName       string
	StartTimestamp time.Time
	EndTimestamp   *time.Time
}
