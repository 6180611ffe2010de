// Package models defines the persisted entities of NIDKeeper: operator
// credentials, audit entries and citizen records.
package models
