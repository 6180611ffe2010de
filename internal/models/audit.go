package models

import (
	"crypto/sha256"
	"encoding/binary"
	"time"
)

// Action is the closed set of audited event kinds.
type Action string

const (
	ActionRegistered   Action = "REGISTERED"
	ActionSearched     Action = "SEARCHED"
	ActionUpdated      Action = "UPDATED"
	ActionDeleted      Action = "DELETED"
	ActionListed       Action = "LISTED"
	ActionLoginSuccess Action = "LOGIN_SUCCESS"
	ActionLoginFailed  Action = "LOGIN_FAILED"

	ActionAccountLocked     Action = "ACCOUNT_LOCKED"
	ActionAccountUnlocked   Action = "ACCOUNT_UNLOCKED"
	ActionCredentialCreated Action = "CREDENTIAL_CREATED"
	ActionPasswordChanged   Action = "PASSWORD_CHANGED"
)

var knownActions = map[Action]struct{}{
	ActionRegistered:        {},
	ActionSearched:          {},
	ActionUpdated:           {},
	ActionDeleted:           {},
	ActionListed:            {},
	ActionLoginSuccess:      {},
	ActionLoginFailed:       {},
	ActionAccountLocked:     {},
	ActionAccountUnlocked:   {},
	ActionCredentialCreated: {},
	ActionPasswordChanged:   {},
}

// Valid reports whether a belongs to the closed set.
func (a Action) Valid() bool {
	_, ok := knownActions[a]
	return ok
}

// ListedSubject is the subject of LISTED entries, which touch every record.
const ListedSubject = "*"

// AuditEntry is one immutable audit record.
type AuditEntry struct {
	// ID is assigned by the store, increasing in append order.
	ID int64

	// SubjectID is the affected citizen NID, or the username for auth events.
	SubjectID string
	// Actor is the operator who acted; empty when nobody was logged in.
	Actor  string
	Action Action
	// Timestamp has second precision and never decreases in append order.
	Timestamp time.Time

	// PrevHash is the Hash of the preceding entry, nil for the first one.
	PrevHash []byte
	// Hash chains this entry to PrevHash.
	Hash []byte
}

// ComputeHash returns SHA-256 over PrevHash and the entry's content fields.
// Variable-length fields are length-prefixed so no two entries collide by
// shifting bytes between fields.
func (e *AuditEntry) ComputeHash() []byte {
	h := sha256.New()
	writeField := func(b []byte) {
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(b)))
		h.Write(n[:])
		h.Write(b)
	}
	writeField(e.PrevHash)
	writeField([]byte(e.SubjectID))
	writeField([]byte(e.Actor))
	writeField([]byte(e.Action))
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(e.Timestamp.Unix()))
	h.Write(ts[:])
	return h.Sum(nil)
}
