// SPDX-License-Identifier: GPL-3.0-only

package models

// PermissionSet maps a capability name to whether it is granted. Stored as
// a JSON column so session and API key documents carry point-in-time
// snapshots.
type PermissionSet map[string]bool

// StringList is a JSON-encoded ordered list of group IDs.
type StringList []string

// Capabilities is the full permission vocabulary of the platform.
var Capabilities = []string{
	"cancel_job",
	"create_ref",
	"create_sample",
	"modify_hmm",
	"modify_subtraction",
	"remove_file",
	"remove_job",
	"upload_file",
}

// NewPermissionSet returns a PermissionSet with every capability present
// and set to false.
func NewPermissionSet() PermissionSet {
	p := make(PermissionSet, len(Capabilities))
	for _, name := range Capabilities {
		p[name] = false
	}
	return p
}

func (p PermissionSet) Has(name string) bool {
	return p[name]
}

// Limit intersects requested with owner, returning a full permission set
// in which a capability is granted only when both sides grant it. API keys
// must never exceed the permissions of the user holding them.
func Limit(requested, owner PermissionSet) PermissionSet {
	limited := NewPermissionSet()
	for _, name := range Capabilities {
		limited[name] = requested[name] && owner[name]
	}
	return limited
}

// Merge returns a permission set granting every capability granted by
// either operand. Used when composing a user's effective permissions from
// group snapshots.
func Merge(a, b PermissionSet) PermissionSet {
	merged := NewPermissionSet()
	for _, name := range Capabilities {
		merged[name] = a[name] || b[name]
	}
	return merged
}
