// SPDX-License-Identifier: GPL-3.0-only

package dispatcher

// Message is one change notification pushed to connected clients. Data is
// an opaque JSON-encodable payload the registry does not interpret.
// Permission, when set, restricts delivery to connections whose snapshot
// grants that capability.
type Message struct {
	Interface  string `json:"interface"`
	Operation  string `json:"operation"`
	Data       any    `json:"data"`
	Permission string `json:"permission,omitempty"`
}

const (
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
)
