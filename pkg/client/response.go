package client

import "github.com/rosapi/rosapi/pkg/rosproto"

// ReplyAttribute is one =key=value pair from a !re sentence. Value is
// nil and HasValue false for a bare =key word. Both slices are owned
// copies, safe to retain after delivery.
type ReplyAttribute struct {
	Key      []byte
	Value    []byte
	HasValue bool
}

// ResponseBuilder converts protocol events into the caller's response
// type. Implementations run on the connection loop and must not block.
type ResponseBuilder[T any] interface {
	// FromReply builds a response from the attributes of one !re
	// sentence, in wire order.
	FromReply(attrs []ReplyAttribute) T
	// FromError builds a response carrying a session or per command
	// error.
	FromError(err error) T
	// FromTrap builds a response from a decoded trap.
	FromTrap(trap rosproto.Trap) T
}
