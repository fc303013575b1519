package client

import (
	"context"

	"github.com/rosapi/rosapi/pkg/rosproto"
)

// SimpleTrap is the trap variant of a SimpleResult.
type SimpleTrap struct {
	Category rosproto.TrapCategory
	Message  string
}

// SimpleResult is a ready made response type for callers that only
// want attribute maps. Exactly one of Reply, Trap and Err is set.
// Attributes without a value flatten to the empty string.
type SimpleResult struct {
	Reply map[string]string
	Trap  *SimpleTrap
	Err   error
}

// SimpleBuilder builds SimpleResult values.
type SimpleBuilder struct{}

func (SimpleBuilder) FromReply(attrs []ReplyAttribute) SimpleResult {
	reply := make(map[string]string, len(attrs))
	for _, a := range attrs {
		reply[string(a.Key)] = string(a.Value)
	}
	return SimpleResult{Reply: reply}
}

func (SimpleBuilder) FromError(err error) SimpleResult {
	return SimpleResult{Err: err}
}

func (SimpleBuilder) FromTrap(trap rosproto.Trap) SimpleResult {
	return SimpleResult{Trap: &SimpleTrap{
		Category: trap.Category,
		Message:  string(trap.Message),
	}}
}

// ConnectSimple opens a session that yields SimpleResult values. An
// empty password logs in with a bare password flag, which is what the
// wire carries for an empty value anyway.
func ConnectSimple(ctx context.Context, addr string, username, password string, opt ...Option) (*Device[SimpleResult], error) {
	var pw []byte
	if password != "" {
		pw = []byte(password)
	}
	return Connect[SimpleResult](ctx, addr, []byte(username), pw, SimpleBuilder{}, opt...)
}
