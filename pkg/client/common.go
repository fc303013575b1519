package client

import (
	"strings"

	"github.com/rosapi/rosapi/pkg/rosproto"
)

// isLoginDone reports whether sentence is the exact login confirmation
// shape, a category !done word followed by a tag word and nothing else.
func isLoginDone(sentence rosproto.Sentence) bool {
	return len(sentence) == 2 &&
		sentence[0].Type == rosproto.WordTypeCategory &&
		sentence[0].Category == rosproto.CategoryDone &&
		sentence[1].Type == rosproto.WordTypeTag
}

// fatalReason picks the first plain word of a !fatal sentence, which
// is where the device puts the reason text.
func fatalReason(words []rosproto.Word) []byte {
	for _, w := range words {
		if w.Type == rosproto.WordTypeMessage {
			return w.Message
		}
	}
	return nil
}

// ownedBytes copies p out of the shared parse buffer. nil stays nil so
// the value/no value distinction survives the copy.
func ownedBytes(p []byte) []byte {
	if p == nil {
		return nil
	}
	c := make([]byte, len(p))
	copy(c, p)
	return c
}

func parseAddr(addr string) (network, address string) {
	network = "tcp"
	address = addr
	if strings.Contains(address, "://") {
		pair := strings.SplitN(address, "://", 2)
		network = pair[0]
		address = pair[1]
	}
	return
}
