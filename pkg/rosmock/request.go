package rosmock

import (
	"fmt"

	"github.com/rosapi/rosapi/pkg/rosproto"
)

// Request is one decoded command sentence. All fields are owned copies,
// handlers may retain them.
type Request struct {
	Path    string
	Tag     uint16
	Tagged  bool
	Attrs   map[string]string
	Queries []string
}

// parseRequest turns a command sentence into a Request. Query words
// keep their operator prefix with the leading ? stripped.
func parseRequest(s rosproto.Sentence) (*Request, error) {
	if len(s) == 0 {
		return nil, fmt.Errorf("empty sentence")
	}
	if s[0].Type != rosproto.WordTypeMessage || len(s[0].Message) == 0 || s[0].Message[0] != '/' {
		return nil, fmt.Errorf("sentence does not start with a command path")
	}
	req := &Request{
		Path:  string(s[0].Message),
		Attrs: make(map[string]string),
	}
	for _, w := range s[1:] {
		switch w.Type {
		case rosproto.WordTypeTag:
			req.Tag, req.Tagged = w.Tag, true
		case rosproto.WordTypeAttribute:
			req.Attrs[string(w.Key)] = string(w.Value)
		case rosproto.WordTypeMessage:
			if len(w.Message) > 0 && w.Message[0] == '?' {
				req.Queries = append(req.Queries, string(w.Message[1:]))
			}
		case rosproto.WordTypeCategory:
			return nil, fmt.Errorf("category word %s in a command", w.Category)
		}
	}
	return req, nil
}
