package rosmock

import (
	"fmt"

	"github.com/panjf2000/gnet/v2"
	"github.com/rosapi/rosapi/pkg/rosproto"
	"github.com/sasha-s/go-deadlock"
)

var (
	doneWord  = []byte("!done")
	reWord    = []byte("!re")
	trapWord  = []byte("!trap")
	fatalWord = []byte("!fatal")
)

// Responder emits the response sentences of one command. It is safe to
// use from handler goroutines: writes go through the engine's async
// path, and a mutex orders every emit against completion, so nothing
// is written for a tag once its done went out. After Done, Fatal or a
// cancel the responder is finished and further emits report
// ErrResponderFinished.
type Responder struct {
	s      *Server
	conn   gnet.Conn
	sess   *session
	tag    uint16
	tagged bool

	mu       deadlock.Mutex
	finished bool
}

// Reply emits one !re sentence carrying attrs.
func (r *Responder) Reply(attrs map[string]string) error {
	words := make([][]byte, 0, len(attrs))
	for k, v := range attrs {
		words = append(words, []byte("="+k+"="+v))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return ErrResponderFinished
	}
	r.s.OutSentences.Inc()
	return r.conn.AsyncWrite(r.sentence(reWord, words...), nil)
}

// Trap emits one !trap sentence. The command stays open, follow with
// Done.
func (r *Responder) Trap(category rosproto.TrapCategory, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return ErrResponderFinished
	}
	r.s.OutSentences.Inc()
	return r.conn.AsyncWrite(r.trapSentence(category, message), nil)
}

// Done completes the command with a bare tagged !done.
func (r *Responder) Done() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return ErrResponderFinished
	}
	r.finished = true
	r.sess.drop(r.tag, r.tagged)
	r.s.OutSentences.Inc()
	return r.conn.AsyncWrite(r.sentence(doneWord), nil)
}

// Fatal emits a !fatal sentence with a plain reason word and closes
// the connection once it is flushed.
func (r *Responder) Fatal(reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return ErrResponderFinished
	}
	r.finished = true
	r.sess.drop(r.tag, r.tagged)
	r.s.OutSentences.Inc()
	return r.conn.AsyncWrite(r.sentence(fatalWord, []byte(reason)), closeAfterWrite)
}

// interrupt completes the command the way a device answers a /cancel,
// one trap and one done in a single flush. A reply racing the cancel
// either goes out before the trap or is refused, never behind the
// done.
func (r *Responder) interrupt() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return
	}
	r.finished = true
	r.sess.drop(r.tag, r.tagged)
	data := r.trapSentence(rosproto.TrapCategoryExecutionInterrupted, "interrupted")
	data = append(data, r.sentence(doneWord)...)
	r.s.OutSentences.Add(2)
	_ = r.conn.AsyncWrite(data, nil)
}

// trapClose emits a trap and closes the connection behind it. Used for
// login rejections.
func (r *Responder) trapClose(category rosproto.TrapCategory, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return ErrResponderFinished
	}
	r.finished = true
	r.sess.drop(r.tag, r.tagged)
	r.s.OutSentences.Inc()
	return r.conn.AsyncWrite(r.trapSentence(category, message), closeAfterWrite)
}

func (r *Responder) trapSentence(category rosproto.TrapCategory, message string) []byte {
	return r.sentence(trapWord,
		[]byte(fmt.Sprintf("=category=%d", category)),
		[]byte("=message="+message))
}

func (r *Responder) sentence(category []byte, words ...[]byte) []byte {
	enc := rosproto.NewEncoder()
	enc.WriteWord(category)
	if r.tagged {
		enc.WriteWord([]byte(fmt.Sprintf(".tag=%d", r.tag)))
	}
	for _, w := range words {
		enc.WriteWord(w)
	}
	enc.WriteTerminator()
	return enc.Bytes()
}

func closeAfterWrite(c gnet.Conn, err error) error {
	return c.Close()
}
