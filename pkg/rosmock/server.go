package rosmock

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/lni/goutils/syncutil"
	"github.com/panjf2000/ants/v2"
	"github.com/panjf2000/gnet/v2"
	"github.com/rosapi/rosapi/pkg/roslog"
	"github.com/rosapi/rosapi/pkg/rosproto"
	"github.com/sasha-s/go-deadlock"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

var ErrResponderFinished = errors.New("rosmock responder already finished")

// Handler serves one command. When it returns without finishing the
// responder, the server completes the command with a bare done.
type Handler func(req *Request, w *Responder)

// Statistics Statistics
type Statistics struct {
	Connections  atomic.Uint64
	InSentences  atomic.Uint64
	OutSentences atomic.Uint64
}

type session struct {
	loggedIn bool

	mu     deadlock.Mutex
	active map[uint16]*Responder
}

func (s *session) drop(tag uint16, tagged bool) {
	if !tagged {
		return
	}
	s.mu.Lock()
	delete(s.active, tag)
	s.mu.Unlock()
}

// Server is a scriptable stand in for a RouterOS device. Register
// handlers per command path, anything else answers a trap. Login and
// cancel are served by the server itself.
type Server struct {
	gnet.BuiltinEventEngine
	Statistics
	roslog.Log

	opts   *Options
	eng    gnet.Engine
	booted atomic.Bool

	routeMapLock deadlock.RWMutex
	routeMap     map[string]Handler

	handlerPool *ants.Pool
	stopper     *syncutil.Stopper
	startedC    chan error
}

func New(addr string, opt ...Option) *Server {
	opts := NewOptions()
	opts.Addr = addr
	for _, op := range opt {
		if op != nil {
			op(opts)
		}
	}
	s := &Server{
		opts:     opts,
		routeMap: make(map[string]Handler),
		stopper:  syncutil.NewStopper(),
		startedC: make(chan error, 1),
		Log:      roslog.NewRosLog(fmt.Sprintf("MockDevice[%s]", addr)),
	}
	handlerPool, err := ants.NewPool(opts.HandlerPoolSize)
	if err != nil {
		s.Panic("new handler pool error", zap.Error(err))
	}
	s.handlerPool = handlerPool
	return s
}

// Start runs the engine and blocks until it is accepting connections.
func (s *Server) Start() error {
	s.stopper.RunWorker(func() {
		err := gnet.Run(s, s.opts.Addr,
			gnet.WithMulticore(false),
			gnet.WithNumEventLoop(1),
			gnet.WithTCPNoDelay(gnet.TCPNoDelay))
		if err != nil {
			select {
			case s.startedC <- err:
			default:
				s.Error("engine stopped", zap.Error(err))
			}
		}
	})
	return <-s.startedC
}

func (s *Server) Stop() {
	if s.booted.Load() {
		if err := s.eng.Stop(context.Background()); err != nil {
			s.Warn("engine stop error", zap.Error(err))
		}
	}
	s.stopper.Stop()
	s.handlerPool.Release()
}

// Handle registers h for a command path.
func (s *Server) Handle(path string, h Handler) {
	s.routeMapLock.Lock()
	defer s.routeMapLock.Unlock()
	s.routeMap[path] = h
}

func (s *Server) handler(path string) Handler {
	s.routeMapLock.RLock()
	defer s.routeMapLock.RUnlock()
	return s.routeMap[path]
}

func (s *Server) Addr() string {
	return s.opts.Addr
}

func (s *Server) OnBoot(eng gnet.Engine) gnet.Action {
	s.eng = eng
	s.booted.Store(true)
	select {
	case s.startedC <- nil:
	default:
	}
	return gnet.None
}

func (s *Server) OnOpen(c gnet.Conn) ([]byte, gnet.Action) {
	c.SetContext(&session{active: make(map[uint16]*Responder)})
	s.Connections.Inc()
	return nil, gnet.None
}

func (s *Server) OnClose(c gnet.Conn, err error) gnet.Action {
	if err != nil {
		s.Debug("connection closed", zap.Error(err))
	}
	return gnet.None
}

func (s *Server) OnTraffic(c gnet.Conn) gnet.Action {
	sess, ok := c.Context().(*session)
	if !ok {
		return gnet.Close
	}
	buff, _ := c.Peek(-1)
	consumed := 0
	for {
		sentence, n, err := rosproto.NextSentence(buff[consumed:])
		if err == rosproto.ErrIncomplete {
			break
		}
		if err != nil {
			s.Warn("undecodable sentence", zap.Error(err))
			_, _ = c.Discard(consumed)
			return gnet.Close
		}
		consumed += n
		s.InSentences.Inc()
		if action := s.dispatch(c, sess, sentence); action != gnet.None {
			_, _ = c.Discard(consumed)
			return action
		}
	}
	_, _ = c.Discard(consumed)
	return gnet.None
}

// dispatch serves one sentence. Request fields are copied out before
// anything leaves the event loop, the sentence aliases the inbound
// buffer.
func (s *Server) dispatch(c gnet.Conn, sess *session, sentence rosproto.Sentence) gnet.Action {
	if len(sentence) == 0 {
		return gnet.None
	}
	req, err := parseRequest(sentence)
	if err != nil {
		s.Warn("rejecting sentence", zap.Error(err))
		return gnet.Close
	}
	r := &Responder{s: s, conn: c, sess: sess, tag: req.Tag, tagged: req.Tagged}

	if req.Path == "/login" {
		return s.handleLogin(sess, req, r)
	}
	if s.opts.RequireLogin && !sess.loggedIn {
		_ = r.Fatal("not logged in")
		return gnet.None
	}
	if req.Path == "/cancel" {
		return s.handleCancel(sess, req, r)
	}

	h := s.handler(req.Path)
	if h == nil {
		_ = r.Trap(rosproto.TrapCategoryMissingItemOrCommand, "no such command")
		_ = r.Done()
		return gnet.None
	}
	if req.Tagged {
		sess.mu.Lock()
		sess.active[req.Tag] = r
		sess.mu.Unlock()
	}
	if err := s.handlerPool.Submit(func() {
		h(req, r)
		// a handler that returns without completing gets a bare done,
		// Done on a finished responder is a refused no-op
		_ = r.Done()
	}); err != nil {
		s.Error("handler submit failed", zap.Error(err))
		sess.drop(req.Tag, req.Tagged)
		_ = r.Trap(rosproto.TrapCategoryGeneralError, "server busy")
		_ = r.Done()
	}
	return gnet.None
}

func (s *Server) handleLogin(sess *session, req *Request, r *Responder) gnet.Action {
	if s.opts.Username != "" || s.opts.Password != "" {
		if req.Attrs["name"] != s.opts.Username || req.Attrs["password"] != s.opts.Password {
			s.Info("login rejected", zap.String("name", req.Attrs["name"]))
			_ = r.trapClose(rosproto.TrapCategoryApiError, "invalid user name or password")
			return gnet.None
		}
	}
	sess.loggedIn = true
	if err := r.Done(); err != nil {
		return gnet.Close
	}
	return gnet.None
}

func (s *Server) handleCancel(sess *session, req *Request, r *Responder) gnet.Action {
	if target, err := strconv.ParseUint(req.Attrs["tag"], 10, 16); err == nil {
		sess.mu.Lock()
		victim := sess.active[uint16(target)]
		sess.mu.Unlock()
		if victim != nil {
			victim.interrupt()
		}
	}
	_ = r.Done()
	return gnet.None
}
