package client

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/lni/goutils/syncutil"
	"github.com/pkg/errors"
	"github.com/rosapi/rosapi/pkg/bytequeue"
	"github.com/rosapi/rosapi/pkg/roslog"
	"github.com/rosapi/rosapi/pkg/rosproto"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

type readEvent struct {
	data []byte
	err  error
}

type pending[T any] struct {
	cmd    rosproto.Command
	stream *Stream[T]
}

// Device is one logged in RouterOS API session. All session state
// (socket, parse queue, tag table) is owned by the connection loop
// goroutine; callers talk to it over channels, so a Device is safe for
// concurrent use. Responses for a command arrive on the Stream returned
// at submission, matched by tag.
type Device[T any] struct {
	Statistics
	roslog.Log

	addr    string
	opts    *Options
	builder ResponseBuilder[T]
	conn    net.Conn

	queue       *bytequeue.ByteQueue
	outstanding map[uint16]*Stream[T]

	commandC chan *pending[T]
	readC    chan readEvent
	doneC    chan struct{}
	doneOnce sync.Once

	// submitMu orders submission against teardown: senders hold the
	// read side across the status check and enqueue, teardown takes
	// the write side before its final drain of commandC.
	submitMu sync.RWMutex

	stopper   *syncutil.Stopper
	tagGen    atomic.Uint32
	status    atomic.Int32
	closeOnce sync.Once
}

// Connect dials addr, runs the login handshake and starts the
// connection loop. addr accepts "host:port" or "tcp://host:port".
// A nil password logs in with a bare password flag. ctx bounds dialing
// and the handshake only; the running session carries no timeouts.
func Connect[T any](ctx context.Context, addr string, username, password []byte, builder ResponseBuilder[T], opt ...Option) (*Device[T], error) {
	opts := NewOptions()
	for _, op := range opt {
		if op != nil {
			op(opts)
		}
	}
	d := &Device[T]{
		addr:        addr,
		opts:        opts,
		builder:     builder,
		queue:       bytequeue.New(),
		outstanding: make(map[uint16]*Stream[T]),
		commandC:    make(chan *pending[T], opts.SendQueueLen),
		readC:       make(chan readEvent),
		doneC:       make(chan struct{}),
		stopper:     syncutil.NewStopper(),
		Log:         roslog.NewRosLog(fmt.Sprintf("Device[%s]", addr)),
	}
	d.status.Store(int32(CONNECTING))

	network, address := parseAddr(addr)
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		d.status.Store(int32(CLOSED))
		return nil, errors.Wrap(err, "dial")
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		if err := tc.SetNoDelay(true); err != nil {
			_ = conn.Close()
			d.status.Store(int32(CLOSED))
			return nil, errors.Wrap(err, "set nodelay")
		}
	}
	d.conn = conn

	d.status.Store(int32(LOGGINGIN))
	watchDone := make(chan struct{})
	loginDone := make(chan struct{})
	d.stopper.RunWorker(func() {
		defer close(watchDone)
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-loginDone:
		}
	})
	leftover, lerr := d.login(username, password)
	close(loginDone)
	<-watchDone
	if ctx.Err() != nil {
		// the watcher may have closed the socket under us
		lerr = ctx.Err()
	}
	if lerr != nil {
		_ = conn.Close()
		d.queue.Reset()
		d.status.Store(int32(CLOSED))
		return nil, lerr
	}
	if len(leftover) > 0 {
		_, _ = d.queue.Write(leftover)
	}

	d.status.Store(int32(RUNNING))
	d.stopper.RunWorker(d.readLoop)
	d.stopper.RunWorker(d.loop)
	return d, nil
}

// login writes the login command under a fresh tag and reads until the
// device answers. Only a two word tagged !done counts as success; any
// other first sentence is a rejection. Returns the bytes received past
// the confirming sentence, they belong to the session proper.
func (d *Device[T]) login(username, password []byte) ([]byte, error) {
	cmd := rosproto.LoginCommand(d.nextTag(), username, password)
	if _, err := d.conn.Write(cmd.Data); err != nil {
		return nil, errors.Wrap(err, "write login")
	}
	d.OutCommands.Inc()
	d.OutBytes.Add(uint64(len(cmd.Data)))

	var acc []byte
	buf := make([]byte, d.opts.ReadBufferSize)
	for {
		n, err := d.conn.Read(buf)
		if n > 0 {
			d.InBytes.Add(uint64(n))
			acc = append(acc, buf[:n]...)
			sentence, consumed, perr := rosproto.NextSentence(acc)
			if perr == nil {
				d.InSentences.Inc()
				if !isLoginDone(sentence) {
					return nil, ErrLoginFailed
				}
				return acc[consumed:], nil
			}
			if perr != rosproto.ErrIncomplete {
				return nil, perr
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil, ErrConnectionClosed
			}
			return nil, errors.Wrap(err, "read login reply")
		}
	}
}

// Send builds a command for path, letting build add attributes and
// queries, and submits it.
func (d *Device[T]) Send(ctx context.Context, path []byte, build func(b *rosproto.CommandBuilder)) (*Stream[T], error) {
	b := rosproto.NewCommandBuilder(d.nextTag(), path)
	if build != nil {
		build(b)
	}
	return d.SendCommand(ctx, b.Build())
}

// SendSimple submits a bare command for path.
func (d *Device[T]) SendSimple(ctx context.Context, path []byte) (*Stream[T], error) {
	return d.Send(ctx, path, nil)
}

// SendCommand submits a built command. It blocks while the send queue
// is full; ctx bounds only this wait. The returned stream yields
// responses in arrival order until the command completes or the
// session dies.
func (d *Device[T]) SendCommand(ctx context.Context, cmd rosproto.Command) (*Stream[T], error) {
	d.submitMu.RLock()
	defer d.submitMu.RUnlock()
	if st := Status(d.status.Load()); st == SHUTTINGDOWN || st == CLOSED {
		return nil, ErrClosed
	}

	pc := &pending[T]{cmd: cmd, stream: newStream[T](d.opts.ResponseQueueLen)}
	select {
	case d.commandC <- pc:
		return pc.stream, nil
	case <-d.doneC:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// NextTag allocates a fresh tag for a manually built command.
func (d *Device[T]) NextTag() uint16 {
	return d.nextTag()
}

func (d *Device[T]) nextTag() uint16 {
	return uint16(d.tagGen.Inc() - 1)
}

// Status reports the session state.
func (d *Device[T]) Status() Status {
	return Status(d.status.Load())
}

// Close cancels every outstanding command on the device, finishes
// their streams and tears the connection down. It blocks until the
// connection loop has exited.
func (d *Device[T]) Close() {
	d.closeOnce.Do(func() {
		d.stopper.Stop()
	})
}

// readLoop owns the read half of the socket and forwards owned chunks
// to the connection loop.
func (d *Device[T]) readLoop() {
	buf := make([]byte, d.opts.ReadBufferSize)
	for {
		n, err := d.conn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case d.readC <- readEvent{data: chunk}:
			case <-d.doneC:
				return
			case <-d.stopper.ShouldStop():
				return
			}
		}
		if err != nil {
			select {
			case d.readC <- readEvent{err: err}:
			case <-d.doneC:
			case <-d.stopper.ShouldStop():
			}
			return
		}
	}
}

// loop is the connection actor. It alone touches the write half of the
// socket, the parse queue and the tag table. Socket events win over
// new command admission so device output drains first.
func (d *Device[T]) loop() {
	for {
		select {
		case ev := <-d.readC:
			if err := d.handleRead(ev); err != nil {
				d.teardown(err)
				return
			}
			continue
		default:
		}

		select {
		case ev := <-d.readC:
			if err := d.handleRead(ev); err != nil {
				d.teardown(err)
				return
			}
		case pc := <-d.commandC:
			if err := d.handleCommand(pc); err != nil {
				d.teardown(err)
				return
			}
		case <-d.stopper.ShouldStop():
			d.cancelOutstanding()
			d.teardown(nil)
			return
		}
	}
}

func (d *Device[T]) handleRead(ev readEvent) error {
	if ev.err != nil {
		if ev.err == io.EOF {
			d.Info("device closed the connection")
			return ErrConnectionClosed
		}
		d.Error("read failed", zap.Error(ev.err))
		return errors.Wrap(ev.err, "read")
	}
	d.InBytes.Add(uint64(len(ev.data)))
	_, _ = d.queue.Write(ev.data)
	for d.queue.Len() > 0 {
		sentence, n, err := rosproto.NextSentence(d.queue.Bytes())
		if err == rosproto.ErrIncomplete {
			return nil
		}
		if err != nil {
			d.Error("sentence decode failed", zap.Error(err))
			return err
		}
		d.InSentences.Inc()
		if err := d.processSentence(sentence); err != nil {
			d.Error("sentence rejected", zap.Error(err))
			return err
		}
		d.queue.Discard(n)
	}
	return nil
}

func (d *Device[T]) handleCommand(pc *pending[T]) error {
	if _, err := d.conn.Write(pc.cmd.Data); err != nil {
		d.Error("write failed", zap.Uint16("tag", pc.cmd.Tag), zap.Error(err))
		werr := errors.Wrap(err, "write")
		// the command never reached the wire, fail its stream directly
		pc.stream.deliver(d.builder.FromError(werr))
		pc.stream.finish()
		return werr
	}
	d.OutCommands.Inc()
	d.OutBytes.Add(uint64(len(pc.cmd.Data)))
	if old, ok := d.outstanding[pc.cmd.Tag]; ok {
		// the wrapping tag counter lapped a still outstanding command
		d.Warn("tag reused while still outstanding", zap.Uint16("tag", pc.cmd.Tag))
		old.deliver(d.builder.FromError(ErrTagReused))
		old.finish()
	}
	d.outstanding[pc.cmd.Tag] = pc.stream
	return nil
}

// processSentence dispatches one decoded sentence by its leading
// category word. The returned error is fatal to the session.
func (d *Device[T]) processSentence(sentence rosproto.Sentence) error {
	if len(sentence) == 0 {
		return &rosproto.MissingWordError{Expected: rosproto.WordTypeCategory}
	}
	first := sentence[0]
	if first.Type != rosproto.WordTypeCategory {
		return &rosproto.WordSequenceError{Got: first.Type, Expected: []rosproto.WordType{rosproto.WordTypeCategory}}
	}
	rest := sentence[1:]
	switch first.Category {
	case rosproto.CategoryDone:
		if len(rest) == 0 {
			return &rosproto.MissingWordError{Expected: rosproto.WordTypeTag}
		}
		if rest[0].Type != rosproto.WordTypeTag {
			return &rosproto.WordSequenceError{Got: rest[0].Type, Expected: []rosproto.WordType{rosproto.WordTypeTag}}
		}
		if st, ok := d.outstanding[rest[0].Tag]; ok {
			delete(d.outstanding, rest[0].Tag)
			st.finish()
		}
		return nil

	case rosproto.CategoryReply:
		var (
			tag    uint16
			tagged bool
			attrs  []ReplyAttribute
		)
		for _, w := range rest {
			switch w.Type {
			case rosproto.WordTypeTag:
				tag, tagged = w.Tag, true
			case rosproto.WordTypeAttribute:
				attrs = append(attrs, ReplyAttribute{
					Key:      ownedBytes(w.Key),
					Value:    ownedBytes(w.Value),
					HasValue: w.HasValue,
				})
			default:
				return &rosproto.WordSequenceError{Got: w.Type, Expected: []rosproto.WordType{rosproto.WordTypeTag, rosproto.WordTypeAttribute}}
			}
		}
		return d.sendBack(tag, tagged, d.builder.FromReply(attrs))

	case rosproto.CategoryTrap:
		var (
			tag         uint16
			tagged      bool
			category    rosproto.TrapCategory
			categorySet bool
			message     []byte
			messageSet  bool
		)
		for _, w := range rest {
			switch w.Type {
			case rosproto.WordTypeTag:
				tag, tagged = w.Tag, true
			case rosproto.WordTypeAttribute:
				switch {
				case string(w.Key) == "category" && w.HasValue:
					if c, ok := rosproto.TrapCategoryFromBytes(w.Value); ok {
						category, categorySet = c, true
					}
				case string(w.Key) == "message":
					message, messageSet = w.Value, w.HasValue
				default:
					return &rosproto.InvalidTrapAttributeError{Key: ownedBytes(w.Key)}
				}
			default:
				return &rosproto.WordSequenceError{Got: w.Type, Expected: []rosproto.WordType{rosproto.WordTypeTag, rosproto.WordTypeAttribute}}
			}
		}
		var value T
		switch {
		case categorySet && messageSet:
			d.Traps.Inc()
			value = d.builder.FromTrap(rosproto.Trap{Category: category, Message: ownedBytes(message)})
		case !categorySet:
			value = d.builder.FromError(rosproto.ErrMissingTrapCategory)
		default:
			value = d.builder.FromError(rosproto.ErrMissingTrapMessage)
		}
		return d.sendBack(tag, tagged, value)

	case rosproto.CategoryFatal:
		d.Error("fatal from device", zap.ByteString("reason", fatalReason(rest)))
		return nil
	}
	return &rosproto.InvalidCategoryError{Category: []byte(first.Category.String())}
}

// sendBack routes one response to the stream owning tag. A delivery
// refused by an abandoned stream drops the tag; a tag with no stream
// at all is a protocol violation.
func (d *Device[T]) sendBack(tag uint16, tagged bool, value T) error {
	if !tagged {
		return &rosproto.MissingWordError{Expected: rosproto.WordTypeTag}
	}
	st, ok := d.outstanding[tag]
	if !ok {
		return &rosproto.UnknownTagError{Tag: tag}
	}
	if !st.deliver(value) {
		d.Debug("stream abandoned, dropping tag", zap.Uint16("tag", tag))
		delete(d.outstanding, tag)
		st.finish()
	}
	return nil
}

// cancelOutstanding best effort cancels every live command before a
// local close. Write failures are logged and skipped, the connection
// is going away either way.
func (d *Device[T]) cancelOutstanding() {
	for tag := range d.outstanding {
		cancel := rosproto.CancelCommand(tag)
		if _, err := d.conn.Write(cancel.Data); err != nil {
			d.Debug("write cancel failed", zap.Uint16("tag", tag), zap.Error(err))
			continue
		}
		d.OutCommands.Inc()
		d.OutBytes.Add(uint64(len(cancel.Data)))
	}
}

// teardown finishes every stream, drains the send queue and closes the
// socket. A non nil terr is broadcast to each outstanding command
// first; nil means a clean local close.
func (d *Device[T]) teardown(terr error) {
	d.status.Store(int32(SHUTTINGDOWN))
	d.doneOnce.Do(func() {
		close(d.doneC)
	})

	failErr := terr
	if failErr == nil {
		failErr = ErrClosed
	}
	// wait out submitters already past their status check; once the
	// write lock is held the queue cannot grow and the drain is final
	d.submitMu.Lock()
drain:
	for {
		select {
		case pc := <-d.commandC:
			pc.stream.deliver(d.builder.FromError(failErr))
			pc.stream.finish()
		default:
			break drain
		}
	}
	d.submitMu.Unlock()

	for tag, st := range d.outstanding {
		if terr != nil {
			st.deliver(d.builder.FromError(terr))
		}
		st.finish()
		delete(d.outstanding, tag)
	}

	_ = d.conn.Close()
	d.queue.Reset()
	d.status.Store(int32(CLOSED))
}
