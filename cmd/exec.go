package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/rosapi/rosapi/pkg/client"
	"github.com/rosapi/rosapi/pkg/rosproto"
	"github.com/spf13/cobra"
)

var errTrapped = errors.New("command returned a trap")

type execCMD struct {
	addr     string
	username string
	password string
	attrs    []string
	queries  []string
}

func newExecCMD() *execCMD {
	return &execCMD{}
}

func (e *execCMD) CMD() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec <path>",
		Short: "run one API command against a device and print its replies",
		Example: `  rosapi exec /system/resource/print
  rosapi exec /interface/print --attr detail=yes --query type=ether
  rosapi exec /interface/listen --addr 10.0.0.1:8728 --user admin --password secret`,
		Args: cobra.ExactArgs(1),
		RunE: e.run,
	}
	cmd.Flags().StringVar(&e.addr, "addr", "", "device address, host:port, defaults to device.addr")
	cmd.Flags().StringVar(&e.username, "user", "", "login user name, defaults to device.username")
	cmd.Flags().StringVar(&e.password, "password", "", "login password, defaults to device.password")
	cmd.Flags().StringArrayVar(&e.attrs, "attr", nil, "attribute key=value, a bare key sends a flag attribute, repeatable")
	cmd.Flags().StringArrayVar(&e.queries, "query", nil, "query word: name, -name, name=value, >name=value, <name=value or #ops, repeatable")
	return cmd
}

func (e *execCMD) run(cmd *cobra.Command, args []string) error {
	configureLog(true)

	path := args[0]
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("command path %q must start with /", path)
	}
	if e.addr != "" {
		opts.Device.Addr = e.addr
	}
	if e.username != "" {
		opts.Device.Username = e.username
	}
	if cmd.Flags().Changed("password") {
		opts.Device.Password = e.password
	}
	build, err := commandWords(e.attrs, e.queries)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Device.ConnectTimeout)
	defer cancel()
	d, err := client.ConnectSimple(ctx, opts.Device.Addr, opts.Device.Username, opts.Device.Password)
	if err != nil {
		return err
	}
	defer d.Close()

	st, err := d.Send(context.Background(), []byte(path), build)
	if err != nil {
		return err
	}

	// Ctrl-C closes the device, which cancels the command on the wire
	// and ends the stream.
	sigC := make(chan os.Signal, 1)
	signal.Notify(sigC, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigC)
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-sigC:
			d.Close()
		case <-done:
		}
	}()

	trapped := false
	for res := range st.C() {
		switch {
		case res.Reply != nil:
			printReply(cmd.OutOrStdout(), res.Reply)
		case res.Trap != nil:
			trapped = true
			fmt.Fprintf(cmd.ErrOrStderr(), "failure: %s (%s)\n", res.Trap.Message, res.Trap.Category)
		case res.Err != nil:
			return res.Err
		}
	}
	if trapped {
		return errTrapped
	}
	return nil
}

// commandWords validates the attribute and query flags and returns the
// builder callback applying them in flag order.
func commandWords(attrs, queries []string) (func(*rosproto.CommandBuilder), error) {
	steps := make([]func(*rosproto.CommandBuilder), 0, len(attrs)+len(queries))
	for _, attr := range attrs {
		key, value, hasValue := strings.Cut(attr, "=")
		if key == "" {
			return nil, fmt.Errorf("attribute %q has no key", attr)
		}
		k, v := []byte(key), []byte(value)
		if hasValue {
			steps = append(steps, func(b *rosproto.CommandBuilder) { b.Attribute(k, v) })
		} else {
			steps = append(steps, func(b *rosproto.CommandBuilder) { b.FlagAttribute(k) })
		}
	}
	for _, q := range queries {
		step, err := queryWord(q)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return func(b *rosproto.CommandBuilder) {
		for _, step := range steps {
			step(b)
		}
	}, nil
}

func queryWord(q string) (func(*rosproto.CommandBuilder), error) {
	if q == "" {
		return nil, errors.New("empty query word")
	}
	switch q[0] {
	case '-':
		name := []byte(q[1:])
		return func(b *rosproto.CommandBuilder) { b.QueryNotPresent(name) }, nil
	case '>', '<':
		name, value, ok := strings.Cut(q[1:], "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("query %q wants %cname=value", q, q[0])
		}
		n, v := []byte(name), []byte(value)
		if q[0] == '>' {
			return func(b *rosproto.CommandBuilder) { b.QueryGt(n, v) }, nil
		}
		return func(b *rosproto.CommandBuilder) { b.QueryLt(n, v) }, nil
	case '#':
		ops := make([]rosproto.QueryOperator, 0, len(q)-1)
		for _, c := range q[1:] {
			switch c {
			case '!', '&', '|', '.':
				ops = append(ops, rosproto.QueryOperator(c))
			default:
				return nil, fmt.Errorf("query operator %q, want one of ! & | .", string(c))
			}
		}
		return func(b *rosproto.CommandBuilder) { b.QueryOperations(ops...) }, nil
	}
	if name, value, ok := strings.Cut(q, "="); ok {
		if name == "" {
			return nil, fmt.Errorf("query %q has no name", q)
		}
		n, v := []byte(name), []byte(value)
		return func(b *rosproto.CommandBuilder) { b.QueryEqual(n, v) }, nil
	}
	name := []byte(q)
	return func(b *rosproto.CommandBuilder) { b.QueryPresent(name) }, nil
}

func printReply(w io.Writer, reply map[string]string) {
	keys := make([]string, 0, len(reply))
	for k := range reply {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s=%s\n", k, reply[k])
	}
	fmt.Fprintln(w)
}
