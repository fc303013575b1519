package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/judwhite/go-svc"
	"github.com/rosapi/rosapi/pkg/rosmock"
	"github.com/rosapi/rosapi/version"
	"github.com/spf13/cobra"
)

type mockCMD struct {
}

func newMockCMD() *mockCMD {
	return &mockCMD{}
}

func (m *mockCMD) CMD() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mock",
		Short: "serve a mock device",
		Long:  `mock serves the RouterOS API protocol with a handful of builtin commands, so the client side can be exercised without a router.`,
		RunE:  m.run,
	}
	return cmd
}

func (m *mockCMD) run(cmd *cobra.Command, args []string) error {
	configureLog(false)
	return svc.Run(&mockService{})
}

type mockService struct {
	server  *rosmock.Server
	started time.Time
}

func (s *mockService) Init(env svc.Environment) error {
	if env.IsWindowsService() {
		dir := filepath.Dir(os.Args[0])
		return os.Chdir(dir)
	}
	return nil
}

func (s *mockService) Start() error {
	s.started = time.Now()
	s.server = rosmock.New(opts.Mock.Addr,
		rosmock.WithRequireLogin(opts.Mock.RequireLogin),
		rosmock.WithCredentials(opts.Mock.Username, opts.Mock.Password),
		rosmock.WithHandlerPoolSize(opts.Mock.HandlerPoolSize))
	s.registerBuiltin()
	if err := s.server.Start(); err != nil {
		return err
	}
	s.server.Info(fmt.Sprintf("mock device listening on %s", opts.Mock.Addr))
	return nil
}

func (s *mockService) Stop() error {
	s.server.Stop()
	return nil
}

// registerBuiltin scripts a few commands so the mock answers something
// useful out of the box.
func (s *mockService) registerBuiltin() {
	s.server.Handle("/system/identity/print", func(req *rosmock.Request, w *rosmock.Responder) {
		_ = w.Reply(map[string]string{"name": "rosapi-mock"})
	})
	s.server.Handle("/system/resource/print", func(req *rosmock.Request, w *rosmock.Responder) {
		_ = w.Reply(map[string]string{
			"version":      version.String(),
			"platform":     "rosapi",
			"architecture": runtime.GOARCH,
			"uptime":       time.Since(s.started).Round(time.Second).String(),
		})
	})
	s.server.Handle("/interface/print", func(req *rosmock.Request, w *rosmock.Responder) {
		_ = w.Reply(map[string]string{"name": "ether1", "type": "ether", "mtu": "1500", "running": "true"})
		_ = w.Reply(map[string]string{"name": "ether2", "type": "ether", "mtu": "1500", "running": "false"})
		_ = w.Reply(map[string]string{"name": "lo", "type": "loopback", "mtu": "65536", "running": "true"})
	})
}
