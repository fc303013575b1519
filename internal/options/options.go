package options

import (
	"os"
	"os/user"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rosapi/rosapi/version"
	"github.com/sasha-s/go-deadlock"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

type Mode string

const (
	DebugMode   Mode = "debug"
	ReleaseMode Mode = "release"
)

// Options is the CLI configuration, filled from the config file,
// environment and flags through viper. Library packages take their own
// functional options; this struct exists only at the command boundary.
type Options struct {
	vp   *viper.Viper
	Mode Mode

	RootDir string // default location for logs

	Logger struct {
		Dir     string
		Level   zapcore.Level
		LineNum bool // report the caller's file and line
	}

	Device struct {
		Addr           string // device address, host:port or tcp://host:port
		Username       string
		Password       string // empty logs in with a bare password flag
		ConnectTimeout time.Duration
	}

	Mock struct {
		Addr            string // mock device listen address
		RequireLogin    bool
		Username        string // empty accepts any credentials
		Password        string
		HandlerPoolSize int
	}

	DeadlockCheck bool // lock watchdog in the mock server registries

	Version string
}

func New(op ...Option) *Options {
	homeDir, err := GetHomeDir()
	if err != nil {
		panic(err)
	}
	opts := &Options{
		Mode:          DebugMode,
		RootDir:       path.Join(homeDir, "rosapi"),
		Version:       version.Version,
		DeadlockCheck: false,
	}
	opts.Device.Addr = "127.0.0.1:8728"
	opts.Device.Username = "admin"
	opts.Device.ConnectTimeout = time.Second * 10
	opts.Mock.Addr = "tcp://0.0.0.0:8728"
	opts.Mock.RequireLogin = true
	opts.Mock.HandlerPoolSize = 1024

	for _, o := range op {
		if o != nil {
			o(opts)
		}
	}
	return opts
}

func GetHomeDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err == nil {
		return homeDir, nil
	}
	u, err := user.Current()
	if err == nil {
		return u.HomeDir, nil
	}

	return "", errors.New("User home directory not found.")
}

func (o *Options) ConfigureWithViper(vp *viper.Viper) {
	o.vp = vp

	o.RootDir = o.getString("rootDir", o.RootDir)

	modeStr := o.getString("mode", string(o.Mode))
	if strings.TrimSpace(modeStr) == "" {
		o.Mode = DebugMode
	} else {
		o.Mode = Mode(modeStr)
	}

	o.Device.Addr = o.getString("device.addr", o.Device.Addr)
	o.Device.Username = o.getString("device.username", o.Device.Username)
	o.Device.Password = o.getString("device.password", o.Device.Password)
	o.Device.ConnectTimeout = o.getDuration("device.connectTimeout", o.Device.ConnectTimeout)

	o.Mock.Addr = o.getString("mock.addr", o.Mock.Addr)
	o.Mock.RequireLogin = o.getBool("mock.requireLogin", o.Mock.RequireLogin)
	o.Mock.Username = o.getString("mock.username", o.Mock.Username)
	o.Mock.Password = o.getString("mock.password", o.Mock.Password)
	o.Mock.HandlerPoolSize = o.getInt("mock.handlerPoolSize", o.Mock.HandlerPoolSize)

	o.configureLog(vp)

	o.DeadlockCheck = o.getBool("deadlockCheck", o.DeadlockCheck)
	deadlock.Opts.Disable = !o.DeadlockCheck
}

func (o *Options) configureLog(vp *viper.Viper) {
	logLevel := vp.GetInt("logger.level")
	// level
	if logLevel == 0 { // not set
		if o.Mode == DebugMode {
			logLevel = int(zapcore.DebugLevel)
		} else {
			logLevel = int(zapcore.InfoLevel)
		}
	} else {
		logLevel = logLevel - 2
	}
	o.Logger.Level = zapcore.Level(logLevel)
	o.Logger.Dir = vp.GetString("logger.dir")
	if strings.TrimSpace(o.Logger.Dir) == "" {
		o.Logger.Dir = "logs"
	}
	if !strings.HasPrefix(strings.TrimSpace(o.Logger.Dir), "/") {
		o.Logger.Dir = filepath.Join(o.RootDir, o.Logger.Dir)
	}
	o.Logger.LineNum = o.getBool("logger.lineNum", o.Logger.LineNum)
}

func (o *Options) ConfigFileUsed() string {
	if o.vp == nil {
		return ""
	}
	return o.vp.ConfigFileUsed()
}

func (o *Options) getString(key string, defaultValue string) string {
	v := o.vp.GetString(key)
	if v == "" {
		return defaultValue
	}
	return v
}

func (o *Options) getInt(key string, defaultValue int) int {
	v := o.vp.GetInt(key)
	if v == 0 {
		return defaultValue
	}
	return v
}

func (o *Options) getBool(key string, defaultValue bool) bool {
	objV := o.vp.Get(key)
	if objV == nil {
		return defaultValue
	}
	return cast.ToBool(objV)
}

func (o *Options) getDuration(key string, defaultValue time.Duration) time.Duration {
	v := o.vp.GetDuration(key)
	if v == 0 {
		return defaultValue
	}
	return v
}

type Option func(opts *Options)

func WithMode(mode Mode) Option {
	return func(opts *Options) {
		opts.Mode = mode
	}
}

func WithRootDir(dir string) Option {
	return func(opts *Options) {
		opts.RootDir = dir
	}
}

func WithDeviceAddr(addr string) Option {
	return func(opts *Options) {
		opts.Device.Addr = addr
	}
}

func WithMockAddr(addr string) Option {
	return func(opts *Options) {
		opts.Mock.Addr = addr
	}
}

func WithLoggerDir(dir string) Option {
	return func(opts *Options) {
		opts.Logger.Dir = dir
	}
}

func WithLoggerLevel(level zapcore.Level) Option {
	return func(opts *Options) {
		opts.Logger.Level = level
	}
}

func WithLoggerLineNum(lineNum bool) Option {
	return func(opts *Options) {
		opts.Logger.LineNum = lineNum
	}
}
