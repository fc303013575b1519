package options

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestConfigureWithViperDefaults(t *testing.T) {
	opts := New()
	opts.ConfigureWithViper(viper.New())

	assert.Equal(t, DebugMode, opts.Mode)
	assert.Equal(t, "127.0.0.1:8728", opts.Device.Addr)
	assert.Equal(t, "admin", opts.Device.Username)
	assert.Equal(t, 10*time.Second, opts.Device.ConnectTimeout)
	assert.Equal(t, "tcp://0.0.0.0:8728", opts.Mock.Addr)
	assert.True(t, opts.Mock.RequireLogin)
	assert.Equal(t, zapcore.DebugLevel, opts.Logger.Level)
	assert.True(t, strings.HasSuffix(opts.Logger.Dir, "logs"), opts.Logger.Dir)
}

func TestConfigureWithViperValues(t *testing.T) {
	opts := New()
	vp := viper.New()
	vp.Set("mode", "release")
	vp.Set("device.addr", "10.0.0.1:8728")
	vp.Set("device.username", "ops")
	vp.Set("device.connectTimeout", "30s")
	vp.Set("mock.requireLogin", false)
	vp.Set("logger.dir", "/var/log/rosapi")
	opts.ConfigureWithViper(vp)

	assert.Equal(t, ReleaseMode, opts.Mode)
	assert.Equal(t, "10.0.0.1:8728", opts.Device.Addr)
	assert.Equal(t, "ops", opts.Device.Username)
	assert.Equal(t, 30*time.Second, opts.Device.ConnectTimeout)
	assert.False(t, opts.Mock.RequireLogin)
	assert.Equal(t, "/var/log/rosapi", opts.Logger.Dir)
	assert.Equal(t, zapcore.InfoLevel, opts.Logger.Level)
}
