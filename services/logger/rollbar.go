package logsvc

import (
	"fmt"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"go.uber.org/zap"

	"github.com/trezcool/proctor/core"
	"github.com/trezcool/proctor/core/user"
)

// RollbarLogger reports to Rollbar and mirrors every entry on a zap console logger.
type RollbarLogger struct {
	console *zap.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(console *zap.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{console: console}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// Sync flushes the console logger.
func (l RollbarLogger) Sync() error {
	return l.console.Sync()
}

// expected fmt: msg | error, map[string]interface{}, user.Principal
// The person is sent with each item since rollbar.SetPerson is shared by every goroutine.
func (l RollbarLogger) prepare(msg string, args []interface{}) ([]interface{}, []zap.Field) {
	var pSet bool
	newArgs := make([]interface{}, 0, len(args)+2)
	newArgs = append(newArgs, msg)
	extras := make(map[string]interface{})
	fields := make([]zap.Field, 0, len(args))
	for _, arg := range args {
		switch a := arg.(type) {
		case user.Principal:
			if !pSet { // only set one Principal
				extras["person"] = map[string]interface{}{"id": a.ID, "username": a.Username, "role": a.Role}
				fields = append(fields, zap.String("identity", a.ID), zap.String("role", a.Role))
				pSet = true
			}
		case error:
			newArgs = append(newArgs, a)
			fields = append(fields, zap.Error(a))
		case map[string]interface{}:
			for k, v := range a {
				extras[k] = v
				fields = append(fields, zap.Any(k, v))
			}
		default:
			extra := fmt.Sprintf("%+v", a)
			extras["extra"] = extra
			fields = append(fields, zap.String("extra", extra))
		}
	}
	if len(extras) > 0 {
		newArgs = append(newArgs, extras)
	}
	return newArgs, fields
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rArgs, fields := l.prepare(msg, args)
	rollbar.Debug(rArgs...)
	l.console.Debug(msg, fields...)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rArgs, fields := l.prepare(msg, args)
	rollbar.Info(rArgs...)
	l.console.Info(msg, fields...)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rArgs, fields := l.prepare(msg, args)
	rollbar.Warning(rArgs...)
	l.console.Warn(msg, fields...)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rArgs, fields := l.prepare(msg, args)
	rollbar.Error(rArgs...)
	l.console.Error(msg, fields...)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rArgs, fields := l.prepare(msg, args)
	rollbar.Critical(rArgs...)
	rollbar.Wait()
	l.console.Fatal(msg, fields...)
}
