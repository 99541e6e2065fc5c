// SPDX-License-Identifier: MIT
package benchkeeper

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func logLevel() zapcore.Level {
	switch {
	case flagQuiet:
		return zapcore.WarnLevel
	case flagVerbose > 0:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

// newLogger builds the console logger used by the publish coordinator. It
// writes to the command's stderr so stdout stays reserved for reports.
func newLogger(cmd *cobra.Command) *zap.Logger {
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.TimeKey = ""
	encoderCfg.CallerKey = ""
	if shouldUseColorOutput(cmd) {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(cmd.ErrOrStderr()),
		logLevel(),
	)
	return zap.New(core)
}
