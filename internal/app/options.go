package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/carenest-next/internal/config"
	"github.com/carenest-next/internal/logger"

	"go.uber.org/zap"
)

const (
	ModeAll    = "all"
	ModeAPI    = "api"
	ModeWorker = "worker"
)

// Options 应用启动选项
type Options struct {
	Config          *config.Config
	Logger          *zap.SugaredLogger
	Signals         []os.Signal
	ShutdownTimeout time.Duration
	Mode            string
}

// ParseMode 校验启动模式
func ParseMode(raw string) (string, error) {
	mode := strings.ToLower(strings.TrimSpace(raw))
	switch mode {
	case "":
		return ModeAll, nil
	case ModeAll, ModeAPI, ModeWorker:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown mode %q (expected all, api or worker)", raw)
	}
}

// normalizeOptions 补齐默认参数，关闭等待时间不短于一次结算的超时
func normalizeOptions(opts Options) Options {
	if opts.Logger == nil {
		opts.Logger = logger.S()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
		if opts.Config != nil && opts.Config.Settlement.RunTimeoutSeconds > 0 {
			runTimeout := time.Duration(opts.Config.Settlement.RunTimeoutSeconds) * time.Second
			if runTimeout > opts.ShutdownTimeout {
				opts.ShutdownTimeout = runTimeout
			}
		}
	}
	if opts.Mode == "" {
		opts.Mode = ModeAll
	}
	return opts
}
