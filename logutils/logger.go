package logutils

import (
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"
)

// OverrideRootLog overrides the root logger with the given options. When
// disabled, the root logger discards everything.
func OverrideRootLog(enabled bool, levelStr string, fileOpts FileOptions, terminalColors bool) error {
	if !enabled {
		disableRootLog()
		return nil
	}
	return enableRootLog(levelStr, fileOpts, terminalColors)
}

func disableRootLog() {
	log.Root().SetHandler(log.DiscardHandler())
}

func enableRootLog(levelStr string, fileOpts FileOptions, terminalColors bool) error {
	var handler log.Handler
	if fileOpts.Filename != "" {
		handler = FileHandlerWithRotation(fileOpts, log.LogfmtFormat())
	} else {
		handler = log.StreamHandler(os.Stderr, log.TerminalFormat(terminalColors))
	}

	if levelStr == "" {
		levelStr = "info"
	}
	level, err := log.LvlFromString(strings.ToLower(levelStr))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", levelStr, err)
	}
	log.Root().SetHandler(log.LvlFilterHandler(level, handler))

	return nil
}
