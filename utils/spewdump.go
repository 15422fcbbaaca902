package utils

import (
	"github.com/davecgh/go-spew/spew"
	"go.uber.org/zap"

	"github.com/mogaika/s2gltf/logger"
)

var spewConfig *spew.ConfigState

func init() {
	spewConfig = spew.NewDefaultConfig()
	spewConfig.DisableCapacities = true
	spewConfig.DisablePointerAddresses = true
	spewConfig.MaxDepth = 6
}

func SDump(a ...interface{}) string {
	return spewConfig.Sdump(a...)
}

// LogDump writes a spew dump at debug level.
func LogDump(msg string, a ...interface{}) {
	if logger.Log.Core().Enabled(zap.DebugLevel) {
		logger.Debug(msg, zap.String("dump", spewConfig.Sdump(a...)))
	}
}
