// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/pakt/internal/adapters/build"
	_ "go.trai.ch/pakt/internal/adapters/cache"
	_ "go.trai.ch/pakt/internal/adapters/config"
	_ "go.trai.ch/pakt/internal/adapters/index"
	_ "go.trai.ch/pakt/internal/adapters/logger"
	_ "go.trai.ch/pakt/internal/adapters/telemetry/progrock"
	// Register app and engine nodes.
	_ "go.trai.ch/pakt/internal/app"
	_ "go.trai.ch/pakt/internal/engine/materialize"
	_ "go.trai.ch/pakt/internal/engine/resolver"
)
