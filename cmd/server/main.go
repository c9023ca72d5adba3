package main

import (
	"github.com/gridline/fraudgraph/backend/internal/server"
	"github.com/gridline/fraudgraph/backend/internal/util"
	"github.com/gridline/fraudgraph/backend/pkg/logger"
	"github.com/gridline/fraudgraph/backend/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
