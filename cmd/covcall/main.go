package main

import (
	"covcall/config"
	"covcall/internal/app"
	"covcall/logger"

	"go.uber.org/zap"
)

func main() {
	// viper config
	cfg := config.Load()

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	// run the engine and dashboard
	if err := app.Start(cfg, log); err != nil {
		log.Fatal("covcall failed", zap.Error(err))
	}
}
