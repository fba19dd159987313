package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/EgorLis/statusbot/internal/bot"
	"github.com/EgorLis/statusbot/internal/config"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config (YAML or legacy config.json)")
	envPath := flag.String("env", ".env", "dotenv file with secrets, optional")
	debug := flag.Bool("debug", false, "debug logging, overrides log_level")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// .env необязателен: секреты могут прийти из окружения
	if err := godotenv.Load(*envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithError(err).Fatal("load env file")
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		log.WithError(err).Fatal("apply env")
	}
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid config")
	}
	cfg.Normalize()

	level, _ := logrus.ParseLevel(cfg.LogLevel) // уже проверен в Validate
	if *debug {
		level = logrus.DebugLevel
	}
	log.SetLevel(level)

	b, err := bot.FromConfig(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("build bot")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := b.Start(); err != nil {
		log.WithError(err).Fatal("start bot")
	}
	log.WithFields(logrus.Fields{
		"players": len(cfg.Players),
		"servers": len(cfg.Servers),
		"targets": len(cfg.Destinations()),
	}).Info("running, press Ctrl+C to stop")

	<-ctx.Done()
	b.Stop()
}
