package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/docuvault/internal/logging"
	"github.com/dmitrijs2005/docuvault/internal/mailrelay"
)

func main() {
	cfg, err := mailrelay.LoadConfig()
	if err != nil {
		log.Printf("%v", err)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := logging.NewJSON(os.Stdout, cfg.LogLevel)
	srv := mailrelay.NewServer(cfg.Addr(), mailrelay.NewSMTPSender(cfg), logger)

	if err := srv.Run(ctx); err != nil {
		log.Printf("%v", err)
	}
}
