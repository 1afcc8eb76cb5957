package main

import (
	"flag"
	"net/http"
	"os"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"parley/internal/relayserver"
)

func main() {
	addr := flag.String("addr", "localhost:9090", "listen address")
	redisAddr := flag.String("redis", "", "redis address for a persistent mailbox (empty = in-memory)")
	flag.Parse()

	log, err := zap.NewDevelopment()
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	var mailbox relayserver.Mailbox = relayserver.NewMemoryMailbox()
	if *redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: *redisAddr})
		mailbox = relayserver.NewRedisMailbox(rdb)
		log.Info("using redis mailbox", zap.String("addr", *redisAddr))
	}

	srv := relayserver.New(mailbox, log)
	log.Info("relay listening", zap.String("addr", *addr))
	if err := http.ListenAndServe(*addr, srv.Router()); err != nil {
		log.Fatal("relay stopped", zap.Error(err))
	}
}
