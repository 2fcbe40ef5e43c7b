package database

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"direct-messenger/config"

	"github.com/redis/go-redis/v9"
)

var Redis = make(map[int]*redis.Client)

// RedisConnect opens one client per database listed in REDIS_DB (default "0").
func RedisConnect() map[int]*redis.Client {
	for _, db := range strings.Split(config.ConfigDefault("REDIS_DB", "0"), ",") {
		dbNumber, err := strconv.Atoi(strings.TrimSpace(db))
		if err != nil {
			log.Printf("skipping invalid redis db %q", db)
			continue
		}

		options := &redis.Options{
			Addr: fmt.Sprintf(
				"%s:%s",
				config.ConfigDefault("REDIS_HOST", "localhost"),
				config.ConfigDefault("REDIS_PORT", "6379"),
			),
			Password: config.Config("REDIS_PASSWORD"),
			DB:       dbNumber,
		}

		Redis[dbNumber] = redis.NewClient(options)
	}

	log.Printf("Connections opened to Redis")
	return Redis
}
