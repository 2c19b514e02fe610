package config

import (
	"log"
	"os"
	"strconv"
	"sync"
)

var (
	redisOnce   sync.Once
	redisConfig *RedisConfig
)

type RedisConfig struct {
	Addr string
	DB   int
}

func GetRedisConfig() *RedisConfig {
	redisOnce.Do(func() {
		loadDotEnv()

		redisConfig = &RedisConfig{
			Addr: getenv("REDIS_ADDR", "localhost:6379"),
			DB:   0,
		}
		if v := os.Getenv("REDIS_DB"); v != "" {
			db, err := strconv.Atoi(v)
			if err != nil {
				log.Printf("Warning: invalid REDIS_DB %q, using 0", v)
			} else {
				redisConfig.DB = db
			}
		}
	})
	return redisConfig
}
