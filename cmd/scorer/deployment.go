package main

import (
	"errors"

	"github.com/layer-3/scorer/internal/config"
)

var (
	errWorkerNeedsRedis = errors.New("the standalone worker needs REDIS_URL; use serve --worker instead")
	errSharedDatabase   = errors.New("REDIS_URL shares scoring jobs between processes, so DATABASE_PATH must point at the database they share")
)

// checkDeployment rejects layouts where a scoring job could be consumed by a
// process that cannot see the score row it belongs to.
func checkDeployment(cfg *config.Config, standaloneWorker bool) error {
	if standaloneWorker && cfg.RedisURL == "" {
		return errWorkerNeedsRedis
	}
	// An empty path is a private in-memory database per process
	if cfg.RedisURL != "" && cfg.DatabasePath == "" {
		return errSharedDatabase
	}
	return nil
}
