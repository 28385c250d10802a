package shared

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"flex_reviews/internal/adapters/memory"
	redisad "flex_reviews/internal/adapters/redis"
	"flex_reviews/internal/domain"
	mysqlrepo "flex_reviews/internal/storage/mysql"
)

// OpenApprovalStore connects the backend named by cfg.ApprovalStore.
func OpenApprovalStore(ctx context.Context, cfg Config) (domain.ApprovalStore, error) {
	switch cfg.ApprovalStore {
	case BackendMemory:
		return memory.NewApprovalStore(), nil
	case BackendRedis:
		c := redisad.NewClient(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err := c.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		log.Info().Str("addr", cfg.RedisAddr).Msg("redis connection ok")
		return redisad.NewApprovalStore(c, redisad.DefaultApprovalsKey), nil
	case BackendMySQL:
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, fmt.Errorf("sql.Open: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("db.Ping: %w", err)
		}
		log.Info().Msg("database connection ok")
		return mysqlrepo.New(db), nil
	}
	return nil, fmt.Errorf("unknown APPROVAL_BACKEND %q", cfg.ApprovalStore)
}
