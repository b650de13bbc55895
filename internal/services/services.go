package services

import (
	"context"
	"log"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/curaious/oneflow/internal/api/authenticator"
	"github.com/curaious/oneflow/internal/config"
	"github.com/curaious/oneflow/internal/notify"
	project2 "github.com/curaious/oneflow/internal/services/project"
	session2 "github.com/curaious/oneflow/internal/services/session"
	user2 "github.com/curaious/oneflow/internal/services/user"
)

type Services struct {
	User    *user2.UserService
	Project *project2.ProjectService
	Session session2.Store
	Tokens  *authenticator.TokenIssuer
}

func NewServices(conf *config.Config, dbconn *sqlx.DB) *Services {
	tokens, err := authenticator.NewTokenIssuer(conf.JWT_SECRET, conf.JWT_TTL)
	if err != nil {
		log.Fatal("Invalid token configuration: ", err)
	}

	sessions := newSessionStore(conf, dbconn)

	var mailer notify.Notifier = notify.NewEmailNotifier(conf)
	if conf.SMTP_HOST == "" {
		slog.Warn("SMTP_HOST is not set, verification codes will not be mailed")
	}

	return &Services{
		User:    user2.NewUserService(user2.NewUserRepo(dbconn), sessions, mailer),
		Project: project2.NewProjectService(project2.NewProjectRepo(dbconn)),
		Session: sessions,
		Tokens:  tokens,
	}
}

func newSessionStore(conf *config.Config, dbconn *sqlx.DB) session2.Store {
	switch conf.SESSION_STORE {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     conf.REDIS_ADDR,
			Password: conf.REDIS_PASSWORD,
			DB:       conf.REDIS_DB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatal("Unable to connect to redis: ", err)
		}

		slog.Info("Using redis session store", slog.String("addr", conf.REDIS_ADDR))
		return session2.NewRedisStore(client, "")
	case "", "postgres":
		slog.Info("Using postgres session store")
		return session2.NewSessionRepo(dbconn)
	default:
		log.Fatalf("Unknown SESSION_STORE %q, expected postgres or redis", conf.SESSION_STORE)
		return nil
	}
}
