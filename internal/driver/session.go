package driver

import (
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/rs/zerolog"

	"github.com/sqldeploy/sqldeploy/internal/config"
)

// Session is a thin wrapper over a gocql session used to read the changelog
// from Scylla or Cassandra.
type Session struct {
	session *gocql.Session
	Logger  zerolog.Logger
}

func NewSession(cfg config.ScyllaConfig, logger zerolog.Logger) (*Session, error) {
	consistency, err := cfg.GetConsistency()
	if err != nil {
		return nil, err
	}

	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Consistency = consistency
	cluster.Timeout = cfg.Timeout
	cluster.ConnectTimeout = cfg.ConnectionTimeout
	cluster.ProtoVersion = cfg.ProtocolVersion
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		NumRetries: 3,
		Min:        500 * time.Millisecond,
		Max:        5 * time.Second,
	}

	if cfg.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}

	logger.Debug().
		Strs("hosts", cfg.Hosts).
		Str("consistency", cfg.Consistency).
		Msg("Connecting to cluster")

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to cluster: %w", err)
	}

	logger.Info().Msg("Connected to cluster")

	return &Session{
		session: session,
		Logger:  logger,
	}, nil
}

func (s *Session) Close() {
	if s.session != nil && !s.session.Closed() {
		s.session.Close()
		s.Logger.Debug().Msg("Session closed")
	}
}

func (s *Session) Execute(query string, args ...interface{}) error {
	s.Logger.Debug().Str("query", truncate(query, 200)).Msg("Executing query")
	return s.session.Query(query, args...).Exec()
}

func (s *Session) Query(query string, args ...interface{}) *gocql.Query {
	return s.session.Query(query, args...)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
