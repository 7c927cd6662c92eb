package db

import (
	"fmt"
	"time"

	"github.com/gocql/gocql"
)

type Session struct {
	*gocql.Session
}

func NewSession(hosts []string, keyspace string) (*Session, error) {
	cluster := gocql.NewCluster(hosts...)
	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = 5 * time.Second
	cluster.ConnectTimeout = 5 * time.Second

	// Retry policy
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		NumRetries: 3,
		Min:        100 * time.Millisecond,
		Max:        1 * time.Second,
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connect scylla: %w", err)
	}

	return &Session{Session: session}, nil
}

// EnsureKeyspace creates the application keyspace if it does not exist yet.
// Connects through the system keyspace, so it works on a fresh cluster.
func EnsureKeyspace(hosts []string, keyspace string) error {
	sys, err := NewSession(hosts, "system")
	if err != nil {
		return err
	}
	defer sys.Close()

	stmt := fmt.Sprintf(`CREATE KEYSPACE IF NOT EXISTS %s WITH REPLICATION = { 'class' : 'SimpleStrategy', 'replication_factor' : 1 }`, keyspace)
	if err := sys.Query(stmt).Exec(); err != nil {
		return fmt.Errorf("create keyspace: %w", err)
	}
	return nil
}

// EnsureSchema creates the tables used by the chat services. Schema changes
// should move to a migration tool eventually; for now every service can
// bootstrap an empty cluster.
func (s *Session) EnsureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			email text PRIMARY KEY,
			name text,
			image text,
			password_hash text
		)`,
		`CREATE TABLE IF NOT EXISTS rooms (
			id text PRIMARY KEY,
			participant_lo text,
			participant_hi text,
			created_at timestamp
		)`,
		`CREATE TABLE IF NOT EXISTS rooms_by_user (
			email text,
			room_id text,
			PRIMARY KEY (email, room_id)
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			room_id text,
			id bigint,
			sender text,
			message_text text,
			image text,
			audio text,
			duration_ms bigint,
			read boolean,
			ts timestamp,
			reply_id bigint,
			reply_sender text,
			reply_text text,
			reply_image text,
			reply_audio text,
			reply_duration_ms bigint,
			PRIMARY KEY (room_id, id)
		) WITH CLUSTERING ORDER BY (id ASC)`,
		`CREATE TABLE IF NOT EXISTS room_activity (
			email text,
			room_id text,
			last_updated timestamp,
			PRIMARY KEY (email, room_id)
		)`,
	}
	for _, stmt := range stmts {
		if err := s.Query(stmt).Exec(); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
