package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Session is a live MongoDB client bound to one tunnel port. The coordinator
// holds at most one at a time.
type Session interface {
	Ping(ctx context.Context) error
	Client() *mongo.Client
	ServerVersion(ctx context.Context) string
	LocalPort() int
	Close(ctx context.Context) error
}

// Dialer opens a session against a loopback port. Tests substitute a fake;
// production uses the mongo-driver dialer below.
type Dialer interface {
	Open(ctx context.Context, localPort int) (Session, error)
}

// SessionConfig holds the MongoDB side of the two-hop path.
type SessionConfig struct {
	Username string
	Password string
	AuthDB   string

	MaxPoolSize            uint64
	ConnectTimeout         time.Duration
	ServerSelectionTimeout time.Duration
	SocketTimeout          time.Duration
}

type mongoDialer struct {
	cfg SessionConfig
}

// NewDialer creates the production dialer.
func NewDialer(cfg SessionConfig) Dialer {
	return &mongoDialer{cfg: cfg}
}

// Open connects through the tunnel's loopback port. The address is pinned to
// the single forwarded node (direct mode) so the driver does not try to
// discover replica set members that are unreachable from this side of the
// tunnel. A failed ping discards the client and propagates the failure.
func (d *mongoDialer) Open(ctx context.Context, localPort int) (Session, error) {
	opts := options.Client().
		SetHosts([]string{fmt.Sprintf("127.0.0.1:%d", localPort)}).
		SetDirect(true).
		SetAuth(options.Credential{
			Username:   d.cfg.Username,
			Password:   d.cfg.Password,
			AuthSource: d.cfg.AuthDB,
		}).
		SetMaxPoolSize(d.cfg.MaxPoolSize).
		SetConnectTimeout(d.cfg.ConnectTimeout).
		SetServerSelectionTimeout(d.cfg.ServerSelectionTimeout).
		SetSocketTimeout(d.cfg.SocketTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: mongodb connect failed: %v", ErrConnection, err)
	}

	session := &mongoSession{client: client, localPort: localPort}
	if err := session.Ping(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return session, nil
}

type mongoSession struct {
	client    *mongo.Client
	localPort int
}

func (s *mongoSession) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("%w: mongodb ping failed: %v", ErrConnection, err)
	}
	return nil
}

func (s *mongoSession) Client() *mongo.Client {
	return s.client
}

// ServerVersion asks the server for its buildInfo version, falling back to
// "unknown" so connect reporting never fails on a cosmetic detail.
func (s *mongoSession) ServerVersion(ctx context.Context) string {
	var result struct {
		Version string `bson:"version"`
	}
	err := s.client.Database("admin").
		RunCommand(ctx, bson.D{{Key: "buildInfo", Value: 1}}).
		Decode(&result)
	if err != nil || result.Version == "" {
		return "unknown"
	}
	return result.Version
}

func (s *mongoSession) LocalPort() int {
	return s.localPort
}

func (s *mongoSession) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
