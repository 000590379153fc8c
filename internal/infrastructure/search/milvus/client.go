// Package milvus implements the passage vector store on a single Milvus
// collection, with one partition per job as the namespace isolation unit.
package milvus

import (
	"context"
	"sync"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"github.com/patentlens/patentlens/internal/config"
	"github.com/patentlens/patentlens/internal/infrastructure/monitoring/logging"
	apperrors "github.com/patentlens/patentlens/pkg/errors"
)

// milvusNewClient is a variable so tests can substitute the SDK factory.
var milvusNewClient = client.NewClient

// Client owns the long-lived Milvus connection.  It is created once at
// startup and shared by every pipeline run.
type Client struct {
	mc     client.Client
	cfg    config.MilvusConfig
	logger logging.Logger
	mu     sync.Mutex
	closed bool
}

func NewClient(cfg config.MilvusConfig, log logging.Logger) (*Client, error) {
	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	mc, err := milvusNewClient(ctx, client.Config{
		Address: cfg.Addr,
		DBName:  cfg.DBName,
		DialOptions: []grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithKeepaliveParams(keepalive.ClientParameters{
				Time:                60 * time.Second,
				Timeout:             20 * time.Second,
				PermitWithoutStream: true,
			}),
		},
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeExternalService, "connect to milvus")
	}

	log.Info("milvus client connected", logging.String("addr", cfg.Addr))
	return &Client{mc: mc, cfg: cfg, logger: log}, nil
}

// NewClientWithMilvus wraps an existing SDK client, for tests.
func NewClientWithMilvus(mc client.Client, cfg config.MilvusConfig, log logging.Logger) *Client {
	return &Client{mc: mc, cfg: cfg, logger: log}
}

// Milvus returns the underlying SDK client.
func (c *Client) Milvus() client.Client {
	return c.mc
}

// HealthCheck verifies the server answers.
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.mc.GetVersion(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeServiceUnavailable, "milvus health check failed")
	}
	return nil
}

// Close closes the connection.  Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.mc.Close()
}
