// File: internal/services/pinecone/client.go
package pinecone

import (
	"context"

	"github.com/pinecone-io/go-pinecone/v4/pinecone"
)

// ClientService manages the Pinecone client and index connection.
type ClientService struct {
	config *Config
	client *pinecone.Client
	index  *pinecone.IndexConnection
	logger Logger
}

func NewClientService(config *Config, logger Logger) (*ClientService, error) {
	if err := config.Validate(); err != nil {
		return nil, NewConfigError(err.Error())
	}

	client, err := pinecone.NewClient(pinecone.NewClientParams{
		ApiKey: config.APIKey,
	})
	if err != nil {
		return nil, NewConnectionError("failed to create client", err)
	}

	index, err := client.Index(pinecone.NewIndexConnParams{
		Host:      config.IndexHost,
		Namespace: config.Namespace,
	})
	if err != nil {
		return nil, NewConnectionError("failed to connect to index", err)
	}

	logger.Info("pinecone client initialized",
		"host", config.IndexHost,
		"namespace", config.Namespace)

	return &ClientService{
		config: config,
		client: client,
		index:  index,
		logger: logger,
	}, nil
}

func (c *ClientService) Index() *pinecone.IndexConnection {
	return c.index
}

func (c *ClientService) HealthCheck(ctx context.Context) error {
	if _, err := c.index.DescribeIndexStats(ctx); err != nil {
		return NewConnectionError("index stats check failed", err)
	}
	return nil
}
