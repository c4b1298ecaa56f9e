package opensearch

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/onwards-ai/xboard-payments/infra/config"
	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

const indexPrefix = "xboard-payments"

// Client wraps the OpenSearch client
type Client struct {
	client *opensearch.Client
	config *config.AppConfig
}

// NewClient creates a new OpenSearch client and makes sure the log indices exist
func NewClient(cfg *config.AppConfig, providers ...string) (*Client, error) {
	opensearchConfig := opensearch.Config{
		Addresses:     []string{cfg.OpenSearchURL},
		MaxRetries:    3,
		RetryOnStatus: []int{502, 503, 504, 429},
		RetryBackoff: func(i int) time.Duration {
			return time.Duration(i) * 100 * time.Millisecond
		},
	}

	if cfg.OpenSearchUser != "" && cfg.OpenSearchPass != "" {
		opensearchConfig.Username = cfg.OpenSearchUser
		opensearchConfig.Password = cfg.OpenSearchPass
	}

	client, err := opensearch.NewClient(opensearchConfig)
	if err != nil {
		return nil, err
	}

	osClient := &Client{
		client: client,
		config: cfg,
	}

	if cfg.EnableLogging {
		if err := osClient.setupIndices(providers); err != nil {
			log.Printf("Warning: Failed to setup OpenSearch indices: %v", err)
		}
	}

	return osClient, nil
}

// GetClient returns the underlying OpenSearch client
func (c *Client) GetClient() *opensearch.Client {
	return c.client
}

// setupIndices creates one audit index per provider plus the system index
func (c *Client) setupIndices(providers []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	names := []string{c.GetSystemIndexName()}
	for _, p := range providers {
		names = append(names, c.GetLogIndexName(p))
	}

	var failed []string
	for _, indexName := range names {
		exists, err := c.indexExists(ctx, indexName)
		if err != nil {
			failed = append(failed, indexName)
			continue
		}
		if exists {
			continue
		}
		if err := c.createLogIndex(ctx, indexName); err != nil {
			failed = append(failed, indexName)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("could not prepare indices: %s", strings.Join(failed, ", "))
	}
	return nil
}

// indexExists checks if an index exists
func (c *Client) indexExists(ctx context.Context, indexName string) (bool, error) {
	req := opensearchapi.IndicesExistsRequest{
		Index: []string{indexName},
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()

	return res.StatusCode == 200, nil
}

// createLogIndex creates an index with the audit mapping
func (c *Client) createLogIndex(ctx context.Context, indexName string) error {
	mapping := `{
		"mappings": {
			"properties": {
				"timestamp":    {"type": "date"},
				"provider":     {"type": "keyword"},
				"operation":    {"type": "keyword"},
				"request_id":   {"type": "keyword"},
				"trade_no":     {"type": "keyword"},
				"callback_no":  {"type": "keyword"},
				"amount":       {"type": "long"},
				"currency":     {"type": "keyword"},
				"state":        {"type": "keyword"},
				"error_kind":   {"type": "keyword"},
				"error":        {"type": "text"},
				"duration_ms":  {"type": "long"},
				"client_ip":    {"type": "keyword"}
			}
		},
		"settings": {
			"number_of_shards": 1,
			"number_of_replicas": 0
		}
	}`

	req := opensearchapi.IndicesCreateRequest{
		Index: indexName,
		Body:  strings.NewReader(mapping),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index creation error: %s", res.String())
	}
	return nil
}

// GetLogIndexName returns the audit index of a provider
func (c *Client) GetLogIndexName(provider string) string {
	return indexPrefix + "-" + provider + "-logs"
}

// GetSystemIndexName returns the index that mirrors system logs
func (c *Client) GetSystemIndexName() string {
	return indexPrefix + "-system-logs"
}

// IsEnabled returns whether OpenSearch logging is enabled
func (c *Client) IsEnabled() bool {
	return c.config.EnableLogging
}
