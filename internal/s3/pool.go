package s3

import (
	"context"
	"net/http"
	"sync"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Profile holds the connection settings for one S3-compatible store.
type Profile struct {
	ID              string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool
}

// Pool caches S3 clients per store profile so every download against the
// same endpoint reuses connections.
type Pool struct {
	mu      sync.RWMutex
	clients map[string]*s3.Client

	// Shared HTTP client for connection reuse across profiles.
	httpClient *http.Client
}

func NewPool() *Pool {
	return &Pool{
		clients: make(map[string]*s3.Client),
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 32,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Client returns a cached or freshly built S3 client for the profile.
func (p *Pool) Client(ctx context.Context, prof Profile) (*s3.Client, error) {
	p.mu.RLock()
	client, ok := p.clients[prof.ID]
	p.mu.RUnlock()
	if ok {
		return client, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double-check after acquiring the write lock.
	if client, ok := p.clients[prof.ID]; ok {
		return client, nil
	}

	client, err := p.buildClient(ctx, prof)
	if err != nil {
		return nil, err
	}
	p.clients[prof.ID] = client
	return client, nil
}

func (p *Pool) buildClient(ctx context.Context, prof Profile) (*s3.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(prof.Region),
		awsconfig.WithHTTPClient(p.httpClient),
	}

	if prof.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(prof.AccessKeyID, prof.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if prof.Endpoint != "" {
			o.BaseEndpoint = &prof.Endpoint
		}
		o.UsePathStyle = prof.PathStyle
	}), nil
}
