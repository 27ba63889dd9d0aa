package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/varmina-joyas/store/internal/platform/config"
)

const (
	defaultDialTimeout = 10 * time.Second
	publicURLPrefix    = "https://storage.googleapis.com/"
)

var (
	// ErrClientClosed is returned once the client has been shut down.
	ErrClientClosed = errors.New("storage: client is closed")

	errBucketRequired = errors.New("storage: bucket name is required")
	errObjectRequired = errors.New("storage: object name is required")
)

// Client wraps a Cloud Storage bucket holding publicly readable objects.
// The underlying SDK client is created lazily on first use.
type Client struct {
	cfg         config.StorageConfig
	dialTimeout time.Duration
	clientOpts  []option.ClientOption

	once    sync.Once
	client  *storage.Client
	initErr error

	mu     sync.Mutex
	closed bool
}

// ClientOption customises client behaviour.
type ClientOption func(*Client)

// WithDialTimeout overrides the timeout used when creating the SDK client.
func WithDialTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.dialTimeout = timeout
		}
	}
}

// WithClientOptions appends SDK client options applied during initialisation.
func WithClientOptions(opts ...option.ClientOption) ClientOption {
	return func(c *Client) {
		c.clientOpts = append(c.clientOpts, opts...)
	}
}

// NewClient constructs a Client for the configured bucket.
func NewClient(cfg config.StorageConfig, opts ...ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.ImagesBucket) == "" {
		return nil, errBucketRequired
	}
	client := &Client{cfg: cfg, dialTimeout: defaultDialTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	return c.cfg.ImagesBucket
}

func (c *Client) sdk(ctx context.Context) (*storage.Client, error) {
	if ctx == nil {
		return nil, errors.New("storage: context is required")
	}

	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, ErrClientClosed
	}

	c.once.Do(func() {
		initCtx := ctx
		if c.dialTimeout > 0 {
			var cancel context.CancelFunc
			initCtx, cancel = context.WithTimeout(ctx, c.dialTimeout)
			defer cancel()
		}
		c.client, c.initErr = storage.NewClient(initCtx, c.clientOpts...)
		if c.initErr != nil {
			c.initErr = fmt.Errorf("storage: create client: %w", c.initErr)
		}
	})
	if c.initErr != nil {
		return nil, c.initErr
	}
	return c.client, nil
}

// Upload streams the reader into the named object and returns its public URL.
// Existing objects with the same name are overwritten.
func (c *Client) Upload(ctx context.Context, object, contentType string, body io.Reader) (string, error) {
	object = strings.TrimSpace(object)
	if object == "" {
		return "", errObjectRequired
	}
	if body == nil {
		return "", errors.New("storage: upload body is required")
	}

	client, err := c.sdk(ctx)
	if err != nil {
		return "", err
	}

	writer := client.Bucket(c.cfg.ImagesBucket).Object(object).NewWriter(ctx)
	if strings.TrimSpace(contentType) != "" {
		writer.ContentType = contentType
	}
	writer.CacheControl = "public, max-age=3600"

	if _, err := io.Copy(writer, body); err != nil {
		_ = writer.Close()
		return "", fmt.Errorf("storage: upload %q: %w", object, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("storage: upload %q: %w", object, err)
	}
	return c.PublicURL(object), nil
}

// Delete removes the named object. Deleting a missing object is not an error.
func (c *Client) Delete(ctx context.Context, object string) error {
	object = strings.TrimSpace(object)
	if object == "" {
		return errObjectRequired
	}

	client, err := c.sdk(ctx)
	if err != nil {
		return err
	}

	err = client.Bucket(c.cfg.ImagesBucket).Object(object).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("storage: delete %q: %w", object, err)
	}
	return nil
}

// List returns the names of every object in the bucket.
func (c *Client) List(ctx context.Context) ([]string, error) {
	client, err := c.sdk(ctx)
	if err != nil {
		return nil, err
	}

	var names []string
	it := client.Bucket(c.cfg.ImagesBucket).Objects(ctx, nil)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("storage: list objects: %w", err)
		}
		names = append(names, attrs.Name)
	}
	return names, nil
}

// Close releases the underlying SDK client. The Client cannot be reused afterwards.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// PublicURL returns the canonical public URL for an object in the bucket.
func (c *Client) PublicURL(object string) string {
	return publicURLPrefix + c.cfg.ImagesBucket + "/" + object
}

// ObjectName extracts the object name from a public URL pointing at the
// configured bucket. URLs hosted elsewhere report ok=false and are left alone.
func (c *Client) ObjectName(rawURL string) (string, bool) {
	prefix := publicURLPrefix + c.cfg.ImagesBucket + "/"
	if !strings.HasPrefix(rawURL, prefix) {
		return "", false
	}
	name := strings.TrimPrefix(rawURL, prefix)
	if idx := strings.IndexByte(name, '?'); idx >= 0 {
		name = name[:idx]
	}
	if name == "" {
		return "", false
	}
	return name, true
}
