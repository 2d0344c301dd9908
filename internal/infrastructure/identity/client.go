package identity

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/verdantmart/identity-gateway/internal/core/domain"
	"github.com/verdantmart/identity-gateway/internal/core/ports"
	"github.com/verdantmart/identity-gateway/internal/infrastructure/queue"
)

// Client is one browser context's handle on the Directory. It tracks the
// signed-in principal and publishes every change to its subscribers.
type Client struct {
	dir *Directory
	hub *queue.Hub
	log zerolog.Logger

	mu      sync.Mutex
	current *domain.Principal
}

var _ ports.IdentityBackend = (*Client)(nil)

func NewClient(dir *Directory, log zerolog.Logger) *Client {
	return &Client{dir: dir, hub: queue.NewHub(log), log: log}
}

func (c *Client) CurrentUser() *domain.Principal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current.Clone()
}

// CreateUser registers the credential and signs the new principal in.
func (c *Client) CreateUser(ctx context.Context, email, password, displayName string) (*domain.Principal, error) {
	p, err := c.dir.Register(ctx, email, password, displayName)
	if err != nil {
		return nil, err
	}
	c.setCurrent(p)
	return p, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*domain.Principal, error) {
	p, err := c.dir.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	c.setCurrent(p)
	return p, nil
}

func (c *Client) SignInWithProvider(ctx context.Context, assertion string) (*domain.Principal, error) {
	p, err := c.dir.Federate(ctx, assertion)
	if err != nil {
		return nil, err
	}
	c.setCurrent(p)
	return p, nil
}

// SignOut drops the local principal and records the sign out with the
// directory. The local state is cleared even when recording fails.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	p := c.current
	c.mu.Unlock()

	c.setCurrent(nil)
	if p == nil {
		return nil
	}
	return c.dir.SignOut(ctx, p.ID)
}

func (c *Client) SendPasswordReset(ctx context.Context, email string) error {
	return c.dir.IssueReset(ctx, email)
}

func (c *Client) OnAuthStateChanged(listener ports.AuthStateListener) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hub.Subscribe(listener, c.current)
}

func (c *Client) Close() error {
	c.hub.Close()
	return nil
}

func (c *Client) setCurrent(p *domain.Principal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = p.Clone()
	c.hub.Publish(p)
}
