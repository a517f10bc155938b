package gateway

import (
	"log"
	"sync"

	"github.com/like-mike/tenant-ai-gateway/gateway/provider"
	"github.com/like-mike/tenant-ai-gateway/shared/models"
)

type cacheEntry struct {
	client provider.Client
	creds  *provider.Credentials
}

// ClientCache keeps one constructed provider client per tenant for the
// process lifetime. Entries are removed when a tenant's AI settings are
// rewritten, so credential changes take effect without a restart.
type ClientCache struct {
	mu       sync.Mutex
	entries  map[string]*cacheEntry
	resolver *provider.Resolver

	// replaceable for tests
	newClient func(*provider.Credentials) provider.Client
}

func NewClientCache(resolver *provider.Resolver) *ClientCache {
	return &ClientCache{
		entries:   make(map[string]*cacheEntry),
		resolver:  resolver,
		newClient: provider.NewClient,
	}
}

// Get returns the cached client for a tenant, constructing it on first
// use. Repeat calls return the identical instance until Invalidate.
func (c *ClientCache) Get(tenant *models.Tenant) (provider.Client, *provider.Credentials, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[tenant.ID]; ok {
		return entry.client, entry.creds, nil
	}

	creds, err := c.resolver.Resolve(tenant)
	if err != nil {
		return nil, nil, err
	}

	entry := &cacheEntry{client: c.newClient(creds), creds: creds}
	c.entries[tenant.ID] = entry
	return entry.client, entry.creds, nil
}

// Invalidate drops a tenant's cached client. Called by the settings-update
// path so the next request constructs a client from fresh credentials.
func (c *ClientCache) Invalidate(tenantID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[tenantID]; ok {
		delete(c.entries, tenantID)
		log.Printf("Invalidated cached AI client for tenant %s", tenantID)
	}
}

// Len reports the number of cached clients, for stats endpoints.
func (c *ClientCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
