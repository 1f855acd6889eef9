package azure

import "context"

// ClientProvider hands out SDK clients scoped to a resolved Context.
type ClientProvider interface {
	ClientsFor(ctx context.Context, c Context) (*SubscriptionClients, error)
}

// Compile-time check that ClientFactory implements ClientProvider
var _ ClientProvider = (*ClientFactory)(nil)
