package play

import (
	"context"
	"fmt"

	androidpublisher "google.golang.org/api/androidpublisher/v3"
	"google.golang.org/api/option"
)

// Client wraps the Play Developer API subscription lookups behind the
// domain.SubscriptionAPI contract.
type Client struct {
	svc *androidpublisher.Service
}

// NewClient builds an androidpublisher service. Credentials resolve from the
// given options, or application default credentials when none are passed.
func NewClient(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	opts = append(opts, option.WithScopes(androidpublisher.AndroidpublisherScope))
	svc, err := androidpublisher.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("androidpublisher.NewService: %w", err)
	}
	return &Client{svc: svc}, nil
}

// GetV2 fetches the subscriptionsv2 state for a purchase token.
func (c *Client) GetV2(ctx context.Context, packageName, purchaseToken string) (*androidpublisher.SubscriptionPurchaseV2, error) {
	resp, err := c.svc.Purchases.Subscriptionsv2.Get(packageName, purchaseToken).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("google subscriptionsv2.get: %w", err)
	}
	return resp, nil
}

// GetV1 fetches the legacy subscription state; it additionally needs the
// subscription id.
func (c *Client) GetV1(ctx context.Context, packageName, subscriptionID, purchaseToken string) (*androidpublisher.SubscriptionPurchase, error) {
	resp, err := c.svc.Purchases.Subscriptions.Get(packageName, subscriptionID, purchaseToken).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("google subscriptions.get: %w", err)
	}
	return resp, nil
}
