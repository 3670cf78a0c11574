// Package crm talks to the CRM on both sides of a run: it pulls case
// records over the Salesforce REST API and pushes completion notices to
// the CRM's callback endpoint.
package crm

import (
	"context"
	"fmt"
	"os"

	salesforce "github.com/k-capehart/go-salesforce/v3"
	"golang.org/x/time/rate"

	"github.com/entityops/einfiler/internal/config"
)

// Querier is the slice of the Salesforce API this module consumes.
type Querier interface {
	Query(ctx context.Context, soql string, out any) error
}

// sfQuerier wraps go-salesforce/v3 behind Querier with a rate limiter in
// front. The underlying library takes no context, so the context governs
// only the limiter wait.
type sfQuerier struct {
	sf      *salesforce.Salesforce
	limiter *rate.Limiter
}

// NewQuerier authenticates against Salesforce with the JWT bearer flow
// and returns a rate-limited Querier.
func NewQuerier(cfg config.SalesforceConfig) (Querier, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("salesforce.client_id is required")
	}
	pemData, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read salesforce JWT key: %w", err)
	}

	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         cfg.LoginURL,
		Username:       cfg.Username,
		ConsumerKey:    cfg.ClientID,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init salesforce client: %w", err)
	}

	q := &sfQuerier{sf: sf}
	if cfg.RateLimit > 0 {
		q.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(int(cfg.RateLimit), 1))
	}
	return q, nil
}

func (q *sfQuerier) Query(ctx context.Context, soql string, out any) error {
	if q.limiter != nil {
		if err := q.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}
	if err := q.sf.Query(soql, out); err != nil {
		return fmt.Errorf("salesforce query: %w", err)
	}
	return nil
}
