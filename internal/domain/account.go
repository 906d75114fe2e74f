package domain

// CloudAccount is a connected AWS account.
type CloudAccount struct {
	AccountID      string         `json:"account_id"`
	OrgID          string         `json:"org_id,omitempty"`
	AccountName    string         `json:"account_name,omitempty"`
	LastSnapshotS3 string         `json:"last_snapshot_s3,omitempty"`
	LastIngestAt   string         `json:"last_ingest_at,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// DisplayName prefers the account name over the raw id.
func (a CloudAccount) DisplayName() string {
	if a.AccountName != "" {
		return a.AccountName
	}
	return a.AccountID
}

// IngestRequest triggers a resource snapshot for an account.
type IngestRequest struct {
	AccountID      string            `json:"accountId"`
	OrganizationID string            `json:"organizationId,omitempty"`
	Regions        []string          `json:"regions,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// IngestResponse summarizes the captured snapshot.
type IngestResponse struct {
	SnapshotS3URI  string         `json:"snapshotS3Uri"`
	ResourceCounts map[string]int `json:"resourceCounts"`
	CostSummary    map[string]any `json:"costSummary,omitempty"`
}

// SubscriptionStatus is the billing state for a user.
type SubscriptionStatus struct {
	Subscription          map[string]any `json:"subscription,omitempty"`
	SubscriptionStatus    string         `json:"subscriptionStatus"`
	HasActiveSubscription bool           `json:"hasActiveSubscription"`
}

// CheckoutSession is returned when starting a billing checkout.
type CheckoutSession struct {
	ClientSecret string `json:"clientSecret"`
}
