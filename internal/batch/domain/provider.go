package domain

import (
	"context"
	"time"
)

// Credential carries the OAuth tokens for one user's mailbox. The guard
// mutates it in place when a refresh succeeds.
type Credential struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// MessagePage is one page of message identifiers from the provider.
type MessagePage struct {
	ProviderIDs   []string
	NextPageToken string
	SizeEstimate  int
}

// MessageMeta is the metadata of one provider message.
type MessageMeta struct {
	ProviderID string
	Subject    string
	Sender     string
	Recipient  string
	Snippet    string
	Timestamp  time.Time
}

// ProviderLabel is a label as the provider reports it.
type ProviderLabel struct {
	ID   string
	Name string
}

// MailProvider is the mailbox access contract. Implementations map
// provider auth failures to ErrAuthExpired and duplicate label creation
// to ErrLabelExists.
type MailProvider interface {
	ListMessages(ctx context.Context, cred *Credential, query, pageToken string, pageSize int64) (*MessagePage, error)
	GetMessageMetadata(ctx context.Context, cred *Credential, providerID string) (*MessageMeta, error)
	CreateLabel(ctx context.Context, cred *Credential, name string) (*ProviderLabel, error)
	ListLabels(ctx context.Context, cred *Credential) ([]ProviderLabel, error)
	ModifyMessageLabels(ctx context.Context, cred *Credential, providerID string, addLabelIDs []string) error
	RefreshCredential(ctx context.Context, refreshToken string) (*Credential, error)
}
