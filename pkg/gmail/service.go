package gmail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	batchdomain "mailpilot-backend/internal/batch/domain"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Service implements batchdomain.MailProvider on top of the Gmail API.
// Token refresh is handled by the caller; this layer uses the access
// token as-is and maps rejections to ErrAuthExpired.
type Service struct {
	clientID     string
	clientSecret string
}

func NewService(clientID, clientSecret string) *Service {
	return &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

func (s *Service) client(ctx context.Context, cred *batchdomain.Credential) (*gmail.Service, error) {
	token := &oauth2.Token{
		AccessToken: cred.AccessToken,
		TokenType:   "Bearer",
	}
	srv, err := gmail.NewService(ctx, option.WithTokenSource(oauth2.StaticTokenSource(token)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %v", err)
	}
	return srv, nil
}

// wrapError maps Gmail API failures onto the provider error contract.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 401:
			return fmt.Errorf("%w: %v", batchdomain.ErrAuthExpired, err)
		case 409:
			return fmt.Errorf("%w: %v", batchdomain.ErrLabelExists, err)
		case 400:
			if strings.Contains(strings.ToLower(apiErr.Message), "already exists") {
				return fmt.Errorf("%w: %v", batchdomain.ErrLabelExists, err)
			}
		}
	}
	return err
}

func (s *Service) ListMessages(ctx context.Context, cred *batchdomain.Credential, query, pageToken string, pageSize int64) (*batchdomain.MessagePage, error) {
	srv, err := s.client(ctx, cred)
	if err != nil {
		return nil, err
	}

	call := srv.Users.Messages.List("me").MaxResults(pageSize).Context(ctx)
	if query != "" {
		call = call.Q(query)
	}
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	resp, err := call.Do()
	if err != nil {
		return nil, wrapError(err)
	}

	page := &batchdomain.MessagePage{
		NextPageToken: resp.NextPageToken,
		SizeEstimate:  int(resp.ResultSizeEstimate),
	}
	for _, m := range resp.Messages {
		page.ProviderIDs = append(page.ProviderIDs, m.Id)
	}
	return page, nil
}

func (s *Service) GetMessageMetadata(ctx context.Context, cred *batchdomain.Credential, providerID string) (*batchdomain.MessageMeta, error) {
	srv, err := s.client(ctx, cred)
	if err != nil {
		return nil, err
	}

	msg, err := srv.Users.Messages.Get("me", providerID).
		Format("metadata").
		MetadataHeaders("Subject", "From", "To").
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrapError(err)
	}

	meta := &batchdomain.MessageMeta{
		ProviderID: msg.Id,
		Snippet:    msg.Snippet,
		Timestamp:  time.UnixMilli(msg.InternalDate),
	}
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			switch h.Name {
			case "Subject":
				meta.Subject = h.Value
			case "From":
				meta.Sender = h.Value
			case "To":
				meta.Recipient = h.Value
			}
		}
	}
	return meta, nil
}

func (s *Service) CreateLabel(ctx context.Context, cred *batchdomain.Credential, name string) (*batchdomain.ProviderLabel, error) {
	srv, err := s.client(ctx, cred)
	if err != nil {
		return nil, err
	}

	label, err := srv.Users.Labels.Create("me", &gmail.Label{
		Name:                  name,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}).Context(ctx).Do()
	if err != nil {
		return nil, wrapError(err)
	}

	return &batchdomain.ProviderLabel{ID: label.Id, Name: label.Name}, nil
}

func (s *Service) ListLabels(ctx context.Context, cred *batchdomain.Credential) ([]batchdomain.ProviderLabel, error) {
	srv, err := s.client(ctx, cred)
	if err != nil {
		return nil, err
	}

	resp, err := srv.Users.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return nil, wrapError(err)
	}

	labels := make([]batchdomain.ProviderLabel, 0, len(resp.Labels))
	for _, l := range resp.Labels {
		// System labels (INBOX, SPAM, ...) are not triage targets.
		if l.Type != "user" {
			continue
		}
		labels = append(labels, batchdomain.ProviderLabel{ID: l.Id, Name: l.Name})
	}
	return labels, nil
}

func (s *Service) ModifyMessageLabels(ctx context.Context, cred *batchdomain.Credential, providerID string, addLabelIDs []string) error {
	srv, err := s.client(ctx, cred)
	if err != nil {
		return err
	}

	_, err = srv.Users.Messages.Modify("me", providerID, &gmail.ModifyMessageRequest{
		AddLabelIds: addLabelIDs,
	}).Context(ctx).Do()
	return wrapError(err)
}

// RefreshCredential exchanges the refresh token for a new access token.
func (s *Service) RefreshCredential(ctx context.Context, refreshToken string) (*batchdomain.Credential, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("no refresh token available")
	}

	config := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
	}

	token, err := config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %v", err)
	}

	return &batchdomain.Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}, nil
}
