package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	authrepo "mailpilot-backend/internal/auth/repository"
	batchdomain "mailpilot-backend/internal/batch/domain"
	"mailpilot-backend/internal/batch/usecase"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// GmailNotification is the payload Gmail watch publishes to the topic.
type GmailNotification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// autoBatchSize bounds the triage batch triggered by a push
// notification; a single notification means at most a handful of new
// messages.
const autoBatchSize = 10

// Service listens for Gmail push notifications and triggers a small
// fullProcess batch for the affected user.
type Service struct {
	pubsubClient *pubsub.Client
	userRepo     authrepo.UserRepository
	batchUsecase usecase.BatchUsecase
	projectID    string
	topicName    string
	subName      string

	// Track last historyId per user to drop duplicate notifications.
	mu            sync.Mutex
	lastHistoryID map[string]uint64
}

func NewService(projectID, topicName string, userRepo authrepo.UserRepository, batchUsecase usecase.BatchUsecase, credentialsFile string) (*Service, error) {
	ctx := context.Background()

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %v", err)
	}

	return &Service{
		pubsubClient:  client,
		userRepo:      userRepo,
		batchUsecase:  batchUsecase,
		projectID:     projectID,
		topicName:     topicName,
		subName:       topicName + "-sub", // Convention: topic-sub
		lastHistoryID: make(map[string]uint64),
	}, nil
}

func (s *Service) Start(ctx context.Context) {
	log.Printf("[PubSub] Starting notification service with topic: %s, subscription: %s", s.topicName, s.subName)

	sub := s.pubsubClient.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		log.Printf("[PubSub] Error checking subscription existence: %v", err)
		return
	}

	if !exists {
		topic := s.pubsubClient.Topic(s.topicName)
		topicExists, err := topic.Exists(ctx)
		if err != nil {
			log.Printf("[PubSub] Error checking topic existence: %v", err)
			return
		}
		if !topicExists {
			log.Printf("[PubSub] Topic does not exist, cannot create subscription")
			return
		}

		sub, err = s.pubsubClient.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: 10 * time.Second,
		})
		if err != nil {
			log.Printf("[PubSub] Failed to create subscription: %v", err)
			return
		}
		log.Printf("[PubSub] Created subscription: %s", s.subName)
	}

	log.Printf("[PubSub] Listening for messages on subscription: %s", s.subName)
	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		s.handleMessage(ctx, msg)
		msg.Ack()
	})
	if err != nil {
		log.Printf("[PubSub] Error receiving messages: %v", err)
	}
}

func (s *Service) handleMessage(ctx context.Context, msg *pubsub.Message) {
	var notification GmailNotification
	if err := json.Unmarshal(msg.Data, &notification); err != nil {
		log.Printf("[PubSub] Failed to unmarshal notification: %v", err)
		return
	}

	log.Printf("[PubSub] Notification for %s (historyId: %d)", notification.EmailAddress, notification.HistoryID)

	user, err := s.userRepo.FindByEmail(notification.EmailAddress)
	if err != nil {
		log.Printf("[PubSub] Error finding user by email %s: %v", notification.EmailAddress, err)
		return
	}
	if user == nil {
		log.Printf("[PubSub] User not found for email: %s", notification.EmailAddress)
		return
	}

	if s.isDuplicate(user.ID, notification.HistoryID) {
		return
	}

	if user.AccessToken == "" {
		log.Printf("[PubSub] User %s has no mailbox credential, skipping", user.ID)
		return
	}

	batchID, err := s.batchUsecase.CreateBatch(user.ID, string(batchdomain.OperationFullProcess), batchdomain.BatchOptions{
		Query:     "is:unread",
		BatchSize: autoBatchSize,
	})
	if err != nil {
		log.Printf("[PubSub] Failed to create auto batch for user %s: %v", user.ID, err)
		return
	}

	cred := &batchdomain.Credential{
		AccessToken:  user.AccessToken,
		RefreshToken: user.RefreshToken,
		Expiry:       user.TokenExpiry,
	}
	if _, err := s.batchUsecase.ExecuteBatch(ctx, batchID, cred); err != nil {
		log.Printf("[PubSub] Auto batch %s failed for user %s: %v", batchID, user.ID, err)
	}
}

func (s *Service) isDuplicate(userID string, historyID uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, seen := s.lastHistoryID[userID]
	if seen && historyID <= last {
		return true
	}
	s.lastHistoryID[userID] = historyID
	return false
}
