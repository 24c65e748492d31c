package notification

import (
	"context"
	"fmt"
	"log"

	authrepo "mailpilot-backend/internal/auth/repository"
	"mailpilot-backend/internal/batch/domain"
	"mailpilot-backend/pkg/fcm"
)

// BatchNotifier pushes an FCM notification to the user's devices when a
// batch reaches a terminal state.
type BatchNotifier struct {
	fcmClient *fcm.Client
	fcmRepo   authrepo.FCMTokenRepository
}

func NewBatchNotifier(fcmClient *fcm.Client, fcmRepo authrepo.FCMTokenRepository) *BatchNotifier {
	return &BatchNotifier{
		fcmClient: fcmClient,
		fcmRepo:   fcmRepo,
	}
}

func (n *BatchNotifier) BatchFinished(userID string, job *domain.BatchJob) {
	if n.fcmClient == nil || n.fcmRepo == nil {
		return
	}

	go func() {
		tokens, err := n.fcmRepo.GetTokensByUserID(userID)
		if err != nil {
			log.Printf("[FCM] Error getting tokens for user %s: %v", userID, err)
			return
		}
		if len(tokens) == 0 {
			return
		}

		var tokenStrings []string
		for _, t := range tokens {
			tokenStrings = append(tokenStrings, t.Token)
		}

		title := "Inbox triage finished"
		body := fmt.Sprintf("%s processed %d emails", job.Operation, job.Counters.EmailsProcessed)
		if job.Status == domain.StatusFailed {
			title = "Inbox triage failed"
			body = fmt.Sprintf("%s stopped after %d emails", job.Operation, job.Counters.EmailsProcessed)
		}

		failedTokens, err := n.fcmClient.SendToDevices(context.Background(), tokenStrings, fcm.NotificationData{
			Title: title,
			Body:  body,
			Data: map[string]string{
				"type":    "batch_finished",
				"batchId": job.ID,
				"status":  string(job.Status),
			},
		})
		if err != nil {
			log.Printf("[FCM] Error sending batch notification: %v", err)
			return
		}

		for _, token := range failedTokens {
			if err := n.fcmRepo.DeleteToken(token); err != nil {
				log.Printf("[FCM] Failed to prune token: %v", err)
			}
		}
	}()
}
