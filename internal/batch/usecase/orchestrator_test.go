package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	authdomain "mailpilot-backend/internal/auth/domain"
	"mailpilot-backend/internal/batch/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	jobs       *fakeJobRepo
	messages   *fakeMessageRepo
	labels     *fakeLabelRepo
	provider   *fakeMailProvider
	users      *fakeUserRepo
	classifier *fakeClassifier
	notifier   *fakeNotifier
	uc         BatchUsecase
}

func newFixture(provider *fakeMailProvider) *fixture {
	f := &fixture{
		jobs:       newFakeJobRepo(),
		messages:   newFakeMessageRepo(),
		labels:     newFakeLabelRepo(),
		provider:   provider,
		users:      newFakeUserRepo(),
		classifier: &fakeClassifier{},
		notifier:   &fakeNotifier{},
	}
	f.users.Create(&authdomain.User{ID: "user-1", Email: "u@example.com"})
	guard := NewCredentialGuard(provider, f.users)
	resolver := NewLabelResolver(f.labels, guard)
	f.uc = NewBatchUsecase(f.jobs, f.messages, f.labels, provider, guard, resolver, f.classifier, 0)
	f.uc.SetNotifier(f.notifier)
	return f
}

func testMessages(n int) []domain.MessageMeta {
	var out []domain.MessageMeta
	for i := 0; i < n; i++ {
		out = append(out, domain.MessageMeta{
			ProviderID: fmt.Sprintf("m-%03d", i),
			Subject:    fmt.Sprintf("Subject %d", i),
			Sender:     "sender@example.com",
			Recipient:  "u@example.com",
			Snippet:    "snippet",
			Timestamp:  time.Now(),
		})
	}
	return out
}

func goodCred() *domain.Credential {
	return &domain.Credential{AccessToken: "good", RefreshToken: "refresh"}
}

func TestCreateBatch_Validation(t *testing.T) {
	f := newFixture(newFakeMailProvider())

	tests := []struct {
		name      string
		operation string
		opts      domain.BatchOptions
		wantErr   bool
	}{
		{"unknown operation", "reticulateSplines", domain.BatchOptions{}, true},
		{"negative batch size", "fetchEmails", domain.BatchOptions{BatchSize: -1}, true},
		{"fetch over ceiling", "fetchEmails", domain.BatchOptions{BatchSize: 501}, true},
		{"fetch at ceiling", "fetchEmails", domain.BatchOptions{BatchSize: 500}, false},
		{"analyze over ceiling", "analyzeEmails", domain.BatchOptions{BatchSize: 201}, true},
		{"assign over ceiling", "assignLabels", domain.BatchOptions{BatchSize: 201}, true},
		{"create labels over ceiling", "createLabels", domain.BatchOptions{BatchSize: 101}, true},
		{"organize over ceiling", "organizeLabels", domain.BatchOptions{BatchSize: 101}, true},
		{"full process over ceiling", "fullProcess", domain.BatchOptions{BatchSize: 201}, true},
		{"negative limit", "analyzeEmails", domain.BatchOptions{Limit: -5}, true},
		{"defaults accepted", "fullProcess", domain.BatchOptions{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.uc.CreateBatch("user-1", tt.operation, tt.opts)
			if tt.wantErr {
				var vErr *domain.ValidationError
				assert.ErrorAs(t, err, &vErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateBatch_DefaultBatchSize(t *testing.T) {
	f := newFixture(newFakeMailProvider())

	id, err := f.uc.CreateBatch("user-1", "fetchEmails", domain.BatchOptions{})
	require.NoError(t, err)

	job, err := f.uc.GetBatchStatus("user-1", id)
	require.NoError(t, err)
	assert.Equal(t, 50, job.Options.BatchSize)
	assert.Equal(t, domain.StatusCreated, job.Status)
}

func TestExecuteBatch_UnknownJob(t *testing.T) {
	f := newFixture(newFakeMailProvider())
	_, err := f.uc.ExecuteBatch(context.Background(), "no-such-job", goodCred())
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestExecuteBatch_OnlyCreatedJobsRun(t *testing.T) {
	f := newFixture(newFakeMailProvider(testMessages(2)...))

	id, err := f.uc.CreateBatch("user-1", "fetchEmails", domain.BatchOptions{BatchSize: 2})
	require.NoError(t, err)

	_, err = f.uc.ExecuteBatch(context.Background(), id, goodCred())
	require.NoError(t, err)

	// Terminal jobs cannot be re-run.
	_, err = f.uc.ExecuteBatch(context.Background(), id, goodCred())
	var vErr *domain.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestExecuteBatch_RecordsTimesAndNotifies(t *testing.T) {
	f := newFixture(newFakeMailProvider(testMessages(1)...))

	id, _ := f.uc.CreateBatch("user-1", "fetchEmails", domain.BatchOptions{BatchSize: 1})
	_, err := f.uc.ExecuteBatch(context.Background(), id, goodCred())
	require.NoError(t, err)

	job, err := f.uc.GetBatchStatus("user-1", id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, job.Status)
	require.NotNil(t, job.StartTime)
	require.NotNil(t, job.EndTime)
	assert.False(t, job.EndTime.Before(*job.StartTime))

	require.Len(t, f.notifier.finished, 1)
	assert.Equal(t, domain.StatusCompleted, f.notifier.finished[0].Status)
}

func TestFetchEmails_LimitBeatsPageCount(t *testing.T) {
	// 25 available, batchSize 10: exactly 10 fetched.
	f := newFixture(newFakeMailProvider(testMessages(25)...))

	id, _ := f.uc.CreateBatch("user-1", "fetchEmails", domain.BatchOptions{BatchSize: 10})
	counters, err := f.uc.ExecuteBatch(context.Background(), id, goodCred())
	require.NoError(t, err)

	assert.Equal(t, 10, counters.EmailsProcessed)
	assert.Equal(t, 10, counters.EmailsTotal)

	stored, _ := f.messages.ListUnprocessed("user-1", 0)
	assert.Len(t, stored, 10)
}

func TestFetchEmails_FollowsPagination(t *testing.T) {
	provider := newFakeMailProvider(testMessages(12)...)
	provider.pageSize = 5 // force three pages
	f := newFixture(provider)

	id, _ := f.uc.CreateBatch("user-1", "fetchEmails", domain.BatchOptions{BatchSize: 12})
	counters, err := f.uc.ExecuteBatch(context.Background(), id, goodCred())
	require.NoError(t, err)

	assert.Equal(t, 12, counters.EmailsTotal)
	assert.Equal(t, 3, provider.listCalls)
}

func TestFetchEmails_RefetchDoesNotResetState(t *testing.T) {
	f := newFixture(newFakeMailProvider(testMessages(3)...))

	id, _ := f.uc.CreateBatch("user-1", "fetchEmails", domain.BatchOptions{BatchSize: 3})
	_, err := f.uc.ExecuteBatch(context.Background(), id, goodCred())
	require.NoError(t, err)

	// Analyze so the records carry state a refetch must not clobber.
	id, _ = f.uc.CreateBatch("user-1", "analyzeEmails", domain.BatchOptions{BatchSize: 3})
	_, err = f.uc.ExecuteBatch(context.Background(), id, goodCred())
	require.NoError(t, err)

	id, _ = f.uc.CreateBatch("user-1", "fetchEmails", domain.BatchOptions{BatchSize: 3})
	_, err = f.uc.ExecuteBatch(context.Background(), id, goodCred())
	require.NoError(t, err)

	unprocessed, _ := f.messages.ListUnprocessed("user-1", 0)
	assert.Empty(t, unprocessed, "refetch must keep the processed flag")
}

func TestAnalyzeEmails_ClassifiesAndMarks(t *testing.T) {
	f := newFixture(newFakeMailProvider(testMessages(5)...))

	id, _ := f.uc.CreateBatch("user-1", "fetchEmails", domain.BatchOptions{BatchSize: 5})
	_, err := f.uc.ExecuteBatch(context.Background(), id, goodCred())
	require.NoError(t, err)

	f.classifier.result = &domain.ClassificationResult{
		Category:       "Work",
		Summary:        "summary",
		Sentiment:      domain.SentimentNeutral,
		SuggestedLabel: "Work",
	}

	id, _ = f.uc.CreateBatch("user-1", "analyzeEmails", domain.BatchOptions{BatchSize: 5})
	counters, err := f.uc.ExecuteBatch(context.Background(), id, goodCred())
	require.NoError(t, err)

	assert.Equal(t, 5, counters.EmailsProcessed)
	assert.Equal(t, 5, counters.EmailsTotal)
	assert.Equal(t, 5, f.classifier.calls)

	unsynced, _ := f.messages.ListUnsynced("user-1", 0)
	require.Len(t, unsynced, 5)
	for _, msg := range unsynced {
		assert.True(t, msg.Processed)
		assert.Equal(t, "Work", msg.Analysis.Category)
	}
}

func TestAnalyzeEmails_LimitOverridesBatchSize(t *testing.T) {
	f := newFixture(newFakeMailProvider(testMessages(8)...))

	id, _ := f.uc.CreateBatch("user-1", "fetchEmails", domain.BatchOptions{BatchSize: 8})
	_, err := f.uc.ExecuteBatch(context.Background(), id, goodCred())
	require.NoError(t, err)

	id, _ = f.uc.CreateBatch("user-1", "analyzeEmails", domain.BatchOptions{BatchSize: 8, Limit: 3})
	counters, err := f.uc.ExecuteBatch(context.Background(), id, goodCred())
	require.NoError(t, err)

	assert.Equal(t, 3, counters.EmailsProcessed)
	unprocessed, _ := f.messages.ListUnprocessed("user-1", 0)
	assert.Len(t, unprocessed, 5)
}

func TestCreateLabels_CountsCreatedVersusReused(t *testing.T) {
	f := newFixture(newFakeMailProvider(testMessages(4)...))

	// Fetch and analyze with two distinct suggested labels.
	id, _ := f.uc.CreateBatch("user-1", "fetchEmails", domain.BatchOptions{BatchSize: 4})
	_, err := f.uc.ExecuteBatch(context.Background(), id, goodCred())
	require.NoError(t, err)

	f.classifier.result = &domain.ClassificationResult{Category: "Work", Sentiment: domain.SentimentNeutral, SuggestedLabel: "Work"}
	id, _ = f.uc.CreateBatch("user-1", "analyzeEmails", domain.BatchOptions{BatchSize: 4})
	_, err = f.uc.ExecuteBatch(context.Background(), id, goodCred())
	require.NoError(t, err)

	id, _ = f.uc.CreateBatch("user-1", "createLabels", domain.BatchOptions{BatchSize: 10})
	counters, err := f.uc.ExecuteBatch(context.Background(), id, goodCred())
	require.NoError(t, err)
	assert.Equal(t, 1, counters.LabelsCreated)
	assert.Equal(t, 0, counters.LabelsUsed)

	// Second run finds the label already mapped.
	id, _ = f.uc.CreateBatch("user-1", "createLabels", domain.BatchOptions{BatchSize: 10})
	counters, err = f.uc.ExecuteBatch(context.Background(), id, goodCred())
	require.NoError(t, err)
	assert.Equal(t, 0, counters.LabelsCreated)
	assert.Equal(t, 1, counters.LabelsUsed)
}

func TestAssignLabels_AppliesAndIsIdempotent(t *testing.T) {
	provider := newFakeMailProvider(testMessages(3)...)
	f := newFixture(provider)

	id, _ := f.uc.CreateBatch("user-1", "fetchEmails", domain.BatchOptions{BatchSize: 3})
	_, err := f.uc.ExecuteBatch(context.Background(), id, goodCred())
	require.NoError(t, err)

	f.classifier.result = &domain.ClassificationResult{Category: "Finance", Sentiment: domain.SentimentNeutral, SuggestedLabel: "Finance"}
	id, _ = f.uc.CreateBatch("user-1", "analyzeEmails", domain.BatchOptions{BatchSize: 3})
	_, err = f.uc.ExecuteBatch(context.Background(), id, goodCred())
	require.NoError(t, err)

	id, _ = f.uc.CreateBatch("user-1", "assignLabels", domain.BatchOptions{BatchSize: 3})
	counters, err := f.uc.ExecuteBatch(context.Background(), id, goodCred())
	require.NoError(t, err)
	assert.Equal(t, 3, counters.EmailsProcessed)
	assert.Equal(t, 3, counters.LabelsUsed)
	assert.Len(t, provider.modified, 3)

	// Re-run: everything is already synced.
	id, _ = f.uc.CreateBatch("user-1", "assignLabels", domain.BatchOptions{BatchSize: 3})
	counters, err = f.uc.ExecuteBatch(context.Background(), id, goodCred())
	require.NoError(t, err)
	assert.Equal(t, 0, counters.EmailsProcessed, "synced messages are not re-labeled")
}

func TestOrganizeLabels_ReconcilesProviderLabels(t *testing.T) {
	provider := newFakeMailProvider()
	provider.labels = []domain.ProviderLabel{
		{ID: "l-1", Name: "Receipts"},
		{ID: "l-2", Name: "Family"},
	}
	f := newFixture(provider)

	id, _ := f.uc.CreateBatch("user-1", "organizeLabels", domain.BatchOptions{BatchSize: 10})
	counters, err := f.uc.ExecuteBatch(context.Background(), id, goodCred())
	require.NoError(t, err)
	assert.Equal(t, 2, counters.LabelsUsed)

	stored, err := f.labels.ListByUser("user-1")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	for _, label := range stored {
		assert.False(t, label.IsAuto, "reconciled labels are not pipeline-created")
		assert.NotEmpty(t, label.ProviderLabelID)
	}
}

func TestFullProcess_EndToEnd(t *testing.T) {
	provider := newFakeMailProvider(testMessages(6)...)
	f := newFixture(provider)
	f.classifier.result = &domain.ClassificationResult{Category: "Work", Sentiment: domain.SentimentNeutral, SuggestedLabel: "Work"}

	id, _ := f.uc.CreateBatch("user-1", "fullProcess", domain.BatchOptions{BatchSize: 6})
	_, err := f.uc.ExecuteBatch(context.Background(), id, goodCred())
	require.NoError(t, err)

	job, err := f.uc.GetBatchStatus("user-1", id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, job.Status)
	assert.Equal(t, 1, job.Counters.LabelsCreated)
	assert.Len(t, provider.modified, 6, "every fetched message labeled")

	unsynced, _ := f.messages.ListUnsynced("user-1", 0)
	assert.Empty(t, unsynced)
}

func TestExecuteBatch_AuthFailureBeyondRepairFailsJob(t *testing.T) {
	provider := newFakeMailProvider(testMessages(2)...)
	provider.rejectTokens["stale"] = true
	provider.rejectTokens["refreshed-token"] = true
	f := newFixture(provider)

	id, _ := f.uc.CreateBatch("user-1", "fetchEmails", domain.BatchOptions{BatchSize: 2})
	_, err := f.uc.ExecuteBatch(context.Background(), id, &domain.Credential{AccessToken: "stale", RefreshToken: "r"})
	assert.ErrorIs(t, err, domain.ErrRequiresReauth)

	job, _ := f.uc.GetBatchStatus("user-1", id)
	assert.Equal(t, domain.StatusFailed, job.Status)
	assert.NotEmpty(t, job.Errors)
	require.NotNil(t, job.EndTime)

	require.Len(t, f.notifier.finished, 1)
	assert.Equal(t, domain.StatusFailed, f.notifier.finished[0].Status)
}

func TestGetBatchStatus_ScopedToOwner(t *testing.T) {
	f := newFixture(newFakeMailProvider())

	id, _ := f.uc.CreateBatch("user-1", "fetchEmails", domain.BatchOptions{})
	_, err := f.uc.GetBatchStatus("user-2", id)
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestListBatchHistory(t *testing.T) {
	f := newFixture(newFakeMailProvider())

	for i := 0; i < 5; i++ {
		_, err := f.uc.CreateBatch("user-1", "fetchEmails", domain.BatchOptions{})
		require.NoError(t, err)
	}

	jobs, err := f.uc.ListBatchHistory("user-1", 3)
	require.NoError(t, err)
	assert.Len(t, jobs, 3)
}
