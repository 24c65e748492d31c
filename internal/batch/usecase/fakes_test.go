package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	authdomain "mailpilot-backend/internal/auth/domain"
	"mailpilot-backend/internal/batch/domain"
)

// In-memory fakes shared by the usecase tests.

type fakeJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*domain.BatchJob
	seq  int
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: make(map[string]*domain.BatchJob)}
}

func (r *fakeJobRepo) Create(job *domain.BatchJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job.ID == "" {
		r.seq++
		job.ID = fmt.Sprintf("job-%d", r.seq)
	}
	job.CreatedAt = time.Now()
	copy := *job
	r.jobs[job.ID] = &copy
	return nil
}

func (r *fakeJobRepo) Update(job *domain.BatchJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copy := *job
	r.jobs[job.ID] = &copy
	return nil
}

func (r *fakeJobRepo) UpdateFields(id string, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil
	}
	for k, v := range fields {
		switch k {
		case "status":
			job.Status = v.(domain.BatchStatus)
		case "start_time":
			t := v.(time.Time)
			job.StartTime = &t
		case "emails_processed":
			job.Counters.EmailsProcessed = v.(int)
		case "emails_total":
			job.Counters.EmailsTotal = v.(int)
		case "labels_created":
			job.Counters.LabelsCreated = v.(int)
		case "labels_used":
			job.Counters.LabelsUsed = v.(int)
		}
	}
	return nil
}

func (r *fakeJobRepo) GetByID(id string) (*domain.BatchJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, nil
	}
	copy := *job
	return &copy, nil
}

func (r *fakeJobRepo) ListByUser(userID string, limit int) ([]domain.BatchJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.BatchJob
	for _, job := range r.jobs {
		if job.UserID == userID {
			out = append(out, *job)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages map[string]*domain.MessageRecord // keyed by userID+providerID
	seq      int
	updates  int
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: make(map[string]*domain.MessageRecord)}
}

func msgKey(userID, providerID string) string { return userID + "\x00" + providerID }

func (r *fakeMessageRepo) Upsert(msg *domain.MessageRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := msgKey(msg.UserID, msg.ProviderID)
	if existing, ok := r.messages[key]; ok {
		existing.Subject = msg.Subject
		existing.Sender = msg.Sender
		existing.Recipient = msg.Recipient
		existing.Snippet = msg.Snippet
		existing.Timestamp = msg.Timestamp
		return nil
	}
	r.seq++
	msg.ID = fmt.Sprintf("msg-%d", r.seq)
	copy := *msg
	r.messages[key] = &copy
	return nil
}

func (r *fakeMessageRepo) Update(msg *domain.MessageRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates++
	copy := *msg
	r.messages[msgKey(msg.UserID, msg.ProviderID)] = &copy
	return nil
}

func (r *fakeMessageRepo) list(userID string, limit int, match func(*domain.MessageRecord) bool) []domain.MessageRecord {
	var out []domain.MessageRecord
	for _, msg := range r.messages {
		if msg.UserID == userID && match(msg) {
			out = append(out, *msg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r *fakeMessageRepo) ListUnprocessed(userID string, limit int) ([]domain.MessageRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(userID, limit, func(m *domain.MessageRecord) bool { return !m.Processed }), nil
}

func (r *fakeMessageRepo) ListUnsynced(userID string, limit int) ([]domain.MessageRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(userID, limit, func(m *domain.MessageRecord) bool { return m.Processed && !m.Synced }), nil
}

func (r *fakeMessageRepo) DistinctSuggestedLabels(userID string, limit int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, msg := range r.messages {
		if msg.UserID != userID || !msg.Processed || msg.Analysis.SuggestedLabel == "" {
			continue
		}
		if !seen[msg.Analysis.SuggestedLabel] {
			seen[msg.Analysis.SuggestedLabel] = true
			out = append(out, msg.Analysis.SuggestedLabel)
		}
	}
	sort.Strings(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeLabelRepo struct {
	mu     sync.Mutex
	labels map[string]*domain.LabelRecord // keyed by userID+name
	seq    int
}

func newFakeLabelRepo() *fakeLabelRepo {
	return &fakeLabelRepo{labels: make(map[string]*domain.LabelRecord)}
}

func (r *fakeLabelRepo) GetByName(userID, name string) (*domain.LabelRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	label, ok := r.labels[userID+"\x00"+name]
	if !ok {
		return nil, nil
	}
	copy := *label
	return &copy, nil
}

func (r *fakeLabelRepo) Upsert(label *domain.LabelRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := label.UserID + "\x00" + label.Name
	if existing, ok := r.labels[key]; ok {
		if label.ProviderLabelID != "" {
			existing.ProviderLabelID = label.ProviderLabelID
		}
		*label = *existing
		return false, nil
	}
	r.seq++
	label.ID = fmt.Sprintf("label-%d", r.seq)
	copy := *label
	r.labels[key] = &copy
	return true, nil
}

func (r *fakeLabelRepo) ListByUser(userID string) ([]domain.LabelRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.LabelRecord
	for _, label := range r.labels {
		if label.UserID == userID {
			out = append(out, *label)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type fakeRateRepo struct {
	mu      sync.Mutex
	entries []domain.RateLimitEntry
	countErr  error
	recordErr error
}

func newFakeRateRepo() *fakeRateRepo { return &fakeRateRepo{} }

func (r *fakeRateRepo) CountSince(userID, tag string, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.countErr != nil {
		return 0, r.countErr
	}
	var count int64
	for _, e := range r.entries {
		if e.UserID == userID && e.Tag == tag && !e.CalledAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *fakeRateRepo) Record(userID, tag string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recordErr != nil {
		return r.recordErr
	}
	r.entries = append(r.entries, domain.RateLimitEntry{UserID: userID, Tag: tag, CalledAt: at})
	return nil
}

func (r *fakeRateRepo) PurgeBefore(cutoff time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []domain.RateLimitEntry
	for _, e := range r.entries {
		if !e.CalledAt.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	r.entries = kept
	return nil
}

type fakeUserRepo struct {
	mu          sync.Mutex
	users       map[string]*authdomain.User
	tokenWrites int
	updateErr   error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*authdomain.User)}
}

func (r *fakeUserRepo) Create(user *authdomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) FindByID(id string) (*authdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return user, nil
}

func (r *fakeUserRepo) FindByEmail(email string) (*authdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) Update(user *authdomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) UpdateTokens(userID, accessToken, refreshToken string, expiry time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	r.tokenWrites++
	if u, ok := r.users[userID]; ok {
		u.AccessToken = accessToken
		u.RefreshToken = refreshToken
		u.TokenExpiry = expiry
	}
	return nil
}

// fakeMailProvider scripts the provider side. Tokens matter: calls made
// with an access token present in rejectTokens fail with ErrAuthExpired.
type fakeMailProvider struct {
	mu sync.Mutex

	messages    []domain.MessageMeta
	pageSize    int64
	labels      []domain.ProviderLabel
	labelSeq    int
	modified    map[string][]string // providerID -> applied label ids
	rejectTokens map[string]bool
	refreshed    *domain.Credential
	refreshErr   error
	refreshCalls int
	listCalls    int
	createCalls  int
	createErr    error
}

func newFakeMailProvider(messages ...domain.MessageMeta) *fakeMailProvider {
	return &fakeMailProvider{
		messages:     messages,
		modified:     make(map[string][]string),
		rejectTokens: make(map[string]bool),
	}
}

func (p *fakeMailProvider) checkAuth(cred *domain.Credential) error {
	if p.rejectTokens[cred.AccessToken] {
		return domain.ErrAuthExpired
	}
	return nil
}

func (p *fakeMailProvider) ListMessages(ctx context.Context, cred *domain.Credential, query, pageToken string, pageSize int64) (*domain.MessagePage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.checkAuth(cred); err != nil {
		return nil, err
	}
	p.listCalls++

	if p.pageSize > 0 && pageSize > p.pageSize {
		pageSize = p.pageSize
	}

	start := 0
	if pageToken != "" {
		fmt.Sscanf(pageToken, "page-%d", &start)
	}
	end := start + int(pageSize)
	if end > len(p.messages) {
		end = len(p.messages)
	}

	page := &domain.MessagePage{SizeEstimate: len(p.messages)}
	for _, m := range p.messages[start:end] {
		page.ProviderIDs = append(page.ProviderIDs, m.ProviderID)
	}
	if end < len(p.messages) {
		page.NextPageToken = fmt.Sprintf("page-%d", end)
	}
	return page, nil
}

func (p *fakeMailProvider) GetMessageMetadata(ctx context.Context, cred *domain.Credential, providerID string) (*domain.MessageMeta, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.checkAuth(cred); err != nil {
		return nil, err
	}
	for i := range p.messages {
		if p.messages[i].ProviderID == providerID {
			copy := p.messages[i]
			return &copy, nil
		}
	}
	return nil, fmt.Errorf("message %s not found", providerID)
}

func (p *fakeMailProvider) CreateLabel(ctx context.Context, cred *domain.Credential, name string) (*domain.ProviderLabel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.checkAuth(cred); err != nil {
		return nil, err
	}
	p.createCalls++
	if p.createErr != nil {
		return nil, p.createErr
	}
	for _, l := range p.labels {
		if l.Name == name {
			return nil, domain.ErrLabelExists
		}
	}
	p.labelSeq++
	label := domain.ProviderLabel{ID: fmt.Sprintf("provider-label-%d", p.labelSeq), Name: name}
	p.labels = append(p.labels, label)
	return &label, nil
}

func (p *fakeMailProvider) ListLabels(ctx context.Context, cred *domain.Credential) ([]domain.ProviderLabel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.checkAuth(cred); err != nil {
		return nil, err
	}
	out := make([]domain.ProviderLabel, len(p.labels))
	copy(out, p.labels)
	return out, nil
}

func (p *fakeMailProvider) ModifyMessageLabels(ctx context.Context, cred *domain.Credential, providerID string, addLabelIDs []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.checkAuth(cred); err != nil {
		return err
	}
	p.modified[providerID] = append(p.modified[providerID], addLabelIDs...)
	return nil
}

func (p *fakeMailProvider) RefreshCredential(ctx context.Context, refreshToken string) (*domain.Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshCalls++
	if p.refreshErr != nil {
		return nil, p.refreshErr
	}
	if p.refreshed != nil {
		copy := *p.refreshed
		return &copy, nil
	}
	return &domain.Credential{AccessToken: "refreshed-token", RefreshToken: refreshToken}, nil
}

// fakeClassifier returns a fixed or derived result, counting calls.
type fakeClassifier struct {
	mu     sync.Mutex
	result *domain.ClassificationResult
	calls  int
}

func (c *fakeClassifier) Classify(ctx context.Context, subject, sender, snippet, userID string) *domain.ClassificationResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.result != nil {
		copy := *c.result
		return &copy
	}
	return &domain.ClassificationResult{
		Category:       domain.CategoryOther,
		Summary:        subject,
		Sentiment:      domain.SentimentNeutral,
		SuggestedLabel: domain.CategoryOther,
	}
}

type fakeNotifier struct {
	mu       sync.Mutex
	finished []*domain.BatchJob
}

func (n *fakeNotifier) BatchFinished(userID string, job *domain.BatchJob) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.finished = append(n.finished, job)
}
