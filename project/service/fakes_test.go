package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"standup-agent/project/domain"
)

// fakeSlack は SlackPort のテスト用フェイクです。
// ウォッチャーのゴルーチンから並行に呼ばれるためミューテックスで保護します
type fakeSlack struct {
	mu sync.Mutex

	presence    string
	presenceErr error
	searchErr   error
	searchHits  []HistoryMessage
	postErr     error

	threadPosts   []postedMessage
	channelPosts  []postedMessage
	dms           []postedMessage
	presenceCalls int
	searchCalls   int
	searchQueries []string
}

type postedMessage struct {
	teamID    string
	channelID string
	threadTS  string
	userID    string
	text      string
}

func (f *fakeSlack) PostThreadMessage(ctx context.Context, teamID, channelID, threadTS, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postErr != nil {
		return f.postErr
	}
	f.threadPosts = append(f.threadPosts, postedMessage{teamID: teamID, channelID: channelID, threadTS: threadTS, text: text})
	return nil
}

func (f *fakeSlack) PostChannelMessage(ctx context.Context, teamID, channelID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postErr != nil {
		return f.postErr
	}
	f.channelPosts = append(f.channelPosts, postedMessage{teamID: teamID, channelID: channelID, text: text})
	return nil
}

func (f *fakeSlack) PostDM(ctx context.Context, teamID, userID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postErr != nil {
		return f.postErr
	}
	f.dms = append(f.dms, postedMessage{teamID: teamID, userID: userID, text: text})
	return nil
}

func (f *fakeSlack) GetPresence(ctx context.Context, teamID, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presenceCalls++
	if f.presenceErr != nil {
		return "", f.presenceErr
	}
	return f.presence, nil
}

func (f *fakeSlack) SearchMessages(ctx context.Context, teamID, query string, limit int) ([]HistoryMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	f.searchQueries = append(f.searchQueries, query)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if len(f.searchHits) > limit {
		return f.searchHits[:limit], nil
	}
	return f.searchHits, nil
}

func (f *fakeSlack) threadPostCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.threadPosts)
}

// fakeAI は AIPort のテスト用フェイクです
type fakeAI struct {
	mu sync.Mutex

	completion string
	err        error

	prompts []string
}

func (f *fakeAI) Complete(ctx context.Context, prompt string, maxTokens int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.prompts = append(f.prompts, prompt)
	return f.completion, nil
}

func (f *fakeAI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

// fakeCalendar は CalendarPort のテスト用フェイクです
type fakeCalendar struct {
	events  []CalendarEvent
	listErr error

	createdLink string
	createErr   error
	created     []*CalendarEventInput

	deleteDeleted bool
	deleteMatches []CalendarEvent
	deleteErr     error
	deletedTitles []string
	deletedDays   []int
}

func (f *fakeCalendar) ListEvents(ctx context.Context, daysOffset int) ([]CalendarEvent, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.events, nil
}

func (f *fakeCalendar) CreateEvent(ctx context.Context, ev *CalendarEventInput) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, ev)
	return f.createdLink, nil
}

func (f *fakeCalendar) DeleteEventByTitle(ctx context.Context, title string, daysOffset int) (bool, []CalendarEvent, error) {
	f.deletedTitles = append(f.deletedTitles, title)
	f.deletedDays = append(f.deletedDays, daysOffset)
	if f.deleteErr != nil {
		return false, nil, f.deleteErr
	}
	return f.deleteDeleted, f.deleteMatches, nil
}

// fakeTenantRepo は domain.TenantRepository のテスト用フェイクです
type fakeTenantRepo struct {
	owners map[string]string // teamID -> ownerUserID
	err    error
}

func (f *fakeTenantRepo) Get(ctx context.Context, teamID string) (*domain.Tenant, error) {
	if f.err != nil {
		return nil, f.err
	}
	owner, ok := f.owners[teamID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &domain.Tenant{
		TeamID:             teamID,
		OwnerUserID:        &owner,
		BotTokenSecretName: "slack_token_" + teamID,
		CreatedAt:          time.Now().Unix(),
	}, nil
}

func (f *fakeTenantRepo) GetRegisteredOwner(ctx context.Context, teamID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	owner, ok := f.owners[teamID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return owner, nil
}

func (f *fakeTenantRepo) UpsertBotTokenSecret(ctx context.Context, teamID, secretName string) error {
	return f.err
}

func (f *fakeTenantRepo) SetOwner(ctx context.Context, teamID string, ownerUserID *string) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.owners[teamID]; !ok {
		return domain.ErrNotFound
	}
	if ownerUserID == nil {
		delete(f.owners, teamID)
	} else {
		f.owners[teamID] = *ownerUserID
	}
	return nil
}

// fakeAssistant は Assistant のテスト用フェイクです
type fakeAssistant struct {
	dmEvents      []*MessageEvent
	mentionEvents []*MentionEvent
	standupCalls  int
	err           error
}

func (f *fakeAssistant) HandleDirectMessage(ctx context.Context, ev *MessageEvent) error {
	f.dmEvents = append(f.dmEvents, ev)
	return f.err
}

func (f *fakeAssistant) HandleAppMention(ctx context.Context, ev *MentionEvent) error {
	f.mentionEvents = append(f.mentionEvents, ev)
	return f.err
}

func (f *fakeAssistant) SendDailyStandup(ctx context.Context) error {
	f.standupCalls++
	return f.err
}

var errTransient = errors.New("transient failure")
