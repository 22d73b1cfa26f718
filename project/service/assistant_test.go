package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAssistant(sp *fakeSlack, ai *fakeAI, cal *fakeCalendar, tr *fakeTenantRepo) *assistant {
	fixed := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	return &assistant{
		tr:            tr,
		sp:            sp,
		ai:            ai,
		cal:           cal,
		standupTeamID: "T1",
		now:           func() time.Time { return fixed },
	}
}

func newDM(text string) *MessageEvent {
	return &MessageEvent{
		TeamID:      "T1",
		ChannelID:   "D1",
		ChannelType: "im",
		MessageTS:   "100.0",
		UserID:      "UOWNER",
		Text:        text,
	}
}

// --- イベント削除 ---

func TestAssistant_DeletionRequestDeletesEvent(t *testing.T) {
	sp := &fakeSlack{}
	ai := &fakeAI{completion: "```json\n{\"event_title\": \"Product Sync\", \"date_context\": \"tomorrow\"}\n```"}
	cal := &fakeCalendar{deleteDeleted: true}
	a := newTestAssistant(sp, ai, cal, &fakeTenantRepo{})

	require.NoError(t, a.HandleDirectMessage(context.Background(), newDM("please delete the Product Sync meeting tomorrow")))

	require.Len(t, cal.deletedTitles, 1)
	assert.Equal(t, "Product Sync", cal.deletedTitles[0])
	assert.Equal(t, 1, cal.deletedDays[0])
	require.Len(t, sp.channelPosts, 1)
	assert.Contains(t, sp.channelPosts[0].text, "イベントを削除しました")
	assert.Contains(t, sp.channelPosts[0].text, "Product Sync")
}

func TestAssistant_DeletionNoMatchReportsNotFound(t *testing.T) {
	sp := &fakeSlack{}
	ai := &fakeAI{completion: `{"event_title": "Ghost Meeting", "date_context": "today"}`}
	cal := &fakeCalendar{deleteDeleted: false}
	a := newTestAssistant(sp, ai, cal, &fakeTenantRepo{})

	require.NoError(t, a.HandleDirectMessage(context.Background(), newDM("cancel the ghost meeting")))

	assert.Equal(t, 0, cal.deletedDays[0], "date_context=today は当日扱い")
	require.Len(t, sp.channelPosts, 1)
	assert.Contains(t, sp.channelPosts[0].text, "見つかりませんでした")
}

func TestAssistant_DeletionMultipleMatchesListsCandidates(t *testing.T) {
	sp := &fakeSlack{}
	ai := &fakeAI{completion: `{"event_title": "Sync", "date_context": null}`}
	cal := &fakeCalendar{
		deleteDeleted: false,
		deleteMatches: []CalendarEvent{
			{Summary: "Product Sync", Start: "2026-08-28T10:00:00Z"},
			{Summary: "Design Sync", Start: "2026-08-28T14:00:00Z"},
		},
	}
	a := newTestAssistant(sp, ai, cal, &fakeTenantRepo{})

	require.NoError(t, a.HandleDirectMessage(context.Background(), newDM("remove the sync meeting")))

	require.Len(t, sp.channelPosts, 1)
	assert.Contains(t, sp.channelPosts[0].text, "複数見つかりました")
	assert.Contains(t, sp.channelPosts[0].text, "Product Sync")
	assert.Contains(t, sp.channelPosts[0].text, "Design Sync")
}

func TestAssistant_DeletionUnparsableAIReplyAsksAgain(t *testing.T) {
	sp := &fakeSlack{}
	ai := &fakeAI{completion: "sorry, I can't help with that"}
	cal := &fakeCalendar{}
	a := newTestAssistant(sp, ai, cal, &fakeTenantRepo{})

	require.NoError(t, a.HandleDirectMessage(context.Background(), newDM("delete the meeting")))

	assert.Empty(t, cal.deletedTitles)
	require.Len(t, sp.channelPosts, 1)
	assert.Contains(t, sp.channelPosts[0].text, "うまく理解できませんでした")
}

// --- イベント作成 ---

func TestAssistant_CreationRequestCreatesEvent(t *testing.T) {
	sp := &fakeSlack{}
	ai := &fakeAI{completion: "```json\n{\"title\": \"Design Review\", \"date\": \"2026-08-29\", \"time\": \"15:30\", \"duration\": 45, \"attendees\": [\"bob@example.com\"]}\n```"}
	cal := &fakeCalendar{createdLink: "https://calendar.example/ev1"}
	a := newTestAssistant(sp, ai, cal, &fakeTenantRepo{})

	require.NoError(t, a.HandleDirectMessage(context.Background(), newDM("schedule a design review meeting tomorrow at 3:30pm with bob@example.com")))

	require.Len(t, cal.created, 1)
	created := cal.created[0]
	assert.Equal(t, "Design Review", created.Summary)
	assert.Equal(t, 45, created.DurationMinutes)
	assert.Equal(t, []string{"bob@example.com"}, created.AttendeeEmails)
	assert.Equal(t, time.Date(2026, 8, 29, 15, 30, 0, 0, time.UTC), created.Start)

	require.Len(t, sp.channelPosts, 1)
	assert.Contains(t, sp.channelPosts[0].text, "イベントを作成しました")
	assert.Contains(t, sp.channelPosts[0].text, "https://calendar.example/ev1")
	assert.Contains(t, sp.channelPosts[0].text, "bob@example.com")

	// プロンプトには基準日が埋め込まれる
	require.Len(t, ai.prompts, 1)
	assert.Contains(t, ai.prompts[0], "2026-08-28")
}

func TestAssistant_CreationMissingFieldsAsksForDetails(t *testing.T) {
	sp := &fakeSlack{}
	ai := &fakeAI{completion: `{"title": "Standup", "date": "", "time": ""}`}
	cal := &fakeCalendar{}
	a := newTestAssistant(sp, ai, cal, &fakeTenantRepo{})

	require.NoError(t, a.HandleDirectMessage(context.Background(), newDM("schedule a meeting")))

	assert.Empty(t, cal.created)
	require.Len(t, sp.channelPosts, 1)
	assert.Contains(t, sp.channelPosts[0].text, "すべて読み取れませんでした")
}

func TestAssistant_CreationCalendarErrorReported(t *testing.T) {
	sp := &fakeSlack{}
	ai := &fakeAI{completion: `{"title": "Standup", "date": "2026-08-29", "time": "09:00"}`}
	cal := &fakeCalendar{createErr: errTransient}
	a := newTestAssistant(sp, ai, cal, &fakeTenantRepo{})

	require.NoError(t, a.HandleDirectMessage(context.Background(), newDM("schedule a standup meeting")))

	require.Len(t, sp.channelPosts, 1)
	assert.Contains(t, sp.channelPosts[0].text, "イベント作成に失敗しました")
}

// --- 一般質問 ---

func TestAssistant_GeneralQueryWithTodayIncludesCalendarContext(t *testing.T) {
	sp := &fakeSlack{}
	ai := &fakeAI{completion: "You have two meetings today."}
	cal := &fakeCalendar{events: []CalendarEvent{
		{Summary: "Product Sync", Start: "2026-08-28T10:00:00Z"},
		{Summary: "Design Review", Start: "2026-08-28T14:00:00Z"},
	}}
	a := newTestAssistant(sp, ai, cal, &fakeTenantRepo{})

	require.NoError(t, a.HandleDirectMessage(context.Background(), newDM("what's on my calendar today?")))

	require.Len(t, ai.prompts, 1)
	assert.Contains(t, ai.prompts[0], "Calendar information:")
	assert.Contains(t, ai.prompts[0], "Product Sync")
	require.Len(t, sp.channelPosts, 1)
	assert.Equal(t, "You have two meetings today.", sp.channelPosts[0].text)
}

func TestAssistant_GeneralQueryWithoutCalendarWordsSkipsLookup(t *testing.T) {
	sp := &fakeSlack{}
	ai := &fakeAI{completion: "42"}
	cal := &fakeCalendar{listErr: errTransient} // 呼ばれたら気付けるように失敗させておく
	a := newTestAssistant(sp, ai, cal, &fakeTenantRepo{})

	require.NoError(t, a.HandleDirectMessage(context.Background(), newDM("what is the answer to everything?")))

	require.Len(t, ai.prompts, 1)
	assert.NotContains(t, ai.prompts[0], "Calendar information:")
	assert.Equal(t, "42", sp.channelPosts[0].text)
}

func TestAssistant_GeneralQueryCalendarFailureStillAnswers(t *testing.T) {
	sp := &fakeSlack{}
	ai := &fakeAI{completion: "Sorry, I couldn't check your calendar."}
	cal := &fakeCalendar{listErr: errTransient}
	a := newTestAssistant(sp, ai, cal, &fakeTenantRepo{})

	require.NoError(t, a.HandleDirectMessage(context.Background(), newDM("any meeting conflicts tomorrow?")))

	require.Len(t, ai.prompts, 1)
	assert.NotContains(t, ai.prompts[0], "Calendar information:")
	require.Len(t, sp.channelPosts, 1)
}

func TestAssistant_GeneralQueryAIFailurePropagates(t *testing.T) {
	sp := &fakeSlack{}
	ai := &fakeAI{err: errTransient}
	a := newTestAssistant(sp, ai, &fakeCalendar{}, &fakeTenantRepo{})

	err := a.HandleDirectMessage(context.Background(), newDM("hello"))
	require.Error(t, err)
	assert.Empty(t, sp.channelPosts)
}

// --- ボット宛メンション ---

func TestAssistant_AppMentionRepliesInThread(t *testing.T) {
	sp := &fakeSlack{}
	ai := &fakeAI{completion: "Happy to help with that!"}
	a := newTestAssistant(sp, ai, &fakeCalendar{}, &fakeTenantRepo{})

	ev := &MentionEvent{TeamID: "T1", ChannelID: "C1", ThreadTS: "300.0", UserID: "UALICE", Text: "<@UBOT> can you summarize this thread?"}
	require.NoError(t, a.HandleAppMention(context.Background(), ev))

	require.Len(t, sp.threadPosts, 1)
	assert.Equal(t, "300.0", sp.threadPosts[0].threadTS)
	assert.Equal(t, "Happy to help with that!", sp.threadPosts[0].text)

	// メンションタグは除去された本文がプロンプトに入る
	require.Len(t, ai.prompts, 1)
	assert.Contains(t, ai.prompts[0], "can you summarize this thread?")
	assert.NotContains(t, ai.prompts[0], "<@UBOT>")
}

func TestAssistant_AppMentionTagOnlyUsesGreetingPrompt(t *testing.T) {
	sp := &fakeSlack{}
	ai := &fakeAI{completion: "Hello! I can help with your calendar."}
	a := newTestAssistant(sp, ai, &fakeCalendar{}, &fakeTenantRepo{})

	ev := &MentionEvent{TeamID: "T1", ChannelID: "C1", ThreadTS: "300.0", Text: "<@UBOT>"}
	require.NoError(t, a.HandleAppMention(context.Background(), ev))

	require.Len(t, ai.prompts, 1)
	assert.Contains(t, ai.prompts[0], "Greet them")
}

func TestAssistant_AppMentionAIFailurePostsApology(t *testing.T) {
	sp := &fakeSlack{}
	ai := &fakeAI{err: errTransient}
	a := newTestAssistant(sp, ai, &fakeCalendar{}, &fakeTenantRepo{})

	ev := &MentionEvent{TeamID: "T1", ChannelID: "C1", ThreadTS: "300.0", Text: "<@UBOT> hello"}
	require.NoError(t, a.HandleAppMention(context.Background(), ev))

	require.Len(t, sp.threadPosts, 1)
	assert.Contains(t, sp.threadPosts[0].text, "申し訳ありません")
}

// --- 朝会プロンプト ---

func TestAssistant_SendDailyStandupDMsOwnerWithEvents(t *testing.T) {
	sp := &fakeSlack{}
	cal := &fakeCalendar{events: []CalendarEvent{
		{Summary: "Product Sync", Start: "2026-08-28T10:00:00Z"},
	}}
	tr := &fakeTenantRepo{owners: map[string]string{"T1": "UOWNER"}}
	a := newTestAssistant(sp, &fakeAI{}, cal, tr)

	require.NoError(t, a.SendDailyStandup(context.Background()))

	require.Len(t, sp.dms, 1)
	assert.Equal(t, "UOWNER", sp.dms[0].userID)
	assert.Contains(t, sp.dms[0].text, "おはようございます")
	assert.Contains(t, sp.dms[0].text, "Product Sync")
}

func TestAssistant_SendDailyStandupNoEvents(t *testing.T) {
	sp := &fakeSlack{}
	tr := &fakeTenantRepo{owners: map[string]string{"T1": "UOWNER"}}
	a := newTestAssistant(sp, &fakeAI{}, &fakeCalendar{}, tr)

	require.NoError(t, a.SendDailyStandup(context.Background()))

	require.Len(t, sp.dms, 1)
	assert.Contains(t, sp.dms[0].text, "No events scheduled for today.")
}

func TestAssistant_SendDailyStandupNoOwnerIsNoop(t *testing.T) {
	sp := &fakeSlack{}
	tr := &fakeTenantRepo{owners: map[string]string{}}
	a := newTestAssistant(sp, &fakeAI{}, &fakeCalendar{}, tr)

	require.NoError(t, a.SendDailyStandup(context.Background()))
	assert.Empty(t, sp.dms)
}

func TestAssistant_SendDailyStandupCalendarFailureStillSends(t *testing.T) {
	sp := &fakeSlack{}
	cal := &fakeCalendar{listErr: errTransient}
	tr := &fakeTenantRepo{owners: map[string]string{"T1": "UOWNER"}}
	a := newTestAssistant(sp, &fakeAI{}, cal, tr)

	require.NoError(t, a.SendDailyStandup(context.Background()))

	require.Len(t, sp.dms, 1)
	assert.Contains(t, sp.dms[0].text, "カレンダーを取得できませんでした")
}
