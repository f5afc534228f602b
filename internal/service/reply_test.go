package service

import (
	"context"
	"errors"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infernodragon456/travel-chat-app/internal/adapter/llm"
	"github.com/infernodragon456/travel-chat-app/internal/domain"
	"github.com/infernodragon456/travel-chat-app/internal/metrics"
)

func userRequest(id, content string) *domain.ReplyRequest {
	return &domain.ReplyRequest{
		Messages:  []domain.ChatMessage{{Role: domain.RoleUser, Content: content}},
		Locale:    "en",
		MessageID: id,
	}
}

func TestGenerateReplyStreamsDeltasThenDone(t *testing.T) {
	f := newFixture(t, "Hello", ", ", "traveler!")
	f.llm.Usage = &llm.Usage{PromptTokens: 12, CompletionTokens: 3, TotalTokens: 15}

	var events []domain.StreamEvent
	err := f.svc.GenerateReply(context.Background(), userRequest("msg-1", "hi there"), collect(&events))
	require.NoError(t, err)

	assert.Equal(t, []domain.StreamEventType{
		domain.StreamEventTurn,
		domain.StreamEventDelta,
		domain.StreamEventDelta,
		domain.StreamEventDelta,
		domain.StreamEventDone,
	}, eventTypes(events))

	for _, e := range events {
		assert.Equal(t, "msg-1", domain.MessageIDOf(e.Data))
	}

	done := events[len(events)-1].Data.(*domain.DoneEventData)
	require.NotNil(t, done.Usage)
	assert.Equal(t, 15, done.Usage.TotalTokens)

	turn, err := f.svc.GetTurn(context.Background(), "msg-1")
	require.NoError(t, err)
	require.NotNil(t, turn)
	assert.Equal(t, domain.TurnStatusDone, turn.Status)
	assert.NotNil(t, turn.EndedAt)
}

func TestGenerateReplyAssignsTurnID(t *testing.T) {
	f := newFixture(t, "ok")

	var events []domain.StreamEvent
	require.NoError(t, f.svc.GenerateReply(context.Background(), userRequest("", "hi"), collect(&events)))

	id := domain.MessageIDOf(events[0].Data)
	assert.NotEmpty(t, id)
	for _, e := range events {
		assert.Equal(t, id, domain.MessageIDOf(e.Data))
	}
}

func TestGenerateReplySideChannelAfterStream(t *testing.T) {
	f := newFixture(t, "Here is ", "the news.")
	f.llm.Answers[llm.PurposeClassifySearch] = `{"shouldShowResults": true}`
	f.search.Results = []domain.WebResult{
		{Title: "Mount Fuji", URL: "https://example.com/fuji", Snippet: "Tallest mountain in Japan"},
	}

	var events []domain.StreamEvent
	err := f.svc.GenerateReply(context.Background(), userRequest("msg-2", "latest news about Mount Fuji"), collect(&events))
	require.NoError(t, err)

	types := eventTypes(events)
	require.Len(t, types, 5)
	assert.Equal(t, domain.StreamEventSideChannel, types[3])
	assert.Equal(t, domain.StreamEventDone, types[4])

	side := events[3].Data.(*domain.SideChannelEventData)
	assert.Equal(t, "msg-2", side.MessageID)
	require.Len(t, side.WebSearchResults, 1)
	assert.Equal(t, "Mount Fuji", side.WebSearchResults[0].Title)

	replies := f.llm.RequestsFor(llm.PurposeReply)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0].Messages[0].Content, "1. Mount Fuji (https://example.com/fuji)")
}

func TestGenerateReplyNoSideChannelWhenHidden(t *testing.T) {
	f := newFixture(t, "You're welcome!")
	f.llm.Answers[llm.PurposeClassifySearch] = `{"shouldShowResults": true}`
	f.search.Results = []domain.WebResult{{Title: "x", URL: "https://example.com"}}

	var events []domain.StreamEvent
	require.NoError(t, f.svc.GenerateReply(context.Background(), userRequest("msg-3", "Thanks!"), collect(&events)))

	assert.NotContains(t, eventTypes(events), domain.StreamEventSideChannel)
	assert.Zero(t, f.search.CallCount())
}

func TestGenerateReplyUpstreamFailure(t *testing.T) {
	f := newFixture(t, "partial")
	f.llm.StreamErr = domain.NewProviderError("llm", 503, errors.New("overloaded"))

	var events []domain.StreamEvent
	err := f.svc.GenerateReply(context.Background(), userRequest("msg-4", "hi"), collect(&events))
	require.Error(t, err)

	last := events[len(events)-1]
	require.Equal(t, domain.StreamEventError, last.Type)
	data := last.Data.(*domain.ErrorEventData)
	assert.Equal(t, domain.ErrorCodeUpstream, data.Code)
	assert.Equal(t, "msg-4", data.MessageID)
	assert.NotContains(t, eventTypes(events), domain.StreamEventDone)

	turn, err := f.svc.GetTurn(context.Background(), "msg-4")
	require.NoError(t, err)
	assert.Equal(t, domain.TurnStatusFailed, turn.Status)
}

func TestGenerateReplyStopsWhenClientGone(t *testing.T) {
	f := newFixture(t, "a", "b", "c")
	gone := errors.New("client disconnected")

	var sent int
	err := f.svc.GenerateReply(context.Background(), userRequest("msg-5", "hi"), func(evt domain.StreamEvent) error {
		if evt.Type == domain.StreamEventDelta {
			sent++
			return gone
		}
		return nil
	})
	require.ErrorIs(t, err, gone)
	assert.Equal(t, 1, sent)
}

func TestGenerateReplyRejectsEmptyConversation(t *testing.T) {
	f := newFixture(t)

	err := f.svc.GenerateReply(context.Background(), &domain.ReplyRequest{}, collect(new([]domain.StreamEvent)))
	assert.True(t, domain.IsValidation(err))

	err = f.svc.GenerateReply(context.Background(), userRequest("", "   "), collect(new([]domain.StreamEvent)))
	assert.True(t, domain.IsValidation(err))
	assert.Empty(t, f.llm.Requests)
}

func TestGenerateReplyRecordsTrace(t *testing.T) {
	f := newFixture(t, "ok")

	require.NoError(t, f.svc.GenerateReply(context.Background(), userRequest("msg-6", "hi"), collect(new([]domain.StreamEvent))))

	events, err := f.svc.GetTurnEvents(context.Background(), "msg-6", 0, nil, 0)
	require.NoError(t, err)

	var types []domain.EventType
	for _, e := range events {
		types = append(types, e.Type)
	}
	assert.Equal(t, domain.EventTypeTurnStarted, types[0])
	assert.Contains(t, types, domain.EventTypeEnrichmentDone)
	assert.Contains(t, types, domain.EventTypeLLMCallStarted)
	assert.Contains(t, types, domain.EventTypeLLMCallDone)
	assert.Equal(t, domain.EventTypeTurnDone, types[len(types)-1])
}

func TestGenerateReplyCancelledIsNotProviderFailure(t *testing.T) {
	f := newFixture(t, "a", "b", "c")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	failuresBefore := promtest.ToFloat64(metrics.ProviderFailures.WithLabelValues("llm"))

	var events []domain.StreamEvent
	err := f.svc.GenerateReply(ctx, userRequest("msg-7", "hi"), func(evt domain.StreamEvent) error {
		events = append(events, evt)
		if evt.Type == domain.StreamEventDelta {
			cancel()
		}
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, []domain.StreamEventType{domain.StreamEventDelta}, eventTypes(events))
	assert.Equal(t, failuresBefore, promtest.ToFloat64(metrics.ProviderFailures.WithLabelValues("llm")))

	turn, err := f.svc.GetTurn(context.Background(), "msg-7")
	require.NoError(t, err)
	assert.Equal(t, domain.TurnStatusCancelled, turn.Status)

	trace, err := f.svc.GetTurnEvents(context.Background(), "msg-7", 0, []string{string(domain.EventTypeTurnCancelled)}, 0)
	require.NoError(t, err)
	assert.Len(t, trace, 1)
}
