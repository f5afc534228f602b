package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/infernodragon456/travel-chat-app/internal/adapter/geo"
	"github.com/infernodragon456/travel-chat-app/internal/config"
	"github.com/infernodragon456/travel-chat-app/internal/domain"
	"github.com/infernodragon456/travel-chat-app/internal/policy"
	"github.com/infernodragon456/travel-chat-app/internal/prompt"
	"github.com/infernodragon456/travel-chat-app/internal/repository"
	"github.com/infernodragon456/travel-chat-app/internal/testutil"
)

type fixture struct {
	svc    *Service
	store  *repository.SQLiteStore
	llm    *testutil.ScriptedLLM
	geo    *testutil.FakeGeo
	search *testutil.FakeSearch
	stt    *testutil.FakeTranscriber
	tts    *testutil.FakeSynthesizer
	cfg    *config.Config
}

func newFixture(t *testing.T, chunks ...string) *fixture {
	t.Helper()

	composer, err := prompt.NewComposer()
	require.NoError(t, err)
	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	require.NoError(t, err)

	f := &fixture{
		store:  testutil.NewTestSQLiteStore(t),
		llm:    testutil.NewScriptedLLM(chunks...),
		geo:    &testutil.FakeGeo{Places: map[string]*geo.Place{}},
		search: &testutil.FakeSearch{},
		stt:    &testutil.FakeTranscriber{Text: "hello"},
		tts:    &testutil.FakeSynthesizer{Audio: []byte("ID3audio")},
		cfg: &config.Config{
			LLMModel:          "reply-model",
			LLMFastModel:      "fast-model",
			EnrichmentTimeout: 2 * time.Second,
		},
	}
	f.svc = New(f.store, Providers{
		LLM:    f.llm,
		Geo:    f.geo,
		Search: f.search,
		STT:    f.stt,
		TTS:    f.tts,
	}, composer, engine, f.cfg, zerolog.Nop())
	return f
}

// collect returns an emitter that appends every event.
func collect(events *[]domain.StreamEvent) Emitter {
	return func(evt domain.StreamEvent) error {
		*events = append(*events, evt)
		return nil
	}
}

func eventTypes(events []domain.StreamEvent) []domain.StreamEventType {
	out := make([]domain.StreamEventType, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}
