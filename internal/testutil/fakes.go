package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/infernodragon456/travel-chat-app/internal/adapter/geo"
	"github.com/infernodragon456/travel-chat-app/internal/adapter/llm"
	"github.com/infernodragon456/travel-chat-app/internal/domain"
)

// ScriptedLLM answers completions by purpose and streams fixed chunks.
type ScriptedLLM struct {
	mu sync.Mutex

	Answers      map[llm.Purpose]string
	AnswerErrors map[llm.Purpose]error
	Delay        time.Duration // non-streaming calls only, honors cancellation
	Chunks       []string
	StreamErr    error
	Usage        *llm.Usage
	Requests     []*llm.ChatCompletionRequest
}

var _ llm.LLMClient = (*ScriptedLLM)(nil)

// NewScriptedLLM creates a scripted client that extracts no location,
// declines search and streams the given chunks.
func NewScriptedLLM(chunks ...string) *ScriptedLLM {
	return &ScriptedLLM{
		Answers: map[llm.Purpose]string{
			llm.PurposeExtractLocation: "NONE",
			llm.PurposeClassifySearch:  `{"shouldShowResults": false}`,
		},
		AnswerErrors: map[llm.Purpose]error{},
		Chunks:       chunks,
	}
}

func (s *ScriptedLLM) record(req *llm.ChatCompletionRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Requests = append(s.Requests, req)
}

// RequestsFor returns the recorded requests with the given purpose.
func (s *ScriptedLLM) RequestsFor(p llm.Purpose) []*llm.ChatCompletionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*llm.ChatCompletionRequest
	for _, r := range s.Requests {
		if r.Purpose == p {
			out = append(out, r)
		}
	}
	return out
}

func (s *ScriptedLLM) CreateChatCompletion(ctx context.Context, req *llm.ChatCompletionRequest) (string, error) {
	s.record(req)
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err := s.AnswerErrors[req.Purpose]; err != nil {
		return "", err
	}
	return s.Answers[req.Purpose], nil
}

func (s *ScriptedLLM) CreateChatCompletionStream(ctx context.Context, req *llm.ChatCompletionRequest, callback llm.StreamCallback) (*llm.Usage, error) {
	s.record(req)
	for _, c := range s.Chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := callback(c); err != nil {
			return nil, err
		}
	}
	if s.StreamErr != nil {
		return nil, s.StreamErr
	}
	return s.Usage, nil
}

// FakeGeo is a scripted geocoder and weather source.
type FakeGeo struct {
	Places     map[string]*geo.Place
	WeatherRaw []byte
	WeatherErr error
}

func (f *FakeGeo) Geocode(ctx context.Context, name string) (*geo.Place, error) {
	if p, ok := f.Places[name]; ok {
		return p, nil
	}
	return nil, geo.ErrNotFound
}

func (f *FakeGeo) Weather(ctx context.Context, coords domain.Coordinates) ([]byte, error) {
	if f.WeatherErr != nil {
		return nil, f.WeatherErr
	}
	return f.WeatherRaw, nil
}

// FakeSearch returns fixed results and counts calls.
type FakeSearch struct {
	mu      sync.Mutex
	Results []domain.WebResult
	Err     error
	Calls   int
}

func (f *FakeSearch) Search(ctx context.Context, query string, locale domain.Locale) ([]domain.WebResult, error) {
	f.mu.Lock()
	f.Calls++
	f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Results, nil
}

// CallCount returns the number of searches performed.
func (f *FakeSearch) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls
}

// FakeTranscriber returns a fixed transcript.
type FakeTranscriber struct {
	Text     string
	Err      error
	Uploads  [][]byte
	Filename string
}

func (f *FakeTranscriber) Transcribe(ctx context.Context, data []byte, filename string, locale domain.Locale) (string, error) {
	f.Uploads = append(f.Uploads, data)
	f.Filename = filename
	if f.Err != nil {
		return "", f.Err
	}
	return f.Text, nil
}

// FakeSynthesizer returns fixed audio.
type FakeSynthesizer struct {
	Audio []byte
	Err   error
	Calls int
}

func (f *FakeSynthesizer) Synthesize(ctx context.Context, text string, locale domain.Locale) ([]byte, error) {
	f.Calls++
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Audio, nil
}
