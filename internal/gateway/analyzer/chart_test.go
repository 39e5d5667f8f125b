package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)

const validContent = "```json\n" + `{
  "patterns": ["Martelo"],
  "trend": "Alta",
  "indicators": {"rsi": "neutro", "volume": "acima da média"},
  "recommendation": "alta",
  "confidenceScore": 81.6,
  "summary": "Martelo após queda com volume forte sugere reversão."
}` + "\n```"

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) ID() string { return "test-model" }

func (m *mockProvider) Call(ctx context.Context, payload ChatPayload) (string, error) {
	args := m.Called(ctx, payload)
	return args.String(0), args.Error(1)
}

type memRecorder struct {
	records []Record
	err     error
}

func (r *memRecorder) SaveAnalysis(_ context.Context, rec Record) error {
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, rec)
	return nil
}

func TestParseResult(t *testing.T) {
	res, err := ParseResult(validContent)
	require.NoError(t, err)
	assert.Equal(t, Result{
		Patterns:        []string{"Martelo"},
		Trend:           "Alta",
		Indicators:      Indicators{RSI: "neutro", Volume: "acima da média"},
		Recommendation:  RecommendBullish,
		ConfidenceScore: 82,
		Summary:         "Martelo após queda com volume forte sugere reversão.",
	}, res)
}

func TestParseResultRejects(t *testing.T) {
	cases := map[string]string{
		"no json":            "I cannot analyse this image.",
		"bad recommendation": `{"patterns":[],"trend":"x","indicators":{"rsi":"a","volume":"b"},"recommendation":"COMPRAR","confidenceScore":50,"summary":"s"}`,
		"score out of range": `{"patterns":[],"trend":"x","indicators":{"rsi":"a","volume":"b"},"recommendation":"ALTA","confidenceScore":150,"summary":"s"}`,
		"missing indicators": `{"patterns":[],"trend":"x","recommendation":"ALTA","confidenceScore":50,"summary":"s"}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseResult(content)
			assert.ErrorIs(t, err, ErrInvalidResult)
		})
	}
}

func TestChartAnalyzerAnalyze(t *testing.T) {
	provider := new(mockProvider)
	provider.On("Call", mock.Anything, mock.MatchedBy(func(p ChatPayload) bool {
		return len(p.Images) == 1 && strings.HasPrefix(p.Images[0].DataURI, "data:image/png;base64,") && p.ExpectJSON
	})).Return(validContent, nil)
	recorder := &memRecorder{}

	a := NewChartAnalyzer(provider, recorder, 1024)
	rec, err := a.Analyze(context.Background(), Image{Name: "chart.png", Data: pngBytes})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "test-model", rec.Model)
	assert.Equal(t, "image/png", rec.ImageMIME)
	assert.Equal(t, RecommendBullish, rec.Result.Recommendation)
	require.Len(t, recorder.records, 1)
	assert.Equal(t, rec.ID, recorder.records[0].ID)
}

func TestChartAnalyzerRecorderFailureIsNotFatal(t *testing.T) {
	provider := new(mockProvider)
	provider.On("Call", mock.Anything, mock.Anything).Return(validContent, nil)
	a := NewChartAnalyzer(provider, &memRecorder{err: errors.New("disk full")}, 0)
	_, err := a.Analyze(context.Background(), Image{Data: pngBytes})
	assert.NoError(t, err)
}

func TestChartAnalyzerInputErrors(t *testing.T) {
	provider := new(mockProvider)
	a := NewChartAnalyzer(provider, nil, 16)

	_, err := a.Analyze(context.Background(), Image{})
	assert.ErrorIs(t, err, ErrNoImage)
	_, err = a.Analyze(context.Background(), Image{Data: pngBytes})
	assert.ErrorIs(t, err, ErrImageTooLarge)
	_, err = a.Analyze(context.Background(), Image{Data: []byte("plain text")})
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	_, err = NewChartAnalyzer(nil, nil, 0).Analyze(context.Background(), Image{Data: pngBytes})
	assert.ErrorIs(t, err, ErrDisabled)
	provider.AssertNotCalled(t, "Call", mock.Anything, mock.Anything)
}

func TestChartAnalyzerUpstreamError(t *testing.T) {
	provider := new(mockProvider)
	provider.On("Call", mock.Anything, mock.Anything).Return("", ErrUpstream)
	_, err := NewChartAnalyzer(provider, nil, 0).Analyze(context.Background(), Image{Data: pngBytes})
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestOpenAIChatClientCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, "vision-model", body["model"])
		assert.Equal(t, map[string]any{"type": "json_object"}, body["response_format"])
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"ok\":true}"}}]}`))
	}))
	defer srv.Close()

	c := &OpenAIChatClient{BaseURL: srv.URL + "/v1/", APIKey: "secret", Model: "vision-model", Timeout: 2 * time.Second}
	out, err := c.Call(context.Background(), ChatPayload{User: "hi", ExpectJSON: true, Images: []ImagePayload{{DataURI: "data:image/png;base64,AA=="}}})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
}

func TestOpenAIChatClientRetriesOnceThenFails(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded"}}`))
	}))
	defer srv.Close()

	c := &OpenAIChatClient{BaseURL: srv.URL, Model: "m", Timeout: 2 * time.Second}
	_, err := c.Call(context.Background(), ChatPayload{User: "hi"})
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "overloaded")
	assert.Equal(t, 2, calls)
}

func TestOpenAIChatClientDoesNotRetryClientErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := &OpenAIChatClient{BaseURL: srv.URL, Model: "m"}
	_, err := c.Call(context.Background(), ChatPayload{User: "hi"})
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, 1, calls)
}
