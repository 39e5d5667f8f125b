package analyzer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"cryptocandles/internal/logger"
	"cryptocandles/internal/pkg/jsonutil"
	"cryptocandles/internal/pkg/text"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	ErrDisabled         = errors.New("chart analysis disabled")
	ErrNoImage          = errors.New("image is required")
	ErrImageTooLarge    = errors.New("image too large")
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrInvalidResult    = errors.New("analysis result invalid")
)

type Recommendation string

const (
	RecommendBullish Recommendation = "ALTA"
	RecommendBearish Recommendation = "BAIXA"
	RecommendWait    Recommendation = "AGUARDAR"
)

type Indicators struct {
	RSI    string `json:"rsi"`
	Volume string `json:"volume"`
}

// Result 是模型对一张 K 线截图的结构化分析。
type Result struct {
	Patterns        []string       `json:"patterns"`
	Trend           string         `json:"trend"`
	Indicators      Indicators     `json:"indicators"`
	Recommendation  Recommendation `json:"recommendation"`
	ConfidenceScore int            `json:"confidenceScore"`
	Summary         string         `json:"summary"`
}

type Image struct {
	Name string
	Data []byte
}

// Record 是一次分析的历史记录。
type Record struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"createdAt"`
	Model      string    `json:"model"`
	ImageName  string    `json:"imageName"`
	ImageMIME  string    `json:"imageMime"`
	ImageBytes int       `json:"imageBytes"`
	Result     Result    `json:"result"`
}

// Recorder 持久化分析记录，失败不影响本次结果返回。
type Recorder interface {
	SaveAnalysis(ctx context.Context, rec Record) error
}

var allowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/gif":  true,
}

const resultSchema = `{
  "type": "object",
  "required": ["patterns", "trend", "indicators", "recommendation", "confidenceScore", "summary"],
  "properties": {
    "patterns": {"type": "array", "items": {"type": "string"}},
    "trend": {"type": "string"},
    "indicators": {
      "type": "object",
      "required": ["rsi", "volume"],
      "properties": {
        "rsi": {"type": "string"},
        "volume": {"type": "string"}
      }
    },
    "recommendation": {"enum": ["ALTA", "BAIXA", "AGUARDAR"]},
    "confidenceScore": {"type": "number", "minimum": 0, "maximum": 100},
    "summary": {"type": "string", "minLength": 1}
  }
}`

var (
	resultSchemaOnce sync.Once
	resultSchemaC    *jsonschema.Schema
	resultSchemaErr  error
)

func compiledResultSchema() (*jsonschema.Schema, error) {
	resultSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("analysis.json", strings.NewReader(resultSchema)); err != nil {
			resultSchemaErr = err
			return
		}
		resultSchemaC, resultSchemaErr = compiler.Compile("analysis.json")
	})
	return resultSchemaC, resultSchemaErr
}

const chartSystemPrompt = `You are a cryptocurrency technical analyst specialised in candlestick patterns and indicators.
Look only at the chart image you are given and reply with a single JSON object, no prose.

Fields:
- patterns: candlestick patterns you can see (bullish/bearish engulfing, hammer, inverted hammer, doji,
  morning/evening star, three white soldiers, three black crows, a run of bearish candles followed by a
  strong bullish one). Use ["Nenhum padrão claro"] when nothing is clear.
- trend: "Alta" or "Baixa" from the short vs long EMA when EMAs are visible, otherwise "EMAs não visíveis".
- indicators.rsi: oversold (<30), overbought (>70) or neutral, or state that RSI is not visible.
- indicators.volume: whether volume bars are above or below average around the significant moves.
- recommendation: "ALTA" (strong buy), "BAIXA" (strong sell) or "AGUARDAR" (unclear or neutral).
- confidenceScore: 0-100; high only when several patterns and indicators agree.
- summary: one sentence in Portuguese explaining the recommendation.`

const chartUserPrompt = "Analyse this trading chart and return the JSON object described above."

// ChartAnalyzer 把上传的截图交给视觉模型并校验返回结构。
type ChartAnalyzer struct {
	provider ModelProvider
	recorder Recorder
	maxBytes int64
	now      func() time.Time
}

func NewChartAnalyzer(provider ModelProvider, recorder Recorder, maxBytes int64) *ChartAnalyzer {
	return &ChartAnalyzer{provider: provider, recorder: recorder, maxBytes: maxBytes, now: time.Now}
}

func (a *ChartAnalyzer) Enabled() bool {
	return a != nil && a.provider != nil
}

// Analyze 校验图片、调用模型、解析结果并记录历史。
func (a *ChartAnalyzer) Analyze(ctx context.Context, img Image) (Record, error) {
	if !a.Enabled() {
		return Record{}, ErrDisabled
	}
	if len(img.Data) == 0 {
		return Record{}, ErrNoImage
	}
	if a.maxBytes > 0 && int64(len(img.Data)) > a.maxBytes {
		return Record{}, fmt.Errorf("%w: %d bytes (max %d)", ErrImageTooLarge, len(img.Data), a.maxBytes)
	}
	mime := http.DetectContentType(img.Data)
	if !allowedImageTypes[mime] {
		return Record{}, fmt.Errorf("%w: %s", ErrUnsupportedImage, mime)
	}

	content, err := a.provider.Call(ctx, ChatPayload{
		System: chartSystemPrompt,
		User:   chartUserPrompt,
		Images: []ImagePayload{{
			DataURI: "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data),
		}},
		ExpectJSON: true,
		MaxTokens:  1024,
	})
	if err != nil {
		return Record{}, err
	}
	result, err := ParseResult(content)
	if err != nil {
		logger.Warnf("[AI] chart analysis rejected: %v raw=%s", err, text.Truncate(content, 300))
		return Record{}, err
	}
	rec := Record{
		ID:         uuid.NewString(),
		CreatedAt:  a.now().UTC(),
		Model:      a.provider.ID(),
		ImageName:  strings.TrimSpace(img.Name),
		ImageMIME:  mime,
		ImageBytes: len(img.Data),
		Result:     result,
	}
	if a.recorder != nil {
		if err := a.recorder.SaveAnalysis(ctx, rec); err != nil {
			logger.Warnf("[AI] save analysis %s failed: %v", rec.ID, err)
		}
	}
	logger.Infof("[AI] chart analysis %s recommendation=%s confidence=%d", rec.ID, result.Recommendation, result.ConfidenceScore)
	return rec, nil
}

// ParseResult 从模型输出中提取 JSON，规范化推荐字段后按 schema 校验。
func ParseResult(content string) (Result, error) {
	raw, ok := jsonutil.ExtractObject(content)
	if !ok {
		return Result{}, fmt.Errorf("%w: no JSON object in response", ErrInvalidResult)
	}
	logger.Debugf("[AI] chart analysis payload: %s", jsonutil.Pretty(raw))
	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidResult, err)
	}
	if rec, ok := doc["recommendation"].(string); ok {
		doc["recommendation"] = strings.ToUpper(strings.TrimSpace(rec))
	}
	schema, err := compiledResultSchema()
	if err != nil {
		return Result{}, fmt.Errorf("compile analysis schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidResult, err)
	}

	var parsed struct {
		Result
		ConfidenceScore float64 `json:"confidenceScore"`
	}
	normalized, err := json.Marshal(doc)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidResult, err)
	}
	if err := json.Unmarshal(normalized, &parsed); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidResult, err)
	}
	out := parsed.Result
	out.ConfidenceScore = int(math.Round(parsed.ConfidenceScore))
	if out.Patterns == nil {
		out.Patterns = []string{}
	}
	return out, nil
}
