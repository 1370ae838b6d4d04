package classification

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"civicwatch/internal/category"
	"civicwatch/internal/metrics"
)

// Kind identifies which branch of the gate produced a Result.
type Kind string

const (
	KindBypass           Kind = "bypass"
	KindDisabled         Kind = "disabled"
	KindSuccess          Kind = "success"
	KindCategoryMismatch Kind = "category_mismatch"
	KindNoMatch          Kind = "no_match"
	KindServiceError     Kind = "service_error"
)

// User-facing messages that are not tied to a category.
const (
	MessageDisabled      = "Classificação de imagens indisponível: serviço não configurado."
	MessageUnauthorized  = "Chave de API do serviço de classificação inválida ou sem permissão."
	MessageServiceFailed = "Falha ao classificar a imagem. Tente novamente mais tarde."
	MessageNotIdentified = "Não foi possível identificar o problema na imagem. Envie outra foto."
)

const bypassConfidence = 1.0

// Result is the JSON-serialisable outcome of Gate.Classify.
//
// For KindSuccess and KindBypass the category fields describe the accepted
// category. For KindCategoryMismatch they describe the detected category while
// Message carries the expected category's failure message.
type Result struct {
	Kind           Kind            `json:"kind"`
	Success        bool            `json:"success"`
	CategoryID     string          `json:"category_id,omitempty"`
	CategoryLabel  string          `json:"category_label,omitempty"`
	Confidence     float64         `json:"confidence,omitempty"`
	TopPrediction  *Prediction     `json:"top_prediction"`
	Message        string          `json:"message,omitempty"`
	UpstreamStatus int             `json:"upstream_status,omitempty"`
	Details        json.RawMessage `json:"details"`
}

// HTTPStatus maps the result onto the status the API responds with.
func (r Result) HTTPStatus() int {
	switch r.Kind {
	case KindSuccess, KindBypass:
		return http.StatusOK
	case KindCategoryMismatch, KindNoMatch:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusServiceUnavailable
	}
}

// Options controls the gate's operating mode.
type Options struct {
	// Enabled is true when an inference credential is configured.
	Enabled bool
	// Bypass approves every image without calling the inference service.
	Bypass bool
}

// Gate decides whether an image may back a report for a category.
type Gate struct {
	inferrer Inferrer
	matcher  *Matcher
	registry *category.Registry
	opts     Options
}

// NewGate creates a gate. inferrer may be nil when the gate is disabled or bypassed.
func NewGate(inferrer Inferrer, registry *category.Registry, opts Options) *Gate {
	return &Gate{
		inferrer: inferrer,
		matcher:  NewMatcher(registry),
		registry: registry,
		opts:     opts,
	}
}

// Mode describes the configured mode for startup logging.
func (g *Gate) Mode() string {
	switch {
	case g.opts.Bypass:
		return string(KindBypass)
	case !g.opts.Enabled || g.inferrer == nil:
		return string(KindDisabled)
	default:
		return "enabled"
	}
}

// Classify runs the image through the inference service and decides whether it
// shows expectedID. An empty expectedID accepts any recognised category.
func (g *Gate) Classify(ctx context.Context, image []byte, contentType, expectedID string) Result {
	res := g.classify(ctx, image, contentType, expectedID)
	metrics.RecordClassification(string(res.Kind))
	return res
}

func (g *Gate) classify(ctx context.Context, image []byte, contentType, expectedID string) Result {
	expected, hasExpected := category.Category{}, false
	if expectedID != "" {
		expected, hasExpected = g.registry.FindByID(expectedID)
	}

	if g.opts.Bypass {
		label := expected.Label
		if !hasExpected {
			label = expectedID
		}
		return Result{
			Kind:          KindBypass,
			Success:       true,
			CategoryID:    expectedID,
			CategoryLabel: label,
			Confidence:    bypassConfidence,
		}
	}

	if !g.opts.Enabled || g.inferrer == nil {
		return Result{Kind: KindDisabled, Message: MessageDisabled}
	}

	start := time.Now()
	predictions, err := g.inferrer.Infer(ctx, image, contentType)
	metrics.ObserveInference(time.Since(start))
	if err != nil {
		return serviceError(ctx, err)
	}

	outcome := g.matcher.Match(predictions, expectedID)

	if outcome.BestMatch == nil {
		msg := MessageNotIdentified
		if hasExpected {
			msg = expected.FailureMessage
		}
		return Result{Kind: KindNoMatch, TopPrediction: outcome.TopPrediction, Message: msg}
	}

	best := outcome.BestMatch
	if expectedID == "" || best.Category.ID == expectedID {
		return Result{
			Kind:          KindSuccess,
			Success:       true,
			CategoryID:    best.Category.ID,
			CategoryLabel: best.Category.Label,
			Confidence:    best.Score,
			TopPrediction: outcome.TopPrediction,
		}
	}

	msg := MessageNotIdentified
	if hasExpected {
		msg = expected.FailureMessage
	}
	return Result{
		Kind:          KindCategoryMismatch,
		CategoryID:    best.Category.ID,
		CategoryLabel: best.Category.Label,
		Confidence:    best.Score,
		TopPrediction: outcome.TopPrediction,
		Message:       msg,
	}
}

// serviceError turns an inference failure into a result without leaking
// anything beyond the upstream status and payload.
func serviceError(ctx context.Context, err error) Result {
	res := Result{Kind: KindServiceError, Message: MessageServiceFailed}

	var ie *InferenceError
	if errors.As(err, &ie) {
		res.UpstreamStatus = ie.Status
		res.Details = ie.Payload
		if ie.Status == http.StatusUnauthorized || ie.Status == http.StatusForbidden {
			res.Message = MessageUnauthorized
		}
	}

	slog.WarnContext(ctx, "image classification failed",
		"error", err,
		"upstream_status", res.UpstreamStatus,
	)
	return res
}
