package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/thinkbridge/factsheet/internal/budget"
	"github.com/thinkbridge/factsheet/internal/chunkstore"
	"github.com/thinkbridge/factsheet/provider"
)

// Stage tracks a company's progress through the validation pipeline.
type Stage string

const (
	StagePending               Stage = "PENDING"
	StageQuestionsGenerated    Stage = "QUESTIONS_GENERATED"
	StageAnsweredFromSource    Stage = "ANSWERED_FROM_SOURCE"
	StageAnsweredFromFactsheet Stage = "ANSWERED_FROM_FACTSHEET"
	StageScored                Stage = "SCORED"
	StageDone                  Stage = "DONE"
	StageFailed                Stage = "FAILED"
)

// Category classifies a validation question.
type Category string

const (
	CategoryFactual      Category = "factual"
	CategoryQuantitative Category = "quantitative"
	CategoryCategorical  Category = "categorical"
	CategoryRelational   Category = "relational"
)

// NotFound is the literal sentinel answers must use when the text does
// not contain the asked-for information.
const NotFound = "not found"

// Question is one fact-checkable question about the source text.
type Question struct {
	Category Category `json:"category"`
	Text     string   `json:"question"`
}

// QAPair holds both answers to one question plus the similarity score.
type QAPair struct {
	Question        string   `json:"question"`
	Category        Category `json:"category"`
	SourceAnswer    string   `json:"source_answer"`
	FactsheetAnswer string   `json:"factsheet_answer"`
	Score           float64  `json:"score"`
}

// CategoryScore aggregates accuracy within one question category.
type CategoryScore struct {
	Questions int     `json:"questions"`
	Accuracy  float64 `json:"accuracy"`
}

// Report is the terminal validation artifact for one company.
type Report struct {
	CompanyID    string                     `json:"company_id"`
	Stage        Stage                      `json:"stage"`
	OverallScore float64                    `json:"overall_score"`
	Passed       bool                       `json:"passed"`
	Categories   map[Category]CategoryScore `json:"categories"`
	Pairs        []QAPair                   `json:"pairs"`
	FailureStage Stage                      `json:"failure_stage,omitempty"`
	FailureError string                     `json:"failure_error,omitempty"`
}

// StageFailure marks a validation stage that failed after its retry.
// Validation is advisory: this never blocks factsheet delivery.
type StageFailure struct {
	CompanyID string
	Stage     Stage
	Err       error
}

func (e *StageFailure) Error() string {
	return fmt.Sprintf("validation stage %s failed for company %s: %v", e.Stage, e.CompanyID, e.Err)
}

func (e *StageFailure) Unwrap() error { return e.Err }

// Config bounds validation.
type Config struct {
	ChatModel      string
	EmbeddingModel string
	MinQuestions   int
	PassThreshold  float64
	StageRetries   int
}

// Validator runs the two-way Q&A accuracy check: questions generated
// from the source, answered independently from source and factsheet,
// then scored by answer-pair similarity.
type Validator struct {
	llm    provider.Provider
	guard  *budget.Guard
	cfg    Config
	logger *log.Logger
}

// NewValidator wires a validator.
func NewValidator(llm provider.Provider, guard *budget.Guard, cfg Config, logger *log.Logger) *Validator {
	if logger == nil {
		logger = log.New(log.Writer(), "[VALIDATE] ", log.LstdFlags)
	}
	if cfg.MinQuestions == 0 {
		cfg.MinQuestions = 50
	}
	if cfg.PassThreshold == 0 {
		cfg.PassThreshold = 0.80
	}
	if cfg.StageRetries == 0 {
		cfg.StageRetries = 1
	}
	return &Validator{llm: llm, guard: guard, cfg: cfg, logger: logger}
}

// Validate runs the full state machine. A stage failure returns a
// FAILED report plus the StageFailure; the report keeps the last stage
// that completed for inspection.
func (v *Validator) Validate(ctx context.Context, companyID, sourceText, factsheetText string) (Report, error) {
	report := Report{CompanyID: companyID, Stage: StagePending}

	questions, err := retryStage(v.cfg.StageRetries, func() ([]Question, error) {
		return v.generateQuestions(ctx, sourceText)
	})
	if err != nil {
		return v.fail(report, companyID, err)
	}
	report.Stage = StageQuestionsGenerated

	sourceAnswers, err := retryStage(v.cfg.StageRetries, func() ([]string, error) {
		return v.answerQuestions(ctx, questions, sourceText, "source text")
	})
	if err != nil {
		return v.fail(report, companyID, err)
	}
	report.Stage = StageAnsweredFromSource

	factAnswers, err := retryStage(v.cfg.StageRetries, func() ([]string, error) {
		return v.answerQuestions(ctx, questions, factsheetText, "factsheet")
	})
	if err != nil {
		return v.fail(report, companyID, err)
	}
	report.Stage = StageAnsweredFromFactsheet

	pairs, err := retryStage(v.cfg.StageRetries, func() ([]QAPair, error) {
		return v.score(ctx, questions, sourceAnswers, factAnswers)
	})
	if err != nil {
		return v.fail(report, companyID, err)
	}
	report.Stage = StageScored

	report.Pairs = pairs
	report.OverallScore, report.Categories = aggregate(pairs)
	report.Passed = report.OverallScore >= v.cfg.PassThreshold
	report.Stage = StageDone
	return report, nil
}

// retryStage runs a stage, retrying at most retries times.
func retryStage[T any](retries int, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		out, err := fn()
		if err == nil {
			return out, nil
		}
		lastErr = err
	}
	return zero, lastErr
}

func (v *Validator) fail(report Report, companyID string, err error) (Report, error) {
	sf := &StageFailure{CompanyID: companyID, Stage: report.Stage, Err: err}
	report.FailureStage = report.Stage
	report.FailureError = err.Error()
	report.Stage = StageFailed
	v.logger.Printf("%v", sf)
	return report, sf
}

func (v *Validator) generateQuestions(ctx context.Context, sourceText string) ([]Question, error) {
	prompt := fmt.Sprintf(`Read the company text below and produce at least %d fact-checkable
questions about it. Cover all four categories: factual (names, dates,
places), quantitative (counts, amounts, revenue), categorical (types,
industries, classifications) and relational (relationships between
entities). Every question must be answerable from the text alone.

Return ONLY strict JSON: [{"category": "factual|quantitative|categorical|relational", "question": "..."}]

TEXT:
%s`, v.cfg.MinQuestions, sourceText)

	raw, err := v.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	var questions []Question
	if err := json.Unmarshal([]byte(extractFirstJSON(raw)), &questions); err != nil {
		return nil, fmt.Errorf("parsing questions: %w", err)
	}
	if len(questions) < v.cfg.MinQuestions {
		return nil, fmt.Errorf("got %d questions, need at least %d", len(questions), v.cfg.MinQuestions)
	}
	seen := make(map[Category]bool)
	for _, q := range questions {
		seen[q.Category] = true
	}
	if len(seen) < 4 {
		return nil, fmt.Errorf("questions cover %d categories, need 4", len(seen))
	}
	return questions, nil
}

func (v *Validator) answerQuestions(ctx context.Context, questions []Question, text, textLabel string) ([]string, error) {
	var qlist strings.Builder
	for i, q := range questions {
		fmt.Fprintf(&qlist, "%d. %s\n", i+1, q.Text)
	}
	prompt := fmt.Sprintf(`Answer each question using ONLY the %s below. Do not use outside
knowledge. If the text does not contain the information, answer with the
literal string "not found" — never guess.

Return ONLY strict JSON: {"answers": ["answer to question 1", "answer to question 2", ...]}

QUESTIONS:
%s
%s:
%s`, textLabel, qlist.String(), strings.ToUpper(textLabel), text)

	raw, err := v.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Answers []string `json:"answers"`
	}
	if err := json.Unmarshal([]byte(extractFirstJSON(raw)), &resp); err != nil {
		return nil, fmt.Errorf("parsing answers: %w", err)
	}
	if len(resp.Answers) != len(questions) {
		return nil, fmt.Errorf("got %d answers for %d questions", len(resp.Answers), len(questions))
	}
	return resp.Answers, nil
}

// score computes per-question similarity. The sentinel rules short-
// circuit embedding: matching sentinels score 1, a sentinel against a
// substantive answer scores 0.
func (v *Validator) score(ctx context.Context, questions []Question, sourceAnswers, factAnswers []string) ([]QAPair, error) {
	pairs := make([]QAPair, len(questions))
	var embedTexts []string
	var embedIdx []int

	for i := range questions {
		pairs[i] = QAPair{
			Question:        questions[i].Text,
			Category:        questions[i].Category,
			SourceAnswer:    sourceAnswers[i],
			FactsheetAnswer: factAnswers[i],
		}
		srcNF := isNotFound(sourceAnswers[i])
		factNF := isNotFound(factAnswers[i])
		switch {
		case srcNF && factNF:
			pairs[i].Score = 1.0
		case srcNF != factNF:
			pairs[i].Score = 0.0
		default:
			embedTexts = append(embedTexts, sourceAnswers[i], factAnswers[i])
			embedIdx = append(embedIdx, i)
		}
	}

	if len(embedTexts) > 0 {
		estTokens := provider.EstimateTokens(strings.Join(embedTexts, " "))
		estCost := v.llm.EmbeddingCost(estTokens, v.cfg.EmbeddingModel)
		if !v.guard.Authorize(estCost) {
			return nil, budget.ErrExceeded{EstimatedUSD: estCost, Usage: v.guard.Usage()}
		}
		vecs, usedTokens, err := v.llm.Embed(ctx, v.cfg.EmbeddingModel, embedTexts)
		if err != nil {
			v.guard.Release(estCost)
			return nil, fmt.Errorf("embedding answers: %w", err)
		}
		v.guard.Record(estCost, v.llm.EmbeddingCost(usedTokens, v.cfg.EmbeddingModel), usedTokens)

		for j, i := range embedIdx {
			sim := chunkstore.CosineSimilarity(vecs[2*j], vecs[2*j+1])
			pairs[i].Score = clip01(sim)
		}
	}
	return pairs, nil
}

func (v *Validator) complete(ctx context.Context, prompt string) (string, error) {
	estIn := provider.EstimateTokens(prompt)
	estCost := v.llm.CalculateCost(estIn, 2000, v.cfg.ChatModel)
	if !v.guard.Authorize(estCost) {
		return "", budget.ErrExceeded{EstimatedUSD: estCost, Usage: v.guard.Usage()}
	}
	text, inTok, outTok, err := v.llm.Complete(ctx, prompt, v.cfg.ChatModel)
	if err != nil {
		v.guard.Release(estCost)
		return "", err
	}
	v.guard.Record(estCost, v.llm.CalculateCost(inTok, outTok, v.cfg.ChatModel), inTok+outTok)
	return text, nil
}

func aggregate(pairs []QAPair) (float64, map[Category]CategoryScore) {
	categories := make(map[Category]CategoryScore)
	if len(pairs) == 0 {
		return 0, categories
	}
	total := 0.0
	sums := make(map[Category]float64)
	for _, p := range pairs {
		total += p.Score
		sums[p.Category] += p.Score
		cs := categories[p.Category]
		cs.Questions++
		categories[p.Category] = cs
	}
	for cat, cs := range categories {
		cs.Accuracy = sums[cat] / float64(cs.Questions)
		categories[cat] = cs
	}
	return total / float64(len(pairs)), categories
}

func isNotFound(answer string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), NotFound)
}

func clip01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// extractFirstJSON pulls the first balanced JSON object or array out of
// model output that may be wrapped in prose or code fences.
func extractFirstJSON(s string) string {
	s = strings.TrimSpace(s)
	start := -1
	var opener, closer byte
	for i := 0; i < len(s); i++ {
		if s[i] == '{' || s[i] == '[' {
			start = i
			opener = s[i]
			if opener == '{' {
				closer = '}'
			} else {
				closer = ']'
			}
			break
		}
	}
	if start == -1 {
		return s
	}
	depth := 0
	inString := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			if c == '\\' {
				i++
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return s[start:]
}
