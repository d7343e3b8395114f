package generate

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/thinkbridge/factsheet/internal/budget"
	"github.com/thinkbridge/factsheet/internal/chunkstore"
	"github.com/thinkbridge/factsheet/internal/template"
	"github.com/thinkbridge/factsheet/provider"
)

// SectionContent is one filled template slot.
type SectionContent struct {
	Name string
	Text string
}

// Factsheet is the generated document for one company. Immutable after
// generation; a regeneration produces a new value.
type Factsheet struct {
	CompanyID   string
	Industry    template.Industry
	Sections    []SectionContent
	WordCount   int
	WordCountOK bool
}

// Config bounds generation.
type Config struct {
	ChatModel      string
	TopK           int
	MinWords       int
	MaxWords       int
	MaxRegenerates int
}

// Generator fills an industry template from retrieved evidence. Every
// model call is authorized against the budget guard first and settled
// with the actual cost afterward.
type Generator struct {
	store  chunkstore.Store
	llm    provider.Provider
	guard  *budget.Guard
	cfg    Config
	logger *log.Logger
}

// NewGenerator wires a generator.
func NewGenerator(store chunkstore.Store, llm provider.Provider, guard *budget.Guard, cfg Config, logger *log.Logger) *Generator {
	if logger == nil {
		logger = log.New(log.Writer(), "[GENERATE] ", log.LstdFlags)
	}
	if cfg.TopK == 0 {
		cfg.TopK = 6
	}
	return &Generator{store: store, llm: llm, guard: guard, cfg: cfg, logger: logger}
}

// estimated completion size used for pre-call budget authorization.
const estimatedOutputTokens = 1500

// Generate retrieves evidence per section, prompts the model to fill
// each slot from that evidence only, and enforces the word-count gate.
// On a WordCountViolation the best-effort factsheet is returned alongside
// the error so callers can deliver it flagged as non-compliant.
func (g *Generator) Generate(ctx context.Context, companyID string, tpl template.Template) (Factsheet, error) {
	sections := make([]SectionContent, 0, len(tpl.Sections))
	anyEvidence := false

	for _, slot := range tpl.Sections {
		scored, err := g.store.Query(ctx, companyID, slot.Query, g.cfg.TopK)
		if err != nil {
			return Factsheet{}, fmt.Errorf("retrieval for section %q: %w", slot.Name, err)
		}
		if len(scored) == 0 {
			sections = append(sections, SectionContent{Name: slot.Name, Text: "Information not available in source material."})
			continue
		}
		anyEvidence = true

		text, err := g.fillSection(ctx, slot, scored)
		if err != nil {
			return Factsheet{}, err
		}
		sections = append(sections, SectionContent{Name: slot.Name, Text: text})
	}

	if !anyEvidence {
		return Factsheet{}, &EmptyEvidenceError{CompanyID: companyID}
	}

	fs := Factsheet{
		CompanyID: companyID,
		Industry:  tpl.Industry,
		Sections:  sections,
	}
	fs.WordCount = countWords(fs)
	fs.WordCountOK = g.withinBounds(fs.WordCount)

	attempts := 1
	for !fs.WordCountOK && attempts <= g.cfg.MaxRegenerates {
		attempts++
		g.logger.Printf("company %s: %d words outside [%d, %d], corrective attempt %d",
			companyID, fs.WordCount, g.cfg.MinWords, g.cfg.MaxWords, attempts)
		revised, err := g.regenerate(ctx, fs)
		if err != nil {
			return fs, err
		}
		fs = revised
	}

	if !fs.WordCountOK {
		return fs, &WordCountViolation{
			CompanyID: companyID,
			WordCount: fs.WordCount,
			MinWords:  g.cfg.MinWords,
			MaxWords:  g.cfg.MaxWords,
			Attempts:  attempts,
		}
	}
	return fs, nil
}

func (g *Generator) fillSection(ctx context.Context, slot template.Section, evidence []chunkstore.Scored) (string, error) {
	var sb strings.Builder
	for i, s := range evidence {
		fmt.Fprintf(&sb, "[Evidence %d]\n%s\n\n", i+1, s.Chunk.Text)
	}
	prompt := fmt.Sprintf(`You are writing the %q section of a company factsheet.

Use ONLY the evidence below. Do not use outside knowledge. If the evidence
does not cover something, leave it out rather than guessing.

%sWrite clear factual prose for the %q section. Respond with the section
text only, no heading.`, slot.Name, sb.String(), slot.Name)

	return g.complete(ctx, prompt)
}

func (g *Generator) regenerate(ctx context.Context, fs Factsheet) (Factsheet, error) {
	direction := "Expand the thin sections with more detail from the existing text"
	if fs.WordCount > g.cfg.MaxWords {
		direction = "Trim the text by removing repetition and less important detail"
	}

	var sb strings.Builder
	for _, s := range fs.Sections {
		fmt.Fprintf(&sb, "## %s\n%s\n\n", s.Name, s.Text)
	}
	prompt := fmt.Sprintf(`The following company factsheet has %d words; it must have between %d and %d words.
%s. Do not invent facts that are not already present.

Keep exactly the same "## Section" headings, in the same order.

%s`, fs.WordCount, g.cfg.MinWords, g.cfg.MaxWords, direction, sb.String())

	text, err := g.complete(ctx, prompt)
	if err != nil {
		return fs, err
	}

	revised := Factsheet{CompanyID: fs.CompanyID, Industry: fs.Industry}
	revised.Sections = parseSections(text, fs.Sections)
	revised.WordCount = countWords(revised)
	revised.WordCountOK = g.withinBounds(revised.WordCount)
	return revised, nil
}

// complete runs one authorized chat completion and settles its cost.
func (g *Generator) complete(ctx context.Context, prompt string) (string, error) {
	estIn := provider.EstimateTokens(prompt)
	estCost := g.llm.CalculateCost(estIn, estimatedOutputTokens, g.cfg.ChatModel)
	if !g.guard.Authorize(estCost) {
		return "", budget.ErrExceeded{EstimatedUSD: estCost, Usage: g.guard.Usage()}
	}

	text, inTok, outTok, err := g.llm.Complete(ctx, prompt, g.cfg.ChatModel)
	if err != nil {
		g.guard.Release(estCost)
		return "", fmt.Errorf("completion: %w", err)
	}
	g.guard.Record(estCost, g.llm.CalculateCost(inTok, outTok, g.cfg.ChatModel), inTok+outTok)
	return strings.TrimSpace(text), nil
}

func (g *Generator) withinBounds(words int) bool {
	return words >= g.cfg.MinWords && words <= g.cfg.MaxWords
}

func countWords(fs Factsheet) int {
	total := 0
	for _, s := range fs.Sections {
		total += len(strings.Fields(s.Text))
	}
	return total
}

// parseSections splits a regenerated document back into the original
// slots by "## Heading" markers. Headings the model dropped keep their
// previous text so a sloppy rewrite cannot lose a section.
func parseSections(text string, prev []SectionContent) []SectionContent {
	found := make(map[string]string)
	var current string
	var body strings.Builder
	flush := func() {
		if current != "" {
			found[current] = strings.TrimSpace(body.String())
		}
		body.Reset()
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "## ") {
			flush()
			current = strings.TrimSpace(strings.TrimPrefix(line, "## "))
			continue
		}
		body.WriteString(line)
		body.WriteString("\n")
	}
	flush()

	out := make([]SectionContent, len(prev))
	for i, s := range prev {
		if t, ok := found[s.Name]; ok && t != "" {
			out[i] = SectionContent{Name: s.Name, Text: t}
		} else {
			out[i] = s
		}
	}
	return out
}
