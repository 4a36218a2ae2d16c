package intent

import (
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/voxflow/voxflow/types"
)

// Result is the outcome of classifying one command.
type Result struct {
	// Command is the classified command.
	Command types.Command
	// Intents holds the derived intents ordered by descending confidence,
	// with the order of mention preserved for equal confidences.
	Intents []types.Intent
	// Kind flags the overall shape of the classification.
	Kind types.ClassificationKind
}

// TopConfidence returns the highest intent confidence, or zero when no
// intent was derived.
func (r Result) TopConfidence() float64 {
	if len(r.Intents) == 0 {
		return 0
	}
	return r.Intents[0].Confidence
}

// MentionOrder returns the intents ordered as they were spoken, using the
// span offset recorded when the command was split into clauses. The
// planner starts from mention order and only reorders through explicit
// dependency edges.
func (r Result) MentionOrder() []types.Intent {
	ordered := make([]types.Intent, len(r.Intents))
	copy(ordered, r.Intents)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SpanStart < ordered[j].SpanStart
	})
	return ordered
}

// Config holds classifier settings.
type Config struct {
	// MinConfidence is the ambiguity threshold: a command whose top intent
	// scores below it is reported ambiguous instead of guessed at.
	MinConfidence float64 `yaml:"min_confidence"`
	// MinTranscriptionConfidence rejects commands whose speech-to-text
	// confidence is too low to act on. Zero disables the check.
	MinTranscriptionConfidence float64 `yaml:"min_transcription_confidence"`
}

// DefaultConfig returns the documented default thresholds.
func DefaultConfig() Config {
	return Config{
		MinConfidence:              0.60,
		MinTranscriptionConfidence: 0.50,
	}
}

// Classifier maps raw command text to ordered intents. It holds no mutable
// state, so one instance serves concurrent commands and repeated
// classification of the same text is idempotent.
type Classifier struct {
	config Config
	rules  []rule
	logger *zap.Logger
}

// NewClassifier creates a classifier with the built-in rule set.
func NewClassifier(config Config, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MinConfidence <= 0 {
		config.MinConfidence = DefaultConfig().MinConfidence
	}
	return &Classifier{
		config: config,
		rules:  builtinRules,
		logger: logger.With(zap.String("component", "intent_classifier")),
	}
}

// clauseVerbs anchor clause boundaries inside compound commands.
var clauseVerbs = regexp.MustCompile(`(?i)^(?:find|search|look|open|show|list|order|prescribe|start|give|get|send|notify|message|refer|consult|create)\b`)

// clauseSeparators split a compound command into fragments.
var clauseSeparators = regexp.MustCompile(`(?i)\s*(?:;|,|\bthen\b)\s*`)

// clause is one actionable fragment of the command plus its start offset
// in the original text. The offset is recorded at split time, before any
// fragment folding rewrites the text, so spoken order never depends on
// re-finding a rewritten span.
type clause struct {
	Text  string
	Start int
}

// splitClauses breaks the command into clauses. A fragment that does not
// begin with a recognized verb is folded back into the previous clause so
// that "order CBC, lipid panel" stays one clause; the folded fragment
// keeps the offset of the clause it merged into.
func splitClauses(text string) []clause {
	fragments := make([]clause, 0, 4)
	last := 0
	for _, m := range clauseSeparators.FindAllStringIndex(text, -1) {
		fragments = append(fragments, clause{Text: text[last:m[0]], Start: last})
		last = m[1]
	}
	fragments = append(fragments, clause{Text: text[last:], Start: last})

	clauses := make([]clause, 0, len(fragments))
	for _, frag := range fragments {
		trimmed, start := trimFragment(frag.Text, frag.Start)
		if trimmed == "" {
			continue
		}
		if len(clauses) > 0 && !clauseVerbs.MatchString(trimmed) {
			clauses[len(clauses)-1].Text += ", " + trimmed
			continue
		}
		clauses = append(clauses, clause{Text: trimmed, Start: start})
	}
	if len(clauses) == 0 {
		trimmed, start := trimFragment(text, 0)
		return []clause{{Text: trimmed, Start: start}}
	}
	return clauses
}

// trimFragment strips surrounding whitespace and a leading "and ",
// advancing the start offset past everything removed on the left so it
// still points into the original command text.
func trimFragment(text string, start int) (string, int) {
	trimmed := strings.TrimLeft(text, " \t\n")
	start += len(text) - len(trimmed)
	if rest := strings.TrimPrefix(trimmed, "and "); rest != trimmed {
		start += len(trimmed) - len(rest)
		trimmed = strings.TrimLeft(rest, " \t\n")
		start += len(rest) - len(trimmed)
	}
	return strings.TrimRight(trimmed, " \t\n"), start
}

// Classify derives the ordered intent list for a command. It never
// guesses: results below the confidence threshold come back flagged
// ambiguous with the candidate intents attached for diagnostics.
func (c *Classifier) Classify(cmd types.Command) Result {
	if cmd.TranscriptionConfidence > 0 &&
		c.config.MinTranscriptionConfidence > 0 &&
		cmd.TranscriptionConfidence < c.config.MinTranscriptionConfidence {
		c.logger.Info("transcription confidence below threshold",
			zap.String("command_id", cmd.ID),
			zap.Float64("confidence", cmd.TranscriptionConfidence),
		)
		return Result{Command: cmd, Kind: types.KindAmbiguous}
	}

	clauses := splitClauses(cmd.Text)
	intents := make([]types.Intent, 0, len(clauses))
	for _, cl := range clauses {
		if intent, ok := c.classifyClause(cl.Text); ok {
			intent.SpanStart = cl.Start
			intents = append(intents, intent)
		}
	}

	result := Result{Command: cmd, Intents: intents}
	switch {
	case len(intents) == 0:
		result.Kind = types.KindAmbiguous
	case lowestConfidence(intents) < c.config.MinConfidence:
		result.Kind = types.KindAmbiguous
	case anyIncomplete(intents):
		result.Kind = types.KindIncomplete
	case len(intents) > 1:
		result.Kind = types.KindCompound
	default:
		result.Kind = types.KindSingle
	}

	// Order by descending confidence for callers; mention order is
	// recoverable through the SpanStart offsets. The sort is stable so
	// equal confidences keep their order of mention.
	sort.SliceStable(result.Intents, func(i, j int) bool {
		return result.Intents[i].Confidence > result.Intents[j].Confidence
	})

	c.logger.Debug("command classified",
		zap.String("command_id", cmd.ID),
		zap.Int("clauses", len(clauses)),
		zap.Int("intents", len(result.Intents)),
		zap.String("kind", string(result.Kind)),
	)
	return result
}

// classifyClause scores one clause against every rule and keeps the best
// match. Ties break by rule declaration order.
func (c *Classifier) classifyClause(clause string) (types.Intent, bool) {
	var (
		best      *rule
		bestScore float64
	)
	for i := range c.rules {
		r := &c.rules[i]
		for _, t := range r.triggers {
			if t.pattern.MatchString(clause) && t.confidence > bestScore {
				best = r
				bestScore = t.confidence
			}
		}
	}
	if best == nil {
		return types.Intent{}, false
	}

	params := best.extract(clause)
	intent := types.Intent{
		Category:   best.category,
		Confidence: bestScore,
		Params:     params,
		Span:       clause,
	}

	// Report required parameters the text did not supply. Deferrable
	// parameters (patient identity) are still reported here; the planner
	// decides whether an upstream step can bind them.
	for _, name := range best.required {
		if v, ok := params[name]; ok && v != "" {
			continue
		}
		if name == "patient_id" {
			if _, ok := params["patient_name"]; ok {
				// A name is a usable identity: the planner inserts a
				// lookup dependency.
				continue
			}
		}
		intent.MissingParams = append(intent.MissingParams, name)
	}
	return intent, true
}

// lowestConfidence returns the minimum confidence across intents.
func lowestConfidence(intents []types.Intent) float64 {
	low := 1.0
	for _, it := range intents {
		if it.Confidence < low {
			low = it.Confidence
		}
	}
	return low
}

// anyIncomplete reports whether any intent misses a non-deferrable
// required parameter.
func anyIncomplete(intents []types.Intent) bool {
	for _, it := range intents {
		deferrable := DeferrableParams(it.Category)
		for _, missing := range it.MissingParams {
			if !contains(deferrable, missing) {
				return true
			}
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
