package services

import (
  "context"
  "encoding/json"
  "fmt"
  "regexp"
  "strings"

  "github.com/Duel-Learn-Devs/duel-learn/internal/apierr"
  "github.com/Duel-Learn-Devs/duel-learn/internal/logger"
  "github.com/Duel-Learn-Devs/duel-learn/internal/types"
)

var errOracleUnconfigured = fmt.Errorf("oracle client not configured; set OPENAI_API_KEY")

// GeneratedQuestion is the tagged union of the three question shapes.
// Options is populated only for multiple-choice.
type GeneratedQuestion struct {
  Type     string            `json:"type"`
  Question string            `json:"question"`
  Answer   string            `json:"answer"`
  Options  map[string]string `json:"options,omitempty"`
}

type GenerateQuestionsRequest struct {
  Term                  string   `json:"term"`
  Definition            string   `json:"definition"`
  SelectedQuestionTypes []string `json:"selectedQuestionTypes"`
  NumberOfItems         int      `json:"numberOfItems"`
}

type QuestionService interface {
  GenerateQuestions(ctx context.Context, req GenerateQuestionsRequest) ([]GeneratedQuestion, error)
  GenerateSummary(ctx context.Context, items []ItemDraft) (string, error)
}

type questionService struct {
  log    *logger.Logger
  oracle OracleClient
}

func NewQuestionService(baseLog *logger.Logger, oracle OracleClient) QuestionService {
  serviceLog := baseLog.With("service", "QuestionService")
  return &questionService{log: serviceLog, oracle: oracle}
}

// =====================================
// Question generation
// =====================================

func (qs *questionService) GenerateQuestions(ctx context.Context, req GenerateQuestionsRequest) ([]GeneratedQuestion, error) {
  term := stripTermPrefix(req.Term)
  definition := req.Definition

  if term == "" || definition == "" || len(req.SelectedQuestionTypes) == 0 {
    return nil, apierr.Validationf("term, definition and selectedQuestionTypes are required")
  }

  // Identification and true/false apply only when they are the sole
  // selection; any mixed selection generates multiple choice.
  if len(req.SelectedQuestionTypes) == 1 {
    switch req.SelectedQuestionTypes[0] {
    case types.QuestionTypeIdentification:
      // No oracle round-trip: the authored pair already is the question.
      return []GeneratedQuestion{{
        Type:     types.QuestionTypeIdentification,
        Question: definition,
        Answer:   term,
      }}, nil

    case types.QuestionTypeTrueFalse:
      return qs.generateTrueFalse(ctx, term, definition)

    case types.QuestionTypeMultipleChoice:

    default:
      return nil, apierr.Validationf("unknown question type %q", req.SelectedQuestionTypes[0])
    }
  }

  count := req.NumberOfItems
  if count <= 0 {
    return nil, apierr.Validationf("numberOfItems must be positive")
  }
  return qs.generateMultipleChoice(ctx, term, definition, count)
}

func (qs *questionService) generateTrueFalse(ctx context.Context, term, definition string) ([]GeneratedQuestion, error) {
  if qs.oracle == nil {
    return nil, apierr.Oracle(errOracleUnconfigured)
  }
  prompt := fmt.Sprintf(`Generate a true/false question based on this term and definition:
Term: %q
Definition: %q

Rules:
1. Use the definition to create a statement that can be true or false
2. The statement should be clear and unambiguous
3. The answer should be either "True" or "False"

Format the response exactly as:
{
  "type": "true-false",
  "question": "(statement based on the definition)",
  "answer": "(True or False)"
}`, term, definition)

  system := "You are a helpful AI that generates true/false questions. Create clear statements that can be definitively answered as True or False based on the given term and definition."

  text, err := qs.oracle.Complete(ctx, system, prompt)
  if err != nil {
    return nil, apierr.Oracle(fmt.Errorf("generate true/false question: %w", err))
  }
  questions, err := parseOracleQuestions(text)
  if err != nil {
    return nil, apierr.Oracle(err)
  }
  return coerceQuestions(questions, types.QuestionTypeTrueFalse, term)
}

func (qs *questionService) generateMultipleChoice(ctx context.Context, term, definition string, count int) ([]GeneratedQuestion, error) {
  if qs.oracle == nil {
    return nil, apierr.Oracle(errOracleUnconfigured)
  }
  prompt := fmt.Sprintf(`Generate %d multiple choice questions based on this term and definition:
Term: %q
Definition: %q

Rules for generating the question:
1. Use the EXACT original definition as the question
2. Generate 3 plausible but incorrect options that are similar in nature to the original term
3. The original term MUST be one of the options
4. Options must be complete words or phrases, NEVER single letters
5. Each option should be 1-3 words maximum
6. All options should be of similar length and style to the original term

Format the response exactly as:
{
  "type": "multiple-choice",
  "question": %q,
  "options": {
    "A": "(first option)",
    "B": "(second option)",
    "C": "(third option)",
    "D": "(fourth option)"
  },
  "answer": "(letter). %s"
}

Important:
- The answer format must be "letter. term" where letter matches where the term appears in options
- Never use single letters or numbers as options
- Keep options concise and similar in style to the original term
- The original term must appear exactly as provided in one of the options
- Use the original definition exactly as provided for the question`, count, term, definition, definition, term)

  system := `You are a helpful AI that generates multiple-choice questions. Always use the original definition as the question, include the original term as one of the options, and ensure all options are proper words or phrases (never single letters or numbers). Format the answer as "letter. term" where the letter matches where the term appears in the options.`

  text, err := qs.oracle.Complete(ctx, system, prompt)
  if err != nil {
    return nil, apierr.Oracle(fmt.Errorf("generate multiple-choice questions: %w", err))
  }
  questions, err := parseOracleQuestions(text)
  if err != nil {
    return nil, apierr.Oracle(err)
  }
  return coerceQuestions(questions, types.QuestionTypeMultipleChoice, term)
}

// =====================================
// Summary generation
// =====================================

func (qs *questionService) GenerateSummary(ctx context.Context, items []ItemDraft) (string, error) {
  if len(items) == 0 {
    return "", apierr.Validationf("at least one item is required for a summary")
  }

  var content strings.Builder
  for i, item := range items {
    if i > 0 {
      content.WriteString("\n\n")
    }
    fmt.Fprintf(&content, "%d. Term: %s\nDefinition: %s", i+1, item.Term, item.Definition)
  }

  prompt := fmt.Sprintf(`Create a single, complete sentence summary (5-8 words) that captures the relationship between these terms and definitions. The summary must be a grammatically complete sentence.

Rules:
- Use 5 to 8 words only
- Must be ONE complete sentence
- Must end with proper punctuation
- Focus on the relationship between the terms

Terms and definitions to summarize:
%s`, content.String())

  system := "You are a precise AI that generates concise, complete sentence summaries using 5-8 words. Each summary must be grammatically complete and end with proper punctuation."

  if qs.oracle == nil {
    return "", apierr.Oracle(errOracleUnconfigured)
  }
  raw, err := qs.oracle.Complete(ctx, system, prompt)
  if err != nil {
    return "", apierr.Oracle(fmt.Errorf("generate summary: %w", err))
  }

  summary := cleanSummary(raw)
  if wordCount(summary) < 5 {
    qs.log.Warn("Generated summary shorter than expected", "summary", summary)
  }
  return summary, nil
}

// =====================================
// Oracle-output hygiene
// =====================================

var termPrefix = regexp.MustCompile(`^[A-D]\.\s+`)

// stripTermPrefix removes a multiple-choice letter prefix so "D. AI"
// becomes "AI" before it reaches a prompt.
func stripTermPrefix(term string) string {
  return termPrefix.ReplaceAllString(strings.TrimSpace(term), "")
}

var codeFence = regexp.MustCompile("```(?:json)?")

func stripCodeFences(text string) string {
  return strings.TrimSpace(codeFence.ReplaceAllString(text, ""))
}

// parseOracleQuestions accepts either a single JSON object or a JSON array;
// the oracle is not consistent about which it returns.
func parseOracleQuestions(text string) ([]GeneratedQuestion, error) {
  cleaned := stripCodeFences(text)
  var many []GeneratedQuestion
  if err := json.Unmarshal([]byte(cleaned), &many); err == nil {
    return many, nil
  }
  var one GeneratedQuestion
  if err := json.Unmarshal([]byte(cleaned), &one); err != nil {
    return nil, fmt.Errorf("unparseable oracle output: %w; raw=%s", err, cleaned)
  }
  return []GeneratedQuestion{one}, nil
}

// coerceQuestions validates oracle output against the expected shape so a
// malformed generation becomes a typed error instead of a corrupt item.
func coerceQuestions(questions []GeneratedQuestion, wantType, term string) ([]GeneratedQuestion, error) {
  if len(questions) == 0 {
    return nil, apierr.Oracle(fmt.Errorf("oracle returned no questions"))
  }
  for i := range questions {
    q := &questions[i]
    if q.Type == "" {
      q.Type = wantType
    }
    if q.Type != wantType {
      return nil, apierr.Oracle(fmt.Errorf("question %d: type %q, want %q", i+1, q.Type, wantType))
    }
    if strings.TrimSpace(q.Question) == "" || strings.TrimSpace(q.Answer) == "" {
      return nil, apierr.Oracle(fmt.Errorf("question %d: missing question or answer", i+1))
    }

    switch wantType {
    case types.QuestionTypeTrueFalse:
      switch strings.ToLower(strings.TrimSpace(q.Answer)) {
      case "true":
        q.Answer = "True"
      case "false":
        q.Answer = "False"
      default:
        return nil, apierr.Oracle(fmt.Errorf("question %d: true/false answer %q", i+1, q.Answer))
      }
      q.Options = nil

    case types.QuestionTypeMultipleChoice:
      if len(q.Options) == 0 {
        return nil, apierr.Oracle(fmt.Errorf("question %d: multiple-choice without options", i+1))
      }
      // Anchor the answer to wherever the original term actually landed.
      anchored := false
      for letter, option := range q.Options {
        if option == term {
          q.Answer = fmt.Sprintf("%s. %s", letter, term)
          anchored = true
          break
        }
      }
      if !anchored && !answerMatchesOption(q.Answer, q.Options) {
        return nil, apierr.Oracle(fmt.Errorf("question %d: answer %q does not reference an option", i+1, q.Answer))
      }
    }
  }
  return questions, nil
}

func answerMatchesOption(answer string, options map[string]string) bool {
  parts := strings.SplitN(answer, ".", 2)
  if len(parts) != 2 {
    return false
  }
  _, ok := options[strings.TrimSpace(parts[0])]
  return ok
}

var summaryQuotes = regexp.MustCompile("[\"“”]")

var whitespaceRun = regexp.MustCompile(`\s+`)

// cleanSummary normalizes oracle summaries: quotes stripped, whitespace
// collapsed, at most eight words, terminal punctuation guaranteed.
func cleanSummary(raw string) string {
  summary := summaryQuotes.ReplaceAllString(raw, "")
  summary = strings.TrimSpace(whitespaceRun.ReplaceAllString(summary, " "))
  if summary == "" {
    return summary
  }

  words := strings.Fields(summary)
  if len(words) > 8 {
    summary = strings.Join(words[:8], " ")
    summary = strings.TrimRight(summary, ".!?,;:") + "."
  }
  if !strings.HasSuffix(summary, ".") && !strings.HasSuffix(summary, "!") && !strings.HasSuffix(summary, "?") {
    summary += "."
  }
  return summary
}

func wordCount(s string) int {
  return len(strings.Fields(s))
}
