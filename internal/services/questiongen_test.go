package services

import (
  "context"
  "errors"
  "testing"

  "github.com/Duel-Learn-Devs/duel-learn/internal/apierr"
  "github.com/Duel-Learn-Devs/duel-learn/internal/logger"
  "github.com/Duel-Learn-Devs/duel-learn/internal/types"
)

type fakeOracle struct {
  reply string
  err   error
  calls int
}

func (f *fakeOracle) Complete(context.Context, string, string) (string, error) {
  f.calls++
  if f.err != nil {
    return "", f.err
  }
  return f.reply, nil
}

func newTestQuestionService(t *testing.T, oracle OracleClient) QuestionService {
  t.Helper()
  log, err := logger.New("development")
  if err != nil {
    t.Fatalf("logger: %v", err)
  }
  return NewQuestionService(log, oracle)
}

func TestStripTermPrefix(t *testing.T) {
  cases := []struct {
    name string
    term string
    want string
  }{
    {name: "letter_prefix", term: "D. AI", want: "AI"},
    {name: "no_prefix", term: "AI", want: "AI"},
    {name: "lowercase_letter_kept", term: "d. AI", want: "d. AI"},
    {name: "letter_out_of_range_kept", term: "E. AI", want: "E. AI"},
    {name: "prefix_without_space_kept", term: "A.AI", want: "A.AI"},
    {name: "surrounding_whitespace", term: "  B. neuron  ", want: "neuron"},
  }

  for _, tc := range cases {
    t.Run(tc.name, func(t *testing.T) {
      if got := stripTermPrefix(tc.term); got != tc.want {
        t.Fatalf("stripTermPrefix(%q)=%q, want %q", tc.term, got, tc.want)
      }
    })
  }
}

func TestCleanSummary(t *testing.T) {
  cases := []struct {
    name string
    raw  string
    want string
  }{
    {
      name: "quotes_stripped",
      raw:  `"Cells form the basis of life."`,
      want: "Cells form the basis of life.",
    },
    {
      name: "smart_quotes_stripped",
      raw:  "“Cells form the basis of life.”",
      want: "Cells form the basis of life.",
    },
    {
      name: "whitespace_collapsed",
      raw:  "Cells  form\n the   basis of life.",
      want: "Cells form the basis of life.",
    },
    {
      name: "truncated_to_eight_words",
      raw:  "one two three four five six seven eight nine ten",
      want: "one two three four five six seven eight.",
    },
    {
      name: "punctuation_appended",
      raw:  "Cells form the basis of life",
      want: "Cells form the basis of life.",
    },
    {
      name: "question_mark_kept",
      raw:  "Do cells form the basis of life?",
      want: "Do cells form the basis of life?",
    },
    {
      name: "empty",
      raw:  "   ",
      want: "",
    },
  }

  for _, tc := range cases {
    t.Run(tc.name, func(t *testing.T) {
      if got := cleanSummary(tc.raw); got != tc.want {
        t.Fatalf("cleanSummary(%q)=%q, want %q", tc.raw, got, tc.want)
      }
    })
  }
}

func TestParseOracleQuestions(t *testing.T) {
  t.Run("single_object", func(t *testing.T) {
    questions, err := parseOracleQuestions(`{"type":"true-false","question":"Water is wet","answer":"True"}`)
    if err != nil {
      t.Fatalf("parse: %v", err)
    }
    if len(questions) != 1 || questions[0].Answer != "True" {
      t.Fatalf("got %+v", questions)
    }
  })

  t.Run("array", func(t *testing.T) {
    questions, err := parseOracleQuestions(`[{"question":"q1","answer":"a1"},{"question":"q2","answer":"a2"}]`)
    if err != nil {
      t.Fatalf("parse: %v", err)
    }
    if len(questions) != 2 {
      t.Fatalf("len=%d, want 2", len(questions))
    }
  })

  t.Run("fenced_json", func(t *testing.T) {
    questions, err := parseOracleQuestions("```json\n{\"question\":\"q\",\"answer\":\"a\"}\n```")
    if err != nil {
      t.Fatalf("parse: %v", err)
    }
    if len(questions) != 1 || questions[0].Question != "q" {
      t.Fatalf("got %+v", questions)
    }
  })

  t.Run("garbage", func(t *testing.T) {
    if _, err := parseOracleQuestions("sorry, I cannot help with that"); err == nil {
      t.Fatal("want error on non-JSON output")
    }
  })
}

func TestCoerceQuestionsTrueFalse(t *testing.T) {
  questions, err := coerceQuestions([]GeneratedQuestion{
    {Question: "Water is wet", Answer: "  true "},
  }, types.QuestionTypeTrueFalse, "water")
  if err != nil {
    t.Fatalf("coerce: %v", err)
  }
  if questions[0].Answer != "True" {
    t.Fatalf("answer=%q, want normalized True", questions[0].Answer)
  }
  if questions[0].Type != types.QuestionTypeTrueFalse {
    t.Fatalf("type=%q not defaulted", questions[0].Type)
  }

  _, err = coerceQuestions([]GeneratedQuestion{
    {Question: "Water is wet", Answer: "maybe"},
  }, types.QuestionTypeTrueFalse, "water")
  if err == nil {
    t.Fatal("want error for non-boolean answer")
  }
}

func TestCoerceQuestionsMultipleChoice(t *testing.T) {
  options := map[string]string{"A": "mitosis", "B": "osmosis", "C": "diffusion", "D": "digestion"}

  t.Run("answer_anchored_to_term_option", func(t *testing.T) {
    questions, err := coerceQuestions([]GeneratedQuestion{
      {Question: "diffusion of water", Answer: "A. osmosis", Options: options},
    }, types.QuestionTypeMultipleChoice, "osmosis")
    if err != nil {
      t.Fatalf("coerce: %v", err)
    }
    if questions[0].Answer != "B. osmosis" {
      t.Fatalf("answer=%q, want re-anchored to B", questions[0].Answer)
    }
  })

  t.Run("missing_options", func(t *testing.T) {
    _, err := coerceQuestions([]GeneratedQuestion{
      {Question: "q", Answer: "A. osmosis"},
    }, types.QuestionTypeMultipleChoice, "osmosis")
    if err == nil {
      t.Fatal("want error without options")
    }
  })

  t.Run("answer_not_an_option", func(t *testing.T) {
    _, err := coerceQuestions([]GeneratedQuestion{
      {Question: "q", Answer: "Z. nothing", Options: options},
    }, types.QuestionTypeMultipleChoice, "photosynthesis")
    if err == nil {
      t.Fatal("want error when answer references no option")
    }
  })
}

func TestGenerateQuestionsIdentificationSkipsOracle(t *testing.T) {
  oracle := &fakeOracle{}
  qs := newTestQuestionService(t, oracle)

  questions, err := qs.GenerateQuestions(context.Background(), GenerateQuestionsRequest{
    Term:                  "C. mitochondria",
    Definition:            "powerhouse of the cell",
    SelectedQuestionTypes: []string{types.QuestionTypeIdentification},
  })
  if err != nil {
    t.Fatalf("GenerateQuestions: %v", err)
  }
  if oracle.calls != 0 {
    t.Fatalf("oracle called %d times for identification", oracle.calls)
  }
  if len(questions) != 1 {
    t.Fatalf("len=%d, want 1", len(questions))
  }
  q := questions[0]
  if q.Question != "powerhouse of the cell" || q.Answer != "mitochondria" {
    t.Fatalf("got %+v; want definition as question, stripped term as answer", q)
  }
}

func TestGenerateQuestionsTrueFalseRoundTrip(t *testing.T) {
  oracle := &fakeOracle{reply: `{"type":"true-false","question":"The cell wall is rigid","answer":"true"}`}
  qs := newTestQuestionService(t, oracle)

  questions, err := qs.GenerateQuestions(context.Background(), GenerateQuestionsRequest{
    Term:                  "cell wall",
    Definition:            "rigid outer layer",
    SelectedQuestionTypes: []string{types.QuestionTypeTrueFalse},
  })
  if err != nil {
    t.Fatalf("GenerateQuestions: %v", err)
  }
  if questions[0].Answer != "True" {
    t.Fatalf("answer=%q, want True", questions[0].Answer)
  }
}

func TestGenerateQuestionsMixedTypesFallBackToMultipleChoice(t *testing.T) {
  oracle := &fakeOracle{reply: `{"type":"multiple-choice","question":"diffusion of water","answer":"A. osmosis","options":{"A":"osmosis","B":"mitosis","C":"meiosis","D":"digestion"}}`}
  qs := newTestQuestionService(t, oracle)

  questions, err := qs.GenerateQuestions(context.Background(), GenerateQuestionsRequest{
    Term:                  "osmosis",
    Definition:            "diffusion of water",
    SelectedQuestionTypes: []string{types.QuestionTypeIdentification, types.QuestionTypeTrueFalse},
    NumberOfItems:         1,
  })
  if err != nil {
    t.Fatalf("GenerateQuestions: %v", err)
  }
  if oracle.calls != 1 {
    t.Fatalf("oracle calls=%d, want 1 (mixed selection must go through generation)", oracle.calls)
  }
  if len(questions) != 1 || questions[0].Type != types.QuestionTypeMultipleChoice {
    t.Fatalf("got %+v, want one multiple-choice question", questions)
  }
  if questions[0].Answer != "A. osmosis" {
    t.Fatalf("answer=%q", questions[0].Answer)
  }
}

func TestGenerateQuestionsValidation(t *testing.T) {
  qs := newTestQuestionService(t, &fakeOracle{})

  cases := []struct {
    name string
    req  GenerateQuestionsRequest
  }{
    {name: "missing_term", req: GenerateQuestionsRequest{Definition: "d", SelectedQuestionTypes: []string{types.QuestionTypeTrueFalse}}},
    {name: "missing_definition", req: GenerateQuestionsRequest{Term: "t", SelectedQuestionTypes: []string{types.QuestionTypeTrueFalse}}},
    {name: "no_types", req: GenerateQuestionsRequest{Term: "t", Definition: "d"}},
    {name: "unknown_type", req: GenerateQuestionsRequest{Term: "t", Definition: "d", SelectedQuestionTypes: []string{"essay"}}},
    {name: "mc_without_count", req: GenerateQuestionsRequest{Term: "t", Definition: "d", SelectedQuestionTypes: []string{types.QuestionTypeMultipleChoice}}},
    {name: "mixed_types_without_count", req: GenerateQuestionsRequest{Term: "t", Definition: "d", SelectedQuestionTypes: []string{types.QuestionTypeIdentification, types.QuestionTypeTrueFalse}}},
  }

  for _, tc := range cases {
    t.Run(tc.name, func(t *testing.T) {
      if _, err := qs.GenerateQuestions(context.Background(), tc.req); !apierr.IsValidation(err) {
        t.Fatalf("err=%v, want validation error", err)
      }
    })
  }
}

func TestGenerateQuestionsWithoutOracle(t *testing.T) {
  qs := newTestQuestionService(t, nil)

  // Identification still works offline.
  if _, err := qs.GenerateQuestions(context.Background(), GenerateQuestionsRequest{
    Term:                  "t",
    Definition:            "d",
    SelectedQuestionTypes: []string{types.QuestionTypeIdentification},
  }); err != nil {
    t.Fatalf("identification without oracle: %v", err)
  }

  _, err := qs.GenerateQuestions(context.Background(), GenerateQuestionsRequest{
    Term:                  "t",
    Definition:            "d",
    SelectedQuestionTypes: []string{types.QuestionTypeTrueFalse},
  })
  var apiErr *apierr.Error
  if !errors.As(err, &apiErr) || apiErr.Code != apierr.CodeOracle {
    t.Fatalf("err=%v, want oracle error", err)
  }
}

func TestGenerateSummaryCleansOutput(t *testing.T) {
  oracle := &fakeOracle{reply: "\"Key   concepts of basic cell biology explained\"\n"}
  qs := newTestQuestionService(t, oracle)

  summary, err := qs.GenerateSummary(context.Background(), []ItemDraft{
    {Term: "cell", Definition: "unit of life"},
  })
  if err != nil {
    t.Fatalf("GenerateSummary: %v", err)
  }
  if summary != "Key concepts of basic cell biology explained." {
    t.Fatalf("summary=%q", summary)
  }
}

func TestGenerateSummaryRequiresItems(t *testing.T) {
  qs := newTestQuestionService(t, &fakeOracle{})
  if _, err := qs.GenerateSummary(context.Background(), nil); !apierr.IsValidation(err) {
    t.Fatalf("err=%v, want validation error", err)
  }
}
