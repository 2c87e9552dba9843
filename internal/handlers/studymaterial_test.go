package handlers

import (
  "bytes"
  "context"
  "encoding/json"
  "net/http"
  "net/http/httptest"
  "testing"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/Duel-Learn-Devs/duel-learn/internal/logger"
  "github.com/Duel-Learn-Devs/duel-learn/internal/services"
)

type stubMaterialService struct {
  services.StudyMaterialService
  savedDraft *services.MaterialDraft
}

func (s *stubMaterialService) Save(_ context.Context, draft services.MaterialDraft) (*services.MaterialView, error) {
  s.savedDraft = &draft
  return &services.MaterialView{
    StudyMaterialID: uuid.New().String(),
    Title:           draft.Title,
  }, nil
}

func newSaveRouter(t *testing.T) (*gin.Engine, *stubMaterialService) {
  t.Helper()
  gin.SetMode(gin.TestMode)
  RegisterValidations()

  log, err := logger.New("development")
  if err != nil {
    t.Fatalf("logger: %v", err)
  }
  stub := &stubMaterialService{}
  handler := NewStudyMaterialHandler(log, stub)

  router := gin.New()
  router.POST("/study-material/save", handler.Save)
  return router, stub
}

func postSave(t *testing.T, router *gin.Engine, payload string) *httptest.ResponseRecorder {
  t.Helper()
  req := httptest.NewRequest(http.MethodPost, "/study-material/save", bytes.NewBufferString(payload))
  req.Header.Set("Content-Type", "application/json")
  recorder := httptest.NewRecorder()
  router.ServeHTTP(recorder, req)
  return recorder
}

func TestSaveAcceptsEmptyItemSequence(t *testing.T) {
  router, stub := newSaveRouter(t)

  recorder := postSave(t, router, `{"title":"Placeholder Deck","created_by":"alice","items":[]}`)
  if recorder.Code != http.StatusCreated {
    t.Fatalf("status=%d, want 201: %s", recorder.Code, recorder.Body.String())
  }
  if stub.savedDraft == nil {
    t.Fatal("service never called")
  }
  if len(stub.savedDraft.Items) != 0 {
    t.Fatalf("items=%+v, want empty", stub.savedDraft.Items)
  }

  var body map[string]any
  if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
    t.Fatalf("decode response: %v", err)
  }
  if body["studyMaterialId"] == "" {
    t.Fatalf("response missing studyMaterialId: %v", body)
  }
}

func TestSaveAcceptsOmittedItems(t *testing.T) {
  router, stub := newSaveRouter(t)

  recorder := postSave(t, router, `{"title":"Placeholder Deck","created_by":"alice"}`)
  if recorder.Code != http.StatusCreated {
    t.Fatalf("status=%d, want 201: %s", recorder.Code, recorder.Body.String())
  }
  if stub.savedDraft == nil {
    t.Fatal("service never called")
  }
}

func TestSaveRejectsMissingRequiredFields(t *testing.T) {
  cases := []struct {
    name    string
    payload string
  }{
    {name: "missing_title", payload: `{"created_by":"alice","items":[]}`},
    {name: "missing_created_by", payload: `{"title":"Deck","items":[]}`},
    {name: "bad_visibility", payload: `{"title":"Deck","created_by":"alice","visibility":"secret","items":[]}`},
  }

  for _, tc := range cases {
    t.Run(tc.name, func(t *testing.T) {
      router, stub := newSaveRouter(t)
      recorder := postSave(t, router, tc.payload)
      if recorder.Code != http.StatusBadRequest {
        t.Fatalf("status=%d, want 400: %s", recorder.Code, recorder.Body.String())
      }
      if stub.savedDraft != nil {
        t.Fatal("service called despite invalid payload")
      }
    })
  }
}
