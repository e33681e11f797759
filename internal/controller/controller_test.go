package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"examhub_backend/internal/middleware"
	"examhub_backend/internal/model"
	"examhub_backend/internal/repository/memstore"
	"examhub_backend/internal/service"
	"examhub_backend/internal/util"
	"examhub_backend/pkg/storage"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

const testSecret = "controller-test-secret-0123456789abcdef"

type testServer struct {
	router *gin.Engine
	store  *memstore.Store
	now    time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, util.RegisterValidators())

	ts := &testServer{store: memstore.New(), now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return ts.now }

	exams := service.NewExamService(ts.store)
	exams.Now = clock
	sessions := service.NewExamSessionService(ts.store, ts.store)
	sessions.Now = clock
	grading := service.NewGradingService(ts.store, ts.store)
	grading.Now = clock
	export := service.NewExportService(grading, &storage.LocalProvider{Root: t.TempDir()})
	stats := service.NewExamStatsService(ts.store, ts.store, model.DefaultPassingScore)

	examCtl := NewExamController(exams, stats, export)
	sessionCtl := NewExamSessionController(sessions)
	submissionCtl := NewSubmissionController(grading)

	r := gin.New()
	api := r.Group("/api", middleware.AuthMiddleware(testSecret))
	student := api.Group("/student", middleware.RoleMiddleware(model.Student))
	student.POST("/exams/:id/start", sessionCtl.StartExam)
	student.GET("/exams/:id/session", sessionCtl.GetSession)
	student.POST("/submissions/:id/submit", sessionCtl.SubmitAnswers)

	teacher := api.Group("/teacher", middleware.RoleMiddleware(model.Teacher))
	teacher.POST("/exams", examCtl.CreateExam)
	teacher.GET("/exams", examCtl.ListExams)
	teacher.GET("/exams/:id", examCtl.GetExam)
	teacher.PUT("/exams/:id", examCtl.UpdateExam)
	teacher.PATCH("/exams/:id/status", examCtl.UpdateStatus)
	teacher.GET("/exams/:id/stats", examCtl.GetStats)
	teacher.POST("/exams/:id/export", examCtl.ExportResults)
	teacher.GET("/exams/:id/submissions", submissionCtl.ListSubmissions)
	teacher.POST("/submissions/:id/grade", submissionCtl.GradeSubmission)

	ts.router = r
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, role model.UserRole, userID uint, body interface{}) (*httptest.ResponseRecorder, util.Response) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	tok, err := util.GenerateJWT(userID, role, testSecret, time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tok)

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var resp util.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

// seedActiveExam stores an active exam owned by teacher 10 with one question of each type.
func (ts *testServer) seedActiveExam(t *testing.T, endTime time.Time) *model.Exam {
	t.Helper()
	start := ts.now.Add(-time.Hour)
	exam := &model.Exam{
		CourseID:            1,
		TeacherID:           10,
		Title:               "Final",
		Duration:            45,
		StartTime:           &start,
		EndTime:             &endTime,
		Status:              model.ExamActive,
		MaxAttempts:         1,
		AllowLateSubmission: true,
		Questions: []model.Question{
			{Type: model.MultipleChoice, Prompt: "Pick B", Options: datatypes.NewJSONType([]string{"A", "B", "C"}), CorrectAnswer: datatypes.JSON(`1`), Points: 2, Explanation: "B is second"},
			{Type: model.TrueFalse, Prompt: "True?", Options: datatypes.NewJSONType([]string{}), CorrectAnswer: datatypes.JSON(`true`), Points: 1},
			{Type: model.FillBlank, Prompt: "Capital of France", Options: datatypes.NewJSONType([]string{}), CorrectAnswer: datatypes.JSON(`"Paris"`), Points: 3},
			{Type: model.Essay, Prompt: "Explain", Options: datatypes.NewJSONType([]string{}), Points: 4},
		},
	}
	require.NoError(t, ts.store.CreateExam(context.Background(), exam))
	return exam
}

func dataMap(t *testing.T, resp util.Response) map[string]interface{} {
	t.Helper()
	m, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "data is %T", resp.Data)
	return m
}
