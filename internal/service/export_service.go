package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"examhub_backend/internal/model"
	"examhub_backend/internal/util"
	"examhub_backend/pkg/logger"
	"examhub_backend/pkg/storage"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
)

type ExportService struct {
	Grading *GradingService
	Storage storage.Provider
	Now     func() time.Time
}

func NewExportService(grading *GradingService, provider storage.Provider) *ExportService {
	return &ExportService{Grading: grading, Storage: provider, Now: time.Now}
}

type ExportResult struct {
	URL         string `json:"url"`
	Filename    string `json:"filename"`
	Submissions int    `json:"submissions"`
}

// ExportResults writes every submission of the exam as one CSV row and uploads the file.
func (s *ExportService) ExportResults(ctx context.Context, actor model.Identity, examID string) (*ExportResult, error) {
	list, err := s.Grading.ListSubmissions(ctx, actor, examID)
	if err != nil {
		return nil, err
	}

	data, err := renderResultsCSV(list)
	if err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("exams/%s/results-%s.csv", examID, s.Now().Format("20060102150405"))
	url, err := s.Storage.Upload(ctx, filename, bytes.NewReader(data), int64(len(data)), util.MimeCSV)
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Exam results exported",
		zap.String("examID", examID),
		zap.String("file", filename),
		zap.Int("rows", len(list.Submissions)))
	return &ExportResult{URL: url, Filename: filename, Submissions: len(list.Submissions)}, nil
}

func renderResultsCSV(list *SubmissionDetailList) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"submissionId", "studentId", "attempt", "status", "score", "totalPoints",
		"percentage", "timeSpentMinutes", "startedAt", "submittedAt", "isLate"}
	for i := range list.Questions {
		header = append(header, fmt.Sprintf("q%d", i+1))
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for i := range list.Submissions {
		sub := &list.Submissions[i]
		submittedAt := ""
		if sub.SubmittedAt != nil {
			submittedAt = sub.SubmittedAt.Format(util.TimeFormat)
		}
		row := []string{
			sub.ID,
			strconv.FormatUint(uint64(sub.StudentID), 10),
			strconv.Itoa(sub.Attempt),
			string(sub.Status),
			strconv.Itoa(sub.Score),
			strconv.Itoa(sub.TotalPoints),
			strconv.Itoa(sub.Percentage),
			strconv.Itoa(sub.TimeSpent),
			sub.StartedAt.Format(util.TimeFormat),
			submittedAt,
			strconv.FormatBool(sub.IsLate),
		}
		for _, a := range alignAnswers(list.Questions, sub.AnswerList()) {
			row = append(row, strconv.Itoa(a.PointsAwarded))
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}
