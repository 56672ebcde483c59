package resume

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/muhammadolammi/ascend/internal/career"
	"github.com/muhammadolammi/ascend/internal/database"
)

// Upload describes one accepted resume.
type Upload struct {
	Owner     string
	FileName  string
	Mime      string
	Size      int64
	Provider  string
	ObjectKey string
	Analysis  career.ResumeAnalysis
}

// Recorder persists accepted uploads.
type Recorder interface {
	Record(ctx context.Context, u Upload) (uuid.UUID, error)
}

// DBRecorder writes uploads and their analysis to Postgres.
type DBRecorder struct {
	db *database.Queries
}

func NewDBRecorder(db *database.Queries) *DBRecorder {
	return &DBRecorder{db: db}
}

func (r *DBRecorder) Record(ctx context.Context, u Upload) (uuid.UUID, error) {
	provider := u.Provider
	if provider == "" {
		provider = "none"
	}
	row, err := r.db.CreateResume(ctx, database.CreateResumeParams{
		Owner:            u.Owner,
		OriginalFilename: u.FileName,
		Mime:             u.Mime,
		SizeBytes:        u.Size,
		StorageProvider:  provider,
		ObjectKey:        u.ObjectKey,
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("create resume: %w", err)
	}

	analysis, err := json.Marshal(u.Analysis)
	if err != nil {
		return row.ID, fmt.Errorf("failed to marshal resume analysis: %w", err)
	}
	err = r.db.CreateOrUpdateResumeAnalysis(ctx, database.CreateOrUpdateResumeAnalysisParams{
		Analysis: analysis,
		ResumeID: row.ID,
	})
	if err != nil {
		return row.ID, fmt.Errorf("save resume analysis: %w", err)
	}
	return row.ID, nil
}
