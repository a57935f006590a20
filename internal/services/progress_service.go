package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	db "github.com/coursehub-api/coursehub/internal/core/database"
	"github.com/coursehub-api/coursehub/internal/core/errs"
	"github.com/coursehub-api/coursehub/internal/models"
)

// RecordProgressInput carries one incremental activity tick. Seconds is the
// delta since the caller's last successful sync, never a cumulative total.
type RecordProgressInput struct {
	UserID   string   `json:"-"`
	CourseID string   `json:"courseId"`
	VideoID  *string  `json:"videoId,omitempty"`
	Status   string   `json:"status"`
	Seconds  int      `json:"seconds"`
	Score    *float64 `json:"score,omitempty"`
}

// ProgressService merges incremental activity ticks into durable progress
// records and serves the learner analytics derived from them.
type ProgressService struct {
	db  db.DbClient
	now func() time.Time
}

func NewProgressService(dbClient db.DbClient) *ProgressService {
	return &ProgressService{db: dbClient, now: time.Now}
}

// RecordProgress reads the record for the exact (user, course, video-or-nil)
// key, adds the delta, applies the monotonic status upgrade and writes back
// via an idempotent upsert. Once completed, a record never regresses, and
// completedAt is set exactly once.
func (s *ProgressService) RecordProgress(ctx context.Context, input *RecordProgressInput) error {
	if input.CourseID == "" {
		return errs.BadRequest("Missing courseId")
	}
	if input.Seconds < 0 {
		return errs.BadRequest("seconds must be non-negative")
	}
	switch input.Status {
	case models.StatusNotStarted, models.StatusInProgress, models.StatusCompleted:
	default:
		return errs.BadRequest("invalid status")
	}

	existing, err := s.db.GetProgress(ctx, input.UserID, input.CourseID, input.VideoID)
	if err != nil {
		return fmt.Errorf("read progress: %w", err)
	}

	record := &models.ProgressRecord{
		ID:        uuid.NewString(),
		UserID:    input.UserID,
		CourseID:  input.CourseID,
		VideoID:   input.VideoID,
		Score:     input.Score,
		StartedAt: s.now(),
	}

	newSeconds := input.Seconds
	newStatus := input.Status
	if existing != nil {
		record.ID = existing.ID
		record.StartedAt = existing.StartedAt
		record.CompletedAt = existing.CompletedAt
		newSeconds += existing.TimeSpentSeconds
		if existing.Status == models.StatusCompleted {
			newStatus = models.StatusCompleted
		}
	}
	record.TimeSpentSeconds = newSeconds
	record.Status = newStatus
	if record.CompletedAt == nil && newStatus == models.StatusCompleted {
		now := s.now()
		record.CompletedAt = &now
	}

	if err := s.db.UpsertProgress(ctx, record); err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}

	return s.bumpStreak(ctx, input.UserID)
}

// MarkLessonCompleted force-completes one video's record, preserving
// accumulated time.
func (s *ProgressService) MarkLessonCompleted(ctx context.Context, userID, courseID, videoID string) error {
	return s.RecordProgress(ctx, &RecordProgressInput{
		UserID:   userID,
		CourseID: courseID,
		VideoID:  &videoID,
		Status:   models.StatusCompleted,
		Seconds:  0,
	})
}

func (s *ProgressService) CompletedVideoIDs(ctx context.Context, userID, courseID string) ([]string, error) {
	return s.db.ListCompletedVideoIDs(ctx, userID, courseID)
}

// bumpStreak advances the user's consecutive-day streak for today's activity:
// same day is a no-op, the day after the last activity extends the streak,
// anything else restarts it at 1.
func (s *ProgressService) bumpStreak(ctx context.Context, userID string) error {
	streak, err := s.db.GetStreak(ctx, userID)
	if err != nil {
		return fmt.Errorf("read streak: %w", err)
	}

	today := dateOnly(s.now())
	if streak == nil {
		return s.db.UpsertStreak(ctx, &models.LearningStreak{
			UserID:           userID,
			CurrentStreak:    1,
			LongestStreak:    1,
			LastActivityDate: today,
		})
	}

	last := dateOnly(streak.LastActivityDate)
	if last.Equal(today) {
		return nil
	}
	if last.AddDate(0, 0, 1).Equal(today) {
		streak.CurrentStreak++
	} else {
		streak.CurrentStreak = 1
	}
	if streak.CurrentStreak > streak.LongestStreak {
		streak.LongestStreak = streak.CurrentStreak
	}
	streak.LastActivityDate = today
	return s.db.UpsertStreak(ctx, streak)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// LearnerStats summarizes a user's overall engagement.
type LearnerStats struct {
	CompletionRate   float64 `json:"completionRate"` // 0..1
	TotalTimeSeconds int     `json:"totalTimeSeconds"`
	CurrentStreak    int     `json:"currentStreak"`
	LongestStreak    int     `json:"longestStreak"`
}

// GetLearnerStats fans out the progress and streak reads concurrently.
func (s *ProgressService) GetLearnerStats(ctx context.Context, userID string) (*LearnerStats, error) {
	var (
		rows   []models.ProgressRecord
		streak *models.LearningStreak
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.db.ListProgressByUser(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		streak, err = s.db.GetStreak(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("learner stats: %w", err)
	}

	stats := &LearnerStats{}
	completed := 0
	for _, r := range rows {
		if r.Status == models.StatusCompleted {
			completed++
		}
		stats.TotalTimeSeconds += r.TimeSpentSeconds
	}
	if len(rows) > 0 {
		stats.CompletionRate = float64(completed) / float64(len(rows))
	}
	if streak != nil {
		stats.CurrentStreak = streak.CurrentStreak
		stats.LongestStreak = streak.LongestStreak
	}
	return stats, nil
}

// ContinueLearningItem is one course the user has unfinished activity in.
type ContinueLearningItem struct {
	Course           models.Course `json:"course"`
	LatestStatus     string        `json:"latestStatus"`
	TimeSpentSeconds int           `json:"timeSpentSeconds"`
}

// GetContinueLearning aggregates non-completed records by course.
func (s *ProgressService) GetContinueLearning(ctx context.Context, userID string) ([]ContinueLearningItem, error) {
	rows, err := s.db.ListProgressByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("continue learning: %w", err)
	}

	type agg struct {
		status string
		time   int
	}
	byCourse := map[string]*agg{}
	var order []string
	for _, r := range rows {
		if r.Status == models.StatusCompleted {
			continue
		}
		a, ok := byCourse[r.CourseID]
		if !ok {
			a = &agg{status: r.Status}
			byCourse[r.CourseID] = a
			order = append(order, r.CourseID)
		}
		a.time += r.TimeSpentSeconds
	}

	items := make([]ContinueLearningItem, 0, len(order))
	for _, courseID := range order {
		course, err := s.db.GetCourseByID(ctx, courseID)
		if err != nil {
			return nil, fmt.Errorf("continue learning: %w", err)
		}
		if course == nil {
			continue
		}
		a := byCourse[courseID]
		items = append(items, ContinueLearningItem{
			Course:           *course,
			LatestStatus:     a.status,
			TimeSpentSeconds: a.time,
		})
	}
	return items, nil
}

// ActivityPoint is one day's total recorded seconds.
type ActivityPoint struct {
	Date    string `json:"date"` // YYYY-MM-DD
	Seconds int    `json:"seconds"`
}

// GetActivitySeries buckets recorded time by day over the timeframe
// ("day" = 1, "week" = 7, "month" = 30 days), zero-filling missing days.
func (s *ProgressService) GetActivitySeries(ctx context.Context, userID, timeframe string) ([]ActivityPoint, error) {
	days := 7
	switch timeframe {
	case "day":
		days = 1
	case "month":
		days = 30
	case "", "week":
	default:
		return nil, errs.BadRequest("invalid timeframe")
	}

	since := dateOnly(s.now()).AddDate(0, 0, -days+1)
	rows, err := s.db.ListProgressByUserSince(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("activity series: %w", err)
	}

	buckets := map[string]int{}
	for _, r := range rows {
		key := dateOnly(r.CreatedAt).Format("2006-01-02")
		buckets[key] += r.TimeSpentSeconds
	}

	points := make([]ActivityPoint, 0, days)
	for i := 0; i < days; i++ {
		key := since.AddDate(0, 0, i).Format("2006-01-02")
		points = append(points, ActivityPoint{Date: key, Seconds: buckets[key]})
	}
	return points, nil
}
