package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/kickoff-ai/core/pkg/analysis"
	"github.com/kickoff-ai/core/pkg/logger"
	"github.com/kickoff-ai/core/pkg/models"
	"github.com/kickoff-ai/core/pkg/storage"
)

// HistoryAnalyzer produces the tactical report over stored snapshots
type HistoryAnalyzer interface {
	AnalyzeHistory(ctx context.Context) (string, error)
}

// Notifier receives the notification announcing a new report
type Notifier interface {
	Add(title, message string, kind models.NotificationType) models.AppNotification
}

// AnalysisReport is the last scheduled report, as persisted
type AnalysisReport struct {
	Report      string    `json:"report"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// HistoryAnalysisJob asks the model for a report on the stored history and
// saves it. An empty history is not a failure.
type HistoryAnalysisJob struct {
	analyzer HistoryAnalyzer
	persist  *storage.Namespace
	notifier Notifier
	schedule string
}

// NewHistoryAnalysisJob creates the job. persist and notifier may be nil.
func NewHistoryAnalysisJob(analyzer HistoryAnalyzer, persist *storage.Namespace, notifier Notifier, schedule string) Job {
	if schedule == "" {
		schedule = "0 */6 * * *"
	}
	return &HistoryAnalysisJob{
		analyzer: analyzer,
		persist:  persist,
		notifier: notifier,
		schedule: schedule,
	}
}

func (j *HistoryAnalysisJob) Execute(ctx context.Context) error {
	log := logger.WithContext(ctx, "history-analysis")

	report, err := j.analyzer.AnalyzeHistory(ctx)
	if errors.Is(err, analysis.ErrNoHistory) {
		log.Info().Str("action", "analysis_skipped").Msg("No snapshots to analyze yet")
		return nil
	}
	if err != nil {
		return err
	}

	if j.persist != nil {
		if err := j.persist.SetJSON(ctx, storage.KeyAnalysis, AnalysisReport{Report: report, GeneratedAt: time.Now().UTC()}); err != nil {
			return err
		}
	}

	if j.notifier != nil {
		j.notifier.Add("Analisi Tattica", "Nuovo report disponibile sullo storico", models.NotificationInfo)
	}

	log.Info().
		Str("action", "analysis_stored").
		Int("report_length", len(report)).
		Msg("Tactical report generated")
	return nil
}

func (j *HistoryAnalysisJob) Name() string {
	return "history_analysis"
}

func (j *HistoryAnalysisJob) Schedule() string {
	return j.schedule
}
