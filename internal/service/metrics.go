package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mnemolab/revise/internal/domain"
	"go.uber.org/zap"
)

// MetricsConfig holds the alerting and training thresholds.
type MetricsConfig struct {
	TierAccuracyMin          float64
	AutoSupersedeAccuracyMin float64
	FalsePositiveMax         float64
	FirstTrainExamples       int
	RetrainExamples          int
}

func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		TierAccuracyMin:          0.85,
		AutoSupersedeAccuracyMin: 0.95,
		FalsePositiveMax:         0.15,
		FirstTrainExamples:       500,
		RetrainExamples:          2000,
	}
}

// MetricsService records detection telemetry and computes the weekly
// accuracy aggregates that drive alerting and classifier training.
type MetricsService struct {
	cfg    MetricsConfig
	events domain.EventStore
	logger *zap.Logger
}

func NewMetricsService(cfg MetricsConfig, events domain.EventStore, logger *zap.Logger) *MetricsService {
	return &MetricsService{cfg: cfg, events: events, logger: logger}
}

// LogEvent records one pipeline run.
func (s *MetricsService) LogEvent(ctx context.Context, ev *domain.DetectionEvent) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	return s.events.Create(ctx, ev)
}

// RecordFeedback attaches user agreement to an earlier detection event.
func (s *MetricsService) RecordFeedback(ctx context.Context, eventID uuid.UUID, agreed bool) error {
	return s.events.RecordFeedback(ctx, eventID, agreed)
}

// WeeklyReport aggregates the last seven days of detection events into
// per-tier accuracy, false-positive rate, auto-supersede accuracy and a
// per-mode breakdown.
func (s *MetricsService) WeeklyReport(ctx context.Context, tenantID uuid.UUID, now time.Time) (*domain.AccuracyMetrics, error) {
	since := now.Add(-7 * 24 * time.Hour)
	events, err := s.events.ListSince(ctx, tenantID, since)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return Aggregate(events, since, now), nil
}

// Aggregate computes accuracy metrics over a set of events. Pure; exposed
// for tests and offline analysis.
func Aggregate(events []domain.DetectionEvent, start, end time.Time) *domain.AccuracyMetrics {
	m := &domain.AccuracyMetrics{
		PeriodStart: start,
		PeriodEnd:   end,
		TotalEvents: len(events),
	}

	type tierAgg struct{ events, withFeedback, agreements int }
	tiers := make(map[domain.Tier]*tierAgg)
	modes := make(map[domain.AccuracyMode]*domain.ModeBreakdown)

	var detected, confirmedWrong int
	var autoResolved, autoWithFeedback, autoAgreed int

	for i := range events {
		ev := &events[i]

		ta := tiers[ev.TierReached]
		if ta == nil {
			ta = &tierAgg{}
			tiers[ev.TierReached] = ta
		}
		ta.events++
		if ev.UserAgreed != nil {
			ta.withFeedback++
			if *ev.UserAgreed {
				ta.agreements++
			}
		}

		mb := modes[ev.Mode]
		if mb == nil {
			mb = &domain.ModeBreakdown{Mode: ev.Mode}
			modes[ev.Mode] = mb
		}
		mb.Events++
		if ev.AutoResolved {
			mb.AutoResolved++
		}

		if ev.Detected {
			detected++
			if ev.UserAgreed != nil && !*ev.UserAgreed {
				confirmedWrong++
			}
		}
		if ev.AutoResolved {
			autoResolved++
			if ev.UserAgreed != nil {
				autoWithFeedback++
				if *ev.UserAgreed {
					autoAgreed++
				}
			}
		}
	}

	for _, tier := range domain.TierOrder {
		ta, ok := tiers[tier]
		if !ok {
			continue
		}
		acc := domain.TierAccuracy{
			Tier:         tier,
			Events:       ta.events,
			WithFeedback: ta.withFeedback,
			Agreements:   ta.agreements,
		}
		if ta.withFeedback > 0 {
			acc.Accuracy = float64(ta.agreements) / float64(ta.withFeedback)
		}
		m.PerTier = append(m.PerTier, acc)
	}

	if detected > 0 {
		m.FalsePositiveRate = float64(confirmedWrong) / float64(detected)
	}
	if autoWithFeedback > 0 {
		m.AutoSupersedeAccuracy = float64(autoAgreed) / float64(autoWithFeedback)
	} else if autoResolved > 0 {
		m.AutoSupersedeAccuracy = 1.0 // no feedback yet; assume clean until told otherwise
	}

	for _, mode := range []domain.AccuracyMode{domain.ModeFast, domain.ModeBalanced, domain.ModeThorough, domain.ModeManual} {
		if mb, ok := modes[mode]; ok {
			m.PerMode = append(m.PerMode, *mb)
		}
	}
	return m
}

// Alerts compares a weekly report against the configured thresholds.
func (s *MetricsService) Alerts(m *domain.AccuracyMetrics) []domain.Alert {
	var alerts []domain.Alert
	for _, t := range m.PerTier {
		if t.WithFeedback == 0 {
			continue
		}
		if t.Accuracy < s.cfg.TierAccuracyMin {
			alerts = append(alerts, domain.Alert{
				Kind:      domain.AlertTierAccuracy,
				Tier:      t.Tier,
				Value:     t.Accuracy,
				Threshold: s.cfg.TierAccuracyMin,
				Message:   fmt.Sprintf("tier %s accuracy %.2f below %.2f", t.Tier, t.Accuracy, s.cfg.TierAccuracyMin),
			})
		}
	}
	if m.AutoSupersedeAccuracy > 0 && m.AutoSupersedeAccuracy < s.cfg.AutoSupersedeAccuracyMin {
		alerts = append(alerts, domain.Alert{
			Kind:      domain.AlertAutoSupersedeAccuracy,
			Value:     m.AutoSupersedeAccuracy,
			Threshold: s.cfg.AutoSupersedeAccuracyMin,
			Message:   fmt.Sprintf("auto-supersede accuracy %.2f below %.2f", m.AutoSupersedeAccuracy, s.cfg.AutoSupersedeAccuracyMin),
		})
	}
	if m.FalsePositiveRate > s.cfg.FalsePositiveMax {
		alerts = append(alerts, domain.Alert{
			Kind:      domain.AlertFalsePositiveRate,
			Value:     m.FalsePositiveRate,
			Threshold: s.cfg.FalsePositiveMax,
			Message:   fmt.Sprintf("false-positive rate %.2f above %.2f", m.FalsePositiveRate, s.cfg.FalsePositiveMax),
		})
	}
	if len(alerts) > 0 {
		s.logger.Warn("accuracy alerts raised", zap.Int("count", len(alerts)))
	}
	return alerts
}

// TrainingRecommendation says whether the classifier tier has accumulated
// enough labeled examples for a first build or a retrain.
func (s *MetricsService) TrainingRecommendation(ctx context.Context, tenantID uuid.UUID, hasModel bool) (*domain.TrainingRecommendation, error) {
	labeled, err := s.events.CountLabeled(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("count labeled: %w", err)
	}

	rec := &domain.TrainingRecommendation{LabeledExamples: labeled, Retrain: hasModel}
	threshold := s.cfg.FirstTrainExamples
	if hasModel {
		threshold = s.cfg.RetrainExamples
	}
	if labeled >= threshold {
		rec.Recommended = true
		rec.Reason = fmt.Sprintf("%d labeled examples (threshold %d)", labeled, threshold)
	} else {
		rec.Reason = fmt.Sprintf("%d labeled examples, need %d", labeled, threshold)
	}
	return rec, nil
}
