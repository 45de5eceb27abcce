package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/helpdesk-core/internal/config"
	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/events"
	"github.com/spec-kit/helpdesk-core/internal/repository"
)

const misuseReportType = "TICKET_MISUSE"

// MisuseScanner mines recent ticket history for abuse patterns. Users are
// processed in fixed-size batches with bounded concurrency inside each batch;
// a single user's failure is logged and counted, never escalated.
type MisuseScanner struct {
	users      repository.UserRepository
	tickets    repository.TicketRepository
	violations repository.ViolationRepository
	reports    repository.MisuseReportRepository
	dispatcher events.Dispatcher
	cfg        config.ScanConfig
	logger     *zap.Logger
}

// MisuseScannerDependencies bundles collaborators for the scanner.
type MisuseScannerDependencies struct {
	UserRepo      repository.UserRepository
	TicketRepo    repository.TicketRepository
	ViolationRepo repository.ViolationRepository
	ReportRepo    repository.MisuseReportRepository
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
}

// NewMisuseScanner constructs the scanner.
func NewMisuseScanner(deps MisuseScannerDependencies, cfg config.ScanConfig) *MisuseScanner {
	return &MisuseScanner{
		users:      deps.UserRepo,
		tickets:    deps.TicketRepo,
		violations: deps.ViolationRepo,
		reports:    deps.ReportRepo,
		dispatcher: deps.Dispatcher,
		cfg:        cfg,
		logger:     deps.Logger,
	}
}

// Run scans all active end-users against the given lookback window and
// returns aggregate statistics. Cancellation is honored between batches,
// never mid-batch.
func (s *MisuseScanner) Run(ctx context.Context, window time.Duration) (*domain.ScanStats, error) {
	stats := &domain.ScanStats{StartedAt: time.Now().UTC()}
	since := stats.StartedAt.Add(-window)
	detectionDate := stats.StartedAt.Truncate(24 * time.Hour)

	batchSize := s.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 15
	}
	concurrency := s.cfg.BatchConcurrency
	if concurrency <= 0 {
		concurrency = 5
	}

	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("misuse scan cancelled between batches", zap.Int("users_scanned", stats.UsersScanned))
			break
		}

		batch, err := s.users.ListActiveEndUsers(ctx, batchSize, offset)
		if err != nil {
			stats.FinishedAt = time.Now().UTC()
			return stats, err
		}
		if len(batch) == 0 {
			break
		}

		s.scanBatch(ctx, batch, since, detectionDate, concurrency, stats)
		offset += len(batch)
		if len(batch) < batchSize {
			break
		}
	}

	stats.FinishedAt = time.Now().UTC()
	s.logger.Info("misuse scan finished",
		zap.Int("users_scanned", stats.UsersScanned),
		zap.Int("reports_created", stats.ReportsCreated),
		zap.Int("failures", stats.Failures),
		zap.Duration("took", stats.FinishedAt.Sub(stats.StartedAt)))
	return stats, nil
}

func (s *MisuseScanner) scanBatch(ctx context.Context, batch []domain.User, since, detectionDate time.Time, concurrency int, stats *domain.ScanStats) {
	var mu sync.Mutex
	group := new(errgroup.Group)
	group.SetLimit(concurrency)

	for i := range batch {
		user := batch[i]
		group.Go(func() error {
			created, err := s.scanUser(ctx, &user, since, detectionDate)
			mu.Lock()
			defer mu.Unlock()
			stats.UsersScanned++
			if err != nil {
				stats.Failures++
				s.logger.Warn("misuse scan failed for user", zap.String("user_id", user.ID), zap.Error(err))
				return nil
			}
			if created {
				stats.ReportsCreated++
			}
			return nil
		})
	}
	_ = group.Wait()
}

func (s *MisuseScanner) scanUser(ctx context.Context, user *domain.User, since, detectionDate time.Time) (bool, error) {
	tickets, err := s.tickets.ListByUserSince(ctx, user.ID, since)
	if err != nil {
		return false, err
	}

	patterns := s.detectPatterns(tickets)
	if len(patterns) < 2 {
		return false, nil
	}

	// Recent moderation rejections raise the severity of the finding.
	recentViolations, err := s.violations.CountByUserSince(ctx, user.ID, since)
	if err != nil {
		return false, err
	}

	confidence := 0.75
	if len(patterns) >= 3 {
		confidence = 0.9
	}
	severity := domain.SeverityMedium
	if len(patterns) >= 3 || recentViolations > 0 {
		severity = domain.SeverityHigh
	}

	report := &domain.MisuseReport{
		UserID:        user.ID,
		DetectionDate: detectionDate,
		Type:          misuseReportType,
		Severity:      severity,
		Evidence:      buildEvidence(tickets, patterns),
		Confidence:    confidence,
		Reasoning: fmt.Sprintf("%d suspicious patterns (%s) across %d tickets; %d recent moderation violations",
			len(patterns), strings.Join(patterns, ", "), len(tickets), recentViolations),
	}

	created, err := s.reports.CreateIfAbsent(ctx, report)
	if err != nil {
		return false, err
	}
	if !created {
		return false, nil
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:  events.EventMisuseReportCreated,
		Actor: events.Actor{Role: domain.RoleUser, UserID: user.ID},
		Payload: events.MisuseReportCreatedPayload{
			UserID:    user.ID,
			ReportID:  report.ID,
			Type:      report.Type,
			Severity:  report.Severity,
			Timestamp: report.CreatedAt,
		},
	})
	return true, nil
}

// detectPatterns evaluates the per-user heuristics. A user is flagged only
// when at least two independent patterns co-occur; the caller enforces that.
func (s *MisuseScanner) detectPatterns(tickets []domain.Ticket) []string {
	var patterns []string

	if len(tickets) >= s.cfg.VolumeThreshold {
		patterns = append(patterns, domain.PatternHighVolume)
	}

	titleCounts := make(map[string]int)
	for i := range tickets {
		titleCounts[normalizeTitle(tickets[i].Title)]++
	}
	for _, count := range titleCounts {
		if count >= s.cfg.DuplicateTitleThreshold {
			patterns = append(patterns, domain.PatternDuplicateTitles)
			break
		}
	}

	short := 0
	for i := range tickets {
		if len(strings.TrimSpace(tickets[i].Description)) < s.cfg.MinDescriptionLength {
			short++
		}
	}
	if short >= s.cfg.ShortDescriptionCount {
		patterns = append(patterns, domain.PatternShortDescriptions)
	}

	return patterns
}

func buildEvidence(tickets []domain.Ticket, patterns []string) domain.MisuseEvidence {
	evidence := domain.MisuseEvidence{
		Patterns:    patterns,
		Description: fmt.Sprintf("flagged by %s", strings.Join(patterns, "+")),
	}
	for i := range tickets {
		evidence.TicketIDs = append(evidence.TicketIDs, tickets[i].ID)
		if len(evidence.ContentSamples) < 3 {
			evidence.ContentSamples = append(evidence.ContentSamples, tickets[i].Title)
		}
	}
	return evidence
}

// normalizeTitle collapses case, whitespace and punctuation so trivially
// edited duplicates still match.
func normalizeTitle(title string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}
