package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/leadchat-ai/internal/archive"
	appconfig "github.com/wolfman30/leadchat-ai/internal/config"
	"github.com/wolfman30/leadchat-ai/internal/leads"
	"github.com/wolfman30/leadchat-ai/internal/notify"
	"github.com/wolfman30/leadchat-ai/internal/observability/metrics"
	"github.com/wolfman30/leadchat-ai/pkg/logging"
)

// BuildLeadRepository uses Postgres when a pool is available.
func BuildLeadRepository(pool *pgxpool.Pool, logger *logging.Logger) leads.Repository {
	if pool == nil {
		if logger != nil {
			logger.Warn("DATABASE_URL not set; leads are kept in memory")
		}
		return leads.NewInMemoryRepository()
	}
	return leads.NewPostgresRepository(pool)
}

// BuildEmailSender selects the e-mail provider from EMAIL_PROVIDER:
// "sendgrid", "ses", "stub", or "auto" (SendGrid, then SES, then stub).
func BuildEmailSender(ctx context.Context, cfg *appconfig.Config, loadAWS AWSLoader, logger *logging.Logger) (notify.EmailSender, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.EmailProvider))
	switch provider {
	case "stub":
		return notify.NewStubEmailSender(logger), nil
	case "sendgrid", "ses", "auto", "":
	default:
		return nil, fmt.Errorf("bootstrap: unknown EMAIL_PROVIDER %q", cfg.EmailProvider)
	}

	if provider != "ses" {
		if sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); sender != nil {
			return sender, nil
		}
		if provider == "sendgrid" {
			return nil, fmt.Errorf("bootstrap: SENDGRID_API_KEY is required for the sendgrid provider")
		}
	}

	if cfg.SESFromEmail != "" && loadAWS != nil {
		awsCfg, err := loadAWS(ctx)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		if sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); sender != nil {
			return sender, nil
		}
	}
	if provider == "ses" {
		return nil, fmt.Errorf("bootstrap: SES_FROM_EMAIL is required for the ses provider")
	}

	logger.Warn("no e-mail provider configured; lead e-mails are logged only")
	return notify.NewStubEmailSender(logger), nil
}

// BuildLeadDispatcher wires the lead sink: repository first, then the team
// e-mail, the queue event and the report archive when each is configured.
func BuildLeadDispatcher(ctx context.Context, cfg *appconfig.Config, repo leads.Repository, loadAWS AWSLoader, m *metrics.ConversationMetrics, logger *logging.Logger) (*leads.Dispatcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	opts := []leads.DispatcherOption{leads.WithMetrics(m)}
	if cfg.LeadDeliveryTimeout > 0 {
		opts = append(opts, leads.WithTimeout(cfg.LeadDeliveryTimeout))
	}

	if recipients := splitList(cfg.TeamEmail); len(recipients) > 0 {
		sender, err := BuildEmailSender(ctx, cfg, loadAWS, logger)
		if err != nil {
			return nil, err
		}
		opts = append(opts, leads.WithNotifier(notify.NewLeadNotifier(sender, recipients, logger)))
	} else {
		logger.Warn("TEAM_EMAIL not set; lead e-mails disabled")
	}

	if cfg.LeadQueueURL != "" || cfg.ReportArchiveBucket != "" {
		if loadAWS == nil {
			return nil, fmt.Errorf("bootstrap: aws config loader is required for the lead queue and archive")
		}
		awsCfg, err := loadAWS(ctx)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		if cfg.LeadQueueURL != "" {
			opts = append(opts, leads.WithPublisher(leads.NewQueueSink(sqs.NewFromConfig(awsCfg), cfg.LeadQueueURL)))
			logger.Info("lead queue enabled", "queue_url", cfg.LeadQueueURL)
		}
		if cfg.ReportArchiveBucket != "" {
			opts = append(opts, leads.WithArchiver(archive.NewStore(s3.NewFromConfig(awsCfg), cfg.ReportArchiveBucket, logger)))
			logger.Info("report archive enabled", "bucket", cfg.ReportArchiveBucket)
		}
	}

	return leads.NewDispatcher(repo, logger, opts...), nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
