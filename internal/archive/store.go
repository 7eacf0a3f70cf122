package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/wolfman30/leadchat-ai/internal/leads"
	"github.com/wolfman30/leadchat-ai/pkg/logging"
)

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// ManifestEntry is one line of the monthly report manifest.
type ManifestEntry struct {
	LeadID     string `json:"lead_id"`
	SessionID  string `json:"session_id"`
	S3Key      string `json:"s3_key"`
	Status     string `json:"status"`
	ArchivedAt string `json:"archived_at"`
}

// Store archives final lead reports to S3.
type Store struct {
	bucket   string
	s3Client S3API
	logger   *logging.Logger
	now      func() time.Time
}

var _ leads.Archiver = (*Store)(nil)

// NewStore creates an archive Store. If bucket is empty, all operations are no-ops.
func NewStore(s3Client S3API, bucket string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{
		bucket:   bucket,
		s3Client: s3Client,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Enabled returns true if archival is configured (bucket is set).
func (s *Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3Client != nil
}

// ReportKey is the object key of a lead's report.
func ReportKey(lead *leads.Lead) string {
	t := lead.CreatedAt.UTC()
	return fmt.Sprintf("reports/%d/%02d/%02d/%s.md", t.Year(), t.Month(), t.Day(), lead.ID)
}

// ArchiveReport writes the lead's final report as Markdown and records it in
// the monthly manifest. Leads without a report are skipped.
func (s *Store) ArchiveReport(ctx context.Context, lead *leads.Lead) error {
	if !s.Enabled() {
		return nil
	}
	if strings.TrimSpace(lead.Report) == "" {
		s.logger.Debug("archive: lead has no report", "lead_id", lead.ID)
		return nil
	}
	if lead.ID == "" {
		return errors.New("archive: lead id required")
	}

	key := ReportKey(lead)
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(renderReport(lead)),
		ContentType: aws.String("text/markdown; charset=utf-8"),
		Metadata: map[string]string{
			"session-id": lead.SessionID,
			"status":     string(lead.Status),
		},
	})
	if err != nil {
		return fmt.Errorf("archive: s3 put %s: %w", key, err)
	}
	s.logger.Info("archived lead report to S3", "lead_id", lead.ID, "s3_key", key)

	entry := ManifestEntry{
		LeadID:     lead.ID,
		SessionID:  lead.SessionID,
		S3Key:      key,
		Status:     string(lead.Status),
		ArchivedAt: s.now().Format(time.RFC3339),
	}
	if err := s.AppendManifest(ctx, entry); err != nil {
		// The report itself is stored.
		s.logger.Warn("failed to append manifest", "error", err, "lead_id", lead.ID)
	}
	return nil
}

// AppendManifest appends a JSONL line to the monthly manifest file.
// S3 has no append, so this is read-modify-write.
func (s *Store) AppendManifest(ctx context.Context, entry ManifestEntry) error {
	if !s.Enabled() {
		return nil
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("archive: marshal manifest entry: %w", err)
	}

	now := s.now()
	manifestKey := fmt.Sprintf("reports/manifests/%d-%02d.jsonl", now.Year(), now.Month())

	var existing []byte
	getResp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(manifestKey),
	})
	switch {
	case err == nil:
		existing, err = io.ReadAll(getResp.Body)
		getResp.Body.Close()
		if err != nil {
			return fmt.Errorf("archive: read manifest: %w", err)
		}
	case isNotFound(err):
		s.logger.Debug("manifest not found, creating new", "key", manifestKey)
	default:
		return fmt.Errorf("archive: s3 get manifest: %w", err)
	}

	var buf bytes.Buffer
	if len(existing) > 0 {
		buf.Write(existing)
		if existing[len(existing)-1] != '\n' {
			buf.WriteByte('\n')
		}
	}
	buf.Write(line)
	buf.WriteByte('\n')

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(manifestKey),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("archive: s3 put manifest: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *s3types.NotFound
	return errors.As(err, &nf)
}

func renderReport(lead *leads.Lead) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Project brief: %s\n\n", lead.Name)
	fmt.Fprintf(&b, "- Status: %s\n", lead.Status)
	if lead.MeetingTime != "" {
		fmt.Fprintf(&b, "- Meeting: %s\n", lead.MeetingTime)
	}
	fmt.Fprintf(&b, "- Created: %s\n\n", lead.CreatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "## Idea\n\n%s\n\n", lead.Description)
	if len(lead.Answers) > 0 {
		b.WriteString("## Answers\n\n")
		for _, a := range lead.Answers {
			fmt.Fprintf(&b, "- **%s** %s\n", a.Question, a.Answer)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "## Report\n\n%s\n", strings.TrimSpace(lead.Report))
	return b.String()
}
