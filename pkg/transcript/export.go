package transcript

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Summarizer produces a summary of a serialized transcript, or an empty
// string when no summary could be made.
type Summarizer interface {
	Summarize(ctx context.Context, csvPath string) (string, error)
}

// Uploader copies a local file to remote storage under the given name.
type Uploader interface {
	Upload(ctx context.Context, localPath, remoteName string) error
}

// ExportPipeline flushes a session transcript at session end: serialize to
// CSV, summarize, and, only when a summary was produced, upload the CSV
// under a timestamped name. Every failure is logged and absorbed; the
// session has already logically ended and nothing can act on an error.
type ExportPipeline struct {
	LocalPath     string
	Summarizer    Summarizer
	Uploader      Uploader
	UploadTimeout time.Duration
	Logger        *slog.Logger

	now func() time.Time // test hook
}

// NewExportPipeline creates a pipeline writing to localPath with the default
// 30 second upload bound.
func NewExportPipeline(localPath string, sum Summarizer, up Uploader, logger *slog.Logger) *ExportPipeline {
	return &ExportPipeline{
		LocalPath:     localPath,
		Summarizer:    sum,
		Uploader:      up,
		UploadTimeout: 30 * time.Second,
		Logger:        logger,
		now:           time.Now,
	}
}

// Flush serializes the log and runs summarize + upload. Failures at any
// stage are logged and absorbed; a failed save also skips the later stages.
func (p *ExportPipeline) Flush(ctx context.Context, log *Log) {
	if err := log.SaveCSV(p.LocalPath); err != nil {
		p.Logger.Error("transcript save failed",
			slog.String("path", p.LocalPath),
			slog.String("error", err.Error()))
		return
	}
	p.Logger.Info("transcript saved", slog.String("path", p.LocalPath), slog.Int("utterances", log.Len()))

	if p.Summarizer == nil {
		return
	}
	summary, err := p.Summarizer.Summarize(ctx, p.LocalPath)
	if err != nil {
		p.Logger.Error("transcript summarization failed", slog.String("error", err.Error()))
		return
	}
	if summary == "" {
		p.Logger.Info("no summary produced, skipping upload")
		return
	}
	p.Logger.Info("transcript summarized", slog.Int("summary_len", len(summary)))

	if p.Uploader == nil {
		return
	}
	remoteName := fmt.Sprintf("chat_%s.csv", p.now().Format("20060102_150405"))
	uploadCtx, cancel := context.WithTimeout(ctx, p.UploadTimeout)
	defer cancel()
	if err := p.Uploader.Upload(uploadCtx, p.LocalPath, remoteName); err != nil {
		p.Logger.Error("transcript upload failed", slog.String("error", err.Error()))
		return
	}
	p.Logger.Info("transcript uploaded", slog.String("remote_name", remoteName))
}
