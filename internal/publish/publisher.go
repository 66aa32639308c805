package publish

import (
	"context"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/JoshuaAcosta/NYC-property-sales-etl/internal/config"
	apperrors "github.com/JoshuaAcosta/NYC-property-sales-etl/internal/errors"
)

var contentTypes = map[string]string{
	".csv":  "text/csv",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".json": "application/json",
	".prom": "text/plain; version=0.0.4",
}

// Publisher copies run outputs to a Store.
type Publisher struct {
	store  Store
	prefix string
	logger *slog.Logger
}

// NewPublisher creates a publisher writing keys below prefix.
func NewPublisher(store Store, prefix string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		store:  store,
		prefix: strings.Trim(prefix, "/"),
		logger: logger,
	}
}

// FromConfig returns the publisher cfg describes, or nil when publication is
// not configured. A directory takes precedence over a bucket.
func FromConfig(ctx context.Context, cfg config.PublishConfig, logger *slog.Logger) (*Publisher, error) {
	switch {
	case cfg.Dir != "":
		return NewPublisher(NewFSStore(cfg.Dir), cfg.Prefix, logger), nil
	case cfg.Bucket != "":
		store, err := NewS3Store(ctx, S3Config{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			PathStyle: cfg.PathStyle,
		})
		if err != nil {
			return nil, apperrors.NewConfigError("configure publication", err)
		}
		return NewPublisher(store, cfg.Prefix, logger), nil
	default:
		return nil, nil
	}
}

// Key returns the object key a local file is published under.
func (p *Publisher) Key(localPath string) string {
	name := filepath.Base(localPath)
	if p.prefix == "" {
		return name
	}
	return path.Join(p.prefix, name)
}

// Publish uploads each file in order and returns where each one went. The
// first failure stops publication.
func (p *Publisher) Publish(ctx context.Context, paths []string) ([]string, error) {
	locations := make([]string, 0, len(paths))
	for _, local := range paths {
		loc, err := p.publishFile(ctx, local)
		if err != nil {
			return locations, err
		}
		locations = append(locations, loc)
		p.logger.InfoContext(ctx, "Published output",
			slog.String("file", local),
			slog.String("location", loc))
	}
	return locations, nil
}

func (p *Publisher) publishFile(ctx context.Context, local string) (string, error) {
	f, err := os.Open(local)
	if err != nil {
		return "", apperrors.NewFatalIOError("open "+local, err)
	}
	defer f.Close()

	ct := contentTypes[strings.ToLower(filepath.Ext(local))]
	loc, err := p.store.Put(ctx, p.Key(local), f, ct)
	if err != nil {
		return "", apperrors.NewFatalIOError("publish "+local, err)
	}
	return loc, nil
}
