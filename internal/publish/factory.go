package publish

import (
	"context"

	"github.com/expressjs/perf-runner/internal/config"
	"github.com/sirupsen/logrus"
)

// FromConfig builds the publishers enabled by cfg. A sink that cannot be set
// up is logged and left out; the run goes ahead without it.
func FromConfig(ctx context.Context, log logrus.FieldLogger, cfg *config.Config) *Multi {
	var publishers []Publisher

	switch {
	case cfg.ResultUploadURL == "":
	case IsGCSURL(cfg.ResultUploadURL):
		gcs, err := NewGCSUploader(ctx, cfg.ResultUploadURL, cfg.GCSCredentialsFile)
		if err != nil {
			log.WithError(err).Warn("gcs upload disabled")
		} else {
			publishers = append(publishers, gcs)
		}
	default:
		publishers = append(publishers, NewHTTPUploader(cfg.ResultUploadURL, nil))
	}

	if cfg.ClickHouseURL != "" {
		ch, err := NewClickHouse(ctx, log, cfg.ClickHouseURL, NewHostGuard(log, cfg.ClickHouseSafeHosts))
		if err != nil {
			log.WithError(err).Warn("clickhouse history disabled")
		} else {
			publishers = append(publishers, ch)
		}
	}

	if cfg.PushgatewayURL != "" {
		publishers = append(publishers, NewPushgateway(cfg.PushgatewayURL, nil))
	}

	return NewMulti(log, publishers...)
}
