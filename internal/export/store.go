package export

import (
	"context"

	"github.com/koustreak/dbdeck/internal/errs"
	"github.com/koustreak/dbdeck/internal/filestore"
	"github.com/koustreak/dbdeck/internal/filestore/local"
	"github.com/koustreak/dbdeck/internal/filestore/minio"
	"github.com/koustreak/dbdeck/internal/logger"
)

// OpenStore builds the sink cfg selects. The local provider writes to the OS
// filesystem.
func OpenStore(ctx context.Context, cfg *filestore.Config, log *logger.Logger) (filestore.Store, error) {
	switch cfg.Provider {
	case "", filestore.ProviderLocal:
		return local.New(cfg, nil, log)
	case filestore.ProviderMinIO:
		return minio.New(ctx, cfg, log)
	}
	return nil, errs.Newf(errs.ErrKindInvalidConfig, "unknown export provider %q", cfg.Provider)
}
