package consultant

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/srclab/consultant/internal/apperrors"
	"github.com/srclab/consultant/internal/config"
	"github.com/srclab/consultant/internal/httpclient"
)

// New returns the concrete adapter for the configured vendor tag behind the
// unified contract.
func New(cfg *config.Config, doer httpclient.Doer, logger *zap.Logger) (Consultant, error) {
	loc := cfg.Location()

	switch cfg.OnlineConsultant {
	case config.VendorTalkMe:
		return NewTalkMe(cfg.TalkMe, doer, logger.Named("talkme"), loc)
	case config.VendorWebim:
		return NewWebim(cfg.Webim, doer, logger.Named("webim"), loc)
	}

	return nil, apperrors.NewConfigError(
		fmt.Sprintf("unknown online consultant %q", cfg.OnlineConsultant), nil)
}
