package consultant

import (
	"testing"

	"go.uber.org/zap"

	"github.com/srclab/consultant/internal/apperrors"
	"github.com/srclab/consultant/internal/config"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("talk_me", func(t *testing.T) {
		t.Parallel()

		cfg := &config.Config{
			OnlineConsultant: config.VendorTalkMe,
			TalkMe:           config.TalkMe{APIToken: "tok", DefaultOperator: "op"},
		}

		c, err := New(cfg, &fakeDoer{}, zap.NewNop())
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		if c.Name() != config.VendorTalkMe {
			t.Errorf("name = %q", c.Name())
		}
	})

	t.Run("webim", func(t *testing.T) {
		t.Parallel()

		cfg := &config.Config{
			OnlineConsultant: config.VendorWebim,
			Webim: config.Webim{
				APIToken: "tok", Subdomain: "acme", Login: "l", Password: "p",
			},
		}

		c, err := New(cfg, &fakeDoer{}, zap.NewNop())
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		if c.Name() != config.VendorWebim {
			t.Errorf("name = %q", c.Name())
		}
	})

	t.Run("unknown vendor", func(t *testing.T) {
		t.Parallel()

		_, err := New(&config.Config{OnlineConsultant: "intercom"}, &fakeDoer{}, zap.NewNop())
		if !apperrors.IsCode(err, apperrors.CodeConfig) {
			t.Errorf("want a CONFIG error, got %v", err)
		}
	})

	t.Run("misconfigured vendor credentials surface", func(t *testing.T) {
		t.Parallel()

		_, err := New(&config.Config{OnlineConsultant: config.VendorWebim}, &fakeDoer{}, zap.NewNop())
		if !apperrors.IsCode(err, apperrors.CodeConfig) {
			t.Errorf("want a CONFIG error, got %v", err)
		}
	})
}
