package carriers

import (
	"github.com/soukly/soukly-backend/pkg/config"
	"github.com/soukly/soukly-backend/pkg/enums"
	"github.com/soukly/soukly-backend/pkg/logger"
)

// Factory hands out the adapter for a carrier. Unknown carriers fall back to
// the local courier so a bad carrier value can never block a shipment.
type Factory struct {
	adapters map[enums.Carrier]Adapter
	fallback Adapter
}

// NewFactory builds one adapter per configured carrier.
func NewFactory(cfg config.CarriersConfig, logg *logger.Logger) *Factory {
	local := &localAdapter{}
	return &Factory{
		adapters: map[enums.Carrier]Adapter{
			enums.CarrierAmana: &amanaAdapter{
				http: newHTTPClient(cfg.AmanaBaseURL, cfg.AmanaAPIKey, cfg.HTTPTimeout, cfg.MaxRetries, cfg.RetryBackoff, logg),
			},
			enums.CarrierCTM: &ctmAdapter{
				http: newHTTPClient(cfg.CTMBaseURL, cfg.CTMAPIKey, cfg.HTTPTimeout, cfg.MaxRetries, cfg.RetryBackoff, logg),
			},
			enums.CarrierCathedis: &cathedisAdapter{
				http: newHTTPClient(cfg.CathedisBaseURL, cfg.CathedisAPIKey, cfg.HTTPTimeout, cfg.MaxRetries, cfg.RetryBackoff, logg),
			},
			enums.CarrierLocal: local,
		},
		fallback: local,
	}
}

// Adapter returns the adapter for the carrier, or the local fallback.
func (f *Factory) Adapter(carrier enums.Carrier) Adapter {
	if adapter, ok := f.adapters[carrier]; ok {
		return adapter
	}
	return f.fallback
}

// All returns every configured adapter in a stable order, used when quoting
// across carriers.
func (f *Factory) All() []Adapter {
	ordered := []enums.Carrier{
		enums.CarrierAmana,
		enums.CarrierCTM,
		enums.CarrierCathedis,
		enums.CarrierLocal,
	}
	adapters := make([]Adapter, 0, len(ordered))
	for _, carrier := range ordered {
		if adapter, ok := f.adapters[carrier]; ok {
			adapters = append(adapters, adapter)
		}
	}
	return adapters
}
