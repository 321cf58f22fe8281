package market

import "github.com/haeminmoon/grvtgate/internal/model"

// Provider resolves instrument metadata for signing.
type Provider interface {
	Lookup(name string) (model.Instrument, bool)
	Instruments() map[string]model.Instrument
}
