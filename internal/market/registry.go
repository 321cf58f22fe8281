package market

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/haeminmoon/grvtgate/internal/config"
	"github.com/haeminmoon/grvtgate/internal/model"
	"github.com/shopspring/decimal"
)

// maxBaseDecimals keeps size*10^decimals inside uint64 for sane sizes.
const maxBaseDecimals = 18

// InstrumentRegistry is an immutable instrument table keyed by name.
type InstrumentRegistry struct {
	byName map[string]model.Instrument
}

func NewInstrumentRegistry(items []model.Instrument) (*InstrumentRegistry, error) {
	byName := make(map[string]model.Instrument, len(items))
	for i, inst := range items {
		if err := validate(inst); err != nil {
			return nil, fmt.Errorf("instruments[%d]: %w", i, err)
		}
		if _, dup := byName[inst.Instrument]; dup {
			return nil, fmt.Errorf("instruments[%d]: duplicate instrument %q", i, inst.Instrument)
		}
		byName[inst.Instrument] = inst
	}
	return &InstrumentRegistry{byName: byName}, nil
}

func NewInstrumentRegistryFromConfig(items []config.InstrumentConfig) (*InstrumentRegistry, error) {
	out := make([]model.Instrument, 0, len(items))
	for _, c := range items {
		out = append(out, model.Instrument{
			Instrument:     strings.TrimSpace(c.Instrument),
			InstrumentHash: strings.TrimSpace(c.InstrumentHash),
			Base:           model.Currency(strings.ToUpper(c.Base)),
			Quote:          model.Currency(strings.ToUpper(c.Quote)),
			Kind:           model.Kind(strings.ToUpper(c.Kind)),
			BaseDecimals:   c.BaseDecimals,
			QuoteDecimals:  c.QuoteDecimals,
			TickSize:       c.TickSize,
			MinSize:        c.MinSize,
		})
	}
	return NewInstrumentRegistry(out)
}

func validate(inst model.Instrument) error {
	if inst.Instrument == "" {
		return fmt.Errorf("instrument name is required")
	}
	if inst.InstrumentHash == "" {
		return fmt.Errorf("%s: instrument_hash is required", inst.Instrument)
	}
	if n, ok := math.ParseBig256(inst.InstrumentHash); !ok || n.Sign() < 0 {
		return fmt.Errorf("%s: instrument_hash %q is not a uint256", inst.Instrument, inst.InstrumentHash)
	}
	if inst.BaseDecimals < 0 || inst.BaseDecimals > maxBaseDecimals {
		return fmt.Errorf("%s: base_decimals %d out of range", inst.Instrument, inst.BaseDecimals)
	}
	for field, v := range map[string]string{"tick_size": inst.TickSize, "min_size": inst.MinSize} {
		if v == "" {
			continue
		}
		if _, err := decimal.NewFromString(v); err != nil {
			return fmt.Errorf("%s: invalid %s %q", inst.Instrument, field, v)
		}
	}
	return nil
}

func (r *InstrumentRegistry) Lookup(name string) (model.Instrument, bool) {
	inst, ok := r.byName[name]
	return inst, ok
}

// Instruments returns a copy of the table.
func (r *InstrumentRegistry) Instruments() map[string]model.Instrument {
	out := make(map[string]model.Instrument, len(r.byName))
	for k, v := range r.byName {
		out[k] = v
	}
	return out
}

func (r *InstrumentRegistry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for k := range r.byName {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

var _ Provider = (*InstrumentRegistry)(nil)
