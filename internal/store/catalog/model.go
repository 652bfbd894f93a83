package catalog

import (
	"gorm.io/datatypes"

	"chartlab/internal/market"
)

// InstrumentModel 是交易对目录的一行，(source, symbol) 唯一。
type InstrumentModel struct {
	ID       int64             `gorm:"column:id;primaryKey"`
	Source   string            `gorm:"column:source;uniqueIndex:idx_source_symbol;size:32"`
	Symbol   string            `gorm:"column:symbol;uniqueIndex:idx_source_symbol;size:64"`
	Name     string            `gorm:"column:name"`
	Status   string            `gorm:"column:status"`
	Meta     datatypes.JSONMap `gorm:"column:meta"`
	SyncedAt int64             `gorm:"column:synced_at;index"`
}

func (InstrumentModel) TableName() string { return "instruments" }

func fromInstrument(in market.Instrument, syncedAt int64) InstrumentModel {
	var meta datatypes.JSONMap
	if len(in.Meta) > 0 {
		meta = make(datatypes.JSONMap, len(in.Meta))
		for k, v := range in.Meta {
			meta[k] = v
		}
	}
	return InstrumentModel{
		Source:   in.Source,
		Symbol:   in.Symbol,
		Name:     in.Name,
		Status:   in.Status,
		Meta:     meta,
		SyncedAt: syncedAt,
	}
}

func (m InstrumentModel) toInstrument() market.Instrument {
	out := market.Instrument{
		Source: m.Source,
		Symbol: m.Symbol,
		Name:   m.Name,
		Status: m.Status,
	}
	if len(m.Meta) > 0 {
		out.Meta = make(map[string]string, len(m.Meta))
		for k, v := range m.Meta {
			if s, ok := v.(string); ok {
				out.Meta[k] = s
			}
		}
	}
	return out
}
