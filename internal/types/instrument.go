package types

// InstrumentMeta holds the contract parameters needed to convert a price-distance
// risk budget into a lot size for one instrument.
type InstrumentMeta struct {
	Symbol string `yaml:"symbol" json:"symbol"`
	// ContractSize converts lots to notional units of the base asset
	ContractSize float64 `yaml:"contract_size" json:"contract_size"`
	// PipValue is the account-currency value of one pip per lot
	PipValue float64 `yaml:"pip_value" json:"pip_value"`
	MinLot   float64 `yaml:"min_lot" json:"min_lot"`
	MaxLot   float64 `yaml:"max_lot" json:"max_lot"`
	LotStep  float64 `yaml:"lot_step" json:"lot_step"`
	// MinStopDistance is the broker-enforced minimum distance between entry and
	// stop, in price terms. Used when recomputing stops after an invalid-stops
	// rejection.
	MinStopDistance float64 `yaml:"min_stop_distance" json:"min_stop_distance"`
}

// Complete reports whether the metadata carries everything the position sizer needs.
func (m *InstrumentMeta) Complete() bool {
	return m.ContractSize > 0 && m.PipValue > 0 && m.LotStep > 0 && m.MinLot > 0 && m.MaxLot >= m.MinLot
}
