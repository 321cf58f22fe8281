package model

// Signature is filled by the signer. Nonce and Expiration are chosen by the
// caller before signing; Signer, R, S and V are written together afterwards.
type Signature struct {
	Signer     string `json:"signer"`
	R          string `json:"r"`
	S          string `json:"s"`
	V          int    `json:"v"`
	Expiration string `json:"expiration"` // unix nanoseconds
	Nonce      uint32 `json:"nonce"`
}

// Signed reports whether every signer-produced field is present.
func (s Signature) Signed() bool {
	return s.Signer != "" && s.R != "" && s.S != "" && s.V != 0
}

type OrderLeg struct {
	Instrument    string `json:"instrument"`
	Size          string `json:"size"`
	LimitPrice    string `json:"limit_price,omitempty"` // empty for market orders
	IsBuyingAsset bool   `json:"is_buying_asset"`
}

type OrderMetadata struct {
	ClientOrderID string `json:"client_order_id"`
	CreateTime    string `json:"create_time,omitempty"`
	Broker        string `json:"broker,omitempty"`
}

type Order struct {
	OrderID      string        `json:"order_id,omitempty"`
	SubAccountID string        `json:"sub_account_id"`
	IsMarket     bool          `json:"is_market"`
	TimeInForce  TimeInForce   `json:"time_in_force"`
	PostOnly     bool          `json:"post_only"`
	ReduceOnly   bool          `json:"reduce_only"`
	Legs         []OrderLeg    `json:"legs"`
	Signature    Signature     `json:"signature"`
	Metadata     OrderMetadata `json:"metadata"`
}

type Transfer struct {
	FromAccountID    string       `json:"from_account_id"`
	FromSubAccountID string       `json:"from_sub_account_id"`
	ToAccountID      string       `json:"to_account_id"`
	ToSubAccountID   string       `json:"to_sub_account_id"`
	Currency         Currency     `json:"currency"`
	NumTokens        string       `json:"num_tokens"`
	Signature        Signature    `json:"signature"`
	TransferType     TransferType `json:"transfer_type,omitempty"`
	TransferMetadata string       `json:"transfer_metadata,omitempty"`
}

type Withdrawal struct {
	FromAccountID string    `json:"from_account_id"`
	ToEthAddress  string    `json:"to_eth_address"`
	Currency      Currency  `json:"currency"`
	NumTokens     string    `json:"num_tokens"`
	Signature     Signature `json:"signature"`
}

// Instrument is exchange metadata; the signer needs BaseDecimals and
// InstrumentHash only.
type Instrument struct {
	Instrument     string   `json:"instrument"`
	InstrumentHash string   `json:"instrument_hash"`
	Base           Currency `json:"base"`
	Quote          Currency `json:"quote"`
	Kind           Kind     `json:"kind"`
	BaseDecimals   int32    `json:"base_decimals"`
	QuoteDecimals  int32    `json:"quote_decimals"`
	TickSize       string   `json:"tick_size"`
	MinSize        string   `json:"min_size"`
}
