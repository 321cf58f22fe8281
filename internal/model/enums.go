package model

type TimeInForce string

const (
	GoodTillTime      TimeInForce = "GOOD_TILL_TIME"
	AllOrNone         TimeInForce = "ALL_OR_NONE"
	ImmediateOrCancel TimeInForce = "IMMEDIATE_OR_CANCEL"
	FillOrKill        TimeInForce = "FILL_OR_KILL"
)

type Currency string

const (
	CurrencyUSD  Currency = "USD"
	CurrencyUSDC Currency = "USDC"
	CurrencyUSDT Currency = "USDT"
	CurrencyETH  Currency = "ETH"
	CurrencyBTC  Currency = "BTC"
)

type Kind string

const (
	KindPerpetual Kind = "PERPETUAL"
	KindFuture    Kind = "FUTURE"
	KindCall      Kind = "CALL"
	KindPut       Kind = "PUT"
)

type TransferType string

const (
	TransferStandard    TransferType = "STANDARD"
	TransferFastDeposit TransferType = "FAST_ARB_DEPOSIT"
	TransferFastWithdr  TransferType = "FAST_ARB_WITHDRAWAL"
)
