// Package binance implements the broker contracts against the Binance spot
// API. The binance client is wrapped behind narrow service interfaces so
// tests can substitute mocks without touching the network.
package binance

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/rxtech-lab/argo-scalper/internal/broker"
	"github.com/rxtech-lab/argo-scalper/internal/config"
	"github.com/rxtech-lab/argo-scalper/internal/types"
	"github.com/rxtech-lab/argo-scalper/pkg/errors"
)

const (
	// quantityPrecision is a fallback decimal precision for order quantities.
	// Symbol-specific precision comes from exchange info when available.
	quantityPrecision = 8
)

// Service interfaces for mocking the Binance API

// CreateOrderService interface for creating orders.
type CreateOrderService interface {
	Symbol(symbol string) CreateOrderService
	Side(side binance.SideType) CreateOrderService
	Type(orderType binance.OrderType) CreateOrderService
	Quantity(quantity string) CreateOrderService
	NewClientOrderID(id string) CreateOrderService
	Do(ctx context.Context) (*binance.CreateOrderResponse, error)
}

// GetAccountService interface for getting account info.
type GetAccountService interface {
	Do(ctx context.Context) (*binance.Account, error)
}

// KlinesService interface for fetching candlestick data.
type KlinesService interface {
	Symbol(symbol string) KlinesService
	Interval(interval string) KlinesService
	Limit(limit int) KlinesService
	Do(ctx context.Context) ([]*binance.Kline, error)
}

// BookTickerService interface for fetching the best bid/ask.
type BookTickerService interface {
	Symbol(symbol string) BookTickerService
	Do(ctx context.Context) ([]*binance.BookTicker, error)
}

// ExchangeInfoService interface for fetching symbol trading rules.
type ExchangeInfoService interface {
	Symbol(symbol string) ExchangeInfoService
	Do(ctx context.Context) (*binance.ExchangeInfo, error)
}

// Client abstracts the Binance client for testing.
type Client interface {
	NewCreateOrderService() CreateOrderService
	NewGetAccountService() GetAccountService
	NewKlinesService() KlinesService
	NewBookTickerService() BookTickerService
	NewExchangeInfoService() ExchangeInfoService
}

// realClient wraps the actual binance.Client.
type realClient struct {
	client *binance.Client
}

func (r *realClient) NewCreateOrderService() CreateOrderService {
	return &realCreateOrderService{service: r.client.NewCreateOrderService()}
}

func (r *realClient) NewGetAccountService() GetAccountService {
	return &realGetAccountService{service: r.client.NewGetAccountService()}
}

func (r *realClient) NewKlinesService() KlinesService {
	return &realKlinesService{service: r.client.NewKlinesService()}
}

func (r *realClient) NewBookTickerService() BookTickerService {
	return &realBookTickerService{service: r.client.NewListBookTickersService()}
}

func (r *realClient) NewExchangeInfoService() ExchangeInfoService {
	return &realExchangeInfoService{service: r.client.NewExchangeInfoService()}
}

// Real service wrappers

type realCreateOrderService struct {
	service *binance.CreateOrderService
}

func (s *realCreateOrderService) Symbol(symbol string) CreateOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCreateOrderService) Side(side binance.SideType) CreateOrderService {
	s.service = s.service.Side(side)

	return s
}

func (s *realCreateOrderService) Type(orderType binance.OrderType) CreateOrderService {
	s.service = s.service.Type(orderType)

	return s
}

func (s *realCreateOrderService) Quantity(quantity string) CreateOrderService {
	s.service = s.service.Quantity(quantity)

	return s
}

func (s *realCreateOrderService) NewClientOrderID(id string) CreateOrderService {
	s.service = s.service.NewClientOrderID(id)

	return s
}

func (s *realCreateOrderService) Do(ctx context.Context) (*binance.CreateOrderResponse, error) {
	return s.service.Do(ctx)
}

type realGetAccountService struct {
	service *binance.GetAccountService
}

func (s *realGetAccountService) Do(ctx context.Context) (*binance.Account, error) {
	return s.service.Do(ctx)
}

type realKlinesService struct {
	service *binance.KlinesService
}

func (s *realKlinesService) Symbol(symbol string) KlinesService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realKlinesService) Interval(interval string) KlinesService {
	s.service = s.service.Interval(interval)

	return s
}

func (s *realKlinesService) Limit(limit int) KlinesService {
	s.service = s.service.Limit(limit)

	return s
}

func (s *realKlinesService) Do(ctx context.Context) ([]*binance.Kline, error) {
	return s.service.Do(ctx)
}

type realBookTickerService struct {
	service *binance.ListBookTickersService
}

func (s *realBookTickerService) Symbol(symbol string) BookTickerService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realBookTickerService) Do(ctx context.Context) ([]*binance.BookTicker, error) {
	return s.service.Do(ctx)
}

type realExchangeInfoService struct {
	service *binance.ExchangeInfoService
}

func (s *realExchangeInfoService) Symbol(symbol string) ExchangeInfoService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realExchangeInfoService) Do(ctx context.Context) (*binance.ExchangeInfo, error) {
	return s.service.Do(ctx)
}

// Broker implements the market-data and gateway contracts on Binance spot.
// It is stateless apart from the wrapped client: positions and balances are
// fetched from the API on every call.
type Broker struct {
	client Client
}

// NewBroker creates a Binance broker from configuration. If cfg.Testnet is
// set, it connects to the Binance testnet; cfg.BaseURL takes precedence.
func NewBroker(cfg config.BinanceConfig) (*Broker, error) {
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "binance api key and secret key are required")
	}

	if cfg.Testnet {
		binance.UseTestnet = true
	}

	client := binance.NewClient(cfg.APIKey, cfg.SecretKey)

	if cfg.BaseURL != "" {
		client.BaseURL = cfg.BaseURL
	}

	return &Broker{client: &realClient{client: client}}, nil
}

// newBrokerWithClient creates a Broker with a custom client, for tests.
func newBrokerWithClient(client Client) *Broker {
	return &Broker{client: client}
}

// Bars returns the most recent closed klines for the symbol, oldest first.
func (b *Broker) Bars(ctx context.Context, symbol string, interval string, limit int) ([]types.PriceBar, error) {
	klines, err := b.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit + 1). // the newest kline is still forming
		Do(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMarketDataUnavail, "failed to fetch klines from Binance", err)
	}

	if len(klines) > 0 {
		klines = klines[:len(klines)-1]
	}

	bars := make([]types.PriceBar, 0, len(klines))

	for _, k := range klines {
		bar, convertErr := convertKline(k)
		if convertErr != nil {
			return nil, convertErr
		}

		bars = append(bars, bar)
	}

	return bars, nil
}

// LatestTick returns the current best bid/ask for the symbol.
func (b *Broker) LatestTick(ctx context.Context, symbol string) (types.Tick, error) {
	tickers, err := b.client.NewBookTickerService().Symbol(symbol).Do(ctx)
	if err != nil {
		return types.Tick{}, errors.Wrap(errors.ErrCodeMarketDataUnavail, "failed to fetch book ticker from Binance", err)
	}

	if len(tickers) == 0 {
		return types.Tick{}, errors.Newf(errors.ErrCodeDataNotFound, "no book ticker for symbol %s", symbol)
	}

	bid, _ := strconv.ParseFloat(tickers[0].BidPrice, 64)
	ask, _ := strconv.ParseFloat(tickers[0].AskPrice, 64)

	return types.Tick{
		Symbol: symbol,
		Bid:    bid,
		Ask:    ask,
		Time:   time.Now(),
	}, nil
}

// Instrument derives contract metadata from the symbol's LOT_SIZE filter.
func (b *Broker) Instrument(ctx context.Context, symbol string) (types.InstrumentMeta, error) {
	info, err := b.client.NewExchangeInfoService().Symbol(symbol).Do(ctx)
	if err != nil {
		return types.InstrumentMeta{}, errors.Wrap(errors.ErrCodeMarketDataUnavail, "failed to fetch exchange info from Binance", err)
	}

	for _, s := range info.Symbols {
		if s.Symbol != symbol {
			continue
		}

		meta := types.InstrumentMeta{
			Symbol: symbol,
			// Spot quantities are in base units, so one "lot" is one unit.
			ContractSize:    1,
			PipValue:        1,
			MinLot:          0,
			MaxLot:          0,
			LotStep:         0,
			MinStopDistance: 0,
		}

		if f := s.LotSizeFilter(); f != nil {
			meta.MinLot, _ = strconv.ParseFloat(f.MinQuantity, 64)
			meta.MaxLot, _ = strconv.ParseFloat(f.MaxQuantity, 64)
			meta.LotStep, _ = strconv.ParseFloat(f.StepSize, 64)
		}

		if f := s.PriceFilter(); f != nil {
			meta.MinStopDistance, _ = strconv.ParseFloat(f.TickSize, 64)
		}

		return meta, nil
	}

	return types.InstrumentMeta{}, errors.Newf(errors.ErrCodeDataNotFound, "symbol %s not found in exchange info", symbol)
}

// SubmitOrder places a market order. Stops are carried on the local position
// record and enforced by the engine, since spot market orders cannot carry
// them server-side.
func (b *Broker) SubmitOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderResult, error) {
	var side binance.SideType

	switch req.Side {
	case types.PositionSideBuy:
		side = binance.SideTypeBuy
	case types.PositionSideSell:
		side = binance.SideTypeSell
	default:
		return broker.OrderResult{}, errors.Newf(errors.ErrCodeInvalidOrder, "unsupported order side: %s", req.Side)
	}

	if req.Volume <= 0 {
		return broker.OrderResult{}, errors.New(errors.ErrCodeInvalidOrder, "order volume must be greater than zero")
	}

	service := b.client.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(side).
		Type(binance.OrderTypeMarket).
		Quantity(strconv.FormatFloat(req.Volume, 'f', quantityPrecision, 64))

	if req.ClientID != "" {
		service = service.NewClientOrderID(req.ClientID)
	}

	resp, err := service.Do(ctx)
	if err != nil {
		return broker.OrderResult{}, classifyOrderError(err)
	}

	price, volume := fillFromResponse(resp)

	return broker.OrderResult{
		Ticket:         strconv.FormatInt(resp.OrderID, 10),
		ExecutedPrice:  price,
		ExecutedVolume: volume,
		ExecutedAt:     time.UnixMilli(resp.TransactTime).UTC(),
	}, nil
}

// ClosePosition sells the full base-asset quantity identified by ticket.
// Tickets on spot are asset symbols, as reported by OpenPositions.
func (b *Broker) ClosePosition(ctx context.Context, ticket string) error {
	positions, err := b.OpenPositions(ctx)
	if err != nil {
		return err
	}

	for _, pos := range positions {
		if pos.Ticket != ticket {
			continue
		}

		req := broker.NewOrderRequest(pos.Symbol, types.PositionSideSell, pos.Volume)

		_, err := b.SubmitOrder(ctx, req)

		return err
	}

	return errors.Newf(errors.ErrCodePositionNotFound, "position not found: %s", ticket)
}

// OpenPositions derives positions from non-quote asset balances, the same
// view the exchange itself has of a spot account.
func (b *Broker) OpenPositions(ctx context.Context) ([]types.Position, error) {
	account, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBrokerUnavailable, "failed to get account info from Binance", err)
	}

	positions := make([]types.Position, 0)

	for _, balance := range account.Balances {
		if isQuoteAsset(balance.Asset) {
			continue
		}

		free, _ := strconv.ParseFloat(balance.Free, 64)
		locked, _ := strconv.ParseFloat(balance.Locked, 64)
		total := free + locked

		if total <= 0 {
			continue
		}

		positions = append(positions, types.Position{
			Ticket:     balance.Asset,
			Symbol:     balance.Asset + "USDT",
			Side:       types.PositionSideBuy,
			Volume:     total,
			EntryPrice: 0, // not reported by the account endpoint
			EntryTime:  time.Time{},
			StopLoss:   0,
			TakeProfit: 0,
			Confidence: 0,
		})
	}

	return positions, nil
}

// Account returns the spot account state. Margin fields are zero: spot has
// no margin, which downstream risk checks treat as not applicable.
func (b *Broker) Account(ctx context.Context) (types.AccountSnapshot, error) {
	account, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return types.AccountSnapshot{}, errors.Wrap(errors.ErrCodeBrokerUnavailable, "failed to get account info from Binance", err)
	}

	var balance float64

	for _, asset := range account.Balances {
		if !isQuoteAsset(asset.Asset) {
			continue
		}

		free, _ := strconv.ParseFloat(asset.Free, 64)
		locked, _ := strconv.ParseFloat(asset.Locked, 64)
		balance += free + locked
	}

	return types.AccountSnapshot{
		Balance:     balance,
		Equity:      balance,
		Margin:      0,
		MarginLevel: 0,
	}, nil
}

// CheckConnection verifies connectivity and authentication.
func (b *Broker) CheckConnection(ctx context.Context) error {
	_, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBrokerUnavailable, "failed to connect to Binance API", err)
	}

	return nil
}

// Helper functions

// isQuoteAsset reports whether the asset is treated as account currency
// rather than a position.
func isQuoteAsset(asset string) bool {
	switch asset {
	case "USDT", "BUSD", "USDC", "USD":
		return true
	default:
		return false
	}
}

// classifyOrderError maps Binance API errors onto the rejection taxonomy.
// Anything that is not a recognizable rejection stays a transport error so
// the caller may retry it.
func classifyOrderError(err error) error {
	apiErr := &common.APIError{}
	if !errors.As(err, &apiErr) {
		return errors.Wrap(errors.ErrCodeOrderFailed, "failed to place order on Binance", err)
	}

	msg := strings.ToLower(apiErr.Message)

	switch apiErr.Code {
	case -2010: // NEW_ORDER_REJECTED
		switch {
		case strings.Contains(msg, "insufficient balance"):
			return broker.NewRejection(broker.RejectionInsufficientFunds, apiErr.Message)
		case strings.Contains(msg, "not allowed"), strings.Contains(msg, "disabled"):
			return broker.NewRejection(broker.RejectionTradingDisabled, apiErr.Message)
		default:
			return broker.NewRejection(broker.RejectionUnknown, apiErr.Message)
		}
	case -1013: // invalid quantity or price filter
		return broker.NewRejection(broker.RejectionInvalidStops, apiErr.Message)
	default:
		return errors.Wrap(errors.ErrCodeOrderFailed, "failed to place order on Binance", err)
	}
}

// convertKline converts a Binance kline to a validated PriceBar.
func convertKline(k *binance.Kline) (types.PriceBar, error) {
	open, _ := strconv.ParseFloat(k.Open, 64)
	high, _ := strconv.ParseFloat(k.High, 64)
	low, _ := strconv.ParseFloat(k.Low, 64)
	closePrice, _ := strconv.ParseFloat(k.Close, 64)
	volume, _ := strconv.ParseFloat(k.Volume, 64)

	bar := types.PriceBar{
		Time:   time.UnixMilli(k.OpenTime).UTC(),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: volume,
	}

	if err := bar.Validate(); err != nil {
		return types.PriceBar{}, errors.Wrap(errors.ErrCodeDataValidation, "invalid kline from Binance", err)
	}

	return bar, nil
}

// fillFromResponse computes the volume-weighted fill price from the order
// response fills, falling back to cumulative quote / executed quantity.
func fillFromResponse(resp *binance.CreateOrderResponse) (price float64, volume float64) {
	volume, _ = strconv.ParseFloat(resp.ExecutedQuantity, 64)

	var notional, filled float64

	for _, f := range resp.Fills {
		p, _ := strconv.ParseFloat(f.Price, 64)
		q, _ := strconv.ParseFloat(f.Quantity, 64)
		notional += p * q
		filled += q
	}

	if filled > 0 {
		return notional / filled, volume
	}

	quote, _ := strconv.ParseFloat(resp.CummulativeQuoteQuantity, 64)
	if volume > 0 {
		return quote / volume, volume
	}

	return 0, volume
}

// Ensure Broker implements both broker contracts.
var (
	_ broker.MarketDataSource = (*Broker)(nil)
	_ broker.Gateway          = (*Broker)(nil)
)
