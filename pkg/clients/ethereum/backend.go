package ethereum

import (
	"context"
	"net/url"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Backend is the read-only node surface a contract binding needs.
type Backend interface {
	bind.ContractCaller
	LatestBlockNumber(ctx context.Context) (uint64, error)
}

// wsBackend adapts ethclient, which handles websocket and IPC transports.
type wsBackend struct {
	*ethclient.Client
}

func (b *wsBackend) LatestBlockNumber(ctx context.Context) (uint64, error) {
	header, err := b.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, err
	}
	return header.Number.Uint64(), nil
}

// NewBackend picks a transport from the URL scheme: http(s) uses Client, anything else
// (ws, wss, ipc paths) is dialed through ethclient.
func NewBackend(ctx context.Context, cfg *EthereumClientConfig, l *zap.Logger) (Backend, error) {
	if cfg.BaseUrl == "" {
		return nil, errors.New("ethereum rpc url is required")
	}
	u, err := url.Parse(cfg.BaseUrl)
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return NewClient(cfg, l), nil
	}

	l.Sugar().Infow("Dialing ethereum node with ethclient", zap.String("url", cfg.BaseUrl))
	c, err := ethclient.DialContext(ctx, cfg.BaseUrl)
	if err != nil {
		l.Sugar().Errorw("Failed to create new eth client", zap.Error(err))
		return nil, errors.Wrap(err, "failed to dial ethereum node")
	}
	return &wsBackend{Client: c}, nil
}
