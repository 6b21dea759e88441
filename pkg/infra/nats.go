package infra

import (
	"time"

	"github.com/nats-io/nats.go"

	"github.com/arcscan/bridge-indexer/pkg/common/logger"
)

func GetNATSConnection(url string) (*nats.Conn, error) {
	if url == "" {
		url = nats.DefaultURL
	}

	opts := []nats.Option{
		nats.MaxReconnects(-1), // retry forever
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectHandler(func(nc *nats.Conn) {
			logger.Warn("Disconnected from NATS")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
		nats.ErrorHandler(natsErrHandler),
	}

	return nats.Connect(url, opts...)
}

func natsErrHandler(nc *nats.Conn, sub *nats.Subscription, natsErr error) {
	logger.Error("NATS error", "err", natsErr)
	if natsErr == nats.ErrSlowConsumer {
		pendingMsgs, _, err := sub.Pending()
		if err != nil {
			logger.Error("Error getting pending messages", "err", err)
			return
		}
		logger.Warn("Falling behind on subject", "pending", pendingMsgs, "subject", sub.Subject)
	}
}
