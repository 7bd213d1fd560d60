package logsink

import (
	"context"

	"github.com/arkade-os/kittyd/internal/core/domain"
	"github.com/arkade-os/kittyd/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

type eventSink struct {
	logger *log.Logger
}

// NewEventSink returns a sink that writes every event as a structured log
// entry. A nil logger means the standard logrus logger.
func NewEventSink(logger *log.Logger) ports.EventSink {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &eventSink{logger}
}

func (s *eventSink) Publish(_ context.Context, events ...domain.Event) error {
	for _, event := range events {
		s.logger.WithFields(fields(event)).Info(event.GetType().String())
	}
	return nil
}

func (s *eventSink) Close() {}

func fields(event domain.Event) log.Fields {
	f := log.Fields{"asset_id": event.GetAssetId().String()}
	switch e := event.(type) {
	case domain.AssetCreated:
		f["owner"] = e.Owner
	case domain.PriceSet:
		f["owner"] = e.Owner
		f["price"] = e.Price
	case domain.AssetTransferred:
		f["from"] = e.From
		f["to"] = e.To
	case domain.AssetBought:
		f["buyer"] = e.Buyer
		f["seller"] = e.Seller
		f["price"] = e.Price
	}
	return f
}
