package service

import (
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"ai-research-desk/internal/constant"
	"ai-research-desk/internal/dto"
)

// IPublisherService is the single write surface onto the event bus. Producers
// (websocket clients, inference sessions, the scanner, the telemetry sampler)
// all funnel through the one inbound topic; the orchestrator is its only
// consumer. UI events go out on a separate topic fanned out by the hub.
type IPublisherService interface {
	PublishCommand(cmd dto.Command) error
	PublishInference(report dto.InferenceReport) error
	PublishRetrieval(report dto.RetrievalReport) error
	PublishTelemetry(report dto.TelemetryReport) error
	PublishIngestion(report dto.IngestionReport) error
	PublishEvent(event dto.Event) error
}

type publisherService struct {
	pubSub       *gochannel.GoChannel
	inboundTopic string
	eventsTopic  string
}

func NewPublisherService(pubSub *gochannel.GoChannel, inboundTopic, eventsTopic string) IPublisherService {
	return &publisherService{
		pubSub:       pubSub,
		inboundTopic: inboundTopic,
		eventsTopic:  eventsTopic,
	}
}

func (p *publisherService) publishInbound(kind string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set(constant.MetadataKindKey, kind)
	return p.pubSub.Publish(p.inboundTopic, msg)
}

func (p *publisherService) PublishCommand(cmd dto.Command) error {
	return p.publishInbound(constant.KindCommand, cmd)
}

func (p *publisherService) PublishInference(report dto.InferenceReport) error {
	return p.publishInbound(constant.KindInference, report)
}

func (p *publisherService) PublishRetrieval(report dto.RetrievalReport) error {
	return p.publishInbound(constant.KindRetrieval, report)
}

func (p *publisherService) PublishTelemetry(report dto.TelemetryReport) error {
	return p.publishInbound(constant.KindTelemetry, report)
}

func (p *publisherService) PublishIngestion(report dto.IngestionReport) error {
	return p.publishInbound(constant.KindIngestion, report)
}

func (p *publisherService) PublishEvent(event dto.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	return p.pubSub.Publish(p.eventsTopic, msg)
}
