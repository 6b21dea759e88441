// Package events publishes indexed transfers onto the message queue for
// downstream consumers.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/arcscan/bridge-indexer/pkg/common/types"
	"github.com/arcscan/bridge-indexer/pkg/infra"
)

type IndexerEvent struct {
	Type      string `json:"type"`
	Chain     string `json:"chain"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

type Emitter interface {
	EmitTransfer(transfer types.TokenTransfer) error
	EmitError(chain string, err error) error
	Close()
}

type emitter struct {
	queue         infra.MessageQueue
	subjectPrefix string
}

func NewEmitter(queue infra.MessageQueue, subjectPrefix string) Emitter {
	return &emitter{queue: queue, subjectPrefix: subjectPrefix}
}

// EmitTransfer publishes one transfer keyed by its content hash, so a block
// range that gets rescanned never produces duplicate messages.
func (e *emitter) EmitTransfer(transfer types.TokenTransfer) error {
	data, err := transfer.MarshalBinary()
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("%s.%s.%s", e.subjectPrefix, transfer.Chain, transfer.Direction)
	return e.queue.Enqueue(subject, data, &infra.EnqueueOptions{
		IdempotencyKey: transfer.Hash(),
	})
}

func (e *emitter) EmitError(chain string, err error) error {
	payload := map[string]string{}
	if err != nil {
		payload["message"] = err.Error()
	}

	event := IndexerEvent{
		Type:      "error",
		Chain:     chain,
		Data:      payload,
		Timestamp: time.Now().UTC().Unix(),
	}
	data, merr := json.Marshal(event)
	if merr != nil {
		return merr
	}
	return e.queue.Enqueue(fmt.Sprintf("%s.%s.error", e.subjectPrefix, chain), data, nil)
}

func (e *emitter) Close() {
	if e.queue != nil {
		e.queue.Close()
	}
}
