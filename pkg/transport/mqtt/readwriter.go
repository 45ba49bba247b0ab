package mqtt

import (
	"context"
	"errors"
	"io"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// ReadWriter implements transport.PacketReadWriter for a bus client:
// frames are published to <id>/cmd and replies read from <id>/reply.
type ReadWriter struct {
	Queue    *Queue
	SubTopic string
	PubTopic string

	packetCh chan []byte
	closeCh  chan struct{}
	sub      *Subscription
}

// NewPacketReadWriter creates the ReadWriter.
func NewPacketReadWriter(q *Queue) *ReadWriter {
	return &ReadWriter{Queue: q, packetCh: make(chan []byte, 4), closeCh: make(chan struct{})}
}

// WithTopics specifies the topics.
func (p *ReadWriter) WithTopics(sub, pub string) *ReadWriter {
	p.SubTopic, p.PubTopic = sub, pub
	return p
}

// ForDevice sets topics for talking to the core of the device.
func (p *ReadWriter) ForDevice(deviceID string) *ReadWriter {
	return p.WithTopics(DeviceTopic(deviceID, TopicReply), DeviceTopic(deviceID, TopicCmd))
}

// Start subscribes the reply topic and waits for the broker to
// acknowledge it.
func (p *ReadWriter) Start(ctx context.Context) error {
	p.sub = p.Queue.Sub(p.SubTopic, p.handleMsg)
	ctx, cancel := context.WithTimeout(ctx, p.Queue.opTimeout())
	defer cancel()
	if err := p.sub.Wait(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrTimeout
		}
		return err
	}
	return nil
}

// ReadPacket implements transport.PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-p.packetCh:
		return pkt, nil
	case <-p.closeCh:
		return nil, io.EOF
	}
}

// WritePacket implements transport.PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	return waitToken(context.Background(), p.Queue.Pub(p.PubTopic, pkt), DefaultPublishTimeout)
}

// Close implements io.Closer.
func (p *ReadWriter) Close() error {
	var err error
	if p.sub != nil {
		err = p.sub.Close()
		p.sub = nil
		close(p.closeCh)
	}
	return err
}

func (p *ReadWriter) handleMsg(_ string, payload []byte) {
	select {
	case p.packetCh <- append([]byte(nil), payload...):
	default:
	}
}

func waitToken(ctx context.Context, token paho.Token, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	deadline := time.Now().Add(timeout)
	for !token.WaitTimeout(10 * time.Millisecond) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if time.Now().After(deadline) {
			return ErrTimeout
		}
	}
	return token.Error()
}
