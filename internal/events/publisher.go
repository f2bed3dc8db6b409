package events

import (
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/r3labs/sse/v2"
)

// Stream is the id of the single server-sent event stream
const Stream = "events"

// Publisher broadcasts device, scene and schedule events to server-sent event subscribers.
// The sse event name is the topic and the data is the JSON encoded payload.
type Publisher struct {
	logger *log.Logger
	server *sse.Server
}

func NewPublisher(logger *log.Logger) *Publisher {
	server := sse.New()
	// subscribers only see events published while they are connected
	server.AutoReplay = false
	server.CreateStream(Stream)

	return &Publisher{logger: logger, server: server}
}

func (p *Publisher) Publish(topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("Error encoding event", "topic", topic, "err", err)
		return
	}
	p.logger.Debug("Publishing event", "topic", topic)
	p.server.Publish(Stream, &sse.Event{Event: []byte(topic), Data: data})
}

// ServeHTTP subscribes the request to the stream, the "stream" query parameter is optional
func (p *Publisher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("stream") == "" {
		query := r.URL.Query()
		query.Set("stream", Stream)
		r.URL.RawQuery = query.Encode()
	}
	p.server.ServeHTTP(w, r)
}

// Close disconnects every subscriber
func (p *Publisher) Close() {
	p.server.Close()
}
