package kafka

import (
	"encoding/json"

	"github.com/segmentio/kafka-go"
)

func MustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// EventHeaders are attached to every envelope so consumers can route
// without decoding the body.
func EventHeaders(eventType string, version string) []kafka.Header {
	return []kafka.Header{
		{Key: "x-event-type", Value: []byte(eventType)},
		{Key: "x-event-version", Value: []byte(version)},
	}
}

func HeaderValue(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
