package queue

import (
	"testing"

	kafka "github.com/segmentio/kafka-go"
)

func TestHeadersToMap(t *testing.T) {
	got := headersToMap([]kafka.Header{
		{Key: "trace-id", Value: []byte("abc")},
		{Key: "retry", Value: []byte("0")},
	})
	if got["trace-id"] != "abc" || got["retry"] != "0" {
		t.Errorf("got %v", got)
	}
}

func TestHeadersToMapEmpty(t *testing.T) {
	if got := headersToMap(nil); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestNewKafkaConsumerConstructs(t *testing.T) {
	c := NewKafkaConsumer([]string{"localhost:9092"}, "submissions", "judge-worker")
	if c == nil || c.reader == nil {
		t.Fatal("expected non-nil consumer and reader")
	}
	c.Close()
}
