package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// DefaultTopic carries driver location pings from the API to the geo
// consumer.
const DefaultTopic = "driver-locations"

// LocationUpdate is the wire format for one driver position ping.
type LocationUpdate struct {
	DriverID    uint    `json:"driverId"`
	Latitude    float64 `json:"lat"`
	Longitude   float64 `json:"lng"`
	Heading     float64 `json:"heading"`
	VehicleType string  `json:"vehicleType"`
	IsOnline    bool    `json:"isOnline"`
	IsAvailable bool    `json:"isAvailable"`
	Timestamp   int64   `json:"ts"`
}

// Validate checks the fields a consumer must be able to trust.
func (u *LocationUpdate) Validate() error {
	if u.DriverID == 0 {
		return errors.New("missing driver id")
	}
	if u.Latitude < -90 || u.Latitude > 90 || u.Longitude < -180 || u.Longitude > 180 {
		return errors.New("coordinates out of range")
	}
	if u.VehicleType == "" {
		return errors.New("missing vehicle type")
	}
	return nil
}

// Producer publishes driver location pings to Kafka. Nil-safe: a nil
// Producer drops pings, which keeps location posting alive when Kafka is not
// configured.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer builds a producer from KAFKA_BROKERS (comma separated) and
// KAFKA_TOPIC. Returns nil when no brokers are configured.
func NewProducer() *Producer {
	brokers := Brokers()
	if len(brokers) == 0 {
		return nil
	}
	topic := os.Getenv("KAFKA_TOPIC")
	if topic == "" {
		topic = DefaultTopic
	}
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	})
	return &Producer{writer: w}
}

// Brokers reads the broker list from the environment.
func Brokers() []string {
	raw := os.Getenv("KAFKA_BROKERS")
	if raw == "" {
		raw = os.Getenv("KAFKA_BROKER")
	}
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if s := strings.TrimSpace(b); s != "" {
			brokers = append(brokers, s)
		}
	}
	return brokers
}

// PublishLocation sends one ping keyed by driver id so a driver's updates
// stay ordered within a partition.
func (p *Producer) PublishLocation(u LocationUpdate) error {
	if p == nil || p.writer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(u.DriverID), 10)),
		Value: b,
	})
}

func (p *Producer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// ParseUpdate decodes and validates one consumed message.
func ParseUpdate(value []byte) (*LocationUpdate, error) {
	var u LocationUpdate
	if err := json.Unmarshal(value, &u); err != nil {
		return nil, err
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return &u, nil
}
