package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"github.com/bidzi/bidzi-backend/internal/ingest"
	"github.com/bidzi/bidzi-backend/internal/services"
)

var (
	msgsConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bidzi_consumer_messages_consumed_total",
		Help: "Total driver location messages consumed",
	})
	msgsInvalid = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bidzi_consumer_messages_invalid_total",
		Help: "Total invalid messages received",
	})
	redisUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bidzi_consumer_redis_updates_total",
		Help: "Total successful redis geo updates",
	})
	redisErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bidzi_consumer_redis_errors_total",
		Help: "Total redis geo update errors",
	})
)

func main() {
	var metricsAddr string
	flag.StringVar(&metricsAddr, "metrics-addr", ":2112", "address to serve prometheus metrics on")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, using environment")
	}

	brokers := ingest.Brokers()
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}
	topic := os.Getenv("KAFKA_TOPIC")
	if topic == "" {
		topic = ingest.DefaultTopic
	}
	group := os.Getenv("KAFKA_GROUP")
	if group == "" {
		group = "bidzi-geo-consumer"
	}

	if err := services.InitRedis(); err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(200)
			w.Write([]byte("ok"))
		})
		log.Printf("metrics listening on %s", metricsAddr)
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			log.Printf("metrics server stopped: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  group,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	log.Printf("geo consumer listening topic=%s brokers=%v group=%s", topic, brokers, group)

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		m, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("shutting down consumer")
				return
			}
			log.Printf("kafka read error: %v; backing off %s", err, backoff)
			time.Sleep(backoff)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second
		msgsConsumed.Inc()

		update, err := ingest.ParseUpdate(m.Value)
		if err != nil {
			msgsInvalid.Inc()
			log.Printf("invalid message: %v", err)
			continue
		}

		if err := applyWithRetry(ctx, update, 3, 200*time.Millisecond); err != nil {
			redisErrors.Inc()
			log.Printf("redis update failed for driver %d: %v", update.DriverID, err)
			continue
		}
		redisUpdates.Inc()
	}
}

// applyWithRetry pushes one update into the Redis GEO index with a small
// exponential backoff.
func applyWithRetry(ctx context.Context, u *ingest.LocationUpdate, attempts int, delay time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		if u.IsOnline {
			err = services.UpsertDriverPosition(ctx, u.DriverID, u.Latitude, u.Longitude, u.VehicleType, u.IsOnline, u.IsAvailable)
		} else {
			err = services.RemoveDriverPosition(ctx, u.DriverID, u.VehicleType)
		}
		if err == nil {
			return nil
		}
		if i < attempts-1 {
			time.Sleep(delay)
			delay *= 2
		}
	}
	return err
}
