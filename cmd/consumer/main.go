package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/example/ride-booking/internal/config"
	"github.com/example/ride-booking/internal/events"
	"github.com/example/ride-booking/internal/logging"
	"github.com/example/ride-booking/internal/models"
)

var (
	eventsConsumed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_booking_events_consumed_total",
		Help: "Total booking events consumed",
	})
	eventsInvalid = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_booking_events_invalid_total",
		Help: "Total booking events that could not be decoded",
	})
	redisUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_redis_updates_total",
		Help: "Total booking projections written to redis",
	})
	redisErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_redis_errors_total",
		Help: "Total redis errors",
	})
)

func init() {
	prometheus.MustRegister(eventsConsumed, eventsInvalid, redisUpdates, redisErrors)
}

// activePickupsKey is a GEO set of pickups for bookings still in progress.
const activePickupsKey = "bookings:active:pickups"

func main() {
	if err := config.LoadDotEnv(os.Getenv("ENV_FILE")); err != nil {
		slog.Error("load .env", "error", err)
		os.Exit(1)
	}
	cfg, err := config.LoadConsumerConfig()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.LogLevel)

	rc := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	radapter := &redisAdapter{c: rc}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
		mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			if err := rc.Ping(r.Context()).Err(); err != nil {
				http.Error(w, "redis not ready", 503)
				return
			}
			w.WriteHeader(200)
			w.Write([]byte("ready"))
		})
		logger.Info("metrics/health listening", "addr", cfg.MetricsAddr)
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			logger.Error("metrics server stopped", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := kafka.NewReader(kafka.ReaderConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic, GroupID: cfg.KafkaGroup, MinBytes: 1, MaxBytes: 10e6})
	defer func() {
		_ = r.Close()
		_ = rc.Close()
	}()

	logger.Info("consumer listening", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers, "group", cfg.KafkaGroup)

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("shutting down consumer")
				return
			}
			logger.Warn("kafka read failed", "error", err, "backoff", backoff)
			time.Sleep(backoff)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second

		eventsConsumed.Inc()

		ev, err := events.Decode(m.Value)
		if err != nil {
			eventsInvalid.Inc()
			logger.Warn("invalid booking event", "offset", m.Offset, "error", err)
			continue
		}

		if err := projectWithRetry(ctx, radapter, ev, cfg.RedisRetries, 200*time.Millisecond); err != nil {
			redisErrors.Inc()
			logger.Error("redis projection failed", "booking_id", ev.Booking.ID, "event", ev.Type, "error", err)
			continue
		}
		redisUpdates.Inc()
	}
}

// RedisUpdater is the subset of redis commands the projection uses.
type RedisUpdater interface {
	HSet(ctx context.Context, key string, values map[string]interface{}) error
	SAdd(ctx context.Context, key string, member string) error
	GeoAdd(ctx context.Context, key string, loc *redis.GeoLocation) error
	ZRem(ctx context.Context, key string, member string) error
}

type redisAdapter struct{ c *redis.Client }

func (r *redisAdapter) HSet(ctx context.Context, key string, values map[string]interface{}) error {
	return r.c.HSet(ctx, key, values).Err()
}

func (r *redisAdapter) SAdd(ctx context.Context, key string, member string) error {
	return r.c.SAdd(ctx, key, member).Err()
}

func (r *redisAdapter) GeoAdd(ctx context.Context, key string, loc *redis.GeoLocation) error {
	return r.c.GeoAdd(ctx, key, loc).Err()
}

func (r *redisAdapter) ZRem(ctx context.Context, key string, member string) error {
	return r.c.ZRem(ctx, key, member).Err()
}

// project writes the booking's latest state. Every step is idempotent, so
// a retry replays the whole projection.
func project(ctx context.Context, rc RedisUpdater, ev models.BookingEvent) error {
	b := ev.Booking
	if err := rc.HSet(ctx, "booking:"+b.ID, map[string]interface{}{
		"client_id":   b.ClientID,
		"status":      string(b.Status),
		"driver":      b.Driver.Name,
		"vehicle":     b.Vehicle,
		"fare":        b.Fare,
		"pickup":      b.Pickup,
		"dropoff":     b.Dropoff,
		"pickup_time": b.PickupTime,
		"updated":     ev.At.UTC().Format(time.RFC3339),
	}); err != nil {
		return err
	}
	if err := rc.SAdd(ctx, "client:"+b.ClientID+":bookings", b.ID); err != nil {
		return err
	}
	if b.Status == models.Confirmed {
		return rc.GeoAdd(ctx, activePickupsKey, &redis.GeoLocation{Longitude: b.PickupCoord.Lon, Latitude: b.PickupCoord.Lat, Name: b.ID})
	}
	return rc.ZRem(ctx, activePickupsKey, b.ID)
}

func projectWithRetry(ctx context.Context, rc RedisUpdater, ev models.BookingEvent, attempts int, delay time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = project(ctx, rc, ev); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
