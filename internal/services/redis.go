package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var RedisClient *redis.Client

// geoKey is the Redis GEO set holding all online driver positions, one set
// per vehicle class so radius queries never mix classes.
func geoKey(vehicleType string) string {
	return "drivers:geo:" + vehicleType
}

func metaKey(driverID uint) string {
	return fmt.Sprintf("driver:meta:%d", driverID)
}

// InitRedis initializes the Redis client
func InitRedis() error {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://redis:6379" // Default Redis address for Docker
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %v", err)
	}

	RedisClient = redis.NewClient(opt)

	ctx := context.Background()
	if _, err := RedisClient.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return nil
}

// UpsertDriverPosition stores a driver's position in the GEO index for their
// vehicle class and records availability metadata alongside it.
func UpsertDriverPosition(ctx context.Context, driverID uint, lat, lng float64, vehicleType string, online, available bool) error {
	name := strconv.FormatUint(uint64(driverID), 10)
	if _, err := RedisClient.GeoAdd(ctx, geoKey(vehicleType), &redis.GeoLocation{
		Longitude: lng,
		Latitude:  lat,
		Name:      name,
	}).Result(); err != nil {
		return err
	}
	return RedisClient.HSet(ctx, metaKey(driverID), map[string]interface{}{
		"online":    strconv.FormatBool(online),
		"available": strconv.FormatBool(available),
		"vehicle":   vehicleType,
		"updated":   time.Now().UTC().Format(time.RFC3339),
	}).Err()
}

// RemoveDriverPosition drops a driver from the GEO index when they go offline.
func RemoveDriverPosition(ctx context.Context, driverID uint, vehicleType string) error {
	name := strconv.FormatUint(uint64(driverID), 10)
	if err := RedisClient.ZRem(ctx, geoKey(vehicleType), name).Err(); err != nil {
		return err
	}
	return RedisClient.HSet(ctx, metaKey(driverID), "online", "false").Err()
}

// NearbyDriver is one GEO query hit.
type NearbyDriver struct {
	DriverID   uint
	Lat        float64
	Lng        float64
	DistanceKm float64
}

// NearbyDrivers returns online, available drivers of the given class within
// radiusKm of the point, nearest first, at most limit entries.
func NearbyDrivers(ctx context.Context, lat, lng float64, vehicleType string, radiusKm float64, limit int) ([]NearbyDriver, error) {
	res, err := RedisClient.GeoRadius(ctx, geoKey(vehicleType), lng, lat, &redis.GeoRadiusQuery{
		Radius:    radiusKm,
		Unit:      "km",
		WithCoord: true,
		WithDist:  true,
		Count:     limit,
		Sort:      "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}

	out := make([]NearbyDriver, 0, len(res))
	for _, g := range res {
		id, err := strconv.ParseUint(g.Name, 10, 32)
		if err != nil {
			continue
		}
		meta, err := RedisClient.HGetAll(ctx, metaKey(uint(id))).Result()
		if err == nil {
			if meta["online"] != "true" || meta["available"] != "true" {
				continue
			}
		}
		out = append(out, NearbyDriver{
			DriverID:   uint(id),
			Lat:        g.Latitude,
			Lng:        g.Longitude,
			DistanceKm: g.Dist,
		})
	}
	return out, nil
}

// SetDriverAvailability stores driver availability status
func SetDriverAvailability(ctx context.Context, driverID uint, isAvailable bool) error {
	return RedisClient.HSet(ctx, metaKey(driverID), "available", strconv.FormatBool(isAvailable)).Err()
}

// PublishRideUpdate publishes a ride lifecycle event to Redis pub/sub so
// other api instances can forward it to their own WebSocket clients.
func PublishRideUpdate(ctx context.Context, rideID string, eventType string, data map[string]interface{}) error {
	payload := map[string]interface{}{
		"rideId":    rideID,
		"type":      eventType,
		"data":      data,
		"timestamp": time.Now().Unix(),
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return RedisClient.Publish(ctx, "ride:updates", jsonData).Err()
}
