//go:build ignore

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	requestStream = "stream:outsource:import"
	doneStream    = "stream:outsource:done"
)

type ImportRequestEvent struct {
	JobID    uuid.UUID `json:"job_id"`
	Type     string    `json:"type"`
	Endpoint string    `json:"endpoint"`
	Provider string    `json:"provider"`
	SourceID string    `json:"source_id"`
}

func main() {
	redisAddr := flag.String("redis", "localhost:6380", "Redis address for streams")
	featureType := flag.String("type", "track", "track | poi | media")
	endpoint := flag.String("endpoint", "sicai", "source endpoint")
	provider := flag.String("provider", "SICAI", "SICAI | WP | StorageCSV")
	sourceID := flag.String("id", "6", "source record id")
	flag.Parse()

	client := redis.NewClient(&redis.Options{
		Addr: *redisAddr,
	})
	defer client.Close()

	ctx := context.Background()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	event := ImportRequestEvent{
		JobID:    uuid.New(),
		Type:     *featureType,
		Endpoint: *endpoint,
		Provider: *provider,
		SourceID: *sourceID,
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Fatalf("Failed to marshal event: %v", err)
	}

	result, err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: requestStream,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()
	if err != nil {
		log.Fatalf("Failed to publish event: %v", err)
	}

	fmt.Printf("Event published\n")
	fmt.Printf("   Stream: %s\n", requestStream)
	fmt.Printf("   Message ID: %s\n", result)
	fmt.Printf("   Job ID: %s\n", event.JobID)
	fmt.Printf("   Record: %s %s from %s (%s)\n", event.Type, event.SourceID, event.Endpoint, event.Provider)

	fmt.Printf("\nWaiting for response in %s...\n", doneStream)

	timeout := time.After(60 * time.Second)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			fmt.Println("Timeout waiting for response")
			return
		case <-ticker.C:
			results, err := client.XRead(ctx, &redis.XReadArgs{
				Streams: []string{doneStream, "0"},
				Count:   100,
				Block:   -1,
			}).Result()
			if err != nil && err != redis.Nil {
				continue
			}

			for _, stream := range results {
				for _, msg := range stream.Messages {
					dataStr, ok := msg.Values["data"].(string)
					if !ok {
						continue
					}

					var response map[string]interface{}
					if err := json.Unmarshal([]byte(dataStr), &response); err != nil {
						continue
					}

					if jobID, ok := response["job_id"].(string); ok && jobID == event.JobID.String() {
						fmt.Printf("\nResponse received\n")
						pretty, _ := json.MarshalIndent(response, "", "  ")
						fmt.Printf("%s\n", pretty)
						return
					}
				}
			}
		}
	}
}
