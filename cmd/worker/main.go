package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nexus-rag/nexus/internal/config"
	"github.com/nexus-rag/nexus/internal/db"
	"github.com/nexus-rag/nexus/internal/retention"
	"github.com/nexus-rag/nexus/internal/secure"
	"github.com/nexus-rag/nexus/internal/store/rabbitmq"
)

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

// deliveryAttempt reads how many times this message has already been
// through the retry loop. First delivery carries no header.
func deliveryAttempt(d amqp.Delivery) int {
	switch v := d.Headers[rabbitmq.AttemptHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.RabbitURL == "" {
		log.Fatalf("RABBIT_URL is required for the log worker")
	}

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	repo := secure.NewRepo(gdb)

	sweeper := retention.NewSweeper(
		repo,
		time.Duration(cfg.ChatRetentionHours)*time.Hour,
		time.Duration(cfg.LogRetentionHours)*time.Hour,
	)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("rabbit dial: %v", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("rabbit channel: %v", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(cfg.RabbitQueue+".dlq", true, false, false, false, nil); err != nil {
		log.Fatalf("dlq declare: %v", err)
	}
	if _, err := ch.QueueDeclare(cfg.RabbitQueue+".retry", true, false, false, false, amqp.Table{
		"x-message-ttl":             int32(rabbitmq.RetryDelayMS),
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": cfg.RabbitQueue,
	}); err != nil {
		log.Fatalf("retry declare: %v", err)
	}
	if _, err := ch.QueueDeclare(cfg.RabbitQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": cfg.RabbitQueue + ".dlq",
	}); err != nil {
		log.Fatalf("queue declare: %v", err)
	}

	concurrency := workerConcurrency()
	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sweeper.Run(ctx, time.Duration(cfg.SweepIntervalMin)*time.Minute)

	log.Printf("log worker started, queue=%s concurrency=%d", cfg.RabbitQueue, concurrency)

	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				var job rabbitmq.AppendJob
				if err := json.Unmarshal(d.Body, &job); err != nil || job.SessionKey == "" || job.Role == "" {
					log.Printf("worker=%d bad message: %v", workerID, err)
					_ = d.Nack(false, false)
					continue
				}

				err := repo.InsertMessage(ctx, &secure.Message{
					SessionID: job.SessionKey,
					Role:      job.Role,
					Content:   job.Ciphertext,
				})
				if err != nil {
					attempt := deliveryAttempt(d)
					if attempt >= rabbitmq.MaxAppendAttempts {
						// Give up; the DLQ keeps the entry around for
						// inspection and a lost log line is accepted.
						log.Printf("worker=%d append failed job=%s attempt=%d err=%v", workerID, job.ID, attempt, err)
						_ = d.Nack(false, false)
						continue
					}
					if rerr := ch.PublishWithContext(ctx, "", cfg.RabbitQueue+".retry", false, false, amqp.Publishing{
						ContentType:  d.ContentType,
						DeliveryMode: amqp.Persistent,
						Body:         d.Body,
						Headers:      amqp.Table{rabbitmq.AttemptHeader: int32(attempt + 1)},
					}); rerr != nil {
						log.Printf("worker=%d retry publish failed job=%s err=%v", workerID, job.ID, rerr)
						_ = d.Nack(false, false)
						continue
					}
					log.Printf("worker=%d append failed job=%s attempt=%d, parked for retry err=%v", workerID, job.ID, attempt, err)
					_ = d.Ack(false)
					continue
				}

				if err := d.Ack(false); err != nil {
					log.Printf("worker=%d ack failed job=%s err=%v", workerID, job.ID, err)
				}
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			log.Printf("worker shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				log.Printf("delivery channel closed")
				time.Sleep(1 * time.Second)
				continue
			}
			jobs <- d
		}
	}
}
