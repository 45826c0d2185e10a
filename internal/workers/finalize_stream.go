package workers

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// FinalizeStreamPool queues finalizations on a Redis stream so any replica
// can pick them up. Each entry carries a call id; the session itself stays
// in the shared session store.
type FinalizeStreamPool struct {
	Redis      *redis.Client
	Runner     Runner
	NumWorkers int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string

	// Block is how long one XREADGROUP waits for new entries.
	Block time.Duration

	wg sync.WaitGroup
}

func (p *FinalizeStreamPool) defaults() {
	if p.Stream == "" {
		p.Stream = "finalize:stream"
	}
	if p.Group == "" {
		p.Group = "finalize-workers"
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 4
	}
	if p.Block <= 0 {
		p.Block = 5 * time.Second
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}
}

// Dispatch appends callID to the stream.
func (p *FinalizeStreamPool) Dispatch(ctx context.Context, callID string) error {
	if p.Redis == nil {
		return errors.New("FinalizeStreamPool missing dependency: Redis must be set")
	}
	p.defaults()
	return p.Redis.XAdd(ctx, &redis.XAddArgs{
		Stream: p.Stream,
		Values: map[string]any{"call_id": callID},
	}).Err()
}

// Start launches the consumers. They stop reading when ctx is done; entries
// already taken are finished and acknowledged first. Entries left pending by
// a previous process under the same consumer name are processed before new ones.
func (p *FinalizeStreamPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Runner == nil {
		return errors.New("FinalizeStreamPool missing dependency: Redis/Runner must be set")
	}
	p.defaults()

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		p.wg.Add(1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

// Stop waits for the consumers to exit. Cancel the Start context first.
func (p *FinalizeStreamPool) Stop() {
	p.wg.Wait()
}

func (p *FinalizeStreamPool) runConsumer(ctx context.Context, consumer string) {
	defer p.wg.Done()

	// "0" replays this consumer's pending entries, ">" reads new ones.
	start := "0"
	for {
		if ctx.Err() != nil {
			return
		}

		args := &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, start},
			Count:    10,
		}
		if start == ">" {
			args.Block = p.Block
		} else {
			// pending history answers at once; -1 omits BLOCK
			args.Block = -1
		}

		res, err := p.Redis.XReadGroup(ctx, args).Result()
		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				if start == "0" {
					start = ">"
				}
				continue
			}
			p.Logger.WithError(err).WithField("consumer", consumer).Warn("finalize stream read failed")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		n := 0
		for _, stream := range res {
			for _, msg := range stream.Messages {
				if ctx.Err() != nil {
					return
				}
				p.handleMsg(ctx, msg)
				n++
			}
		}
		if start == "0" && n == 0 {
			start = ">"
		}
	}
}

func (p *FinalizeStreamPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	// A run that started finishes and is acknowledged even during shutdown.
	runCtx := context.WithoutCancel(ctx)

	callID, _ := msg.Values["call_id"].(string)
	if callID != "" {
		log := p.Logger.WithFields(logrus.Fields{"redis_id": msg.ID, "call_id": callID})

		// The claim inside Run makes redelivery harmless.
		if err := p.Runner.Run(runCtx, callID); err != nil {
			log.WithError(err).Warn("finalization returned error")
		}
	}

	if err := p.Redis.XAck(runCtx, p.Stream, p.Group, msg.ID).Err(); err != nil {
		p.Logger.WithError(err).WithField("redis_id", msg.ID).Warn("finalize stream ack failed")
	}
}
