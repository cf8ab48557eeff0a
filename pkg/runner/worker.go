package runner

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/sony/sonyflake"
	"go.uber.org/zap"

	"github.com/lzyats/cloud-message-go/pkg/cloudmsg"
	"github.com/lzyats/cloud-message-go/pkg/dispatch"
	"github.com/lzyats/cloud-message-go/pkg/event"
	"github.com/lzyats/cloud-message-go/pkg/metrics"
	"github.com/lzyats/cloud-message-go/pkg/producer"
	"github.com/lzyats/cloud-message-go/pkg/registry"
	mysqlstore "github.com/lzyats/cloud-message-go/pkg/store/mysql"
	redisstore "github.com/lzyats/cloud-message-go/pkg/store/redis"
	"github.com/lzyats/cloud-message-go/pkg/transport"
)

// Worker consumes queued dispatch requests from Redis, pushes them through
// the dispatch service, and publishes an outcome event per request.
type Worker struct {
	st    cloudmsg.Settings
	store *redisstore.Store
	mysql *mysqlstore.Store
	svc   *dispatch.Service
	rmq   *producer.RocketMQProducer
	sf    *sonyflake.Sonyflake
	log   *zap.Logger
}

func NewWorker(st cloudmsg.Settings, log *zap.Logger) (*Worker, error) {
	st = st.WithDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	if st.Redis.Enabled != "Y" {
		return nil, cloudmsg.ErrNotConfigured
	}

	store, err := redisstore.New(st.Redis)
	if err != nil {
		return nil, err
	}

	w := &Worker{
		st:    st,
		store: store,
		sf:    sonyflake.NewSonyflake(sonyflake.Settings{}),
		log:   log,
	}

	// Registry backend: MySQL when enabled, otherwise the Redis store.
	var reg registry.Registry = store
	if st.MySQL.Enabled == "Y" {
		m, err := mysqlstore.New(st.MySQL)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		w.mysql = m
		reg = m
	}

	w.svc = dispatch.New(st, transport.New(st), reg, log)

	if st.RocketMQ.Enabled == "Y" {
		rmq, err := producer.NewRocketMQ(st.RocketMQ)
		if err != nil {
			w.Close()
			return nil, err
		}
		w.rmq = rmq
	}
	return w, nil
}

func (w *Worker) Close() {
	if w.rmq != nil {
		_ = w.rmq.Close()
	}
	if w.mysql != nil {
		_ = w.mysql.Close()
	}
	if w.store != nil {
		_ = w.store.Close()
	}
}

func (w *Worker) Run(ctx context.Context) error {
	queueKey := strings.TrimSpace(w.st.Redis.QueueKey)
	if queueKey == "" {
		queueKey = "dispatch:queue"
	}

	w.log.Info("dispatch worker started",
		zap.String("queue_key", queueKey),
		zap.String("mysql", w.st.MySQL.Enabled),
		zap.String("rocketmq", w.st.RocketMQ.Enabled))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		payload, err := w.store.Pop(ctx, queueKey, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.log.Warn("redis pop error", zap.Error(err))
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if payload == "" {
			continue
		}
		metrics.QueueConsumed.Inc()

		req, err := redisstore.DecodeRequest(payload)
		if err != nil {
			metrics.QueueDecodeFail.Inc()
			w.log.Warn("decode error", zap.Error(err), zap.String("payload", payload))
			continue
		}

		w.handle(ctx, req)
	}
}

func (w *Worker) handle(ctx context.Context, req cloudmsg.Request) {
	responses, err := w.svc.SendBulk(ctx, req.RegistrationIDs, req.Data, req.CloudType, req.Options)

	evt := &event.DispatchEvent{
		Event:      event.EventDispatched,
		TraceID:    w.traceID(),
		CloudType:  string(req.CloudType),
		Recipients: len(req.RegistrationIDs),
		Chunks:     len(responses),
	}
	for _, resp := range responses {
		evt.Success += resp.Success
		evt.Failure += resp.Failure
		evt.CanonicalIDs += resp.CanonicalIDs
	}
	if err != nil {
		evt.Error = err.Error()
		w.log.Warn("dispatch failed",
			zap.String("trace_id", evt.TraceID),
			zap.String("cloud_type", evt.CloudType),
			zap.Int("recipients", evt.Recipients),
			zap.Error(err))
	} else {
		w.log.Info("dispatch done",
			zap.String("trace_id", evt.TraceID),
			zap.String("cloud_type", evt.CloudType),
			zap.Int("recipients", evt.Recipients),
			zap.Int("chunks", evt.Chunks),
			zap.Int("failure", evt.Failure))
	}

	if w.rmq != nil {
		if perr := w.rmq.Publish(ctx, evt); perr != nil && !errors.Is(perr, context.Canceled) {
			w.log.Warn("event publish failed", zap.String("trace_id", evt.TraceID), zap.Error(perr))
		}
	}
}

func (w *Worker) traceID() string {
	id, err := w.sf.NextID()
	if err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return strconv.FormatUint(id, 10)
}
