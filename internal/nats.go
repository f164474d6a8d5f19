package internal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	subjectSyncRequest   = "lol.sync.request"
	subjectSyncCompleted = "lol.sync.completed"

	workerSyncTimeout = 2 * time.Minute
)

type NATSClient struct {
	Conn   *nats.Conn
	logger *Logger
}

func NewNATSClient(cfg *Config, logger *Logger) (*NATSClient, error) {
	conn, err := nats.Connect(cfg.NATSUrl,
		nats.Name(cfg.NATSClientID),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return &NATSClient{Conn: conn, logger: logger}, nil
}

func (nc *NATSClient) Publish(subject string, data []byte) error {
	return nc.Conn.Publish(subject, data)
}

// PublishSyncCompleted signals downstream read caches that a player's
// mirror just changed.
func (nc *NATSClient) PublishSyncCompleted(event SyncCompletedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return nc.Publish(subjectSyncCompleted, data)
}

// PublishSyncTask enqueues a background refresh for a player. The worker
// path reuses the coordinator, so scheduled refreshes and human triggers
// share the same cooldown and idempotence guarantees.
func (nc *NATSClient) PublishSyncTask(task SyncTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return nc.Publish(subjectSyncRequest, data)
}

func (nc *NATSClient) StartSyncWorker(coordinator *SyncCoordinator) (*nats.Subscription, error) {
	handler := func(msg *nats.Msg) {
		nc.processSyncTask(msg, coordinator)
	}

	sub, err := nc.Conn.QueueSubscribe(subjectSyncRequest, "sync-workers", handler)
	if err != nil {
		return nil, err
	}

	nc.logger.Info("sync_worker_started").
		Component("nats").
		Operation("start_worker").
		Meta("subject", subjectSyncRequest).
		Log()
	return sub, nil
}

func (nc *NATSClient) processSyncTask(msg *nats.Msg, coordinator *SyncCoordinator) {
	var task SyncTask
	if err := json.Unmarshal(msg.Data, &task); err != nil {
		nc.logger.Error("sync_task_decode_failed").
			Component("nats").
			Operation("process_sync_task").
			Err(err).
			Log()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), workerSyncTimeout)
	defer cancel()

	report, err := coordinator.Sync(ctx, task.PUUID)
	if err != nil {
		// Cooldown rejections are routine here: a human trigger may have
		// raced the scheduler.
		if ErrorCodeOf(err) == ErrCodeCooldown {
			nc.logger.Debug("sync_task_on_cooldown").
				Component("nats").
				Operation("process_sync_task").
				Player(task.PUUID, task.Region).
				Log()
			return
		}
		nc.logger.Error("sync_task_failed").
			Component("nats").
			Operation("process_sync_task").
			Player(task.PUUID, task.Region).
			Err(err).
			Log()
		return
	}

	nc.logger.Info("sync_task_completed").
		Component("nats").
		Operation("process_sync_task").
		Sync(report.SyncID).
		Player(task.PUUID, task.Region).
		Meta("status", string(report.Status)).
		Log()
}
