package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/PabloGalante/serviceai-agent/internal/domain"
	"github.com/PabloGalante/serviceai-agent/internal/observability"
)

// TaskTypeHandoff is the task enqueued when a user is handed off to a human.
const TaskTypeHandoff = "support:handoff"

// QueueSupport is the asynq queue handoff tasks go to.
const QueueSupport = "support"

type handoffPayload struct {
	Name        string    `json:"name"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewHandoffTask encodes req as an asynq task.
func NewHandoffTask(req domain.HandoffRequest) (*asynq.Task, error) {
	payload, err := json.Marshal(handoffPayload{Name: req.Name, RequestedAt: req.RequestedAt})
	if err != nil {
		return nil, fmt.Errorf("asynq: encode handoff: %w", err)
	}
	return asynq.NewTask(TaskTypeHandoff, payload), nil
}

// DecodeHandoff is the inverse of NewHandoffTask.
func DecodeHandoff(t *asynq.Task) (domain.HandoffRequest, error) {
	var p handoffPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return domain.HandoffRequest{}, fmt.Errorf("asynq: decode handoff: %w", err)
	}
	if strings.TrimSpace(p.Name) == "" {
		return domain.HandoffRequest{}, errors.New("asynq: handoff without a name")
	}
	return domain.HandoffRequest{Name: p.Name, RequestedAt: p.RequestedAt}, nil
}

// ===================== Client =====================

// Notifier implements domain.HandoffNotifier on top of an asynq client
// backed by Redis.
type Notifier struct {
	client *asynq.Client
}

var _ domain.HandoffNotifier = (*Notifier)(nil)

func NewNotifier(redisURL string) (*Notifier, error) {
	if redisURL == "" {
		return nil, errors.New("asynq: redis URL is required")
	}
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("asynq: parse redis URL: %w", err)
	}
	return &Notifier{client: asynq.NewClient(opt)}, nil
}

func (n *Notifier) NotifyHandoff(ctx context.Context, req domain.HandoffRequest) error {
	task, err := NewHandoffTask(req)
	if err != nil {
		return err
	}

	info, err := n.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueSupport),
		asynq.MaxRetry(5),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return fmt.Errorf("asynq: enqueue handoff: %w", err)
	}

	observability.LoggerFromContext(ctx).Info("handoff enqueued", "task_id", info.ID, "name", req.Name)
	return nil
}

func (n *Notifier) Close() error {
	return n.client.Close()
}

// ===================== Server =====================

// HandoffHandler processes one handoff request on the worker side.
type HandoffHandler func(ctx context.Context, req domain.HandoffRequest) error

// Worker consumes handoff tasks.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewWorker builds a worker for redisURL. queues is a CSV of weights such as
// "support=6,default=1"; empty means the support queue only.
func NewWorker(redisURL string, concurrency int, queues string, handle HandoffHandler) (*Worker, error) {
	if redisURL == "" {
		return nil, errors.New("asynq: redis URL is required")
	}
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("asynq: parse redis URL: %w", err)
	}
	if concurrency <= 0 {
		concurrency = 4
	}

	weights := map[string]int{QueueSupport: 1}
	if parsed := ParseQueueWeights(queues); len(parsed) > 0 {
		weights = parsed
	}

	log := observability.Logger()
	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      weights,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Error("asynq task failed", "type", task.Type(), "error", err)
		}),
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeHandoff, HandoffTaskHandler(handle))
	return &Worker{server: srv, mux: mux}, nil
}

// HandoffTaskHandler adapts handle to an asynq handler. Malformed payloads
// are not retried.
func HandoffTaskHandler(handle HandoffHandler) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, t *asynq.Task) error {
		req, err := DecodeHandoff(t)
		if err != nil {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		return handle(ctx, req)
	}
}

// Run starts the worker and blocks until ctx is canceled, then shuts down
// gracefully.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return err
	}
	<-ctx.Done()
	w.server.Shutdown()
	return nil
}

// ParseQueueWeights parses strings like "support=6,default=1".
func ParseQueueWeights(s string) map[string]int {
	res := make(map[string]int)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		name := strings.TrimSpace(kv[0])
		if name == "" {
			continue
		}
		w := 1
		if len(kv) == 2 {
			if i, err := strconv.Atoi(strings.TrimSpace(kv[1])); err == nil && i > 0 {
				w = i
			}
		}
		res[name] = w
	}
	return res
}
