// Package tasks enqueues color changes onto the Cloud Tasks queue that
// feeds the /set-color worker.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	cloudtasks "cloud.google.com/go/cloudtasks/apiv2"
	"cloud.google.com/go/cloudtasks/apiv2/cloudtaskspb"

	"github.com/hwalther/lightson/internal/logger"
)

// Enqueuer schedules a color change for asynchronous delivery
type Enqueuer interface {
	EnqueueColor(ctx context.Context, color string) error
}

// Config holds the queue settings
type Config struct {
	Project        string
	Location       string
	Queue          string
	WorkerURL      string
	ServiceAccount string
}

// CloudTasks is an Enqueuer backed by Google Cloud Tasks
type CloudTasks struct {
	cfg    Config
	client *cloudtasks.Client
}

var _ Enqueuer = (*CloudTasks)(nil)

// NewCloudTasks creates a client using ambient credentials
func NewCloudTasks(ctx context.Context, cfg Config) (*CloudTasks, error) {
	client, err := cloudtasks.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Cloud Tasks client: %w", err)
	}
	return &CloudTasks{cfg: cfg, client: client}, nil
}

// EnqueueColor creates a task that POSTs the color to the worker with an
// OIDC token for the configured service account
func (t *CloudTasks) EnqueueColor(ctx context.Context, color string) error {
	task, err := buildTask(t.cfg, color)
	if err != nil {
		return err
	}

	req := &cloudtaskspb.CreateTaskRequest{
		Parent: queuePath(t.cfg),
		Task:   task,
	}
	if _, err := t.client.CreateTask(ctx, req); err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	logger.WithComponent("tasks").Info().Str("color", color).Msg("Color change enqueued")
	return nil
}

// Close releases the underlying client
func (t *CloudTasks) Close() error {
	return t.client.Close()
}

func queuePath(cfg Config) string {
	return fmt.Sprintf("projects/%s/locations/%s/queues/%s", cfg.Project, cfg.Location, cfg.Queue)
}

func buildTask(cfg Config, color string) (*cloudtaskspb.Task, error) {
	payload, err := json.Marshal(map[string]string{"color": color})
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	return &cloudtaskspb.Task{
		MessageType: &cloudtaskspb.Task_HttpRequest{
			HttpRequest: &cloudtaskspb.HttpRequest{
				HttpMethod: cloudtaskspb.HttpMethod_POST,
				Url:        cfg.WorkerURL + "/set-color",
				Headers:    map[string]string{"Content-Type": "application/json"},
				Body:       payload,
				AuthorizationHeader: &cloudtaskspb.HttpRequest_OidcToken{
					OidcToken: &cloudtaskspb.OidcToken{
						ServiceAccountEmail: cfg.ServiceAccount,
					},
				},
			},
		},
	}, nil
}
