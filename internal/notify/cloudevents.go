package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	cehttp "github.com/cloudevents/sdk-go/v2/protocol/http"
	"github.com/google/uuid"
	pkgotel "github.com/openshift-hyperfleet/hub-clusters/pkg/otel"
)

// CloudEvent attributes of published notifications
const (
	EventSource      = "hub-clusters"
	EventTypeSuccess = "com.redhat.hub-clusters.notification.success"
	EventTypeDanger  = "com.redhat.hub-clusters.notification.danger"

	DefaultEventTimeout = 5 * time.Second
)

// CloudEventsNotifier publishes notifications as CloudEvents over HTTP
type CloudEventsNotifier struct {
	client cloudevents.Client
	source string
}

var _ Notifier = &CloudEventsNotifier{}

// NewCloudEventsNotifier creates a notifier posting structured events to target
func NewCloudEventsNotifier(target string, timeout time.Duration) (*CloudEventsNotifier, error) {
	if target == "" {
		return nil, fmt.Errorf("notification target is required")
	}
	if timeout <= 0 {
		timeout = DefaultEventTimeout
	}
	client, err := cloudevents.NewClientHTTP(
		cloudevents.WithTarget(target),
		cehttp.WithClient(http.Client{Timeout: timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudevents client: %w", err)
	}
	return &CloudEventsNotifier{client: client, source: EventSource}, nil
}

// NewEvent builds the CloudEvent for n. The trace context of ctx is carried
// in the traceparent/tracestate extensions.
func NewEvent(ctx context.Context, source string, n Notification) (cloudevents.Event, error) {
	evt := cloudevents.NewEvent()
	evt.SetID(uuid.NewString())
	evt.SetSource(source)
	evt.SetTime(time.Now().UTC())
	switch n.Variant {
	case VariantDanger:
		evt.SetType(EventTypeDanger)
	default:
		evt.SetType(EventTypeSuccess)
	}
	if err := evt.SetData(cloudevents.ApplicationJSON, n); err != nil {
		return evt, fmt.Errorf("failed to encode notification: %w", err)
	}
	pkgotel.InjectTraceContextIntoCloudEvent(ctx, &evt)
	return evt, nil
}

func (n *CloudEventsNotifier) Notify(ctx context.Context, notification Notification) error {
	evt, err := NewEvent(ctx, n.source, notification)
	if err != nil {
		return err
	}

	result := n.client.Send(ctx, evt)
	if cloudevents.IsUndelivered(result) {
		return fmt.Errorf("failed to deliver notification %s: %w", evt.ID(), result)
	}
	var httpResult *cehttp.Result
	if cloudevents.ResultAs(result, &httpResult) && httpResult.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("notification %s rejected with status %d", evt.ID(), httpResult.StatusCode)
	}
	return nil
}
