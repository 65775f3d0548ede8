// Package notify delivers user facing notifications produced by tagging
// operations.
package notify

import (
	"context"
	"fmt"

	"github.com/openshift-hyperfleet/hub-clusters/pkg/logger"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

// Variant is the severity of a notification
type Variant string

const (
	VariantSuccess Variant = "success"
	VariantDanger  Variant = "danger"
)

// Notification is a dismissable message for the console
type Notification struct {
	Variant Variant `json:"variant"`
	Title   string  `json:"title"`
	// Count is the number of clusters the notification refers to
	Count int `json:"count"`
	// ClusterIDs lists the clusters the notification refers to
	ClusterIDs []string `json:"cluster_ids,omitempty"`
}

// Notifier delivers notifications
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the service log
type LogNotifier struct {
	log logger.Logger
}

var _ Notifier = &LogNotifier{}

// NewLogNotifier creates a notifier backed by log
func NewLogNotifier(log logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(ctx context.Context, notification Notification) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		"notification_variant": string(notification.Variant),
		"notification_count":   notification.Count,
	})
	n.log.Info(ctx, notification.Title)
	return nil
}

// Multi delivers to every notifier and aggregates their errors
type Multi []Notifier

var _ Notifier = Multi{}

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for i, notifier := range m {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("notifier %d: %w", i, err))
		}
	}
	return utilerrors.NewAggregate(errs)
}

// Discard drops every notification
type Discard struct{}

func (Discard) Notify(context.Context, Notification) error { return nil }
