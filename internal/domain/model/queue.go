package model

import (
	"errors"
	"strings"
)

var (
	// ErrQueueNotFound is returned when a queue id is unknown.
	ErrQueueNotFound = errors.New("queue not found")
	// ErrDestinationNotFound is returned when a destination id is unknown.
	ErrDestinationNotFound = errors.New("destination not found")
)

// DefaultPolicy is the load balancer key assigned to queues without one.
const DefaultPolicy = "default"

// Queue groups destinations sharing one load balancing policy.
type Queue struct {
	ID     string `json:"id"     yaml:"id"`
	Name   string `json:"name"   yaml:"name"`
	Policy string `json:"policy" yaml:"policy"`
}

// Validate checks required fields and fills in the default policy.
func (q *Queue) Validate() error {
	if q == nil {
		return errors.New("queue is required")
	}
	q.ID = strings.TrimSpace(q.ID)
	if q.ID == "" {
		return errors.New("queue id is required")
	}
	if strings.TrimSpace(q.Name) == "" {
		q.Name = q.ID
	}
	if strings.TrimSpace(q.Policy) == "" {
		q.Policy = DefaultPolicy
	}
	return nil
}

// Destination is a physical printer belonging to a queue.
type Destination struct {
	ID      string `json:"id"      yaml:"id"`
	Name    string `json:"name"    yaml:"name"`
	QueueID string `json:"queue"   yaml:"queue"`
	Up      bool   `json:"up"      yaml:"up"`
	Address string `json:"address" yaml:"address"`
}

// Validate checks required fields.
func (d *Destination) Validate() error {
	if d == nil {
		return errors.New("destination is required")
	}
	d.ID = strings.TrimSpace(d.ID)
	if d.ID == "" {
		return errors.New("destination id is required")
	}
	if strings.TrimSpace(d.QueueID) == "" {
		return errors.New("destination queue is required")
	}
	if strings.TrimSpace(d.Name) == "" {
		d.Name = d.ID
	}
	return nil
}
