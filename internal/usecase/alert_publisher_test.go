package usecase

import (
	"context"
	"errors"
	"testing"

	"PolyCorr/internal/domain/models"
)

type failingSink struct{}

func (failingSink) Init(context.Context) error                            { return nil }
func (failingSink) Store(context.Context, *models.Correlation) error      { return errors.New("sink down") }
func (failingSink) StoreBatch(context.Context, []*models.Correlation) error {
	return errors.New("sink down")
}
func (failingSink) Health(context.Context) error { return nil }
func (failingSink) Close() error                 { return nil }

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, *models.Correlation) error {
	return errors.New("broker down")
}
func (failingPublisher) Close() error { return nil }

func TestDispatcherToleratesNilLoggerAndMetrics(t *testing.T) {
	d := NewAlertDispatcher(failingPublisher{}, failingSink{}, nil, nil)
	c := &models.Correlation{CorrelationID: "corr-1", MarketIDA: "mkt-a", MarketIDB: "mkt-b"}

	// Both paths hit their error branches; neither may panic.
	d.store(c)
	d.alert(c)
}
