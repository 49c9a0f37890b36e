package api

import (
	"context"

	"github.com/vanamuthuV/logsy/services/alerter/internal/subscribers"
)

// mockStore implements SubscriberStore for testing.
type mockStore struct {
	List    []subscribers.Subscriber
	LoadErr error
	SaveErr error
	Saved   []subscribers.Subscriber
}

func (m *mockStore) Load(ctx context.Context) ([]subscribers.Subscriber, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return m.List, nil
}

func (m *mockStore) Save(ctx context.Context, list []subscribers.Subscriber) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	if err := subscribers.Validate(list); err != nil {
		return err
	}
	m.Saved = list
	return nil
}

// mockStatus implements Status for testing.
type mockStatus struct {
	PingErr  error
	Resolved bool
	Names    []string
}

func (m *mockStatus) Ping(ctx context.Context) error { return m.PingErr }
func (m *mockStatus) IdentityResolved() bool         { return m.Resolved }
func (m *mockStatus) Notifiers() []string            { return m.Names }
