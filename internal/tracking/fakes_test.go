package tracking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Champ-Deep/ChampMail-sub000/internal/types"
)

type fakeEvents struct {
	mu     sync.Mutex
	events []types.EngagementEvent
}

func (f *fakeEvents) RecordEvent(_ context.Context, event types.EngagementEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

type fakeSends struct {
	records     map[string]*types.SendRecord
	lookupErr   error
	bounceErr   error
	bounced     map[string]types.BounceClassification
	firstOpens  int
	firstClicks int
}

func newFakeSends() *fakeSends {
	return &fakeSends{
		records: map[string]*types.SendRecord{},
		bounced: map[string]types.BounceClassification{},
	}
}

func (f *fakeSends) MarkFirstOpen(context.Context, string, string, time.Time) error {
	f.firstOpens++
	return nil
}

func (f *fakeSends) MarkFirstClick(context.Context, string, string, time.Time) error {
	f.firstClicks++
	return nil
}

func (f *fakeSends) FindSendByMessageID(_ context.Context, messageID string) (*types.SendRecord, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	return f.records[messageID], nil
}

func (f *fakeSends) RecordBounce(_ context.Context, sendID string, c types.BounceClassification, _ time.Time) error {
	if f.bounceErr != nil {
		return f.bounceErr
	}
	f.bounced[sendID] = c
	return nil
}

type fakeProspects struct {
	byID    map[string]string
	byEmail map[string]string
	err     error
}

func newFakeProspects() *fakeProspects {
	return &fakeProspects{byID: map[string]string{}, byEmail: map[string]string{}}
}

func (f *fakeProspects) SetProspectStatus(_ context.Context, prospectID, status string) error {
	if f.err != nil {
		return f.err
	}
	f.byID[prospectID] = status
	return nil
}

func (f *fakeProspects) SetProspectStatusByEmail(_ context.Context, email, status string) error {
	if f.err != nil {
		return f.err
	}
	f.byEmail[email] = status
	return nil
}

var errBoom = errors.New("boom")
