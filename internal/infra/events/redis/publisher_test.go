package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Aamm5845/residentone-workflow-sub002/internal/core"
	"github.com/Aamm5845/residentone-workflow-sub002/pkg/domain"
	goredis "github.com/redis/go-redis/v9"
)

type published struct {
	channel string
	payload []byte
}

type fakeClient struct {
	sent   []published
	fail   error
	closed bool
}

func (f *fakeClient) Publish(ctx context.Context, channel string, message any) *goredis.IntCmd {
	cmd := goredis.NewIntCmd(ctx, "publish", channel, message)
	if f.fail != nil {
		cmd.SetErr(f.fail)
		return cmd
	}
	raw, _ := message.([]byte)
	f.sent = append(f.sent, published{channel: channel, payload: raw})
	cmd.SetVal(1)
	return cmd
}

func (f *fakeClient) Subscribe(context.Context, ...string) *goredis.PubSub { return nil }

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func TestPublishEncodesEvent(t *testing.T) {
	fc := &fakeClient{}
	pub := newPublisher(fc, "")
	if pub.Channel() != DefaultChannel {
		t.Fatalf("channel = %q, want default", pub.Channel())
	}
	at := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)
	event := core.RoomEvent{
		RoomID:   "room-1",
		ItemID:   "item-1",
		Kind:     core.EventStatusChanged,
		ActorID:  "member-1",
		At:       at,
		Progress: domain.Progress{Total: 3, Completed: 1, Percent: 33},
	}
	if err := pub.Publish(context.Background(), event); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(fc.sent) != 1 || fc.sent[0].channel != DefaultChannel {
		t.Fatalf("unexpected publishes %+v", fc.sent)
	}
	var raw map[string]any
	if err := json.Unmarshal(fc.sent[0].payload, &raw); err != nil {
		t.Fatalf("payload not json: %v", err)
	}
	if raw["kind"] != string(core.EventStatusChanged) || raw["room_id"] != "room-1" {
		t.Fatalf("unexpected payload %v", raw)
	}
	decoded, err := DecodeEvent(string(fc.sent[0].payload))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Progress.Percent != 33 || !decoded.At.Equal(at) {
		t.Fatalf("unexpected decoded event %+v", decoded)
	}
}

func TestPublishWrapsClientError(t *testing.T) {
	boom := errors.New("connection refused")
	pub := newPublisher(&fakeClient{fail: boom}, "rooms")
	err := pub.Publish(context.Background(), core.RoomEvent{RoomID: "r", Kind: core.EventInstantiated})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped client error, got %v", err)
	}
	if !strings.Contains(err.Error(), "rooms") {
		t.Fatalf("expected channel in error, got %v", err)
	}
}

func TestNilPublisher(t *testing.T) {
	var pub *Publisher
	if err := pub.Publish(context.Background(), core.RoomEvent{}); err == nil {
		t.Fatalf("expected error from nil publisher")
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("close nil publisher: %v", err)
	}
}

func TestForwardRequiresCallback(t *testing.T) {
	pub := newPublisher(&fakeClient{}, "rooms")
	if err := pub.Forward(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected error without callback")
	}
}

func TestCloseClosesClient(t *testing.T) {
	fc := &fakeClient{}
	if err := newPublisher(fc, "x").Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !fc.closed {
		t.Fatalf("expected client closed")
	}
}

func TestDecodeEventRejectsIncomplete(t *testing.T) {
	for _, payload := range []string{"nope", `{"room_id":"r"}`, `{"kind":"room.instantiated"}`} {
		if _, err := DecodeEvent(payload); err == nil {
			t.Fatalf("expected error for %q", payload)
		}
	}
}

func TestNewRequiresAddress(t *testing.T) {
	if _, err := New(context.Background(), Config{Addr: "  "}); err == nil {
		t.Fatalf("expected error without address")
	}
}

func TestServicePublishesThroughRedis(t *testing.T) {
	fc := &fakeClient{}
	svc := core.NewInMemoryService(nil, core.WithEventPublisher(newPublisher(fc, "rooms")))
	ctx := domain.WithActor(context.Background(), domain.Actor{ID: "admin-1", Role: domain.RoleAdmin})
	tpl, _, err := svc.CreateTemplate(ctx, "Den", "")
	if err != nil {
		t.Fatalf("create template: %v", err)
	}
	if _, _, err := svc.Instantiate(ctx, "den-1", tpl.ID); err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	if len(fc.sent) != 1 {
		t.Fatalf("expected one event, got %d", len(fc.sent))
	}
	event, err := DecodeEvent(string(fc.sent[0].payload))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.Kind != core.EventInstantiated || event.RoomID != "den-1" || event.Progress.Percent != 100 {
		t.Fatalf("unexpected event %+v", event)
	}
}
