package store

import (
	"context"
	"testing"
)

func TestUpsertSubscriptionReplacesKeys(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sub := &PushSubscription{
		Endpoint:  "https://push.example/abc",
		P256dhKey: "key-1",
		AuthKey:   "auth-1",
	}
	if err := s.UpsertSubscription(ctx, sub); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	sub.P256dhKey = "key-2"
	sub.IsAdmin = true
	if err := s.UpsertSubscription(ctx, sub); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}

	subs, err := s.ListSubscriptions(ctx, false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("expected single subscription, got %d", len(subs))
	}
	if subs[0].P256dhKey != "key-2" || !subs[0].IsAdmin {
		t.Fatalf("unexpected subscription after upsert: %+v", subs[0])
	}
}

func TestListSubscriptionsAdminOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, sub := range []*PushSubscription{
		{Endpoint: "https://push.example/a", P256dhKey: "k", AuthKey: "a"},
		{Endpoint: "https://push.example/b", P256dhKey: "k", AuthKey: "a", IsAdmin: true},
	} {
		if err := s.UpsertSubscription(ctx, sub); err != nil {
			t.Fatalf("upsert %s: %v", sub.Endpoint, err)
		}
	}

	admins, err := s.ListSubscriptions(ctx, true)
	if err != nil {
		t.Fatalf("list admins: %v", err)
	}
	if len(admins) != 1 || admins[0].Endpoint != "https://push.example/b" {
		t.Fatalf("unexpected admin list: %+v", admins)
	}
}

func TestDeleteSubscription(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sub := &PushSubscription{Endpoint: "https://push.example/gone", P256dhKey: "k", AuthKey: "a"}
	if err := s.UpsertSubscription(ctx, sub); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	deleted, err := s.DeleteSubscription(ctx, sub.Endpoint)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !deleted {
		t.Fatal("expected deletion")
	}

	deleted, err = s.DeleteSubscription(ctx, sub.Endpoint)
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if deleted {
		t.Fatal("second delete should report no change")
	}
}

func TestTouchSubscription(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sub := &PushSubscription{Endpoint: "https://push.example/touch", P256dhKey: "k", AuthKey: "a"}
	if err := s.UpsertSubscription(ctx, sub); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.TouchSubscription(ctx, sub.Endpoint); err != nil {
		t.Fatalf("touch: %v", err)
	}

	subs, err := s.ListSubscriptions(ctx, false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if subs[0].LastUsedAt == nil {
		t.Fatal("expected last_used_at to be set after touch")
	}
}
