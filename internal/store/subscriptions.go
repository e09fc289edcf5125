package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PushSubscription is one Web Push endpoint registered by a device.
type PushSubscription struct {
	Endpoint   string
	P256dhKey  string
	AuthKey    string
	IsAdmin    bool
	CreatedAt  time.Time
	LastUsedAt *time.Time
}

// UpsertSubscription stores a subscription keyed by endpoint. Re-subscribing
// refreshes the keys and the admin flag.
func (s *Store) UpsertSubscription(ctx context.Context, sub *PushSubscription) error {
	if sub == nil {
		return errors.New("subscription is nil")
	}
	now := time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO push_subscriptions (endpoint, p256dh_key, auth_key, is_admin, created_at, last_used_at)
         VALUES (?, ?, ?, ?, ?, NULL)
         ON CONFLICT(endpoint) DO UPDATE SET
             p256dh_key = excluded.p256dh_key,
             auth_key = excluded.auth_key,
             is_admin = excluded.is_admin`,
		sub.Endpoint,
		sub.P256dhKey,
		sub.AuthKey,
		boolToInt(sub.IsAdmin),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}

// ListSubscriptions returns subscriptions, optionally restricted to admin devices.
func (s *Store) ListSubscriptions(ctx context.Context, adminOnly bool) ([]*PushSubscription, error) {
	query := `SELECT endpoint, p256dh_key, auth_key, is_admin, created_at, last_used_at FROM push_subscriptions`
	if adminOnly {
		query += ` WHERE is_admin = 1`
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*PushSubscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// DeleteSubscription removes a subscription by endpoint.
func (s *Store) DeleteSubscription(ctx context.Context, endpoint string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	if err != nil {
		return false, fmt.Errorf("delete subscription: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// TouchSubscription refreshes the last successful delivery timestamp.
func (s *Store) TouchSubscription(ctx context.Context, endpoint string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE push_subscriptions SET last_used_at = ? WHERE endpoint = ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		endpoint,
	)
	if err != nil {
		return fmt.Errorf("touch subscription: %w", err)
	}
	return nil
}

func scanSubscription(scanner interface{ Scan(dest ...any) error }) (*PushSubscription, error) {
	var (
		endpoint    string
		p256dh      string
		auth        string
		isAdmin     int
		createdRaw  string
		lastUsedRaw sql.NullString
	)
	if err := scanner.Scan(&endpoint, &p256dh, &auth, &isAdmin, &createdRaw, &lastUsedRaw); err != nil {
		return nil, fmt.Errorf("scan subscription: %w", err)
	}

	sub := &PushSubscription{
		Endpoint:  endpoint,
		P256dhKey: p256dh,
		AuthKey:   auth,
		IsAdmin:   isAdmin != 0,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		sub.CreatedAt = created
	}
	if lastUsedRaw.Valid {
		if lastUsed, err := parseTimeString(lastUsedRaw.String); err == nil {
			sub.LastUsedAt = &lastUsed
		}
	}
	return sub, nil
}
