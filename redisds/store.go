// Package redisds persists collections in Redis and hydrates them into
// in-memory datasets for filtering. One hash per record, one set of record
// ids per collection, one hash per labeled relation field.
package redisds

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/facetset"
	"github.com/kailas-cloud/facetset/memory"
)

// Config holds connection parameters for a Redis store.
type Config struct {
	Addrs     []string
	Username  string
	Password  string
	DB        int
	KeyPrefix string
}

// Store reads and writes collections via rueidis.
type Store struct {
	client rueidis.Client
	prefix string
}

// NewStore creates a Redis store via rueidis.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Store{client: client, prefix: cfg.KeyPrefix}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

func (s *Store) idsKey(col string) string {
	return s.prefix + col + ":ids"
}

func (s *Store) docKey(col, id string) string {
	return s.prefix + col + ":doc:" + id
}

func (s *Store) labelsKey(col, field string) string {
	return s.prefix + col + ":labels:" + field
}

func (s *Store) labelFieldsKey(col string) string {
	return s.prefix + col + ":labelfields"
}

// Put stores one record.
func (s *Store) Put(ctx context.Context, col string, rec memory.Record) error {
	return s.PutAll(ctx, col, []memory.Record{rec})
}

// PutAll stores records in a single DoMulti round-trip.
func (s *Store) PutAll(ctx context.Context, col string, recs []memory.Record) error {
	if len(recs) == 0 {
		return nil
	}
	cmds := make([]rueidis.Completed, 0, 2*len(recs))
	for _, rec := range recs {
		if rec.ID == "" {
			return fmt.Errorf("record without id")
		}
		cmd := s.client.B().Hset().Key(s.docKey(col, rec.ID)).FieldValue()
		for k, v := range encodeRecord(rec) {
			cmd = cmd.FieldValue(k, v)
		}
		cmds = append(cmds,
			cmd.Build(),
			s.client.B().Sadd().Key(s.idsKey(col)).Member(rec.ID).Build())
	}
	for _, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return fmt.Errorf("put records: %w", err)
		}
	}
	return nil
}

// PutLabels stores the label table of a relation field.
func (s *Store) PutLabels(ctx context.Context, col, field string, labels map[string]string) error {
	cmd := s.client.B().Hset().Key(s.labelsKey(col, field)).FieldValue()
	for id, label := range labels {
		cmd = cmd.FieldValue(id, label)
	}
	cmds := []rueidis.Completed{
		cmd.Build(),
		s.client.B().Sadd().Key(s.labelFieldsKey(col)).Member(field).Build(),
	}
	for _, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return fmt.Errorf("put labels %s: %w", field, err)
		}
	}
	return nil
}

// Load hydrates a whole collection, record hashes and label tables both.
func (s *Store) Load(ctx context.Context, col string) (*memory.Collection, error) {
	ids, err := s.client.Do(ctx, s.client.B().Smembers().Key(s.idsKey(col)).Build()).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("load ids: %w", err)
	}

	recs := make([]memory.Record, 0, len(ids))
	if len(ids) > 0 {
		cmds := make([]rueidis.Completed, len(ids))
		for i, id := range ids {
			cmds[i] = s.client.B().Hgetall().Key(s.docKey(col, id)).Build()
		}
		for i, res := range s.client.DoMulti(ctx, cmds...) {
			fields, err := res.AsStrMap()
			if err != nil {
				return nil, fmt.Errorf("load record %s: %w", ids[i], err)
			}
			rec, err := decodeRecord(ids[i], fields)
			if err != nil {
				return nil, fmt.Errorf("load record %s: %w", ids[i], err)
			}
			recs = append(recs, rec)
		}
	}
	collection := memory.NewCollection(recs...)

	labelFields, err := s.client.Do(ctx,
		s.client.B().Smembers().Key(s.labelFieldsKey(col)).Build()).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("load label fields: %w", err)
	}
	for _, field := range labelFields {
		table, err := s.client.Do(ctx,
			s.client.B().Hgetall().Key(s.labelsKey(col, field)).Build()).AsStrMap()
		if err != nil {
			return nil, fmt.Errorf("load labels %s: %w", field, err)
		}
		collection = collection.WithLabels(field, table)
	}
	return collection, nil
}

// Dataset hydrates a collection and returns a dataset over it.
func (s *Store) Dataset(ctx context.Context, col string) (facetset.Dataset, error) {
	collection, err := s.Load(ctx, col)
	if err != nil {
		return nil, err
	}
	return collection.Dataset(), nil
}
