package redis

import (
	"context"
	"fmt"
	"sort"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/archivist/internal/db"
)

// insertScript writes a hash only when its key does not exist yet, so a
// stored entry is never overwritten or merged into.
const insertScript = `if redis.call('EXISTS', KEYS[1]) == 1 then return 0 end
redis.call('HSET', KEYS[1], unpack(ARGV))
return 1`

// HInsertMulti writes every hash whose key is absent in a single DoMulti
// round-trip and returns how many were written. Fields are sent in sorted
// order.
func (s *Store) HInsertMulti(ctx context.Context, items []db.HashSetItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	cmds := make([]rueidis.Completed, len(items))
	for i, item := range items {
		names := make([]string, 0, len(item.Fields))
		for k := range item.Fields {
			names = append(names, k)
		}
		sort.Strings(names)
		args := make([]string, 0, 2*len(names))
		for _, k := range names {
			args = append(args, k, item.Fields[k])
		}
		cmds[i] = s.b().Eval().Script(insertScript).Numkeys(1).Key(item.Key).Arg(args...).Build()
	}

	inserted := 0
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		n, err := res.AsInt64()
		if err != nil {
			return inserted, &db.Error{Op: db.OpHSet, Err: fmt.Errorf("key %s: %w", items[i].Key, err)}
		}
		inserted += int(n)
	}
	return inserted, nil
}

// HGetAllMulti fetches all fields for multiple hashes in a single DoMulti round-trip.
// Missing keys yield empty maps.
func (s *Store) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	cmds := make([]rueidis.Completed, len(keys))
	for i, key := range keys {
		cmds[i] = s.b().Hgetall().Key(key).Build()
	}

	results := s.client.DoMulti(ctx, cmds...)
	out := make([]map[string]string, len(results))

	for i, res := range results {
		m, err := res.AsStrMap()
		if err != nil {
			return nil, &db.Error{Op: db.OpHGetAll, Err: fmt.Errorf("key %s: %w", keys[i], err)}
		}
		out[i] = m
	}

	return out, nil
}

// Scan iterates keys matching a pattern.
func (s *Store) Scan(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64

	for {
		cmd := s.b().Scan().Cursor(cursor).Match(pattern).Count(500).Build()
		res, err := s.do(ctx, cmd).AsScanEntry()
		if err != nil {
			return nil, &db.Error{Op: db.OpScan, Err: err}
		}
		keys = append(keys, res.Elements...)
		cursor = res.Cursor
		if cursor == 0 {
			break
		}
	}

	return keys, nil
}

// hmgetMulti pipelines HMGET of the same fields over many keys.
// Absent fields are left out of the returned maps.
func (s *Store) hmgetMulti(ctx context.Context, keys, fields []string) ([]map[string]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	cmds := make([]rueidis.Completed, len(keys))
	for i, key := range keys {
		cmds[i] = s.b().Hmget().Key(key).Field(fields...).Build()
	}

	out := make([]map[string]string, len(keys))
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		vals, err := res.ToArray()
		if err != nil {
			return nil, &db.Error{Op: db.OpHMGet, Err: fmt.Errorf("key %s: %w", keys[i], err)}
		}
		m := make(map[string]string, len(fields))
		for j := 0; j < len(vals) && j < len(fields); j++ {
			if v, err := vals[j].ToString(); err == nil {
				m[fields[j]] = v
			}
		}
		out[i] = m
	}
	return out, nil
}
