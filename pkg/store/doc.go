// Package store persists transform results in Redis.
//
// A Manager is a write-once sink: every value is stored under a key derived
// from the batch it belongs to and the request name, and a second write to
// the same key is refused.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := store.NewManager(redisClient, store.Options{TTL: time.Hour})
//
//	// Inside a TransformInto function
//	snap, err := store.ReadSnapshot(ex.Response)
//	if err != nil {
//		return err
//	}
//	return sink.Put(ctx, ex.Request.Name, snap)
//
//	// Later
//	var snap store.Snapshot
//	err := manager.Get(ctx, store.Key{Batch: batchID, Name: "users"}, &snap)
//
// The batch ID is carried in the context; see WithBatch.
package store
