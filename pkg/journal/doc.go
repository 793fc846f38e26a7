// Package journal records catalog activity in Redis for operators.
//
// # Overview
//
// The in-memory catalog is the only source of truth for what the bot can
// serve. The journal is an append-only audit trail next to it: every upsert
// is written as an Event, indexed by time, and broadcast on a Pub/Sub channel
// so `vinehill watch` and `vinehill history` can observe a running bot.
// Nothing is ever read back into the catalog.
//
// The journal also stores the message id of each category's directory so a
// restarted bot edits its existing directory instead of posting a new one.
//
// # Redis Schema
//
// All keys are namespaced by instance: vinehill:{instance}:{entity}
//
//	Events:          vinehill:{instance}:event:{event_id}     (hash)
//	Event index:     vinehill:{instance}:events               (zset, score = added_at_ms)
//	Directory state: vinehill:{instance}:directory:{category} (string, message id)
//
// Pub/Sub channel: vinehill:{instance}:catalog_events
//
// # Usage Example
//
//	opts, _ := redis.ParseURL("redis://localhost:6379")
//	client, err := journal.NewClient(opts, "default")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	event := journal.NewEvent(entry)
//	if err := client.RecordEvent(ctx, event); err != nil {
//		log.Printf("journal write failed: %v", err)
//	}
package journal
