// Package syncpump implements a resumable, at-least-once outbox pipeline
// that pushes commerce records (orders, subscriptions, contacts, products,
// abandoned carts) to a marketing-automation bulk-mutation API.
//
// Typical flow:
//  1. A host scheduler invokes Pump.Run for a sync type on a fixed cadence.
//  2. Each iteration stages newly selected candidates, promotes them into
//     the queue, serializes a bounded page into weight-limited chunks and
//     sends each chunk through a Transport.
//  3. Chunk outcomes are classified; rows end up synced, failed,
//     incompatible, or back in the queue for the next attempt.
//
// For the MySQL store see the mysql package; for a Redis-backed cooldown
// marker see the redis package; entity serializers live in commerce.
package syncpump
