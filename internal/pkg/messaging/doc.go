// Package messaging moves domain events between modules through a broker.
//
// Publishers name a topic; subscribers name a topic and a group. Every group
// receives each message once, whatever the broker: an NSQ channel, a Kafka
// consumer group, a NATS queue group or a Pub/Sub subscription.
package messaging
