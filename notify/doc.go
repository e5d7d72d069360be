// Package notify provides goGrant.Notifier implementations for delivering
// password reset mail: SMTP for direct delivery, Kafka for handing messages
// to a mail service, and Log for local development.
package notify
