// Package notifier delivers short status messages to one fixed chat.
//
// Delivery is best-effort: a failed send is logged and dropped, never
// retried and never reported to the caller. The service delegates the
// actual send to a transport.Sender (the Telegram adapter in production).
package notifier
