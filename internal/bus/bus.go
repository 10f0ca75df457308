// Package bus carries messages from the ledger to chat front-ends.
package bus

type Notification struct {
	ChatID int64
	Text   string
}
