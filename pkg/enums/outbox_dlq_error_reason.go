package enums

// OutboxDLQErrorReason says why the publisher parked an event.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

var outboxDLQErrorReasons = []OutboxDLQErrorReason{OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable}

func (r OutboxDLQErrorReason) IsValid() bool { return known(outboxDLQErrorReasons, r) }

func ParseOutboxDLQErrorReason(value string) (OutboxDLQErrorReason, error) {
	return parse(outboxDLQErrorReasons, value, "outbox dlq reason")
}
