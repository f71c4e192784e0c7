package kafka

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/segmentio/kafka-go"
)

// Common Kafka error types that can be used by consumers of this package.
// These abstract away the underlying kafka-go error details.
var (
	// ErrNoBrokers is returned when the configuration lists no brokers
	ErrNoBrokers = errors.New("no brokers configured")

	// ErrNoTopics is returned when a consumer is configured without topics
	ErrNoTopics = errors.New("no topics configured")

	// ErrGroupIDRequired is returned when several topics are consumed without a group
	ErrGroupIDRequired = errors.New("group id required to consume several topics")

	// ErrTopicRequired is returned when a message has no topic
	ErrTopicRequired = errors.New("topic required")

	// ErrEncoderNotConfigured is returned when a non-raw value is produced without an encoder
	ErrEncoderNotConfigured = errors.New("encoder not configured")

	// ErrDecoderNotConfigured is returned by BodyAs when the consumer has no decoder
	ErrDecoderNotConfigured = errors.New("decoder not configured")

	// ErrWriterNotInitialized is returned when the producer has been shut down
	ErrWriterNotInitialized = errors.New("writer not initialized")

	// ErrReaderNotInitialized is returned when the consumer has been shut down
	ErrReaderNotInitialized = errors.New("reader not initialized")

	// ErrConnectionFailed is returned when connection to Kafka cannot be established
	ErrConnectionFailed = errors.New("connection failed")

	// ErrConnectionLost is returned when connection to Kafka is lost
	ErrConnectionLost = errors.New("connection lost")

	// ErrBrokerNotAvailable is returned when broker is not available
	ErrBrokerNotAvailable = errors.New("broker not available")

	// ErrLeaderNotAvailable is returned when leader is not available
	ErrLeaderNotAvailable = errors.New("leader not available")

	// ErrNotLeaderForPartition is returned when broker is not the leader for partition
	ErrNotLeaderForPartition = errors.New("not leader for partition")

	// ErrAuthenticationFailed is returned when authentication fails
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrAuthorizationFailed is returned when authorization fails
	ErrAuthorizationFailed = errors.New("authorization failed")

	// ErrTopicNotFound is returned when topic doesn't exist
	ErrTopicNotFound = errors.New("topic not found")

	// ErrGroupCoordinatorNotAvailable is returned when group coordinator is not available
	ErrGroupCoordinatorNotAvailable = errors.New("group coordinator not available")

	// ErrRebalanceInProgress is returned when rebalance is in progress
	ErrRebalanceInProgress = errors.New("rebalance in progress")

	// ErrOffsetOutOfRange is returned when offset is out of range
	ErrOffsetOutOfRange = errors.New("offset out of range")

	// ErrMessageTooLarge is returned when message exceeds size limits
	ErrMessageTooLarge = errors.New("message too large")

	// ErrInvalidMessage is returned when message format is invalid
	ErrInvalidMessage = errors.New("invalid message")

	// ErrRequestTimedOut is returned when request times out
	ErrRequestTimedOut = errors.New("request timed out")

	// ErrNetworkError is returned for network-related errors
	ErrNetworkError = errors.New("network error")

	// ErrUnsupportedVersion is returned when version is not supported
	ErrUnsupportedVersion = errors.New("unsupported version")

	// ErrContextCanceled is returned when context is canceled
	ErrContextCanceled = errors.New("context canceled")

	// ErrContextDeadlineExceeded is returned when context deadline is exceeded
	ErrContextDeadlineExceeded = errors.New("context deadline exceeded")
)

// codeErrors maps broker error codes onto the package sentinels.
var codeErrors = map[kafka.Error]error{
	kafka.OffsetOutOfRange:             ErrOffsetOutOfRange,
	kafka.InvalidMessage:               ErrInvalidMessage,
	kafka.InvalidMessageSize:           ErrInvalidMessage,
	kafka.UnknownTopicOrPartition:      ErrTopicNotFound,
	kafka.LeaderNotAvailable:           ErrLeaderNotAvailable,
	kafka.NotLeaderForPartition:        ErrNotLeaderForPartition,
	kafka.RequestTimedOut:              ErrRequestTimedOut,
	kafka.BrokerNotAvailable:           ErrBrokerNotAvailable,
	kafka.MessageSizeTooLarge:          ErrMessageTooLarge,
	kafka.NetworkException:             ErrNetworkError,
	kafka.GroupCoordinatorNotAvailable: ErrGroupCoordinatorNotAvailable,
	kafka.NotCoordinatorForGroup:       ErrGroupCoordinatorNotAvailable,
	kafka.RebalanceInProgress:          ErrRebalanceInProgress,
	kafka.TopicAuthorizationFailed:     ErrAuthorizationFailed,
	kafka.GroupAuthorizationFailed:     ErrAuthorizationFailed,
	kafka.ClusterAuthorizationFailed:   ErrAuthorizationFailed,
	kafka.SASLAuthenticationFailed:     ErrAuthenticationFailed,
	kafka.UnsupportedVersion:           ErrUnsupportedVersion,
}

// TranslateError converts kafka-go errors into the package sentinels so
// callers can branch with errors.Is. Broker error codes are matched first,
// then context and network errors, then message patterns. Unknown errors
// are returned unchanged.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}

	var writeErrs kafka.WriteErrors
	if errors.As(err, &writeErrs) {
		for _, e := range writeErrs {
			if e != nil {
				return TranslateError(e)
			}
		}
	}

	var code kafka.Error
	if errors.As(err, &code) {
		if sentinel, ok := codeErrors[code]; ok {
			return sentinel
		}
	}

	switch {
	case errors.Is(err, context.Canceled):
		return ErrContextCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return ErrContextDeadlineExceeded
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrRequestTimedOut
		}
		return ErrNetworkError
	}

	return translateByErrorMessage(strings.ToLower(err.Error()), err)
}

// translateByErrorMessage translates errors based on error message patterns
func translateByErrorMessage(errMsg string, originalErr error) error {
	switch {
	case strings.Contains(errMsg, "connection refused"):
		return ErrConnectionFailed
	case strings.Contains(errMsg, "connection reset"),
		strings.Contains(errMsg, "connection closed"),
		strings.Contains(errMsg, "broken pipe"):
		return ErrConnectionLost
	case strings.Contains(errMsg, "sasl"),
		strings.Contains(errMsg, "authentication failed"):
		return ErrAuthenticationFailed
	case strings.Contains(errMsg, "unknown topic"):
		return ErrTopicNotFound
	case strings.Contains(errMsg, "i/o timeout"),
		strings.Contains(errMsg, "timed out"):
		return ErrRequestTimedOut
	case strings.Contains(errMsg, "dial"):
		return ErrNetworkError
	default:
		return originalErr
	}
}

// IsRetryableError reports whether retrying the same operation may succeed.
// The error is translated first, so raw kafka-go errors are accepted.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var code kafka.Error
	if errors.As(err, &code) && code.Temporary() {
		return true
	}
	translated := TranslateError(err)
	switch {
	case errors.Is(translated, ErrConnectionFailed),
		errors.Is(translated, ErrConnectionLost),
		errors.Is(translated, ErrBrokerNotAvailable),
		errors.Is(translated, ErrLeaderNotAvailable),
		errors.Is(translated, ErrNotLeaderForPartition),
		errors.Is(translated, ErrRequestTimedOut),
		errors.Is(translated, ErrNetworkError),
		errors.Is(translated, ErrGroupCoordinatorNotAvailable),
		errors.Is(translated, ErrRebalanceInProgress):
		return true
	default:
		return false
	}
}

// IsPermanentError returns true if the error is permanent and should not be retried
func IsPermanentError(err error) bool {
	translated := TranslateError(err)
	switch {
	case errors.Is(translated, ErrAuthenticationFailed),
		errors.Is(translated, ErrAuthorizationFailed),
		errors.Is(translated, ErrTopicNotFound),
		errors.Is(translated, ErrInvalidMessage),
		errors.Is(translated, ErrMessageTooLarge),
		errors.Is(translated, ErrUnsupportedVersion),
		errors.Is(translated, ErrContextCanceled):
		return true
	default:
		return false
	}
}

// IsAuthenticationError returns true if the error is authentication-related
func IsAuthenticationError(err error) bool {
	translated := TranslateError(err)
	return errors.Is(translated, ErrAuthenticationFailed) ||
		errors.Is(translated, ErrAuthorizationFailed)
}
