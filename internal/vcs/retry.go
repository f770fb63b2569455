package vcs

import (
	"context"
	"time"
)

const (
	defaultRetryAttemptsConstant     = 3
	defaultRetryInitialDelayConstant = 500 * time.Millisecond
	defaultRetryMaxDelayConstant     = 5 * time.Second
	retryBackoffMultiplierConstant   = 2
)

// SleepFunc waits for delay or until the context ends.
type SleepFunc func(executionContext context.Context, delay time.Duration) error

// RetryObserver is notified before each retry with the failed attempt number and the upcoming delay.
type RetryObserver func(attempt int, delay time.Duration, failure error)

// RetryPolicy retries transient transport failures with bounded exponential backoff.
type RetryPolicy struct {
	Attempts     int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Sleep        SleepFunc
	OnRetry      RetryObserver
}

// DefaultRetryPolicy returns three attempts starting at 500ms, capped at 5s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:     defaultRetryAttemptsConstant,
		InitialDelay: defaultRetryInitialDelayConstant,
		MaxDelay:     defaultRetryMaxDelayConstant,
	}
}

// Sanitize replaces non-positive settings with defaults.
func (policy RetryPolicy) Sanitize() RetryPolicy {
	defaults := DefaultRetryPolicy()
	sanitized := policy
	if sanitized.Attempts <= 0 {
		sanitized.Attempts = defaults.Attempts
	}
	if sanitized.InitialDelay < 0 {
		sanitized.InitialDelay = 0
	}
	if sanitized.MaxDelay <= 0 {
		sanitized.MaxDelay = defaults.MaxDelay
	}
	if sanitized.MaxDelay < sanitized.InitialDelay {
		sanitized.MaxDelay = sanitized.InitialDelay
	}
	if sanitized.Sleep == nil {
		sanitized.Sleep = sleepWithContext
	}
	return sanitized
}

// Do runs operation until it succeeds, fails with a non-retryable error, or exhausts attempts.
// The last error is returned unchanged.
func (policy RetryPolicy) Do(executionContext context.Context, operation func(executionContext context.Context) error) error {
	sanitized := policy.Sanitize()
	delay := sanitized.InitialDelay

	var lastError error
	for attempt := 1; attempt <= sanitized.Attempts; attempt++ {
		lastError = operation(executionContext)
		if lastError == nil {
			return nil
		}
		if !IsRetryable(lastError) || attempt == sanitized.Attempts {
			return lastError
		}

		if sanitized.OnRetry != nil {
			sanitized.OnRetry(attempt, delay, lastError)
		}
		if sleepError := sanitized.Sleep(executionContext, delay); sleepError != nil {
			return lastError
		}

		delay *= retryBackoffMultiplierConstant
		if delay > sanitized.MaxDelay {
			delay = sanitized.MaxDelay
		}
	}
	return lastError
}

func sleepWithContext(executionContext context.Context, delay time.Duration) error {
	if delay <= 0 {
		return executionContext.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-executionContext.Done():
		return executionContext.Err()
	case <-timer.C:
		return nil
	}
}
