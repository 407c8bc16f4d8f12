package service

import "errors"

var (
	ErrNotFound                    = errors.New("not found")
	ErrInvalidFilter               = errors.New("invalid filter")
	ErrDeductionRateInvalid        = errors.New("deduction rate invalid")
	ErrDeductionTypeInvalid        = errors.New("deduction type invalid")
	ErrSettlementConfigUnavailable = errors.New("settlement deduction rates unavailable")
	ErrSettlementPaymentsFetch     = errors.New("settlement payments fetch failed")
	ErrSettlementRunInProgress     = errors.New("settlement run already in progress")
	ErrSettlementTimeout           = errors.New("settlement run timed out")
	ErrSettlementCanceled          = errors.New("settlement run canceled")
	ErrSettlementPersistence       = errors.New("settlement persistence failed")
	ErrSettlementConflict          = errors.New("settlement payments already claimed")
	ErrSettlementNotification      = errors.New("settlement notification failed")
	ErrNotificationTimeout         = errors.New("settlement notification timed out")
	ErrProviderContactMissing      = errors.New("provider contact email missing")
	ErrEmailServiceDisabled        = errors.New("email service disabled")
	ErrEmailServiceNotConfigured   = errors.New("email service not configured")
	ErrInvalidEmail                = errors.New("invalid email")
	ErrEmailRecipientRejected      = errors.New("email recipient rejected")
	ErrQueueUnavailable            = errors.New("queue unavailable")
)
