// Package verify implements the credential-check core shared by the three
// public endpoints: consumer verification, owner login, and owner PIN change.
// Each operation follows the same shape: validate input, fetch the tag record,
// branch on existence / active flag / PIN match, produce a typed response, and
// append one best-effort audit record from every terminal branch.
package verify

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"tagproof/internal/audit"
	"tagproof/internal/platform/metrics"
	"tagproof/internal/tag"
	"tagproof/pkg/requestcontext"
)

var tracer = otel.Tracer("tagproof/internal/verify")

// Service holds the injected collaborators. It keeps no state across
// requests; every invocation is independent.
type Service struct {
	tags     tag.Store
	recorder *audit.Recorder
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewService wires the verification core. The store handle is owned by the
// process and reused across requests, never re-created per call.
func NewService(tags tag.Store, recorder *audit.Recorder, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{tags: tags, recorder: recorder, logger: logger, metrics: m}
}

func requestStamp(ctx context.Context) (requestID, ts string) {
	return requestcontext.RequestID(ctx), requestcontext.Now(ctx).UTC().Format(time.RFC3339)
}

// Verify runs the consumer verification flow. All business outcomes are
// HTTP 200; malformed input is 400; only infrastructure failure is 500.
func (s *Service) Verify(ctx context.Context, req VerifyRequest) VerifyResponse {
	ctx, span := tracer.Start(ctx, "verify.Verify")
	defer span.End()
	start := time.Now()
	defer func() { s.metrics.ObserveRequestLatency("verify", time.Since(start)) }()

	requestID, ts := requestStamp(ctx)
	tagID := strings.TrimSpace(req.TagID)
	pin := strings.TrimSpace(req.PIN)

	if !validTagIDLength(tagID) {
		return s.verifyInvalid(ctx, requestID, ts, tagID, "Invalid tagId length")
	}
	if !validPINLength(pin) {
		return s.verifyInvalid(ctx, requestID, ts, tagID, "Invalid pin length")
	}

	record, err := s.tags.FindByID(ctx, tagID)
	if err != nil && !errors.Is(err, tag.ErrNotFound) {
		return s.verifyError(ctx, requestID, ts, tagID, err)
	}

	resp := VerifyResponse{
		HTTPStatus: 200,
		OK:         true,
		RequestID:  requestID,
		TagID:      tagID,
		TS:         ts,
	}

	switch {
	case errors.Is(err, tag.ErrNotFound):
		resp.Status = StatusNotVerified
		resp.Message = "Tag not recognized"
		resp.Hints = []string{"Check Tag ID", "Ensure the tag is genuine"}
	case !record.Active:
		resp.Status = StatusNotVerified
		resp.Message = "Tag is inactive"
		resp.Hints = []string{"This tag is not active", "Contact the brand if you believe this is incorrect"}
	case !pinEqual(pin, record.PIN):
		resp.Status = StatusNotVerified
		resp.Message = "Tag or PIN not recognized"
		resp.Hints = []string{"Check the PIN", "Ensure the tag is genuine"}
	default:
		resp.Status = StatusAuthentic
		resp.Message = "Verification successful"
	}

	s.recordVerify(ctx, resp)
	s.metrics.IncrementOutcome("verify", string(resp.Status))
	return resp
}

// verifyInvalid is the typed validation outcome: a stable 400 class, distinct
// from infrastructure failure, still audited because the request already has
// its requestId and ts.
func (s *Service) verifyInvalid(ctx context.Context, requestID, ts, tagID, message string) VerifyResponse {
	resp := VerifyResponse{
		HTTPStatus: 400,
		OK:         false,
		Status:     StatusNotVerified,
		Message:    message,
		RequestID:  requestID,
		TagID:      tagID,
		TS:         ts,
	}
	s.recordVerify(ctx, resp)
	s.metrics.IncrementOutcome("verify", "invalid_input")
	return resp
}

func (s *Service) verifyError(ctx context.Context, requestID, ts, tagID string, err error) VerifyResponse {
	s.logger.ErrorContext(ctx, "verify failed", "request_id", requestID, "error", err.Error())
	resp := VerifyResponse{
		HTTPStatus: 500,
		OK:         false,
		Status:     StatusNotVerified,
		Message:    "Server error: " + err.Error(),
		RequestID:  requestID,
		TagID:      tagID,
		TS:         ts,
	}
	s.recordVerify(ctx, resp)
	s.metrics.IncrementOutcome("verify", "error")
	return resp
}

// VerifyFailure handles transport-level failures (unreadable body) that occur
// before the service sees a request. Same contract as any other server error.
func (s *Service) VerifyFailure(ctx context.Context, err error) VerifyResponse {
	requestID, ts := requestStamp(ctx)
	return s.verifyError(ctx, requestID, ts, "", err)
}

// recordVerify writes the consumer-verification audit record, keyed by the
// request ID itself.
func (s *Service) recordVerify(ctx context.Context, resp VerifyResponse) {
	s.recorder.Record(ctx, audit.Record{
		ID:        resp.RequestID,
		RequestID: resp.RequestID,
		TS:        resp.TS,
		TagID:     resp.TagID,
		Status:    string(resp.Status),
		OK:        resp.OK,
		Message:   resp.Message,
		IP:        requestcontext.ClientIP(ctx),
		UA:        requestcontext.UserAgent(ctx),
	})
}

// OwnerLogin authenticates a tag owner. Same lookup and comparison as Verify,
// different response vocabulary, and the missing-field branch is a 400 with
// no audit write.
func (s *Service) OwnerLogin(ctx context.Context, req OwnerLoginRequest) OwnerLoginResponse {
	ctx, span := tracer.Start(ctx, "verify.OwnerLogin")
	defer span.End()
	start := time.Now()
	defer func() { s.metrics.ObserveRequestLatency("owner_login", time.Since(start)) }()

	requestID, ts := requestStamp(ctx)
	tagID := strings.TrimSpace(req.TagID)
	pin := strings.TrimSpace(req.PIN)

	if tagID == "" || pin == "" {
		s.metrics.IncrementOutcome("owner_login", "invalid_input")
		return OwnerLoginResponse{
			HTTPStatus: 400,
			OK:         false,
			Status:     StatusOwnerNotVerified,
			Message:    "Missing tagId or pin",
			RequestID:  requestID,
			TagID:      tagID,
			TS:         ts,
		}
	}

	record, err := s.tags.FindByID(ctx, tagID)
	if err != nil && !errors.Is(err, tag.ErrNotFound) {
		return s.ownerLoginError(ctx, requestID, ts, err)
	}

	ok := false
	status := StatusOwnerNotVerified
	message := "UID or PIN not recognized"

	if err == nil {
		correct := pinEqual(pin, record.PIN)
		switch {
		case record.Active && correct:
			ok = true
			status = StatusOwnerAuthentic
			message = "Owner authenticated"
		case !record.Active:
			message = "Tag is not active"
		}
	}

	s.recorder.Record(ctx, audit.Record{
		RequestID: requestID,
		TS:        ts,
		Kind:      audit.KindOwnerLogin,
		TagID:     tagID,
		Outcome:   string(status),
		OK:        ok,
	})
	s.metrics.IncrementOutcome("owner_login", string(status))

	return OwnerLoginResponse{
		HTTPStatus: 200,
		OK:         true,
		Status:     status,
		Message:    message,
		RequestID:  requestID,
		TagID:      tagID,
		TS:         ts,
	}
}

func (s *Service) ownerLoginError(ctx context.Context, requestID, ts string, err error) OwnerLoginResponse {
	s.logger.ErrorContext(ctx, "owner login failed", "request_id", requestID, "error", err.Error())
	s.recorder.Record(ctx, audit.Record{
		RequestID: requestID,
		TS:        ts,
		Kind:      audit.KindOwnerLogin,
		Outcome:   string(StatusOwnerNotVerified),
		OK:        false,
		Error:     err.Error(),
	})
	s.metrics.IncrementOutcome("owner_login", "error")
	return OwnerLoginResponse{
		HTTPStatus: 500,
		OK:         false,
		Status:     StatusOwnerNotVerified,
		Message:    "Server error",
		RequestID:  requestID,
		TagID:      "",
		TS:         ts,
	}
}

// OwnerLoginFailure handles transport-level failures for the login endpoint.
func (s *Service) OwnerLoginFailure(ctx context.Context, err error) OwnerLoginResponse {
	requestID, ts := requestStamp(ctx)
	return s.ownerLoginError(ctx, requestID, ts, err)
}

// ChangePIN validates the old PIN and overwrites the stored one. The write is
// conditioned on the PIN value last read, so a raced concurrent change
// surfaces as a mismatch instead of a silent overwrite. No PIN value ever
// reaches the audit store on any path.
func (s *Service) ChangePIN(ctx context.Context, req ChangePINRequest) ChangePINResponse {
	ctx, span := tracer.Start(ctx, "verify.ChangePIN")
	defer span.End()
	start := time.Now()
	defer func() { s.metrics.ObserveRequestLatency("change_pin", time.Since(start)) }()

	requestID, ts := requestStamp(ctx)
	tagID := strings.TrimSpace(req.TagID)
	oldPIN := strings.TrimSpace(req.OldPIN)
	newPIN := strings.TrimSpace(req.NewPIN)

	if tagID == "" || oldPIN == "" || newPIN == "" {
		s.metrics.IncrementOutcome("change_pin", "invalid_input")
		return ChangePINResponse{
			HTTPStatus: 400,
			OK:         false,
			Message:    "Missing parameters",
			RequestID:  requestID,
			TS:         ts,
		}
	}

	record, err := s.tags.FindByID(ctx, tagID)
	if errors.Is(err, tag.ErrNotFound) {
		s.metrics.IncrementOutcome("change_pin", "not_found")
		return ChangePINResponse{
			HTTPStatus: 404,
			OK:         false,
			Message:    "Tag not found",
			RequestID:  requestID,
			TS:         ts,
		}
	}
	if err != nil {
		return s.changePINError(ctx, requestID, ts, err)
	}

	if !record.Active {
		s.metrics.IncrementOutcome("change_pin", "inactive")
		return ChangePINResponse{
			HTTPStatus: 403,
			OK:         false,
			Message:    "Tag not active",
			RequestID:  requestID,
			TS:         ts,
		}
	}

	if !pinEqual(oldPIN, record.PIN) {
		return s.changePINMismatch(ctx, requestID, ts, tagID)
	}

	err = s.tags.UpdatePIN(ctx, tagID, record.PIN, newPIN, ts)
	switch {
	case errors.Is(err, tag.ErrPINStale):
		// Another change landed between our read and write.
		return s.changePINMismatch(ctx, requestID, ts, tagID)
	case errors.Is(err, tag.ErrNotFound):
		s.metrics.IncrementOutcome("change_pin", "not_found")
		return ChangePINResponse{
			HTTPStatus: 404,
			OK:         false,
			Message:    "Tag not found",
			RequestID:  requestID,
			TS:         ts,
		}
	case err != nil:
		return s.changePINError(ctx, requestID, ts, err)
	}

	s.recorder.Record(ctx, audit.Record{
		RequestID: requestID,
		TS:        ts,
		Kind:      audit.KindOwnerChangePIN,
		TagID:     tagID,
		OK:        true,
	})
	s.metrics.IncrementOutcome("change_pin", "updated")

	return ChangePINResponse{
		HTTPStatus: 200,
		OK:         true,
		Message:    "PIN updated successfully",
		RequestID:  requestID,
		TagID:      tagID,
		TS:         ts,
	}
}

func (s *Service) changePINMismatch(ctx context.Context, requestID, ts, tagID string) ChangePINResponse {
	s.recorder.Record(ctx, audit.Record{
		RequestID: requestID,
		TS:        ts,
		Kind:      audit.KindOwnerChangePIN,
		TagID:     tagID,
		OK:        false,
		Reason:    audit.ReasonOldPINMismatch,
	})
	s.metrics.IncrementOutcome("change_pin", "pin_mismatch")
	return ChangePINResponse{
		HTTPStatus: 403,
		OK:         false,
		Message:    "Old PIN incorrect",
		RequestID:  requestID,
		TS:         ts,
	}
}

func (s *Service) changePINError(ctx context.Context, requestID, ts string, err error) ChangePINResponse {
	s.logger.ErrorContext(ctx, "change pin failed", "request_id", requestID, "error", err.Error())
	s.recorder.Record(ctx, audit.Record{
		RequestID: requestID,
		TS:        ts,
		Kind:      audit.KindOwnerChangePIN,
		OK:        false,
		Error:     err.Error(),
	})
	s.metrics.IncrementOutcome("change_pin", "error")
	return ChangePINResponse{
		HTTPStatus: 500,
		OK:         false,
		Message:    "Server error",
		RequestID:  requestID,
		TS:         ts,
	}
}

// ChangePINFailure handles transport-level failures for the PIN change endpoint.
func (s *Service) ChangePINFailure(ctx context.Context, err error) ChangePINResponse {
	requestID, ts := requestStamp(ctx)
	return s.changePINError(ctx, requestID, ts, err)
}

// Provision upserts a tag record. This is the enterprise provisioning seam;
// the verification handlers themselves never create records. Input constraints
// mirror Verify's so a provisioned tag can always pass verification.
func (s *Service) Provision(ctx context.Context, req ProvisionRequest) ProvisionResponse {
	ctx, span := tracer.Start(ctx, "verify.Provision")
	defer span.End()

	requestID, ts := requestStamp(ctx)
	tagID := strings.TrimSpace(req.TagID)
	pin := strings.TrimSpace(req.PIN)

	if !validTagIDLength(tagID) || !validPINLength(pin) {
		s.metrics.IncrementOutcome("provision", "invalid_input")
		return ProvisionResponse{
			HTTPStatus: 400,
			OK:         false,
			Message:    "Invalid tagId or pin length",
			RequestID:  requestID,
			TS:         ts,
		}
	}

	err := s.tags.Save(ctx, tag.Record{TagID: tagID, PIN: pin, Active: req.Active})
	if err != nil {
		s.logger.ErrorContext(ctx, "provision failed", "request_id", requestID, "error", err.Error())
		s.metrics.IncrementOutcome("provision", "error")
		return ProvisionResponse{
			HTTPStatus: 500,
			OK:         false,
			Message:    "Server error",
			RequestID:  requestID,
			TS:         ts,
		}
	}

	s.recorder.Record(ctx, audit.Record{
		RequestID: requestID,
		TS:        ts,
		Kind:      audit.KindTagProvisioned,
		TagID:     tagID,
		OK:        true,
	})
	s.metrics.IncrementOutcome("provision", "provisioned")

	return ProvisionResponse{
		HTTPStatus: 200,
		OK:         true,
		Message:    "Tag provisioned",
		RequestID:  requestID,
		TagID:      tagID,
		TS:         ts,
	}
}
