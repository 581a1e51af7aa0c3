package httptransport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tagproof/internal/audit"
	"tagproof/internal/tag"
	"tagproof/internal/verify"
	"tagproof/pkg/testutil"
)

type envelope struct {
	OK        bool     `json:"ok"`
	Status    string   `json:"status"`
	Message   string   `json:"message"`
	RequestID string   `json:"requestId"`
	TagID     *string  `json:"tagId"`
	TS        string   `json:"ts"`
	Hints     []string `json:"hints"`
}

func newTestRouter(t *testing.T) (http.Handler, *tag.InMemoryStore, *audit.InMemoryStore) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tags := tag.NewInMemoryStore()
	audits := audit.NewInMemoryStore()
	recorder := audit.NewRecorder(audits, nil, logger, nil)
	svc := verify.NewService(tags, recorder, logger, nil)
	handler := NewHandler(svc, audits, logger, nil)
	return NewRouter(handler, logger), tags, audits
}

func seedTag(t *testing.T, tags *tag.InMemoryStore, record tag.Record) {
	t.Helper()
	require.NoError(t, tags.Save(context.Background(), record))
}

func TestVerifyEndpoint(t *testing.T) {
	router, tags, audits := newTestRouter(t)
	seedTag(t, tags, tag.Record{TagID: "ABC12345", PIN: "1234", Active: true})

	t.Run("authentic", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/verify",
			verify.VerifyRequest{TagID: "ABC12345", PIN: "1234"})
		rr := testutil.DoRequest(router, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

		resp := testutil.UnmarshalResponse[envelope](t, rr)
		assert.True(t, resp.OK)
		assert.Equal(t, "AUTHENTIC", resp.Status)
		assert.NotEmpty(t, resp.RequestID)

		_, err := time.Parse(time.RFC3339, resp.TS)
		assert.NoError(t, err)
	})

	t.Run("wrong pin", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/verify",
			verify.VerifyRequest{TagID: "ABC12345", PIN: "9999"})
		rr := testutil.DoRequest(router, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		resp := testutil.UnmarshalResponse[envelope](t, rr)
		assert.True(t, resp.OK)
		assert.Equal(t, "NOT_VERIFIED", resp.Status)
		assert.Equal(t, "Tag or PIN not recognized", resp.Message)
		assert.Equal(t, []string{"Check the PIN", "Ensure the tag is genuine"}, resp.Hints)
	})

	t.Run("unknown tag", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/verify",
			verify.VerifyRequest{TagID: "ZZZZZZZZ", PIN: "1234"})
		rr := testutil.DoRequest(router, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		resp := testutil.UnmarshalResponse[envelope](t, rr)
		assert.Equal(t, "NOT_VERIFIED", resp.Status)
		assert.Equal(t, "Tag not recognized", resp.Message)
	})

	t.Run("invalid length is 400 not 500", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/verify",
			verify.VerifyRequest{TagID: "AB", PIN: "1234"})
		rr := testutil.DoRequest(router, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		resp := testutil.UnmarshalResponse[envelope](t, rr)
		assert.False(t, resp.OK)
		assert.Equal(t, "NOT_VERIFIED", resp.Status)
		assert.Equal(t, "Invalid tagId length", resp.Message)
	})

	t.Run("malformed body is a JSON 500", func(t *testing.T) {
		req := testutil.NewRequestWithBody(t, http.MethodPost, "/verify", "{not json")
		rr := testutil.DoRequest(router, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		resp := testutil.UnmarshalResponse[envelope](t, rr)
		assert.False(t, resp.OK)
		assert.Equal(t, "NOT_VERIFIED", resp.Status)
		assert.Contains(t, resp.Message, "Server error")
	})

	t.Run("client metadata reaches the audit trail", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/verify",
			verify.VerifyRequest{TagID: "ABC12345", PIN: "1234"})
		req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0")
		req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
		testutil.DoRequest(router, req)

		records := audits.All()
		require.NotEmpty(t, records)
		last := records[len(records)-1]
		assert.Equal(t, "198.51.100.7", last.IP)
		assert.Contains(t, last.Client, "Firefox")
	})
}

func TestOwnerLoginEndpoint(t *testing.T) {
	router, tags, _ := newTestRouter(t)
	seedTag(t, tags, tag.Record{TagID: "OWN10001", PIN: "5555", Active: true})

	t.Run("missing fields", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/owner/login",
			verify.OwnerLoginRequest{TagID: "OWN10001"})
		rr := testutil.DoRequest(router, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		resp := testutil.UnmarshalResponse[envelope](t, rr)
		assert.False(t, resp.OK)
		assert.Equal(t, "OWNER_NOT_VERIFIED", resp.Status)
		assert.Equal(t, "Missing tagId or pin", resp.Message)
	})

	t.Run("authenticated", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/owner/login",
			verify.OwnerLoginRequest{TagID: "OWN10001", PIN: "5555"})
		rr := testutil.DoRequest(router, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		resp := testutil.UnmarshalResponse[envelope](t, rr)
		assert.True(t, resp.OK)
		assert.Equal(t, "OWNER_AUTHENTIC", resp.Status)
		assert.Equal(t, "Owner authenticated", resp.Message)
	})

	t.Run("wrong pin keeps outer ok true", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/owner/login",
			verify.OwnerLoginRequest{TagID: "OWN10001", PIN: "9999"})
		rr := testutil.DoRequest(router, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		resp := testutil.UnmarshalResponse[envelope](t, rr)
		assert.True(t, resp.OK)
		assert.Equal(t, "OWNER_NOT_VERIFIED", resp.Status)
		assert.Equal(t, "UID or PIN not recognized", resp.Message)
	})
}

func TestChangePINEndpoint(t *testing.T) {
	router, tags, audits := newTestRouter(t)
	seedTag(t, tags, tag.Record{TagID: "OWN10001", PIN: "5555", Active: true})

	t.Run("missing parameters", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/owner/change-pin",
			verify.ChangePINRequest{TagID: "OWN10001", OldPIN: "5555"})
		rr := testutil.DoRequest(router, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		resp := testutil.UnmarshalResponse[envelope](t, rr)
		assert.False(t, resp.OK)
		assert.Equal(t, "Missing parameters", resp.Message)
		assert.Nil(t, resp.TagID, "error branches omit tagId")
	})

	t.Run("unknown tag is 404", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/owner/change-pin",
			verify.ChangePINRequest{TagID: "NOPE0001", OldPIN: "5555", NewPIN: "7777"})
		rr := testutil.DoRequest(router, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		resp := testutil.UnmarshalResponse[envelope](t, rr)
		assert.Equal(t, "Tag not found", resp.Message)
	})

	t.Run("wrong old pin is 403 with audit reason", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/owner/change-pin",
			verify.ChangePINRequest{TagID: "OWN10001", OldPIN: "9999", NewPIN: "7777"})
		rr := testutil.DoRequest(router, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
		resp := testutil.UnmarshalResponse[envelope](t, rr)
		assert.Equal(t, "Old PIN incorrect", resp.Message)

		records := audits.All()
		require.NotEmpty(t, records)
		assert.Equal(t, audit.ReasonOldPINMismatch, records[len(records)-1].Reason)
	})

	t.Run("success then login round trip", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/owner/change-pin",
			verify.ChangePINRequest{TagID: "OWN10001", OldPIN: "5555", NewPIN: "7777"})
		rr := testutil.DoRequest(router, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		resp := testutil.UnmarshalResponse[envelope](t, rr)
		assert.True(t, resp.OK)
		assert.Equal(t, "PIN updated successfully", resp.Message)
		require.NotNil(t, resp.TagID)
		assert.Equal(t, "OWN10001", *resp.TagID)

		oldLogin := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/owner/login",
			verify.OwnerLoginRequest{TagID: "OWN10001", PIN: "5555"}))
		assert.Equal(t, "OWNER_NOT_VERIFIED", testutil.UnmarshalResponse[envelope](t, oldLogin).Status)

		newLogin := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/owner/login",
			verify.OwnerLoginRequest{TagID: "OWN10001", PIN: "7777"}))
		assert.Equal(t, "OWNER_AUTHENTIC", testutil.UnmarshalResponse[envelope](t, newLogin).Status)
	})
}

func TestEnterpriseEndpoints(t *testing.T) {
	router, _, _ := newTestRouter(t)

	t.Run("provision then verify", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/enterprise/tags",
			verify.ProvisionRequest{TagID: "NEW12345", PIN: "4321", Active: true}))
		assert.Equal(t, http.StatusOK, rr.Code)

		verifyRR := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/verify",
			verify.VerifyRequest{TagID: "NEW12345", PIN: "4321"}))
		assert.Equal(t, "AUTHENTIC", testutil.UnmarshalResponse[envelope](t, verifyRR).Status)
	})

	t.Run("audit listing by tag", func(t *testing.T) {
		rr := testutil.DoRequest(router,
			testutil.NewJSONRequest(t, http.MethodGet, "/enterprise/audits?tagId=NEW12345", nil))
		assert.Equal(t, http.StatusOK, rr.Code)

		type listing struct {
			OK     bool           `json:"ok"`
			Audits []audit.Record `json:"audits"`
		}
		resp := testutil.UnmarshalResponse[listing](t, rr)
		assert.True(t, resp.OK)
		assert.NotEmpty(t, resp.Audits)
		for _, record := range resp.Audits {
			assert.Equal(t, "NEW12345", record.TagID)
		}
	})

	t.Run("invalid limit", func(t *testing.T) {
		rr := testutil.DoRequest(router,
			testutil.NewJSONRequest(t, http.MethodGet, "/enterprise/audits?limit=zero", nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestHealthEndpoint(t *testing.T) {
	t.Run("no dependency", func(t *testing.T) {
		router, _, _ := newTestRouter(t)
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("failing dependency", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		tags := tag.NewInMemoryStore()
		audits := audit.NewInMemoryStore()
		recorder := audit.NewRecorder(audits, nil, logger, nil)
		svc := verify.NewService(tags, recorder, logger, nil)
		handler := NewHandler(svc, audits, logger, func(context.Context) error {
			return errors.New("store down")
		})
		router := NewRouter(handler, logger)

		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	router, _, _ := newTestRouter(t)
	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}
