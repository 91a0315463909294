package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/binarypay/internal/auth"
	"github.com/mmynk/binarypay/internal/engine"
	"github.com/mmynk/binarypay/internal/middleware"
	"github.com/mmynk/binarypay/internal/plan"
	"github.com/mmynk/binarypay/internal/storage"
	"github.com/mmynk/binarypay/internal/storage/sqlite"
)

const runDay = "2030-05-10"

type testEnv struct {
	client *Client
	store  storage.Store
	token  string
}

// setupTestServer serves the SettlementService over httptest with operator auth on.
func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "service.db"))
	require.NoError(t, err)

	now := time.Date(2030, 5, 10, 22, 0, 0, 0, time.UTC)
	eng, err := engine.New(store, plan.Default(), engine.WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	token, err := jwtManager.Generate("ops")
	require.NoError(t, err)

	svc := NewSettlementService(store, eng)
	svc.now = func() time.Time { return now }
	path, handler := NewHandler(svc, connect.WithInterceptors(
		middleware.RequireOperator(jwtManager, MutatingProcedures...),
		middleware.LoggingInterceptor(),
	))

	mux := http.NewServeMux()
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)

	t.Cleanup(func() {
		server.Close()
		store.Close()
	})

	return &testEnv{
		client: NewClient(http.DefaultClient, server.URL),
		store:  store,
		token:  token,
	}
}

func withToken[T any](token string, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set("Authorization", "Bearer "+token)
	return req
}

func (env *testEnv) enroll(t *testing.T, msg *EnrollParticipantRequest) {
	t.Helper()
	_, err := env.client.EnrollParticipant(context.Background(), withToken(env.token, msg))
	require.NoError(t, err)
}

func TestMutatingProceduresRequireOperator(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	_, err := env.client.EnrollParticipant(ctx, connect.NewRequest(&EnrollParticipantRequest{Name: "root"}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	_, err = env.client.RunSettlement(ctx, withToken("garbage", &RunSettlementRequest{Date: runDay}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	// reads stay open
	_, err = env.client.ListDailySettlements(ctx, connect.NewRequest(&ListDailySettlementsRequest{Date: runDay}))
	assert.NoError(t, err)
}

func TestSettlementFlow(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	before := "2030-05-08"

	env.enroll(t, &EnrollParticipantRequest{ID: "R", Name: "Rita", JoinedOn: before})
	env.enroll(t, &EnrollParticipantRequest{ID: "P", Name: "Paul", ParentID: "R", Side: "left", SponsorID: "R", JoinedOn: before})
	env.enroll(t, &EnrollParticipantRequest{ID: "A", Name: "Ann", ParentID: "P", Side: "left", SponsorID: "P", JoinedOn: runDay})
	env.enroll(t, &EnrollParticipantRequest{ID: "B", Name: "Ben", ParentID: "A", Side: "left", SponsorID: "P", JoinedOn: runDay})
	env.enroll(t, &EnrollParticipantRequest{ID: "Z", Name: "Zoe", ParentID: "P", Side: "right", SponsorID: "P", JoinedOn: runDay})

	preview, err := env.client.PreviewDay(ctx, connect.NewRequest(&PreviewDayRequest{ParticipantID: "P", Date: runDay}))
	require.NoError(t, err)
	assert.Equal(t, int64(2), preview.Msg.LeftJoins)
	assert.Equal(t, int64(1), preview.Msg.RightJoins)
	assert.True(t, preview.Msg.Unlocked)
	assert.True(t, preview.Msg.SponsorMirrorBase.Equal(decimal.NewFromInt(500)))

	run, err := env.client.RunSettlement(ctx, withToken(env.token, &RunSettlementRequest{Date: runDay}))
	require.NoError(t, err)
	summary := run.Msg.Summary
	assert.Equal(t, "completed", summary.Status)
	assert.Equal(t, 5, summary.Participants)
	assert.Equal(t, 5, summary.Settled)
	assert.True(t, summary.EligibilityBonus.Equal(decimal.NewFromInt(500)))
	// R is not eligible, so P's mirror is forfeited
	assert.Equal(t, 1, summary.CreditsForfeited)
	assert.Equal(t, 0, summary.CreditsIssued)

	list, err := env.client.ListDailySettlements(ctx, connect.NewRequest(&ListDailySettlementsRequest{Date: runDay}))
	require.NoError(t, err)
	assert.Len(t, list.Msg.Settlements, 5)

	credits, err := env.client.ListSponsorCredits(ctx, connect.NewRequest(&ListSponsorCreditsRequest{Date: runDay}))
	require.NoError(t, err)
	assert.Empty(t, credits.Msg.Credits)

	p, err := env.client.GetParticipant(ctx, connect.NewRequest(&GetParticipantRequest{ParticipantID: "P"}))
	require.NoError(t, err)
	assert.True(t, p.Msg.Participant.BinaryEligible)
	assert.Equal(t, int64(1), p.Msg.Participant.LeftCarry)
	assert.True(t, p.Msg.Participant.EligibilityIncome.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, "R", p.Msg.Participant.SponsorID)
}

func TestEnrollErrors(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	env.enroll(t, &EnrollParticipantRequest{ID: "R", Name: "Rita", JoinedOn: runDay})
	env.enroll(t, &EnrollParticipantRequest{ID: "L", Name: "Lee", ParentID: "R", Side: "left", JoinedOn: runDay})

	tests := []struct {
		name string
		msg  *EnrollParticipantRequest
		code connect.Code
	}{
		{"missing name", &EnrollParticipantRequest{ParentID: "R", Side: "right"}, connect.CodeInvalidArgument},
		{"bad side", &EnrollParticipantRequest{Name: "x", ParentID: "R", Side: "up"}, connect.CodeInvalidArgument},
		{"bad date", &EnrollParticipantRequest{Name: "x", ParentID: "R", Side: "right", JoinedOn: "10/05/2030"}, connect.CodeInvalidArgument},
		{"slot taken", &EnrollParticipantRequest{Name: "x", ParentID: "R", Side: "left"}, connect.CodeAlreadyExists},
		{"second root", &EnrollParticipantRequest{Name: "x"}, connect.CodeAlreadyExists},
		{"unknown parent", &EnrollParticipantRequest{Name: "x", ParentID: "ghost", Side: "left"}, connect.CodeNotFound},
		{"unknown sponsor", &EnrollParticipantRequest{Name: "x", ParentID: "R", Side: "right", SponsorID: "ghost"}, connect.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.client.EnrollParticipant(ctx, withToken(env.token, tt.msg))
			assert.Equal(t, tt.code, connect.CodeOf(err), "error: %v", err)
		})
	}
}

func TestRunSettlementErrors(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	_, err := env.client.RunSettlement(ctx, withToken(env.token, &RunSettlementRequest{Date: "yesterday"}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = env.client.RunSettlement(ctx, withToken(env.token, &RunSettlementRequest{Date: "2030-05-11"}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	date := time.Date(2030, 5, 10, 0, 0, 0, 0, time.UTC)
	ok, err := env.store.AcquireRunLock(ctx, date, "other", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = env.client.RunSettlement(ctx, withToken(env.token, &RunSettlementRequest{Date: runDay}))
	assert.Equal(t, connect.CodeAborted, connect.CodeOf(err))
}

func TestGetParticipantErrors(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	_, err := env.client.GetParticipant(ctx, connect.NewRequest(&GetParticipantRequest{}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = env.client.GetParticipant(ctx, connect.NewRequest(&GetParticipantRequest{ParticipantID: "ghost"}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}
