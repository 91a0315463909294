// Package service exposes the settlement engine over connect RPC.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/binarypay/internal/calculator"
	"github.com/mmynk/binarypay/internal/engine"
	"github.com/mmynk/binarypay/internal/models"
	"github.com/mmynk/binarypay/internal/report"
	"github.com/mmynk/binarypay/internal/storage"
)

const (
	// ServiceName is the fully-qualified name of the SettlementService.
	ServiceName = "binarypay.v1.SettlementService"

	RunSettlementProcedure        = "/" + ServiceName + "/RunSettlement"
	ListDailySettlementsProcedure = "/" + ServiceName + "/ListDailySettlements"
	ListSponsorCreditsProcedure   = "/" + ServiceName + "/ListSponsorCredits"
	GetParticipantProcedure       = "/" + ServiceName + "/GetParticipant"
	EnrollParticipantProcedure    = "/" + ServiceName + "/EnrollParticipant"
	PreviewDayProcedure           = "/" + ServiceName + "/PreviewDay"
)

// MutatingProcedures are the procedures that change state and require an operator.
var MutatingProcedures = []string{RunSettlementProcedure, EnrollParticipantProcedure}

// Settler runs and previews settlements.
type Settler interface {
	Run(ctx context.Context, date time.Time, opts engine.RunOptions) (*models.RunSummary, error)
	Preview(ctx context.Context, participantID string, date time.Time) (calculator.DayInput, calculator.DayResult, error)
}

// SettlementService implements the connect SettlementService.
type SettlementService struct {
	store   storage.Store
	settler Settler
	now     func() time.Time
}

// NewSettlementService creates a new SettlementService.
func NewSettlementService(store storage.Store, settler Settler) *SettlementService {
	return &SettlementService{store: store, settler: settler, now: time.Now}
}

// NewHandler builds the HTTP handler serving every SettlementService procedure and
// returns the path prefix to mount it on.
func NewHandler(svc *SettlementService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(RunSettlementProcedure, connect.NewUnaryHandler(RunSettlementProcedure, svc.RunSettlement, opts...))
	mux.Handle(ListDailySettlementsProcedure, connect.NewUnaryHandler(ListDailySettlementsProcedure, svc.ListDailySettlements, opts...))
	mux.Handle(ListSponsorCreditsProcedure, connect.NewUnaryHandler(ListSponsorCreditsProcedure, svc.ListSponsorCredits, opts...))
	mux.Handle(GetParticipantProcedure, connect.NewUnaryHandler(GetParticipantProcedure, svc.GetParticipant, opts...))
	mux.Handle(EnrollParticipantProcedure, connect.NewUnaryHandler(EnrollParticipantProcedure, svc.EnrollParticipant, opts...))
	mux.Handle(PreviewDayProcedure, connect.NewUnaryHandler(PreviewDayProcedure, svc.PreviewDay, opts...))
	return "/" + ServiceName + "/", mux
}

// parseDate reads a request date, defaulting to today.
func (s *SettlementService) parseDate(v string) (time.Time, error) {
	if v == "" {
		return models.Day(s.now()), nil
	}
	d, err := models.ParseDate(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", errInvalidArgument, err)
	}
	return d, nil
}

// RunSettlement runs the orchestrator for a date.
func (s *SettlementService) RunSettlement(ctx context.Context, req *connect.Request[RunSettlementRequest]) (*connect.Response[RunSettlementResponse], error) {
	slog.Info("RunSettlement request received",
		"date", req.Msg.Date,
		"subtree_root", req.Msg.SubtreeRoot,
	)

	date, err := s.parseDate(req.Msg.Date)
	if err != nil {
		return nil, toConnectError(err)
	}

	summary, err := s.settler.Run(ctx, date, engine.RunOptions{SubtreeRoot: req.Msg.SubtreeRoot})
	if err != nil {
		slog.Warn("RunSettlement failed", "date", models.FormatDate(date), "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&RunSettlementResponse{
		Summary: report.NewSummary(summary),
	}), nil
}

// ListDailySettlements returns the ledger rows of a date.
func (s *SettlementService) ListDailySettlements(ctx context.Context, req *connect.Request[ListDailySettlementsRequest]) (*connect.Response[ListDailySettlementsResponse], error) {
	date, err := s.parseDate(req.Msg.Date)
	if err != nil {
		return nil, toConnectError(err)
	}

	rows, err := s.store.ListDailySettlements(ctx, date)
	if err != nil {
		slog.Error("ListDailySettlements failed", "date", models.FormatDate(date), "error", err)
		return nil, toConnectError(err)
	}

	out := make([]report.Settlement, len(rows))
	for i, row := range rows {
		out[i] = report.NewSettlement(row)
	}

	slog.Info("ListDailySettlements successful", "date", models.FormatDate(date), "count", len(out))

	return connect.NewResponse(&ListDailySettlementsResponse{Settlements: out}), nil
}

// ListSponsorCredits returns the sponsor credits of a date.
func (s *SettlementService) ListSponsorCredits(ctx context.Context, req *connect.Request[ListSponsorCreditsRequest]) (*connect.Response[ListSponsorCreditsResponse], error) {
	date, err := s.parseDate(req.Msg.Date)
	if err != nil {
		return nil, toConnectError(err)
	}

	credits, err := s.store.ListSponsorCredits(ctx, date)
	if err != nil {
		slog.Error("ListSponsorCredits failed", "date", models.FormatDate(date), "error", err)
		return nil, toConnectError(err)
	}

	out := make([]report.Credit, len(credits))
	for i, c := range credits {
		out[i] = report.NewCredit(c)
	}

	return connect.NewResponse(&ListSponsorCreditsResponse{Credits: out}), nil
}

// GetParticipant retrieves a participant with its lifetime balances.
func (s *SettlementService) GetParticipant(ctx context.Context, req *connect.Request[GetParticipantRequest]) (*connect.Response[GetParticipantResponse], error) {
	if req.Msg.ParticipantID == "" {
		return nil, toConnectError(fmt.Errorf("%w: participant_id is required", errInvalidArgument))
	}

	p, err := s.store.GetParticipant(ctx, req.Msg.ParticipantID)
	if err != nil {
		slog.Error("GetParticipant failed", "participant_id", req.Msg.ParticipantID, "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&GetParticipantResponse{
		Participant: report.NewParticipant(p),
	}), nil
}

// EnrollParticipant places a new participant in the tree.
func (s *SettlementService) EnrollParticipant(ctx context.Context, req *connect.Request[EnrollParticipantRequest]) (*connect.Response[EnrollParticipantResponse], error) {
	slog.Info("EnrollParticipant request received",
		"name", req.Msg.Name,
		"parent_id", req.Msg.ParentID,
		"side", req.Msg.Side,
		"sponsor_id", req.Msg.SponsorID,
	)

	if req.Msg.Name == "" {
		return nil, toConnectError(fmt.Errorf("%w: name is required", errInvalidArgument))
	}
	joined, err := s.parseDate(req.Msg.JoinedOn)
	if err != nil {
		return nil, toConnectError(err)
	}

	p := &models.Participant{
		ID:        req.Msg.ID,
		Name:      req.Msg.Name,
		ParentID:  req.Msg.ParentID,
		Side:      models.Side(req.Msg.Side),
		SponsorID: req.Msg.SponsorID,
		JoinedOn:  joined,
		Active:    true,
	}
	if err := s.store.CreateParticipant(ctx, p); err != nil {
		slog.Error("EnrollParticipant failed", "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Participant enrolled", "participant_id", p.ID)

	return connect.NewResponse(&EnrollParticipantResponse{
		Participant: report.NewParticipant(p),
	}), nil
}

// PreviewDay resolves a participant's day without writing anything.
func (s *SettlementService) PreviewDay(ctx context.Context, req *connect.Request[PreviewDayRequest]) (*connect.Response[PreviewDayResponse], error) {
	if req.Msg.ParticipantID == "" {
		return nil, toConnectError(fmt.Errorf("%w: participant_id is required", errInvalidArgument))
	}
	date, err := s.parseDate(req.Msg.Date)
	if err != nil {
		return nil, toConnectError(err)
	}

	in, out, err := s.settler.Preview(ctx, req.Msg.ParticipantID, date)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&PreviewDayResponse{
		LeftCarry:         in.LeftCarry,
		RightCarry:        in.RightCarry,
		LeftJoins:         in.LeftJoins,
		RightJoins:        in.RightJoins,
		AlreadyEligible:   in.AlreadyEligible,
		Unlocked:          out.Unlocked,
		EligibilityBonus:  out.EligibilityBonus,
		Pairs:             out.PayablePairs,
		BinaryIncome:      out.BinaryIncome,
		FlashoutUnits:     out.FlashoutUnits,
		FlashoutAmount:    out.FlashoutAmount,
		WashedPairs:       out.WashedPairs,
		LeftCarryAfter:    out.LeftCarryAfter,
		RightCarryAfter:   out.RightCarryAfter,
		SponsorMirrorBase: out.SponsorMirrorBase,
	}), nil
}
