package service

import (
	"context"
	"strings"

	"connectrpc.com/connect"
)

// Client is a SettlementService client.
type Client struct {
	runSettlement        *connect.Client[RunSettlementRequest, RunSettlementResponse]
	listDailySettlements *connect.Client[ListDailySettlementsRequest, ListDailySettlementsResponse]
	listSponsorCredits   *connect.Client[ListSponsorCreditsRequest, ListSponsorCreditsResponse]
	getParticipant       *connect.Client[GetParticipantRequest, GetParticipantResponse]
	enrollParticipant    *connect.Client[EnrollParticipantRequest, EnrollParticipantResponse]
	previewDay           *connect.Client[PreviewDayRequest, PreviewDayResponse]
}

// NewClient constructs a client for the service at baseURL (e.g. http://localhost:8080).
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &Client{
		runSettlement:        connect.NewClient[RunSettlementRequest, RunSettlementResponse](httpClient, baseURL+RunSettlementProcedure, opts...),
		listDailySettlements: connect.NewClient[ListDailySettlementsRequest, ListDailySettlementsResponse](httpClient, baseURL+ListDailySettlementsProcedure, opts...),
		listSponsorCredits:   connect.NewClient[ListSponsorCreditsRequest, ListSponsorCreditsResponse](httpClient, baseURL+ListSponsorCreditsProcedure, opts...),
		getParticipant:       connect.NewClient[GetParticipantRequest, GetParticipantResponse](httpClient, baseURL+GetParticipantProcedure, opts...),
		enrollParticipant:    connect.NewClient[EnrollParticipantRequest, EnrollParticipantResponse](httpClient, baseURL+EnrollParticipantProcedure, opts...),
		previewDay:           connect.NewClient[PreviewDayRequest, PreviewDayResponse](httpClient, baseURL+PreviewDayProcedure, opts...),
	}
}

// RunSettlement calls binarypay.v1.SettlementService.RunSettlement.
func (c *Client) RunSettlement(ctx context.Context, req *connect.Request[RunSettlementRequest]) (*connect.Response[RunSettlementResponse], error) {
	return c.runSettlement.CallUnary(ctx, req)
}

// ListDailySettlements calls binarypay.v1.SettlementService.ListDailySettlements.
func (c *Client) ListDailySettlements(ctx context.Context, req *connect.Request[ListDailySettlementsRequest]) (*connect.Response[ListDailySettlementsResponse], error) {
	return c.listDailySettlements.CallUnary(ctx, req)
}

// ListSponsorCredits calls binarypay.v1.SettlementService.ListSponsorCredits.
func (c *Client) ListSponsorCredits(ctx context.Context, req *connect.Request[ListSponsorCreditsRequest]) (*connect.Response[ListSponsorCreditsResponse], error) {
	return c.listSponsorCredits.CallUnary(ctx, req)
}

// GetParticipant calls binarypay.v1.SettlementService.GetParticipant.
func (c *Client) GetParticipant(ctx context.Context, req *connect.Request[GetParticipantRequest]) (*connect.Response[GetParticipantResponse], error) {
	return c.getParticipant.CallUnary(ctx, req)
}

// EnrollParticipant calls binarypay.v1.SettlementService.EnrollParticipant.
func (c *Client) EnrollParticipant(ctx context.Context, req *connect.Request[EnrollParticipantRequest]) (*connect.Response[EnrollParticipantResponse], error) {
	return c.enrollParticipant.CallUnary(ctx, req)
}

// PreviewDay calls binarypay.v1.SettlementService.PreviewDay.
func (c *Client) PreviewDay(ctx context.Context, req *connect.Request[PreviewDayRequest]) (*connect.Response[PreviewDayResponse], error) {
	return c.previewDay.CallUnary(ctx, req)
}
