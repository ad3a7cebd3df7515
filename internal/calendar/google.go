package calendar

import (
	"context"
	"time"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const conferenceType = "hangoutsMeet"

// GoogleClient inserts events into a single Google calendar. It holds no
// per-request state and may be shared across concurrent commands.
type GoogleClient struct {
	svc        *gcal.Service
	calendarID string
}

// NewGoogleClient builds a calendar client from an OAuth token source.
func NewGoogleClient(ctx context.Context, ts oauth2.TokenSource, calendarID string) (*GoogleClient, error) {
	svc, err := gcal.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, err
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	return &GoogleClient{svc: svc, calendarID: calendarID}, nil
}

// InsertEvent creates the event with an attached Meet conference. The
// request id rides along as the conference creation key so a transparently
// retried call cannot create two conferences.
func (c *GoogleClient) InsertEvent(ctx context.Context, req Request) (InsertResult, error) {
	event := &gcal.Event{
		Summary: req.Summary,
		Start:   &gcal.EventDateTime{DateTime: req.Start.Format(time.RFC3339)},
		End:     &gcal.EventDateTime{DateTime: req.End.Format(time.RFC3339)},
		ConferenceData: &gcal.ConferenceData{
			CreateRequest: &gcal.CreateConferenceRequest{
				RequestId:             req.RequestID,
				ConferenceSolutionKey: &gcal.ConferenceSolutionKey{Type: conferenceType},
			},
		},
	}
	created, err := c.svc.Events.Insert(c.calendarID, event).
		ConferenceDataVersion(1).
		Context(ctx).
		Do()
	if err != nil {
		return InsertResult{}, err
	}
	res := InsertResult{
		HTTPStatus: created.ServerResponse.HTTPStatusCode,
		EventID:    created.Id,
	}
	if created.ConferenceData != nil {
		for _, ep := range created.ConferenceData.EntryPoints {
			if ep.Uri != "" {
				res.MeetLink = ep.Uri
				break
			}
		}
	}
	return res, nil
}
