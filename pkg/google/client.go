package google

import (
	"context"
	"fmt"

	"github.com/harrisonrobin/taskctx/pkg/auth"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// ServiceFactory builds an authenticated Calendar service on demand.
type ServiceFactory func(ctx context.Context) (*calendar.Service, error)

// ServiceFromAuth builds the service from the token stored by m.
func ServiceFromAuth(m *auth.Manager) ServiceFactory {
	return func(ctx context.Context) (*calendar.Service, error) {
		client, err := m.HTTPClient(ctx)
		if err != nil {
			return nil, err
		}
		srv, err := calendar.NewService(ctx, option.WithHTTPClient(client))
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve Calendar client: %w", err)
		}
		return srv, nil
	}
}

// resolveCalendarID maps a calendar summary to its id. "primary" and the empty
// name need no lookup.
func resolveCalendarID(ctx context.Context, srv *calendar.Service, calendarName string) (string, error) {
	if calendarName == "" || calendarName == "primary" {
		return "primary", nil
	}

	calendarList, err := srv.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to retrieve calendar list: %w", err)
	}
	for _, item := range calendarList.Items {
		if item.Summary == calendarName || item.Id == calendarName {
			return item.Id, nil
		}
	}
	return "", fmt.Errorf("calendar '%s' not found", calendarName)
}
